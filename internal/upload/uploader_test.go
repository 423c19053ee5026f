package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"slotledger/internal/config"
	apperrors "slotledger/internal/errors"
)

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "artifact.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestCommitMessage(t *testing.T) {
	assert.Equal(t, "Add data for 2024-10-17", CommitMessage(time.Date(2024, 10, 17, 15, 0, 0, 0, time.UTC)))
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.UploadConfig
		wantNil bool
		wantErr bool
	}{
		{name: "disabled", cfg: config.UploadConfig{Provider: "directory"}, wantNil: true},
		{name: "directory", cfg: config.UploadConfig{Enabled: true, Provider: "directory", Directory: "mirror"}},
		{name: "unknown provider", cfg: config.UploadConfig{Enabled: true, Provider: "ftp"}, wantErr: true},
		{name: "drive without credentials", cfg: config.UploadConfig{Enabled: true, Provider: "drive", CredentialsFile: "missing.json"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := New(context.Background(), tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantNil {
				assert.Nil(t, u)
			} else {
				assert.NotNil(t, u)
			}
		})
	}
}

func TestDirectoryUploader_CreateThenUpdate(t *testing.T) {
	root := t.TempDir()
	u := NewDirectoryUploader(root, nil)
	ctx := context.Background()

	first, err := u.Upload(ctx, writeArtifact(t, "v1"), "data/csv/a.csv", "Add data for 2024-10-17")
	require.NoError(t, err)
	assert.True(t, first.Created)
	assert.Equal(t, filepath.Join(root, "data", "csv", "a.csv"), first.Location)

	second, err := u.Upload(ctx, writeArtifact(t, "v2"), "data/csv/a.csv", "Add data for 2024-10-18")
	require.NoError(t, err)
	assert.False(t, second.Created)

	data, err := os.ReadFile(first.Location)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
}

func TestDirectoryUploader_Errors(t *testing.T) {
	u := NewDirectoryUploader(t.TempDir(), nil)

	_, err := u.Upload(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), "a.csv", "m")
	assert.ErrorIs(t, err, apperrors.ErrUpload)

	_, err = u.Upload(context.Background(), writeArtifact(t, "x"), "", "m")
	assert.ErrorIs(t, err, apperrors.ErrUpload)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = u.Upload(ctx, writeArtifact(t, "x"), "a.csv", "m")
	assert.ErrorIs(t, err, apperrors.ErrUpload)
}

func TestDirectoryUploader_DestCannotEscapeRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "mirror")
	u := NewDirectoryUploader(root, nil)

	out, err := u.Upload(context.Background(), writeArtifact(t, "x"), "../../escape.csv", "m")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "escape.csv"), out.Location)
}

// fakeDrive answers the subset of the Drive v3 REST API used by DriveUploader.
type fakeDrive struct {
	mu      sync.Mutex
	nextID  int
	byName  map[string]string
	updates []string
	creates []string
}

func (d *fakeDrive) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, _ = io.Copy(io.Discard, r.Body)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/files"):
		q := r.URL.Query().Get("q")
		name := between(q, "name = '", "'")
		parent := between(q, "and '", "' in parents")
		var files []map[string]string
		if id, ok := d.byName[parent+"/"+name]; ok {
			files = append(files, map[string]string{"id": id})
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"files": files})

	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/files"):
		d.nextID++
		id := fmt.Sprintf("id%d", d.nextID)
		d.creates = append(d.creates, id)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id})

	case r.Method == http.MethodPatch:
		id := r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:]
		d.updates = append(d.updates, id)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": id, "webViewLink": "https://drive.example/" + id})

	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotImplemented)
	}
}

func between(s, start, end string) string {
	i := strings.Index(s, start)
	if i < 0 {
		return ""
	}
	s = s[i+len(start):]
	if j := strings.Index(s, end); j >= 0 {
		return s[:j]
	}
	return s
}

func newDriveUploader(t *testing.T, fake *fakeDrive) *DriveUploader {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	u, err := NewDriveUploaderWithOptions(context.Background(), "rootfolder", nil,
		option.WithEndpoint(srv.URL+"/drive/v3/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return u
}

func TestDriveUploader_CreatesFoldersAndFile(t *testing.T) {
	fake := &fakeDrive{byName: map[string]string{}}
	u := newDriveUploader(t, fake)

	out, err := u.Upload(context.Background(), writeArtifact(t, "csv"), "data/csv/a.csv", "Add data for 2024-10-17")
	require.NoError(t, err)
	assert.True(t, out.Created)
	assert.Equal(t, "data/csv/a.csv", out.Dest)
	// two folders then the file
	assert.Len(t, fake.creates, 3)
	assert.Empty(t, fake.updates)
}

func TestDriveUploader_UpdatesExisting(t *testing.T) {
	fake := &fakeDrive{byName: map[string]string{
		"rootfolder/data":   "f1",
		"f1/excel":          "f2",
		"f2/aggregate.xlsx": "file9",
	}}
	u := newDriveUploader(t, fake)

	out, err := u.Upload(context.Background(), writeArtifact(t, "xlsx"), "data/excel/aggregate.xlsx", "Add data for 2024-10-17")
	require.NoError(t, err)
	assert.False(t, out.Created)
	assert.Equal(t, "https://drive.example/file9", out.Location)
	assert.Equal(t, []string{"file9"}, fake.updates)
	assert.Empty(t, fake.creates)
}

func TestDriveUploader_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	u, err := NewDriveUploaderWithOptions(context.Background(), "", nil,
		option.WithEndpoint(srv.URL+"/drive/v3/"),
		option.WithoutAuthentication())
	require.NoError(t, err)

	_, err = u.Upload(context.Background(), writeArtifact(t, "x"), "a.csv", "m")
	assert.ErrorIs(t, err, apperrors.ErrUpload)
}
