package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileValidator_ValidateStoreDirectory(t *testing.T) {
	tests := []struct {
		name          string
		setupFunc     func(t *testing.T) string
		pattern       string
		wantCount     int
		wantNotExist  bool
		errorContains string
	}{
		{
			name: "snapshots counted",
			setupFunc: func(t *testing.T) string {
				dir := t.TempDir()
				for _, name := range []string{"slot_machine_data_2024-10-17.csv", "slot_machine_data_2024-10-18.csv", "notes.txt"} {
					require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
				}
				require.NoError(t, os.Mkdir(filepath.Join(dir, "slot_machine_data_dir.csv"), 0o755))
				return dir
			},
			pattern:   "slot_machine_data_*.csv",
			wantCount: 2,
		},
		{
			name:      "empty directory",
			setupFunc: func(t *testing.T) string { return t.TempDir() },
			pattern:   "*.csv",
		},
		{
			name:         "missing directory",
			setupFunc:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "absent") },
			pattern:      "*.csv",
			wantNotExist: true,
		},
		{
			name: "path is a file",
			setupFunc: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "store")
				require.NoError(t, os.WriteFile(path, nil, 0o644))
				return path
			},
			errorContains: "not a directory",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewFileValidator(nil)
			count, err := v.ValidateStoreDirectory(tt.setupFunc(t), tt.pattern)

			switch {
			case tt.wantNotExist:
				assert.ErrorIs(t, err, ErrNotExist)
			case tt.errorContains != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantCount, count)
			}
		})
	}
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	v := NewFileValidator(nil)

	dir := t.TempDir()
	require.NoError(t, v.ValidateOutputDirectory(dir))
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "write test file must be removed")

	missing := filepath.Join(dir, "absent")
	assert.ErrorIs(t, v.ValidateOutputDirectory(missing), ErrNotExist)
	assert.NoDirExists(t, missing)
}

func TestFileValidator_ValidateWorkbookFile(t *testing.T) {
	dir := t.TempDir()
	write := func(name string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("PK"), 0o644))
		return path
	}

	tests := []struct {
		name          string
		path          string
		wantNotExist  bool
		errorContains string
	}{
		{name: "workbook", path: write("aggregate.xlsx")},
		{name: "upper case extension", path: write("AGGREGATE.XLSX")},
		{name: "csv rejected", path: write("aggregate.csv"), errorContains: "not an xlsx workbook"},
		{name: "lock file rejected", path: write("~$aggregate.xlsx"), errorContains: "temporary Excel file"},
		{name: "missing", path: filepath.Join(dir, "none.xlsx"), wantNotExist: true},
		{name: "directory", path: dir, errorContains: "is a directory"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewFileValidator(nil).ValidateWorkbookFile(tt.path)
			switch {
			case tt.wantNotExist:
				assert.ErrorIs(t, err, ErrNotExist)
			case tt.errorContains != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorContains)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
