package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"slotledger/internal/config"
	apierrors "slotledger/internal/errors"
	custommw "slotledger/internal/middleware"
	"slotledger/internal/operations"
	"slotledger/internal/shared/testutil"
)

type mockPipeline struct {
	mock.Mock
}

func (m *mockPipeline) Run(_ context.Context, req operations.Request) (*operations.Result, error) {
	args := m.Called(req)
	result, _ := args.Get(0).(*operations.Result)
	return result, args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Store.Dir = filepath.Join(dir, "store")
	cfg.Workbook.Path = filepath.Join(dir, "aggregate.xlsx")
	return cfg
}

func newRouter(pipeline PipelineRunner, cfg *config.Config) http.Handler {
	logger := discardLogger()
	h := NewIngestHandler(pipeline, cfg, logger, apierrors.NewErrorHandler(logger, false))
	r := chi.NewRouter()
	r.Use(custommw.RequestID)
	r.Mount("/api", h.Routes())
	return r
}

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func multipartRequest(t *testing.T, filename, markup, date string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(markup))
	require.NoError(t, err)
	if date != "" {
		require.NoError(t, mw.WriteField("date", date))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestIngestHandler_Ingest(t *testing.T) {
	okResult := &operations.Result{RunID: "run-1", Status: operations.RunStatusDone, Date: "2024-10-01", Records: 2}

	tests := []struct {
		name       string
		request    func(t *testing.T) *http.Request
		setupMock  func(m *mockPipeline)
		wantStatus int
		check      func(t *testing.T, body map[string]interface{})
	}{
		{
			name: "inline markup with date",
			request: func(t *testing.T) *http.Request {
				return formRequest(url.Values{"markup": {"<table></table>"}, "date": {"2024-10-01"}})
			},
			setupMock: func(m *mockPipeline) {
				m.On("Run", mock.MatchedBy(func(req operations.Request) bool {
					return req.Date.Equal(time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)) &&
						req.Source.Describe() == "text:inline(15 bytes)"
				})).Return(okResult, nil)
			},
			wantStatus: http.StatusCreated,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "run-1", body["run_id"])
				assert.Equal(t, "done", body["status"])
				assert.EqualValues(t, 2, body["records"])
			},
		},
		{
			name: "uploaded file without date",
			request: func(t *testing.T) *http.Request {
				return multipartRequest(t, "hall.html", "<table></table>", "")
			},
			setupMock: func(m *mockPipeline) {
				m.On("Run", mock.MatchedBy(func(req operations.Request) bool {
					return req.Date.IsZero() && req.Source.Describe() == "text:hall.html(15 bytes)"
				})).Return(okResult, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "missing markup",
			request: func(t *testing.T) *http.Request {
				return formRequest(url.Values{"date": {"2024-10-01"}})
			},
			wantStatus: http.StatusBadRequest,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, apierrors.TypeValidation, body["type"])
			},
		},
		{
			name: "malformed date",
			request: func(t *testing.T) *http.Request {
				return formRequest(url.Values{"markup": {"<table></table>"}, "date": {"2024/10/01"}})
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "unsupported content type",
			request: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/api/ingest", strings.NewReader(`{"markup":"x"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			wantStatus: http.StatusUnsupportedMediaType,
		},
		{
			name: "store unavailable",
			request: func(t *testing.T) *http.Request {
				return formRequest(url.Values{"markup": {"<table></table>"}})
			},
			setupMock: func(m *mockPipeline) {
				partial := &operations.Result{RunID: "run-2", Status: operations.RunStatusFailed, FailedStep: operations.StepIDStore}
				cause := apierrors.NewStorageError("snapshot directory missing", apierrors.ErrStoreUnavailable)
				m.On("Run", mock.Anything).Return(partial, operations.NewExecutionError(operations.StepIDStore, cause))
			},
			wantStatus: http.StatusServiceUnavailable,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, apierrors.TypeStore, body["type"])
				assert.Equal(t, "store", body["failed_step"])
				require.Contains(t, body, "result")
				assert.Equal(t, "run-2", body["result"].(map[string]interface{})["run_id"])
			},
		},
		{
			name: "parse failure",
			request: func(t *testing.T) *http.Request {
				return formRequest(url.Values{"markup": {"<table"}})
			},
			setupMock: func(m *mockPipeline) {
				cause := apierrors.NewParsingError("malformed markup", nil)
				m.On("Run", mock.Anything).Return(nil, operations.NewExecutionError(operations.StepIDExtract, cause))
			},
			wantStatus: http.StatusUnprocessableEntity,
			check: func(t *testing.T, body map[string]interface{}) {
				assert.Equal(t, "extract", body["failed_step"])
				assert.NotContains(t, body, "result")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pipeline := new(mockPipeline)
			if tt.setupMock != nil {
				tt.setupMock(pipeline)
			}

			rec := httptest.NewRecorder()
			newRouter(pipeline, testConfig(t)).ServeHTTP(rec, tt.request(t))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.check != nil {
				tt.check(t, decodeBody(t, rec))
			}
			if tt.setupMock == nil {
				pipeline.AssertNotCalled(t, "Run", mock.Anything)
			} else {
				pipeline.AssertExpectations(t)
			}
		})
	}
}

func TestIngestHandler_PayloadTooLarge(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.MaxUploadBytes = 256
	pipeline := new(mockPipeline)

	rec := httptest.NewRecorder()
	req := multipartRequest(t, "big.html", strings.Repeat("<tr><td>1</td></tr>", 100), "")
	newRouter(pipeline, cfg).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
	pipeline.AssertNotCalled(t, "Run", mock.Anything)
}

func TestIngestHandler_UnencodableCell(t *testing.T) {
	cfg := testConfig(t)
	pipeline, err := operations.NewPipeline(cfg, operations.WithLogger(discardLogger()))
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	newRouter(pipeline, cfg).ServeHTTP(rec, formRequest(url.Values{
		"markup": {testutil.HallMarkup("1001", "1/120.5", "1002", "&nbsp;")},
		"date":   {"2024-10-01"},
	}))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	assert.Equal(t, apierrors.TypeEncoding, body["type"])
	assert.Equal(t, "store", body["failed_step"])
	assert.Equal(t, "1002", body["machine_id"])
	assert.NoFileExists(t, cfg.Workbook.Path)
}

func TestIngestHandler_Artifacts(t *testing.T) {
	cfg := testConfig(t)
	pipeline, err := operations.NewPipeline(cfg, operations.WithLogger(discardLogger()))
	require.NoError(t, err)
	router := newRouter(pipeline, cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, formRequest(url.Values{
		"markup": {testutil.HallMarkup("1001", "1/120.5", "1002", "1/150.0")},
		"date":   {"2024-10-01"},
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decodeBody(t, rec)
	snapshotName := filepath.Base(body["snapshot_path"].(string))
	workbookName := filepath.Base(cfg.Workbook.Path)

	tests := []struct {
		name        string
		path        string
		wantStatus  int
		contentType string
	}{
		{"snapshot", "/api/artifacts/snapshot/" + url.PathEscape(snapshotName), http.StatusOK, "text/csv; charset=shift_jis"},
		{"workbook", "/api/artifacts/workbook/" + workbookName, http.StatusOK, contentTypeXLSX},
		{"unknown kind", "/api/artifacts/report/x.csv", http.StatusBadRequest, ""},
		{"snapshot for absent date", "/api/artifacts/snapshot/" + url.PathEscape(strings.Replace(snapshotName, "2024-10-01", "2024-09-30", 1)), http.StatusNotFound, ""},
		{"not a snapshot name", "/api/artifacts/snapshot/notes.txt", http.StatusNotFound, ""},
		{"other workbook name", "/api/artifacts/workbook/other.xlsx", http.StatusNotFound, ""},
		{"dotted name", "/api/artifacts/snapshot/a..csv", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.contentType != "" {
				assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
				assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
				assert.NotZero(t, rec.Body.Len())
			}
		})
	}
}
