package errors

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewJSONHandler(io.Discard, nil)), false)
}

func TestErrorHandler_HandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "store unavailable",
			err:        fmt.Errorf("step store: %w", NewStorageError("write snapshot", nil)),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeStore,
		},
		{
			name:       "parse failure",
			err:        NewParsingError("read markup", nil),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeParse,
		},
		{
			name:       "unencodable snapshot text",
			err:        fmt.Errorf("step store: %w", NewEncodingError("shift_jis cannot represent field", nil)),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeEncoding,
		},
		{
			name:       "aggregation failure",
			err:        fmt.Errorf("step aggregate: %w", NewAggregationError("read snapshot", NewStorageError("open", nil))),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeAggregation,
		},
		{
			name:       "corrupt workbook",
			err:        fmt.Errorf("step classify: %w", NewClassificationError("open workbook", nil)),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeClassify,
		},
		{
			name:       "rate limited",
			err:        ErrRateLimitExceeded,
			wantStatus: http.StatusTooManyRequests,
			wantType:   TypeRateLimit,
		},
		{
			name:       "validation api error",
			err:        ErrValidation("date", "date is required"),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeValidation,
		},
		{
			name:       "api not found",
			err:        NotFoundError("artifact"),
			wantStatus: http.StatusNotFound,
			wantType:   TypeNotFound,
		},
		{
			name:       "unknown error",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	h := newTestHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/ingest", nil)
			rec := httptest.NewRecorder()

			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, "/api/ingest", body["instance"])
		})
	}
}

func TestProblemDetails_MarshalJSON(t *testing.T) {
	pd := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Bad Request", "", "/x").
		WithExtension("error_code", "VALIDATION_FAILED")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "VALIDATION_FAILED", body["error_code"])
	assert.NotContains(t, body, "detail")
	assert.EqualValues(t, http.StatusBadRequest, body["status"])
}
