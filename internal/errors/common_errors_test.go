package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewAppValidationError("date is required"),
			expected: "[VALIDATION] date is required",
		},
		{
			name:     "with cause",
			err:      NewStorageError("write snapshot", fmt.Errorf("permission denied")),
			expected: "[STORAGE] write snapshot: permission denied",
		},
		{
			name:     "not found",
			err:      NewNotFoundError("snapshot"),
			expected: "[NOT_FOUND] snapshot not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_SentinelMatching(t *testing.T) {
	cause := fmt.Errorf("disk full")

	storeErr := NewStorageError("write", cause)
	wrapped := fmt.Errorf("run failed: %w", storeErr)

	assert.ErrorIs(t, wrapped, ErrStoreUnavailable)
	assert.ErrorIs(t, wrapped, cause)
	assert.NotErrorIs(t, wrapped, ErrParse)

	assert.ErrorIs(t, NewParsingError("bad markup", nil), ErrParse)
	assert.ErrorIs(t, NewUploadError("drive", nil), ErrUpload)
	assert.NotErrorIs(t, NewAggregationError("x", nil), ErrStoreUnavailable)

	encodeErr := fmt.Errorf("store: %w", NewEncodingError("field composite_probability", cause))
	assert.ErrorIs(t, encodeErr, ErrUnencodable)
	assert.NotErrorIs(t, encodeErr, ErrStoreUnavailable)
}

func TestAppError_WithContext(t *testing.T) {
	err := NewStorageError("write", nil).
		WithContext("path", "/tmp/x.csv").
		WithContext("records", 3)

	require.Len(t, err.Context, 2)
	assert.Equal(t, "/tmp/x.csv", err.Context["path"])
	assert.Equal(t, 3, err.Context["records"])

	bare := &AppError{Type: ErrTypeConfig}
	bare.WithContext("key", "value")
	assert.Equal(t, "value", bare.Context["key"])
}

func TestTypeOf(t *testing.T) {
	assert.Equal(t, ErrTypeAggregation, TypeOf(fmt.Errorf("wrap: %w", NewAggregationError("x", nil))))
	assert.Equal(t, ErrTypeClassification, TypeOf(NewClassificationError("x", nil)))
	assert.Equal(t, ErrorType(""), TypeOf(errors.New("plain")))
	assert.Equal(t, ErrorType(""), TypeOf(nil))
}
