package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeParsing        ErrorType = "PARSING"
	ErrTypeStorage        ErrorType = "STORAGE"
	ErrTypeEncoding       ErrorType = "ENCODING"
	ErrTypeAggregation    ErrorType = "AGGREGATION"
	ErrTypeClassification ErrorType = "CLASSIFICATION"
	ErrTypeUpload         ErrorType = "UPLOAD"
	ErrTypeValidation     ErrorType = "VALIDATION"
	ErrTypeNotFound       ErrorType = "NOT_FOUND"
	ErrTypeConfig         ErrorType = "CONFIG"
)

// Sentinel conditions. AppErrors of the matching type compare equal to
// these through errors.Is.
var (
	// ErrStoreUnavailable is returned when the snapshot directory or a
	// destination file cannot be read or written.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrAggregationInputMissing marks an aggregation over an empty store.
	// The aggregator logs it and still produces a header-only workbook.
	ErrAggregationInputMissing = errors.New("no snapshots to aggregate")
	// ErrUnencodable marks snapshot text the store encoding cannot hold.
	ErrUnencodable = errors.New("text not representable in store encoding")
	// ErrParse marks markup that could not be read as a document.
	ErrParse = errors.New("markup parse failed")
	// ErrUpload marks a failure of the remote upload collaborator.
	ErrUpload = errors.New("upload failed")
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel that corresponds to the error type.
func (e *AppError) Is(target error) bool {
	switch target {
	case ErrStoreUnavailable:
		return e.Type == ErrTypeStorage
	case ErrUnencodable:
		return e.Type == ErrTypeEncoding
	case ErrParse:
		return e.Type == ErrTypeParsing
	case ErrUpload:
		return e.Type == ErrTypeUpload
	}
	return false
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error. It matches
// ErrStoreUnavailable.
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewEncodingError reports extracted text the store encoding cannot
// represent. It matches ErrUnencodable, not ErrStoreUnavailable.
func NewEncodingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeEncoding, message, cause)
}

// NewAggregationError creates an aggregation error
func NewAggregationError(message string, cause error) *AppError {
	return NewAppError(ErrTypeAggregation, message, cause)
}

// NewClassificationError creates a classification error. Individual cells
// that fail to parse are never reported this way; only workbook-level
// failures are.
func NewClassificationError(message string, cause error) *AppError {
	return NewAppError(ErrTypeClassification, message, cause)
}

// NewUploadError creates an upload error
func NewUploadError(message string, cause error) *AppError {
	return NewAppError(ErrTypeUpload, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}

// TypeOf returns the AppError type found in the chain, or "".
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ""
}
