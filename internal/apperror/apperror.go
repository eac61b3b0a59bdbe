// Package apperror defines the error taxonomy shared by both services.
//
// Services and stores return these errors; only the handler layer maps them to
// HTTP status codes and error pages.
package apperror

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation failed")
	ErrRender      = errors.New("render failed")
	ErrPersistence = errors.New("persistence failed")
	ErrUpstream    = errors.New("upstream conversion failed")
	ErrForbidden   = errors.New("forbidden")
)

type AppError struct {
	Err     error  // sentinel the error belongs to
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: underlying error, never shown to clients
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// RenderFailed reports a template engine failure. Nothing was written.
func RenderFailed(message string, cause error) *AppError {
	return &AppError{Err: ErrRender, Message: message, Cause: cause}
}

// PersistenceFailed reports a disk read or write failure.
func PersistenceFailed(message string, cause error) *AppError {
	return &AppError{Err: ErrPersistence, Message: message, Cause: cause}
}

// UpstreamFailed reports a converter or service-to-service failure.
func UpstreamFailed(message string, cause error) *AppError {
	return &AppError{Err: ErrUpstream, Message: message, Cause: cause}
}

// Forbidden reports a request that failed authentication. HTTP handlers map
// it to 401 Unauthorized.
func Forbidden(message string, cause error) *AppError {
	return &AppError{Err: ErrForbidden, Message: message, Cause: cause}
}

// FieldError is one entry of a ValidationErrors list.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"msg"`
	Value   string `json:"value,omitempty"`
}

// ValidationErrors collects every failing field of a request. A request with
// any entry is rejected as a whole.
type ValidationErrors struct {
	Fields []FieldError
}

func (v *ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v.Fields))
	for _, f := range v.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (v *ValidationErrors) Unwrap() error {
	return ErrValidation
}

// Add appends a field failure.
func (v *ValidationErrors) Add(field, message, value string) {
	v.Fields = append(v.Fields, FieldError{Field: field, Message: message, Value: value})
}

// OrNil returns v as an error when it holds entries, nil otherwise.
func (v *ValidationErrors) OrNil() error {
	if v == nil || len(v.Fields) == 0 {
		return nil
	}
	return v
}

// Kind returns the sentinel of the outermost error in err's chain: the Err
// of the first *AppError, ErrValidation for a *ValidationErrors, or nil.
// Sentinels of wrapped causes are ignored, so a PersistenceFailed around a
// NotFound is still a persistence failure.
func Kind(err error) error {
	var appErr *AppError
	var verrs *ValidationErrors
	switch {
	case errors.As(err, &appErr):
		return appErr.Err
	case errors.As(err, &verrs):
		return ErrValidation
	default:
		return nil
	}
}

// Fields extracts the field-level messages of err. A single *AppError with a
// field becomes a one-entry list; anything else yields nil.
func Fields(err error) []FieldError {
	var verrs *ValidationErrors
	if errors.As(err, &verrs) {
		return verrs.Fields
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Field != "" {
		return []FieldError{{Field: appErr.Field, Message: appErr.Message}}
	}
	return nil
}
