package core

import "github.com/pkg/errors"

// Sentinel causes. Wrap them with context; callers match on errors.Cause.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("a plagiarism check is already running for this assignment")
	ErrBadRequest = errors.New("bad request")
)

// FieldError describes one invalid input field.
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// ValidationError groups the field errors of a rejected input (a request body, a path param, the config).
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (ve ValidationError) Error() string {
	if ve.Err == nil {
		return "validation failed"
	}
	return ve.Err.Error()
}

// FieldMap indexes the field errors by field name, nil if there are none.
func (ve ValidationError) FieldMap() map[string]string {
	if len(ve.Fields) == 0 {
		return nil
	}
	m := make(map[string]string, len(ve.Fields))
	for _, f := range ve.Fields {
		m[f.Field] = f.Error
	}
	return m
}

func IsNotFound(err error) bool   { return errors.Cause(err) == ErrNotFound }
func IsConflict(err error) bool   { return errors.Cause(err) == ErrConflict }
func IsBadRequest(err error) bool { return errors.Cause(err) == ErrBadRequest }

// shutdownError asks the API server to stop gracefully.
type shutdownError struct {
	reason string
}

func NewShutdownError(reason string) error {
	return &shutdownError{reason: reason}
}

func (e *shutdownError) Error() string { return "shutdown: " + e.reason }

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdownError)
	return ok
}
