// Package apperror defines the application error taxonomy shared by the
// repository engine and its protocol bindings.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents an application error with HTTP status and error code
type Error struct {
	HTTPStatus int
	Code       string
	Message    string
	Internal   error
	Details    map[string]any
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the internal error
func (e *Error) Unwrap() error {
	return e.Internal
}

// Is reports whether target is an *Error with the same code, so wrapped
// copies match their sentinel through errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// WithInternal returns a copy of the error with an internal error attached
func (e *Error) WithInternal(err error) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    e.Message,
		Internal:   err,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *Error) WithMessage(message string) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    message,
		Internal:   e.Internal,
		Details:    e.Details,
	}
}

// WithMessagef returns a copy of the error with a formatted message
func (e *Error) WithMessagef(format string, args ...any) *Error {
	return e.WithMessage(fmt.Sprintf(format, args...))
}

// WithDetails returns a copy of the error with details attached
func (e *Error) WithDetails(details map[string]any) *Error {
	return &Error{
		HTTPStatus: e.HTTPStatus,
		Code:       e.Code,
		Message:    e.Message,
		Internal:   e.Internal,
		Details:    details,
	}
}

// New creates a new application error
func New(status int, code, message string) *Error {
	return &Error{
		HTTPStatus: status,
		Code:       code,
		Message:    message,
	}
}

// Common error definitions
var (
	// Resource errors
	ErrNotFound            = New(http.StatusNotFound, "not_found", "Resource not found")
	ErrArtifactNotFound    = New(http.StatusNotFound, "artifact_not_found", "Artifact not found")
	ErrOntologyNotFound    = New(http.StatusNotFound, "ontology_not_found", "Ontology not found")
	ErrClassifierNotFound  = New(http.StatusNotFound, "classifier_not_found", "Classifier does not resolve to an ontology class")
	ErrStoredQueryNotFound = New(http.StatusNotFound, "stored_query_not_found", "Stored query not found")
	ErrContentNotFound     = New(http.StatusNotFound, "content_not_found", "Artifact has no content")

	// Conflict errors
	ErrConflict             = New(http.StatusConflict, "conflict", "Resource already exists")
	ErrRelationshipConflict = New(http.StatusConflict, "relationship_constraint", "Artifact is the target of one or more relationships")

	// Validation errors
	ErrBadRequest  = New(http.StatusBadRequest, "bad_request", "Invalid request")
	ErrValidation  = New(http.StatusUnprocessableEntity, "validation_error", "Validation failed")
	ErrQuerySyntax = New(http.StatusUnprocessableEntity, "query_syntax", "Malformed query expression")

	// Server errors
	ErrInternal = New(http.StatusInternalServerError, "internal_error", "An internal error occurred")
	ErrDatabase = New(http.StatusInternalServerError, "database_error", "Database operation failed")
	ErrDeriver  = New(http.StatusInternalServerError, "deriver_error", "Content derivation failed")
)

// Wrap normalizes err for return across the facade boundary. Known
// application errors pass through unchanged in kind; anything else becomes
// an internal error wrapping the cause. Returns the error interface, not
// *Error, so a nil err stays a nil error at the call site.
func Wrap(err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrInternal.WithInternal(err)
}

// IsNotFound reports whether err is any not-found kind.
func IsNotFound(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.HTTPStatus == http.StatusNotFound
}

// IsConflict reports whether err is any conflict kind.
func IsConflict(err error) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.HTTPStatus == http.StatusConflict
}

// IsValidation reports whether err is a user/validation error.
func IsValidation(err error) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.HTTPStatus == http.StatusBadRequest || appErr.HTTPStatus == http.StatusUnprocessableEntity
}
