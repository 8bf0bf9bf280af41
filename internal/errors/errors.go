package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a notebridge error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrPermissionDenied ErrorCode = "PERMISSION_DENIED" // 403
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrUnexpected       ErrorCode = "UNEXPECTED"        // 500, mutation already started
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// NoteError represents a structured error with code, status, and details.
type NoteError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *NoteError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for insufficient or malformed caller input.
func NewInvalidRequest(msg string) *NoteError {
	return &NoteError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewPermissionDenied creates a 403 error when the caller may not touch the target.
func NewPermissionDenied(user, target string) *NoteError {
	return &NoteError{
		Code:    ErrPermissionDenied,
		Status:  403,
		Message: fmt.Sprintf("user %q is not permitted to modify %s", user, target),
		Details: map[string]any{"user": user, "target": target},
	}
}

// NewNotFound creates a 404 error for a missing note.
func NewNotFound(identifier string) *NoteError {
	return &NoteError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("note not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewAttachmentNotFound creates a 404 error for a file missing from a note or the file store.
func NewAttachmentNotFound(fileName string) *NoteError {
	return &NoteError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("attachment not found: %s", fileName),
		Details: map[string]any{"file_name": fileName},
	}
}

// NewUnexpected creates the opaque 500 returned once a multi-step mutation has begun.
// The cause is intentionally dropped; callers log it before returning this.
func NewUnexpected(action string) *NoteError {
	return &NoteError{
		Code:    ErrUnexpected,
		Status:  500,
		Message: fmt.Sprintf("an unexpected error occurred while %s", action),
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *NoteError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &NoteError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error (or anything it wraps) is a NoteError with the given code.
func Is(err error, code ErrorCode) bool {
	var nErr *NoteError
	if stderrors.As(err, &nErr) {
		return nErr.Code == code
	}
	return false
}

// As returns the NoteError in err's chain, if any.
func As(err error) (*NoteError, bool) {
	var nErr *NoteError
	if stderrors.As(err, &nErr) {
		return nErr, true
	}
	return nil, false
}
