package service

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks errors caused by malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrPermissionDenied marks errors caused by an actor lacking the required role.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrBackendUnavailable marks failures of the document or blob store.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrAssignmentNotFound indicates the requested assignment does not exist.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrSubmissionNotFound indicates the requested submission does not exist.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrSubmissionAlreadyGraded indicates the submission already carries a grade.
	ErrSubmissionAlreadyGraded = errors.New("submission already graded")
)

// ValidationError describes why a request was rejected.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is reports ErrValidation as the error kind.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// PermissionError describes which role an operation requires.
type PermissionError struct {
	Message string
}

func (e *PermissionError) Error() string {
	return e.Message
}

// Is reports ErrPermissionDenied as the error kind.
func (e *PermissionError) Is(target error) bool {
	return target == ErrPermissionDenied
}

func validationErrorf(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func permissionErrorf(format string, args ...interface{}) error {
	return &PermissionError{Message: fmt.Sprintf(format, args...)}
}

func backendError(action string, err error) error {
	return fmt.Errorf("%w: failed to %s: %w", ErrBackendUnavailable, action, err)
}
