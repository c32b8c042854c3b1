package service

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Sentinel errors the handlers map to HTTP status codes with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrPermissionDenied  = errors.New("insufficient permission")
	ErrNotFound          = errors.New("not found")
	ErrIllegalTransition = errors.New("illegal state transition")
	ErrConflict          = errors.New("concurrent modification, retry the operation")
)

// ValidationError carries the offending field alongside ErrValidation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func validationErr(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// TransitionError reports which transition was attempted from which state
type TransitionError struct {
	From      string
	Operation string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal state transition: cannot %s from %s", e.Operation, e.From)
}

func (e *TransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// translateConflict maps storage-level concurrency failures to ErrConflict so
// callers know the operation is safe to retry. Serialization failures,
// deadlocks and upsert races on the unique (user, skill) pair all qualify.
func translateConflict(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "23505":
			return fmt.Errorf("%w: %v", ErrConflict, err)
		}
	}
	return err
}
