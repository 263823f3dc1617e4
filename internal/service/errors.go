package service

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for precondition failures
var (
	// ErrNothingToClear is returned when a clear is requested without an entry
	ErrNothingToClear = errors.New("nothing to clear")

	// ErrApprovedImmutable is returned when a mutation targets an approved entry
	ErrApprovedImmutable = errors.New("approved data cannot be cleared or modified")

	// ErrOperationInFlight is returned when a save/submit/clear is already
	// running for the same owner and page
	ErrOperationInFlight = errors.New("operation already in flight for this page")
)

// ValidationError rejects an action before any I/O happens
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// NewValidationError creates a validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// NotFoundError reports a referenced entry or file that does not exist
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// TransientStorageError reports a storage probe failure that may resolve
// itself. It is retried exactly once; if it persists it is treated as
// permanent by the caller.
type TransientStorageError struct {
	Path string
	Err  error
}

func (e *TransientStorageError) Error() string {
	return fmt.Sprintf("transient storage failure for %s: %v", e.Path, e.Err)
}

func (e *TransientStorageError) Unwrap() error {
	return e.Err
}

// PartialFailure aggregates independently-failed items of a best-effort
// batch. The mandatory portion of the enclosing operation has completed;
// the messages itemize what did not.
type PartialFailure struct {
	Messages []string
}

func (e *PartialFailure) Error() string {
	return "completed with failures: " + strings.Join(e.Messages, "; ")
}

// Add records one failed item
func (e *PartialFailure) Add(format string, args ...interface{}) {
	e.Messages = append(e.Messages, fmt.Sprintf(format, args...))
}

// Empty reports whether no failures were collected
func (e *PartialFailure) Empty() bool {
	return len(e.Messages) == 0
}

// FatalPersistenceError wraps an entry upsert/delete failure. It aborts the
// enclosing operation and is surfaced verbatim.
type FatalPersistenceError struct {
	Op  string
	Err error
}

func (e *FatalPersistenceError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *FatalPersistenceError) Unwrap() error {
	return e.Err
}
