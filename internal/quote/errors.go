package quote

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when the referenced quote or invoice does not
// exist within the organization.
var ErrNotFound = errors.New("quote not found")

// ErrDuplicateNumber is returned by the repository when a generated
// document number collides with an existing one. The service regenerates
// and retries.
var ErrDuplicateNumber = errors.New("document number already exists")

// ValidationError reports bad input; the caller can correct and resubmit.
type ValidationError struct {
	Msg string
	Err error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}

	return e.Msg
}

func (e *ValidationError) Unwrap() error { return e.Err }

// InvalidStateError reports an operation not allowed in the quote's
// current lifecycle state. The aggregate is left unchanged.
type InvalidStateError struct {
	Op     string
	Status Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s quote in status %q", e.Op, e.Status)
}

// ConflictError reports that the persisted quote changed between read and
// write, so the optimistic precondition failed. Callers should re-fetch
// and re-decide.
type ConflictError struct {
	Op string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("quote changed concurrently during %s", e.Op)
}
