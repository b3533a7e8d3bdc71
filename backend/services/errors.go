package services

import (
	"errors"
	"fmt"
)

// ErrNotFound marks a missing or inactive subject, question, template or
// session. Controllers map it to 404.
var ErrNotFound = errors.New("not found")

// ConflictError is returned when a start is attempted while an active
// session already exists for the same (student, subject) pair. It
// carries the existing session so the client can offer resume or
// force-restart.
type ConflictError struct {
	SessionID uint
	SubjectID uint
	Progress  Progress
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("active session %d already exists for this subject (%d/%d answered)",
		e.SessionID, e.Progress.Answered, e.Progress.Total)
}

// InvalidStateError is returned for operations on a session that is
// already completed.
type InvalidStateError struct {
	Reason string
}

func (e *InvalidStateError) Error() string { return e.Reason }

// ValidationError reports malformed input. No mutation happens before
// validation passes.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Reason) }

func notFound(what string) error { return fmt.Errorf("%s: %w", what, ErrNotFound) }
