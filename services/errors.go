package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sramani-cf/restaurant-Dashboard-Frontend-Development-Plan-3.0-sub001/repository"
)

var (
	ErrNotFound          = repository.ErrNotFound
	ErrTableAlreadyHeld  = errors.New("table already held")
	ErrNoTableAvailable  = errors.New("no table available")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError is a malformed request, rejected before the store is read.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ConflictError carries the overlapping reservations and alternative start
// times. Callers may add the party to the waitlist instead.
type ConflictError struct {
	Conflicts      []Conflict
	SuggestedTimes []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("reservation conflicts with %d existing booking(s)", len(e.Conflicts))
}

// TransientIOError wraps a store failure that may succeed on retry.
type TransientIOError struct {
	Op  string
	Err error
}

func (e *TransientIOError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *TransientIOError) Unwrap() error { return e.Err }

// classify leaves domain errors untouched and wraps everything else as a
// TransientIOError. A blown evaluation deadline reads as deadlineErr.
func classify(ctx context.Context, op string, err error, deadlineErr error) error {
	if err == nil {
		return nil
	}
	var vErr *ValidationError
	var cErr *ConflictError
	var tErr *TransientIOError
	switch {
	case errors.As(err, &vErr), errors.As(err, &cErr), errors.As(err, &tErr),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrTableAlreadyHeld),
		errors.Is(err, ErrNoTableAvailable),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, repository.ErrStaleVersion):
		return err
	case deadlineErr != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded)):
		return fmt.Errorf("%s: evaluation timed out: %w", op, deadlineErr)
	}
	return &TransientIOError{Op: op, Err: err}
}
