package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every error the engine returns wraps exactly one of these.
var (
	// ErrValidation is surfaced to the caller without touching board state
	ErrValidation = errors.New("validation error")
	// ErrConflict means the server no longer agrees with local state
	ErrConflict = errors.New("conflict")
	// ErrTransient is a retryable network or backend failure
	ErrTransient = errors.New("transient network error")
	// ErrUnavailable means an optional feature is not configured
	ErrUnavailable = errors.New("feature unavailable")
)

var (
	ErrColumnNotFound  = fmt.Errorf("%w: column not found", ErrValidation)
	ErrEmailNotOnBoard = fmt.Errorf("%w: email is not on the board", ErrValidation)
	ErrNotSnoozed      = fmt.Errorf("%w: email is not snoozed", ErrValidation)
	ErrAlreadySnoozed  = fmt.Errorf("%w: email is already snoozed", ErrValidation)
	ErrSnoozeInPast    = fmt.Errorf("%w: snooze time must be in the future", ErrValidation)
	ErrDefaultColumn   = fmt.Errorf("%w: default columns cannot be deleted", ErrValidation)
	ErrLastColumn      = fmt.Errorf("%w: at least one column must remain", ErrValidation)
	ErrEmailGone       = fmt.Errorf("%w: email no longer exists", ErrConflict)
	ErrSemanticOff     = fmt.Errorf("%w: semantic search is not configured", ErrUnavailable)
	// ErrStale marks a search response superseded by a newer query
	ErrStale = errors.New("stale search response")
)

// Validationf builds an ErrValidation with a formatted reason
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Classify makes sure err carries a kind. Errors without one are treated as transient.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrTransient) || errors.Is(err, ErrUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// IsRetryable reports whether the user may retry the same action
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransient)
}

// PartialMoveError reports a transition where only one half reached the server
type PartialMoveError struct {
	EmailID       string
	BoardApplied  bool
	LabelsApplied bool
	Err           error
}

func (e *PartialMoveError) Error() string {
	return fmt.Sprintf("partial move of %s (board applied: %t, labels applied: %t): %v",
		e.EmailID, e.BoardApplied, e.LabelsApplied, e.Err)
}

func (e *PartialMoveError) Unwrap() error {
	return e.Err
}
