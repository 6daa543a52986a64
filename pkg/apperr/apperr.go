// Package apperr holds the error taxonomy shared by the store, the order
// services and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation failed")
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrConflictRetry        = errors.New("conflict, re-read and retry")
	ErrStorage              = errors.New("storage error")

	// ErrCascadeIncomplete is raised inside a store transaction when fewer
	// item rows than requested were written. The store rolls back and converts
	// it to ErrConflictRetry; callers never see it.
	ErrCascadeIncomplete = errors.New("cascade incomplete")
)

// TransitionError names the rule a rejected order or item move violated.
type TransitionError struct {
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s -> %s: %s", display(e.From), display(e.To), e.Reason)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// ConfirmationError is returned when a transition would cascade onto items the
// caller has not confirmed.
type ConfirmationError struct {
	TargetItemStatus string
	ItemIDs          []uint
}

func (e *ConfirmationError) Error() string {
	ids := make([]string, 0, len(e.ItemIDs))
	for _, id := range e.ItemIDs {
		ids = append(ids, fmt.Sprint(id))
	}
	return fmt.Sprintf("confirmation required: items [%s] will move to %s",
		strings.Join(ids, ","), display(e.TargetItemStatus))
}

func (e *ConfirmationError) Unwrap() error { return ErrConfirmationRequired }

// Validation wraps ErrValidation with a message.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Storage wraps a driver error as ErrStorage, keeping the cause in the chain.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

func display(s string) string {
	if s == "" {
		return "null"
	}
	return s
}
