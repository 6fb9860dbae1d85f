package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks caller input that violates a precondition.
	ErrValidation = errors.New("invalid input")
	// ErrStore marks a failure of the backing store.
	ErrStore = errors.New("store failure")
	// ErrDuplicateSubmission is the store's uniqueness violation on (round, username).
	ErrDuplicateSubmission = errors.New("submission already exists")
	// ErrSubmissionNotFound is returned when no finalized submission exists.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrRoundNotFound indicates no round matched the lookup.
	ErrRoundNotFound = errors.New("round not found")
)

// ValidationError describes which field was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// StoreError wraps a read or write failure reported by a store.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrStore) match any StoreError.
func (e *StoreError) Is(target error) bool { return target == ErrStore }
