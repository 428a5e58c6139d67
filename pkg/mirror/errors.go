package mirror

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIdentifier reports an identifier a host could never have assigned.
	ErrInvalidIdentifier = errors.New("invalid identifier")

	// ErrNoCorrespondingTab reports a tab without a mirror. Callers treat it as
	// "nothing to synchronize".
	ErrNoCorrespondingTab = errors.New("no corresponding tab")

	// ErrSessionActive is returned when a session is triggered while one runs.
	ErrSessionActive = errors.New("mirror session already active")
)

// IdentifierError records the operation that received an invalid identifier.
type IdentifierError struct {
	Op string
	ID int
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("%s: %v: %d", e.Op, ErrInvalidIdentifier, e.ID)
}

// Unwrap allows errors.Is(err, ErrInvalidIdentifier).
func (e *IdentifierError) Unwrap() error {
	return ErrInvalidIdentifier
}
