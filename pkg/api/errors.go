package api

import (
	"errors"
	"fmt"
)

var (
	// ErrOrderNotFound is returned when no order matches the given id or token.
	ErrOrderNotFound = errors.New("order not found")

	// ErrPrintJobNotFound is returned when no print job matches the given id.
	ErrPrintJobNotFound = errors.New("print job not found")

	// ErrStoreSettingsNotFound is returned when a store has no settings row.
	ErrStoreSettingsNotFound = errors.New("store settings not found")

	// ErrInvalidOrder is returned for malformed order requests.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrInvalidPrintJob is returned for malformed print job requests.
	ErrInvalidPrintJob = errors.New("invalid print job")

	// ErrFlavorSelectionRequired is returned when a line uses a pricing rule
	// that needs a flavor and none was selected.
	ErrFlavorSelectionRequired = errors.New("flavor selection required")

	// ErrInvalidTransition matches every *InvalidTransitionError via errors.Is.
	ErrInvalidTransition = errors.New("invalid transition")
)

// InvalidTransitionError reports a state change whose precondition does not
// hold for the entity's current state.
type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %s: cannot transition from %s to %s", e.Entity, e.ID, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}
