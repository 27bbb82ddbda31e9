// ABOUTME: Error taxonomy shared by the engine and its stores
// ABOUTME: Defines not-found sentinel, transition and validation errors
package models

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a deal or task does not exist.
var ErrNotFound = errors.New("not found")

// TransitionKind says which pipeline dimension a rejected transition touched.
type TransitionKind string

const (
	TransitionStage  TransitionKind = "stage"
	TransitionStatus TransitionKind = "status"
)

// InvalidTransitionError reports a stage or status change the pipeline rejects.
type InvalidTransitionError struct {
	Kind   TransitionKind
	DealID uuid.UUID
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition for deal %s: %s -> %s", e.Kind, e.DealID, e.From, e.To)
}

// ValidationError reports a missing or malformed field, raised before persistence.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsInvalidTransition reports whether err is or wraps an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var target *InvalidTransitionError
	return errors.As(err, &target)
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
