package booking

import (
	"fmt"

	"github.com/iliyamo/facility-reservation/internal/model"
)

// transitions is the complete table of legal status changes. Terminal
// statuses map to an empty set.
var transitions = map[model.Status][]model.Status{
	model.StatusPending:   {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed: {model.StatusCancelled, model.StatusCompleted},
	model.StatusCancelled: {},
	model.StatusCompleted: {},
}

// AllowedTransitions returns the statuses reachable from current in one step.
func AllowedTransitions(current model.Status) []model.Status {
	next := transitions[current]
	out := make([]model.Status, len(next))
	copy(out, next)
	return out
}

// ValidateTransition checks a requested status change against the table.
// It returns an error wrapping ErrInvalidTransition when the change is not
// allowed, and nil otherwise. Authorization and time-based rules belong to
// the controller.
func ValidateTransition(current, requested model.Status) error {
	if current.IsTerminal() {
		return fmt.Errorf("%w: cannot change status of %s reservation", ErrInvalidTransition, current)
	}
	if current == model.StatusPending && requested == model.StatusCompleted {
		return fmt.Errorf("%w: cannot complete pending reservation (must confirm first)", ErrInvalidTransition)
	}
	for _, s := range transitions[current] {
		if s == requested {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, requested)
}
