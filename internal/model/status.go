package model

import (
	"fmt"
	"strings"
)

// Status is the lifecycle state of a reservation as stored in
// reservations.status.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
	StatusCompleted Status = "COMPLETED"
)

// AllStatuses lists every status in declaration order.
var AllStatuses = []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted}

// ActiveStatuses are the statuses that occupy a facility's time slot.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

// ParseStatus converts a case-insensitive string to a Status.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return st, nil
	}
	return "", fmt.Errorf("unknown reservation status %q", s)
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// IsActive reports whether a reservation in this status blocks the slot.
func (s Status) IsActive() bool {
	return s == StatusPending || s == StatusConfirmed
}

func (s Status) String() string { return string(s) }
