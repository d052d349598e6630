// Package booking implements the reservation lifecycle: availability
// checks, pricing, the status state machine and the controller that
// orchestrates persistence and best-effort downstream calls.
package booking

import "errors"

// Sentinel errors returned by the controller. Callers branch on them with
// errors.Is or KindOf; detail is attached with fmt.Errorf("%w: ...").
var (
	// ErrInvalidTimeRange rejects bad input: past start, end not after
	// start, or a duration below the minimum.
	ErrInvalidTimeRange = errors.New("invalid time range")
	// ErrFacilityUnavailable means the slot overlaps an active reservation.
	ErrFacilityUnavailable = errors.New("facility is not available at the selected time")
	ErrNotFound            = errors.New("reservation not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrAlreadyCancelled    = errors.New("reservation is already cancelled")
	ErrAlreadyCompleted    = errors.New("cannot cancel completed reservation")
	ErrPastBooking         = errors.New("cannot cancel a reservation that has already started")

	// Downstream failures. These never escape the controller.
	ErrPaymentUnavailable      = errors.New("payment collaborator unavailable")
	ErrCalendarUnavailable     = errors.New("calendar collaborator unavailable")
	ErrNotificationUnavailable = errors.New("notification collaborator unavailable")
)

// Kind classifies an error returned by the controller.
type Kind string

const (
	KindUnknown                 Kind = "INTERNAL"
	KindInvalidTimeRange        Kind = "INVALID_TIME_RANGE"
	KindFacilityUnavailable     Kind = "FACILITY_UNAVAILABLE"
	KindNotFound                Kind = "NOT_FOUND"
	KindForbidden               Kind = "FORBIDDEN"
	KindInvalidTransition       Kind = "INVALID_TRANSITION"
	KindAlreadyCancelled        Kind = "ALREADY_CANCELLED"
	KindAlreadyCompleted        Kind = "ALREADY_COMPLETED"
	KindPastBooking             Kind = "PAST_BOOKING"
	KindPaymentUnavailable      Kind = "PAYMENT_UNAVAILABLE"
	KindCalendarUnavailable     Kind = "CALENDAR_UNAVAILABLE"
	KindNotificationUnavailable Kind = "NOTIFICATION_UNAVAILABLE"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidTimeRange, KindInvalidTimeRange},
	{ErrFacilityUnavailable, KindFacilityUnavailable},
	{ErrNotFound, KindNotFound},
	{ErrForbidden, KindForbidden},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrAlreadyCancelled, KindAlreadyCancelled},
	{ErrAlreadyCompleted, KindAlreadyCompleted},
	{ErrPastBooking, KindPastBooking},
	{ErrPaymentUnavailable, KindPaymentUnavailable},
	{ErrCalendarUnavailable, KindCalendarUnavailable},
	{ErrNotificationUnavailable, KindNotificationUnavailable},
}

// KindOf returns the kind of err, or KindUnknown when err does not wrap
// one of the package's sentinel errors. A nil error has no kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}
