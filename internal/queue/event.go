// Package queue carries reservation lifecycle events over RabbitMQ: the
// publisher used by the booking controller and a background consumer that
// appends every event to logs/booking.log.
package queue

import (
	"time"

	"github.com/iliyamo/facility-reservation/internal/booking"
)

// DefaultQueueName is the durable queue lifecycle events are routed to.
const DefaultQueueName = "reservation.events"

// ReservationMessage is the wire form of a booking.ReservationEvent. It
// carries enough information for consumers to log, notify or feed
// analytics without querying the primary database.
type ReservationMessage struct {
	Event            string `json:"event"`
	ReservationID    string `json:"reservation_id"`
	UserID           int64  `json:"user_id"`
	FacilityID       int64  `json:"facility_id"`
	Status           string `json:"status"`
	StartsAt         string `json:"starts_at"`
	EndsAt           string `json:"ends_at"`
	TotalAmountCents int64  `json:"total_amount_cents"`
	Currency         string `json:"currency"`
	CalendarEventID  string `json:"calendar_event_id,omitempty"`
	PaymentSession   string `json:"payment_session,omitempty"`
	OccurredAt       string `json:"occurred_at"`
}

// NewReservationMessage flattens a lifecycle event for publishing.
func NewReservationMessage(ev booking.ReservationEvent) ReservationMessage {
	r := ev.Reservation
	m := ReservationMessage{
		Event:            string(ev.Type),
		ReservationID:    r.ID,
		UserID:           r.UserID,
		FacilityID:       r.FacilityID,
		Status:           r.Status.String(),
		StartsAt:         r.StartTime.UTC().Format(time.RFC3339),
		EndsAt:           r.EndTime.UTC().Format(time.RFC3339),
		TotalAmountCents: r.TotalPrice.Cents,
		Currency:         r.TotalPrice.Currency,
		OccurredAt:       ev.OccurredAt.UTC().Format(time.RFC3339),
	}
	if r.CalendarEventID != nil {
		m.CalendarEventID = *r.CalendarEventID
	}
	if r.PaymentSessionRef != nil {
		m.PaymentSession = *r.PaymentSessionRef
	}
	return m
}
