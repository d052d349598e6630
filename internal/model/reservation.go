package model

import "time"

// Reservation records a user's claim on a facility for a time interval.
// Reservations are never deleted; cancellation is a status change.
//
// Fields:
//  ID                 – opaque identifier (UUID) assigned at creation.
//  UserID             – user who owns the reservation.
//  FacilityID         – facility being reserved.
//  StartTime          – inclusive start of the interval (UTC).
//  EndTime            – exclusive end of the interval (UTC).
//  Status             – lifecycle state (PENDING, CONFIRMED, CANCELLED,
//                       COMPLETED).
//  TotalPrice         – price computed at creation.
//  Notes              – free text supplied by the user.
//  PaymentSessionRef  – checkout session returned by the payment
//                       collaborator, if any.
//  PaymentProviderRef – payment record id on the collaborator's side.
//  CalendarEventID    – calendar event returned by the calendar
//                       collaborator, if any.
//  CreatedAt          – creation timestamp.
//  UpdatedAt          – last update timestamp.
type Reservation struct {
	ID                 string    `json:"id"`                             // reservations.id
	UserID             int64     `json:"user_id"`                        // reservations.user_id
	FacilityID         int64     `json:"facility_id"`                    // reservations.facility_id
	StartTime          time.Time `json:"start_time"`                     // reservations.start_time
	EndTime            time.Time `json:"end_time"`                       // reservations.end_time
	Status             Status    `json:"status"`                         // reservations.status
	TotalPrice         Money     `json:"total_price"`                    // reservations.total_price_cents + currency
	Notes              string    `json:"notes,omitempty"`                // reservations.notes
	PaymentSessionRef  *string   `json:"payment_session_ref,omitempty"`  // reservations.payment_session_ref (nullable)
	PaymentProviderRef *string   `json:"payment_provider_ref,omitempty"` // reservations.payment_provider_ref (nullable)
	CalendarEventID    *string   `json:"calendar_event_id,omitempty"`    // reservations.calendar_event_id (nullable)
	CreatedAt          time.Time `json:"created_at"`                     // reservations.created_at
	UpdatedAt          time.Time `json:"updated_at"`                     // reservations.updated_at
}

// Duration returns the length of the reserved interval.
func (r Reservation) Duration() time.Duration { return r.EndTime.Sub(r.StartTime) }

// Overlaps reports whether the reservation's [start, end) interval
// intersects [start, end). Touching intervals do not overlap.
func (r Reservation) Overlaps(start, end time.Time) bool {
	return r.StartTime.Before(end) && r.EndTime.After(start)
}

// Clone returns a deep copy so callers can hand out reservations without
// sharing the nullable reference fields.
func (r Reservation) Clone() Reservation {
	out := r
	out.PaymentSessionRef = cloneStr(r.PaymentSessionRef)
	out.PaymentProviderRef = cloneStr(r.PaymentProviderRef)
	out.CalendarEventID = cloneStr(r.CalendarEventID)
	return out
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
