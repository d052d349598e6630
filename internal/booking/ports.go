package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/facility-reservation/internal/model"
)

// CheckoutRequest asks the payment collaborator for a checkout session.
type CheckoutRequest struct {
	BookingID string
	UserID    int64
	Amount    model.Money
}

// CheckoutSession is the collaborator's answer: a session reference for
// the client and the provider-side payment reference.
type CheckoutSession struct {
	SessionReference  string
	ProviderReference string
	CheckoutURL       string
}

// PaymentGateway creates checkout sessions. Failures wrap
// ErrPaymentUnavailable.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
}

// CalendarEventRequest describes the event created for a confirmed
// reservation.
type CalendarEventRequest struct {
	BookingID   string
	UserID      int64
	FacilityID  int64
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Location    string
}

// CalendarEvent is returned by the calendar collaborator.
type CalendarEvent struct {
	EventID   string
	EventLink string
}

// CalendarGateway creates and cancels calendar events. CreateEvent
// failures wrap ErrCalendarUnavailable. CancelEvent is only ever called
// best-effort.
type CalendarGateway interface {
	CreateEvent(ctx context.Context, req CalendarEventRequest) (CalendarEvent, error)
	CancelEvent(ctx context.Context, eventID string) error
}

// NotificationType values understood by the notification collaborator.
type NotificationType string

const (
	NotifyBookingConfirmation NotificationType = "BOOKING_CONFIRMATION"
	NotifyPaymentConfirmation NotificationType = "PAYMENT_CONFIRMATION"
	NotifyEventReminder       NotificationType = "EVENT_REMINDER"
	NotifyBookingCancellation NotificationType = "BOOKING_CANCELLATION"
)

// ChannelEmail is the only delivery channel used by the controller.
const ChannelEmail = "EMAIL"

// Notification is one message for the notification collaborator.
type Notification struct {
	UserID    int64
	BookingID string
	PaymentID string
	EventID   string
	Type      NotificationType
	Channel   string
	Recipient string
	Subject   string
	Content   string
}

// NotificationReceipt is the collaborator's record of a notification.
type NotificationReceipt struct {
	NotificationID string
	DeliveryStatus string
}

// Notifier delivers notifications. Failures wrap
// ErrNotificationUnavailable and are never fatal to the caller.
type Notifier interface {
	Send(ctx context.Context, n Notification) (NotificationReceipt, error)
}

// EventType names a lifecycle event published to the broker.
type EventType string

const (
	EventCreated   EventType = "reservation.created"
	EventConfirmed EventType = "reservation.confirmed"
	EventCancelled EventType = "reservation.cancelled"
)

// ReservationEvent is published after a lifecycle change commits.
type ReservationEvent struct {
	Type        EventType         `json:"type"`
	Reservation model.Reservation `json:"reservation"`
	OccurredAt  time.Time         `json:"occurred_at"`
}

// EventPublisher publishes lifecycle events. Publishing is best-effort.
type EventPublisher interface {
	Publish(ctx context.Context, ev ReservationEvent) error
}

// RecipientResolver maps a user to a delivery address.
type RecipientResolver interface {
	Recipient(userID int64) string
}

// RecipientTemplate formats the user id into a template such as
// "user%d@example.com". It stands in for a user directory lookup.
type RecipientTemplate string

// Recipient implements RecipientResolver.
func (t RecipientTemplate) Recipient(userID int64) string {
	return fmt.Sprintf(string(t), userID)
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, ReservationEvent) error { return nil }
