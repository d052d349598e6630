// Package notification provides booking.Notifier implementations: a
// client for the notification service, an SMTP mailer and a disabled
// notifier.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/iliyamo/facility-reservation/internal/booking"
	"github.com/iliyamo/facility-reservation/internal/integration/httpx"
)

// HTTPClient posts notifications to the notification service. The base
// URL is the collection endpoint itself, e.g. http://host/api/notifications.
type HTTPClient struct {
	endpoint string
	http     *http.Client
	log      *slog.Logger
}

// NewHTTPClient returns a client posting to endpoint.
func NewHTTPClient(endpoint string, timeout time.Duration, log *slog.Logger) *HTTPClient {
	return &HTTPClient{endpoint: endpoint, http: httpx.NewClient(timeout), log: log}
}

type notificationRequest struct {
	UserID    int64  `json:"userId"`
	BookingID string `json:"bookingId,omitempty"`
	PaymentID string `json:"paymentId,omitempty"`
	EventID   string `json:"eventId,omitempty"`
	Type      string `json:"type"`
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Content   string `json:"content"`
}

type notificationResponse struct {
	ID     any    `json:"id"`
	Status string `json:"status"`
}

// Send implements booking.Notifier.
func (c *HTTPClient) Send(ctx context.Context, n booking.Notification) (booking.NotificationReceipt, error) {
	c.log.InfoContext(ctx, "sending notification",
		slog.String("type", string(n.Type)),
		slog.String("recipient", n.Recipient))
	var out notificationResponse
	err := httpx.PostJSON(ctx, c.http, c.endpoint, notificationRequest{
		UserID:    n.UserID,
		BookingID: n.BookingID,
		PaymentID: n.PaymentID,
		EventID:   n.EventID,
		Type:      string(n.Type),
		Channel:   n.Channel,
		Recipient: n.Recipient,
		Subject:   n.Subject,
		Content:   n.Content,
	}, &out)
	if err != nil {
		return booking.NotificationReceipt{}, fmt.Errorf("%w: %v", booking.ErrNotificationUnavailable, err)
	}
	return booking.NotificationReceipt{NotificationID: httpx.IDString(out.ID), DeliveryStatus: out.Status}, nil
}

// Disabled always fails with booking.ErrNotificationUnavailable.
type Disabled struct{}

func (Disabled) Send(context.Context, booking.Notification) (booking.NotificationReceipt, error) {
	return booking.NotificationReceipt{}, fmt.Errorf("%w: notifications are disabled", booking.ErrNotificationUnavailable)
}
