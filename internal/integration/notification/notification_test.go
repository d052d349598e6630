package notification

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"

	"github.com/iliyamo/facility-reservation/internal/booking"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func sample() booking.Notification {
	return booking.Notification{
		UserID:    7,
		BookingID: "res-1",
		Type:      booking.NotifyBookingConfirmation,
		Channel:   booking.ChannelEmail,
		Recipient: "user7@example.com",
		Subject:   "Booking received - Facility #10",
		Content:   "Your reservation for Facility #10 has been created.",
	}
}

func TestHTTPClientSend(t *testing.T) {
	var got notificationRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notifications", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id": 5, "status": "SENT"}`))
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL+"/api/notifications", time.Second, quietLogger())
	rec, err := c.Send(context.Background(), sample())
	require.NoError(t, err)
	assert.Equal(t, booking.NotificationReceipt{NotificationID: "5", DeliveryStatus: "SENT"}, rec)
	assert.Equal(t, "BOOKING_CONFIRMATION", got.Type)
	assert.Equal(t, "EMAIL", got.Channel)
	assert.Equal(t, "user7@example.com", got.Recipient)
	assert.Empty(t, got.PaymentID)
}

func TestHTTPClientWrapsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL, time.Second, quietLogger()).Send(context.Background(), sample())
	assert.ErrorIs(t, err, booking.ErrNotificationUnavailable)
}

func TestDisabled(t *testing.T) {
	_, err := Disabled{}.Send(context.Background(), sample())
	assert.ErrorIs(t, err, booking.ErrNotificationUnavailable)
}

type fakeSender struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeSender) DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error {
	f.sent = append(f.sent, messages...)
	return f.err
}

func TestSMTPMailerSend(t *testing.T) {
	fs := &fakeSender{}
	m := &SMTPMailer{client: fs, from: "bookings@example.com", fromName: "Bookings", log: quietLogger()}

	rec, err := m.Send(context.Background(), sample())
	require.NoError(t, err)
	assert.Equal(t, "SENT", rec.DeliveryStatus)
	_, err = uuid.Parse(rec.NotificationID)
	assert.NoError(t, err)

	require.Len(t, fs.sent, 1)
	rcpts, err := fs.sent[0].GetRecipients()
	require.NoError(t, err)
	assert.Equal(t, []string{"user7@example.com"}, rcpts)
	assert.Equal(t, []string{"Booking received - Facility #10"}, fs.sent[0].GetGenHeader(mail.HeaderSubject))
}

func TestSMTPMailerFailures(t *testing.T) {
	m := &SMTPMailer{client: &fakeSender{err: errors.New("dial tcp: refused")}, from: "bookings@example.com", log: quietLogger()}
	_, err := m.Send(context.Background(), sample())
	assert.ErrorIs(t, err, booking.ErrNotificationUnavailable)

	n := sample()
	n.Recipient = "not an address"
	_, err = m.Send(context.Background(), n)
	assert.ErrorIs(t, err, booking.ErrNotificationUnavailable)

	n = sample()
	n.Channel = "SMS"
	_, err = m.Send(context.Background(), n)
	assert.ErrorIs(t, err, booking.ErrNotificationUnavailable)
}
