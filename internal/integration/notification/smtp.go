package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/wneessen/go-mail"

	"github.com/iliyamo/facility-reservation/internal/booking"
)

// SMTPConfig holds the mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPMailer delivers EMAIL notifications straight to an SMTP server.
type SMTPMailer struct {
	client   mailSender
	from     string
	fromName string
	log      *slog.Logger
}

// NewSMTPMailer builds a mailer with plain SMTP auth.
func NewSMTPMailer(cfg SMTPConfig, log *slog.Logger) (*SMTPMailer, error) {
	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}
	c, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("init smtp client: %w", err)
	}
	return &SMTPMailer{client: c, from: cfg.From, fromName: cfg.FromName, log: log}, nil
}

func (m *SMTPMailer) message(n booking.Notification) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(m.fromName, m.from); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(n.Recipient); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	msg.Subject(n.Subject)
	msg.SetBodyString(mail.TypeTextPlain, n.Content)
	if n.BookingID != "" {
		msg.SetGenHeader("X-Booking-Id", n.BookingID)
	}
	msg.SetGenHeader("X-Notification-Type", string(n.Type))
	return msg, nil
}

// Send implements booking.Notifier. Only the EMAIL channel is supported.
func (m *SMTPMailer) Send(ctx context.Context, n booking.Notification) (booking.NotificationReceipt, error) {
	if n.Channel != "" && n.Channel != booking.ChannelEmail {
		return booking.NotificationReceipt{}, fmt.Errorf("%w: unsupported channel %q", booking.ErrNotificationUnavailable, n.Channel)
	}
	msg, err := m.message(n)
	if err != nil {
		return booking.NotificationReceipt{}, fmt.Errorf("%w: %v", booking.ErrNotificationUnavailable, err)
	}
	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		return booking.NotificationReceipt{}, fmt.Errorf("%w: smtp: %v", booking.ErrNotificationUnavailable, err)
	}
	id := uuid.NewString()
	m.log.InfoContext(ctx, "email sent",
		slog.String("notification_id", id),
		slog.String("type", string(n.Type)),
		slog.String("reservation_id", n.BookingID))
	return booking.NotificationReceipt{NotificationID: id, DeliveryStatus: "SENT"}, nil
}
