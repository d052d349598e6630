package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/facility-reservation/internal/booking"
)

// Publisher implements booking.EventPublisher on RabbitMQ. Each Publish
// dials the broker, declares the durable queue and publishes a persistent
// message through the default exchange. Errors are logged and returned so
// the controller can record the step as failed without interrupting the
// request.
type Publisher struct {
	url   string
	queue string
	log   *slog.Logger
}

// NewPublisher returns a publisher for the broker at url. An empty queue
// name means DefaultQueueName.
func NewPublisher(url, queue string, log *slog.Logger) *Publisher {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &Publisher{url: url, queue: queue, log: log}
}

// defaultDialTimeout bounds the connection handshake when ctx carries no
// deadline.
const defaultDialTimeout = 5 * time.Second

// dialTimeout returns the time left before ctx's deadline, or
// defaultDialTimeout. The handshake must finish within it.
func dialTimeout(ctx context.Context) time.Duration {
	dl, ok := ctx.Deadline()
	if !ok {
		return defaultDialTimeout
	}
	if d := time.Until(dl); d > 0 {
		return d
	}
	return time.Millisecond
}

// Publish sends ev to the queue. Dialing and the AMQP handshake are bound
// by ctx's deadline.
func (p *Publisher) Publish(ctx context.Context, ev booking.ReservationEvent) error {
	body, err := json.Marshal(NewReservationMessage(ev))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(dialTimeout(ctx)),
	})
	if err != nil {
		p.log.WarnContext(ctx, "rabbitmq dial failed", slog.Any("error", err))
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		p.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		return fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(ev.Type),
		MessageId:    ev.Reservation.ID + ":" + string(ev.Type),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		pub,
	); err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	p.log.DebugContext(ctx, "event published",
		slog.String("reservation_id", ev.Reservation.ID),
		slog.String("event", string(ev.Type)))
	return nil
}
