package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/facility-reservation/internal/model"
)

const (
	// MinDuration is the shortest reservation that may be created.
	MinDuration = time.Hour
	// DefaultDownstreamTimeout bounds each call to a collaborator.
	DefaultDownstreamTimeout = 5 * time.Second
)

// CreateRequest carries the caller-supplied fields of a new reservation.
type CreateRequest struct {
	UserID     int64
	FacilityID int64
	Start      time.Time
	End        time.Time
	Notes      string
}

// Controller owns the reservation lifecycle. It is the only component
// that mutates reservations, always through Store.WithinTx, and it
// triggers downstream side effects after the change has committed.
// Controller is safe for concurrent use.
type Controller struct {
	store      Store
	checker    AvailabilityChecker
	pricer     Pricer
	payments   PaymentGateway
	calendar   CalendarGateway
	notifier   Notifier
	publisher  EventPublisher
	recipients RecipientResolver
	log        *slog.Logger
	now        func() time.Time
	newID      func() string
	timeout    time.Duration
	onWorkflow func(WorkflowReport)
}

// Option customises a Controller.
type Option func(*Controller)

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(c *Controller) { c.log = l } }

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// WithIDGenerator replaces the UUID generator used for new reservations.
func WithIDGenerator(f func() string) Option { return func(c *Controller) { c.newID = f } }

// WithDownstreamTimeout bounds every collaborator call.
func WithDownstreamTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPublisher publishes lifecycle events after each committed change.
func WithPublisher(p EventPublisher) Option { return func(c *Controller) { c.publisher = p } }

// WithRecipients sets how user ids are turned into delivery addresses.
func WithRecipients(r RecipientResolver) Option { return func(c *Controller) { c.recipients = r } }

// WithWorkflowObserver receives the report of every confirmation and
// cancellation workflow once it finishes.
func WithWorkflowObserver(f func(WorkflowReport)) Option {
	return func(c *Controller) { c.onWorkflow = f }
}

// NewController wires the controller from its collaborators. All
// arguments are required.
func NewController(store Store, pricer Pricer, payments PaymentGateway, calendar CalendarGateway, notifier Notifier, opts ...Option) *Controller {
	if store == nil || pricer == nil || payments == nil || calendar == nil || notifier == nil {
		panic("nil dependency passed to booking.NewController")
	}
	c := &Controller{
		store:      store,
		pricer:     pricer,
		payments:   payments,
		calendar:   calendar,
		notifier:   notifier,
		publisher:  noopPublisher{},
		recipients: RecipientTemplate("user%d@example.com"),
		log:        slog.Default(),
		now:        time.Now,
		newID:      uuid.NewString,
		timeout:    DefaultDownstreamTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(slog.String("component", "booking"))
	return c
}

// ValidateTimeRange enforces the creation invariants: start strictly in
// the future, end after start and a duration of at least MinDuration.
func ValidateTimeRange(start, end, now time.Time) error {
	switch {
	case !start.After(now):
		return fmt.Errorf("%w: start time must be in the future", ErrInvalidTimeRange)
	case end.Equal(start):
		return fmt.Errorf("%w: start time and end time cannot be the same", ErrInvalidTimeRange)
	case end.Before(start):
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidTimeRange)
	case end.Sub(start) < MinDuration:
		return fmt.Errorf("%w: minimum booking duration is %s", ErrInvalidTimeRange, MinDuration)
	}
	return nil
}

// Create validates the interval, checks availability and inserts a
// PENDING reservation in one transaction. The facility is locked before
// the availability check so concurrent overlapping creates are
// serialized and at most one of them succeeds. A "booking created"
// notification is attempted after commit; its failure is only logged.
func (c *Controller) Create(ctx context.Context, req CreateRequest) (*model.Reservation, error) {
	start, end := req.Start.UTC(), req.End.UTC()
	now := c.now().UTC()
	if err := ValidateTimeRange(start, end, now); err != nil {
		return nil, err
	}
	c.log.InfoContext(ctx, "creating reservation",
		slog.Int64("user_id", req.UserID),
		slog.Int64("facility_id", req.FacilityID),
		slog.Time("start", start),
		slog.Time("end", end))

	var created model.Reservation
	err := c.store.WithinTx(ctx, func(tx Tx) error {
		if err := tx.LockFacility(ctx, req.FacilityID); err != nil {
			return fmt.Errorf("lock facility %d: %w", req.FacilityID, err)
		}
		conflicts, err := c.checker.FindConflicts(ctx, tx, req.FacilityID, start, end)
		if err != nil {
			return err
		}
		if len(conflicts) > 0 {
			return fmt.Errorf("%w: %d overlapping reservation(s) on facility %d", ErrFacilityUnavailable, len(conflicts), req.FacilityID)
		}
		r := model.Reservation{
			ID:         c.newID(),
			UserID:     req.UserID,
			FacilityID: req.FacilityID,
			StartTime:  start,
			EndTime:    end,
			Status:     model.StatusPending,
			TotalPrice: c.pricer.Price(start, end),
			Notes:      req.Notes,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := tx.Insert(ctx, &r); err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		created = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.InfoContext(ctx, "reservation created",
		slog.String("reservation_id", created.ID),
		slog.String("total_price", created.TotalPrice.String()))

	c.notify(ctx, created, StepNotifyCreated, c.bookingCreatedNotice(created))
	c.publish(ctx, EventCreated, created)
	return &created, nil
}

// Get returns a reservation owned by requesterID.
func (c *Controller) Get(ctx context.Context, id string, requesterID int64) (*model.Reservation, error) {
	r, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != requesterID {
		return nil, fmt.Errorf("%w: reservation %s belongs to another user", ErrForbidden, id)
	}
	return r, nil
}

// ListMine returns all reservations of userID ordered by start time.
func (c *Controller) ListMine(ctx context.Context, userID int64) ([]model.Reservation, error) {
	return c.store.ListByUser(ctx, userID)
}

// ListUpcoming returns reservations of userID that start after now,
// earliest first.
func (c *Controller) ListUpcoming(ctx context.Context, userID int64) ([]model.Reservation, error) {
	return c.store.ListUpcomingByUser(ctx, userID, c.now().UTC())
}

// ListPast returns reservations of userID that ended before now, most
// recent first.
func (c *Controller) ListPast(ctx context.Context, userID int64) ([]model.Reservation, error) {
	return c.store.ListPastByUser(ctx, userID, c.now().UTC())
}

// ListByFacility returns every reservation of a facility ordered by start.
func (c *Controller) ListByFacility(ctx context.Context, facilityID int64) ([]model.Reservation, error) {
	return c.store.ListByFacility(ctx, facilityID)
}

// ListByFacilityRange returns reservations of a facility that lie fully
// inside [from, to], ordered by start.
func (c *Controller) ListByFacilityRange(ctx context.Context, facilityID int64, from, to time.Time) ([]model.Reservation, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end before range start", ErrInvalidTimeRange)
	}
	return c.store.ListByFacilityRange(ctx, facilityID, from.UTC(), to.UTC())
}

// TransitionStatus moves a reservation to next after checking ownership
// and the state machine. PENDING->CONFIRMED runs the confirmation
// workflow once the new status has committed; the workflow never fails
// the call. A request for CANCELLED also enforces that the reservation
// has not started and runs the cancellation side effects.
func (c *Controller) TransitionStatus(ctx context.Context, id string, requesterID int64, next model.Status) (*model.Reservation, error) {
	c.log.InfoContext(ctx, "updating reservation status",
		slog.String("reservation_id", id),
		slog.Int64("user_id", requesterID),
		slog.String("status", next.String()))

	var (
		prev    model.Status
		updated model.Reservation
	)
	err := c.store.WithinTx(ctx, func(tx Tx) error {
		r, err := c.loadOwned(ctx, tx, id, requesterID)
		if err != nil {
			return err
		}
		if err := ValidateTransition(r.Status, next); err != nil {
			return err
		}
		now := c.now().UTC()
		if next == model.StatusCancelled && !r.StartTime.After(now) {
			return fmt.Errorf("%w: reservation started at %s", ErrPastBooking, r.StartTime.Format(time.RFC3339))
		}
		if err := tx.UpdateStatus(ctx, id, next, now); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		prev = r.Status
		r.Status = next
		r.UpdatedAt = now
		updated = *r
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.log.InfoContext(ctx, "reservation status updated",
		slog.String("reservation_id", id),
		slog.String("from", prev.String()),
		slog.String("to", next.String()))

	switch {
	case prev == model.StatusPending && next == model.StatusConfirmed:
		c.observe(c.confirmationWorkflow(ctx, &updated))
	case next == model.StatusCancelled:
		c.observe(c.cancellationWorkflow(ctx, updated))
	}
	return &updated, nil
}

// Cancel cancels a reservation owned by requesterID. Terminal
// reservations fail with ErrAlreadyCancelled or ErrAlreadyCompleted, and
// reservations whose start has passed fail with ErrPastBooking. The
// cancellation notification is best-effort.
func (c *Controller) Cancel(ctx context.Context, id string, requesterID int64) error {
	c.log.InfoContext(ctx, "cancelling reservation",
		slog.String("reservation_id", id),
		slog.Int64("user_id", requesterID))

	var cancelled model.Reservation
	err := c.store.WithinTx(ctx, func(tx Tx) error {
		r, err := c.loadOwned(ctx, tx, id, requesterID)
		if err != nil {
			return err
		}
		switch r.Status {
		case model.StatusCancelled:
			return ErrAlreadyCancelled
		case model.StatusCompleted:
			return ErrAlreadyCompleted
		}
		now := c.now().UTC()
		if !r.StartTime.After(now) {
			return fmt.Errorf("%w: reservation started at %s", ErrPastBooking, r.StartTime.Format(time.RFC3339))
		}
		if err := ValidateTransition(r.Status, model.StatusCancelled); err != nil {
			return err
		}
		if err := tx.UpdateStatus(ctx, id, model.StatusCancelled, now); err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		r.Status = model.StatusCancelled
		r.UpdatedAt = now
		cancelled = *r
		return nil
	})
	if err != nil {
		return err
	}
	c.log.InfoContext(ctx, "reservation cancelled", slog.String("reservation_id", id))
	c.observe(c.cancellationWorkflow(ctx, cancelled))
	return nil
}

func (c *Controller) loadOwned(ctx context.Context, tx Tx, id string, requesterID int64) (*model.Reservation, error) {
	r, err := tx.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.UserID != requesterID {
		return nil, fmt.Errorf("%w: reservation %s belongs to another user", ErrForbidden, id)
	}
	return r, nil
}

func (c *Controller) observe(rep WorkflowReport) {
	if c.onWorkflow != nil {
		c.onWorkflow(rep)
	}
}

func (c *Controller) bestEffort(ctx context.Context, reservationID, step string, fn func(ctx context.Context) error) StepOutcome {
	return BestEffort(ctx, c.log, c.timeout, reservationID, step, fn)
}

func (c *Controller) notify(ctx context.Context, r model.Reservation, step string, n Notification) StepOutcome {
	return c.bestEffort(ctx, r.ID, step, func(ctx context.Context) error {
		rec, err := c.notifier.Send(ctx, n)
		if err != nil {
			return err
		}
		c.log.DebugContext(ctx, "notification sent",
			slog.String("reservation_id", r.ID),
			slog.String("type", string(n.Type)),
			slog.String("notification_id", rec.NotificationID),
			slog.String("delivery_status", rec.DeliveryStatus))
		return nil
	})
}

func (c *Controller) publish(ctx context.Context, typ EventType, r model.Reservation) StepOutcome {
	return c.bestEffort(ctx, r.ID, StepPublishEvent, func(ctx context.Context) error {
		return c.publisher.Publish(ctx, ReservationEvent{Type: typ, Reservation: r.Clone(), OccurredAt: c.now().UTC()})
	})
}
