package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Step names used in logs and workflow reports.
const (
	StepNotifyCreated      = "notify_booking_created"
	StepPayment            = "payment_checkout"
	StepPersistPaymentRefs = "persist_payment_refs"
	StepCalendar           = "calendar_event"
	StepPersistCalendarID  = "persist_calendar_event"
	StepNotifyPayment      = "notify_payment_confirmation"
	StepNotifyCalendar     = "notify_calendar_event"
	StepCancelCalendar     = "cancel_calendar_event"
	StepNotifyCancelled    = "notify_booking_cancelled"
	StepPublishEvent       = "publish_event"
)

// StepOutcome records what happened to one best-effort call.
type StepOutcome struct {
	Step      string
	Attempted bool
	Err       error
	Duration  time.Duration
}

// OK reports whether the step ran and succeeded.
func (o StepOutcome) OK() bool { return o.Attempted && o.Err == nil }

// Skipped builds the outcome of a step that was intentionally not run.
func Skipped(step string) StepOutcome { return StepOutcome{Step: step} }

// WorkflowReport is the ordered list of outcomes of a multi-step
// best-effort workflow. Halted is set when a failing step stopped the
// chain.
type WorkflowReport struct {
	ReservationID string
	Steps         []StepOutcome
	Halted        bool
}

func (r *WorkflowReport) add(o StepOutcome) StepOutcome {
	r.Steps = append(r.Steps, o)
	return o
}

// Outcome returns the outcome of the named step, if it was recorded.
func (r WorkflowReport) Outcome(step string) (StepOutcome, bool) {
	for _, o := range r.Steps {
		if o.Step == step {
			return o, true
		}
	}
	return StepOutcome{}, false
}

// Failed lists the steps that ran and returned an error.
func (r WorkflowReport) Failed() []string {
	var out []string
	for _, o := range r.Steps {
		if o.Attempted && o.Err != nil {
			out = append(out, o.Step)
		}
	}
	return out
}

// BestEffort runs fn as a non-fatal call: it gets its own timeout, a panic
// is converted to an error, the outcome is logged and returned, and
// nothing is ever propagated to the caller's error path. The call is
// detached from ctx cancellation so a disconnecting client does not abort
// side effects of an already committed change.
func BestEffort(ctx context.Context, log *slog.Logger, timeout time.Duration, reservationID, step string, fn func(ctx context.Context) error) (out StepOutcome) {
	out = StepOutcome{Step: step, Attempted: true}
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	started := time.Now()
	defer func() {
		if p := recover(); p != nil {
			out.Err = fmt.Errorf("panic in %s: %v", step, p)
		}
		out.Duration = time.Since(started)
		if out.Err != nil {
			log.WarnContext(ctx, "best-effort step failed",
				slog.String("reservation_id", reservationID),
				slog.String("step", step),
				slog.Duration("duration", out.Duration),
				slog.Any("error", out.Err))
			return
		}
		log.DebugContext(ctx, "best-effort step succeeded",
			slog.String("reservation_id", reservationID),
			slog.String("step", step),
			slog.Duration("duration", out.Duration))
	}()

	out.Err = fn(cctx)
	return out
}
