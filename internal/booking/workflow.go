package booking

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/facility-reservation/internal/model"
)

// confirmationWorkflow runs the downstream chain for a reservation that
// has just been confirmed. The chain is not atomic and has no
// compensation: the committed CONFIRMED status is the source of truth and
// side effects may lag or never happen.
//
//  1. payment checkout; a failure halts the chain
//  2. calendar event; a failure is logged and the chain continues
//  3. payment confirmation notification
//  4. calendar notification, only when step 2 succeeded
//
// References returned by the collaborators are stored on r.
func (c *Controller) confirmationWorkflow(ctx context.Context, r *model.Reservation) WorkflowReport {
	rep := WorkflowReport{ReservationID: r.ID}
	c.log.InfoContext(ctx, "running confirmation workflow", slog.String("reservation_id", r.ID))

	var session CheckoutSession
	pay := rep.add(c.bestEffort(ctx, r.ID, StepPayment, func(ctx context.Context) error {
		s, err := c.payments.CreateCheckoutSession(ctx, CheckoutRequest{
			BookingID: r.ID,
			UserID:    r.UserID,
			Amount:    r.TotalPrice,
		})
		if err != nil {
			return err
		}
		session = s
		return nil
	}))
	if !pay.OK() {
		rep.Halted = true
		c.log.ErrorContext(ctx, "payment session not created; confirmation workflow halted, payment must be retried out-of-band",
			slog.String("reservation_id", r.ID),
			slog.String("step", StepPayment),
			slog.Any("error", pay.Err))
		return rep
	}
	rep.add(c.bestEffort(ctx, r.ID, StepPersistPaymentRefs, func(ctx context.Context) error {
		now := c.now().UTC()
		if err := c.store.WithinTx(ctx, func(tx Tx) error {
			return tx.SetPaymentRefs(ctx, r.ID, session.SessionReference, session.ProviderReference, now)
		}); err != nil {
			return err
		}
		r.PaymentSessionRef = strPtr(session.SessionReference)
		r.PaymentProviderRef = strPtr(session.ProviderReference)
		r.UpdatedAt = now
		return nil
	}))

	var event CalendarEvent
	cal := rep.add(c.bestEffort(ctx, r.ID, StepCalendar, func(ctx context.Context) error {
		ev, err := c.calendar.CreateEvent(ctx, c.calendarRequest(*r))
		if err != nil {
			return err
		}
		event = ev
		return nil
	}))
	if cal.OK() {
		rep.add(c.bestEffort(ctx, r.ID, StepPersistCalendarID, func(ctx context.Context) error {
			now := c.now().UTC()
			if err := c.store.WithinTx(ctx, func(tx Tx) error {
				return tx.SetCalendarEventID(ctx, r.ID, event.EventID, now)
			}); err != nil {
				return err
			}
			r.CalendarEventID = strPtr(event.EventID)
			r.UpdatedAt = now
			return nil
		}))
	}

	rep.add(c.notify(ctx, *r, StepNotifyPayment, c.paymentNotice(*r, session)))
	if cal.OK() {
		rep.add(c.notify(ctx, *r, StepNotifyCalendar, c.calendarNotice(*r, event)))
	} else {
		rep.add(Skipped(StepNotifyCalendar))
	}
	rep.add(c.publish(ctx, EventConfirmed, *r))

	if failed := rep.Failed(); len(failed) > 0 {
		c.log.WarnContext(ctx, "confirmation workflow finished with failures",
			slog.String("reservation_id", r.ID),
			slog.Any("failed_steps", failed))
	} else {
		c.log.InfoContext(ctx, "confirmation workflow completed", slog.String("reservation_id", r.ID))
	}
	return rep
}

// cancellationWorkflow releases the calendar event, if one was created,
// and tells the user. Every step is best-effort.
func (c *Controller) cancellationWorkflow(ctx context.Context, r model.Reservation) WorkflowReport {
	rep := WorkflowReport{ReservationID: r.ID}
	if r.CalendarEventID != nil && *r.CalendarEventID != "" {
		eventID := *r.CalendarEventID
		rep.add(c.bestEffort(ctx, r.ID, StepCancelCalendar, func(ctx context.Context) error {
			return c.calendar.CancelEvent(ctx, eventID)
		}))
	} else {
		rep.add(Skipped(StepCancelCalendar))
	}
	rep.add(c.notify(ctx, r, StepNotifyCancelled, c.cancellationNotice(r)))
	rep.add(c.publish(ctx, EventCancelled, r))
	return rep
}

func facilityName(id int64) string { return fmt.Sprintf("Facility #%d", id) }

func (c *Controller) calendarRequest(r model.Reservation) CalendarEventRequest {
	return CalendarEventRequest{
		BookingID:   r.ID,
		UserID:      r.UserID,
		FacilityID:  r.FacilityID,
		Title:       fmt.Sprintf("Booking %s - %s", r.ID, facilityName(r.FacilityID)),
		Description: fmt.Sprintf("Reservation for facility. Total: %s", r.TotalPrice),
		Start:       r.StartTime,
		End:         r.EndTime,
		Location:    facilityName(r.FacilityID),
	}
}

func (c *Controller) bookingCreatedNotice(r model.Reservation) Notification {
	return Notification{
		UserID:    r.UserID,
		BookingID: r.ID,
		Type:      NotifyBookingConfirmation,
		Channel:   ChannelEmail,
		Recipient: c.recipients.Recipient(r.UserID),
		Subject:   "Booking received - " + facilityName(r.FacilityID),
		Content: fmt.Sprintf("Your reservation for %s has been created.\n\nTime: %s - %s\n\nBooking ID: %s",
			facilityName(r.FacilityID), r.StartTime.Format(time.RFC3339), r.EndTime.Format(time.RFC3339), r.ID),
	}
}

func (c *Controller) paymentNotice(r model.Reservation, s CheckoutSession) Notification {
	content := fmt.Sprintf("A payment of %s has been requested for your reservation.\n\nBooking ID: %s\nPayment ID: %s",
		r.TotalPrice, r.ID, s.ProviderReference)
	if s.CheckoutURL != "" {
		content += "\nCheckout: " + s.CheckoutURL
	}
	return Notification{
		UserID:    r.UserID,
		BookingID: r.ID,
		PaymentID: s.ProviderReference,
		Type:      NotifyPaymentConfirmation,
		Channel:   ChannelEmail,
		Recipient: c.recipients.Recipient(r.UserID),
		Subject:   "Payment confirmation",
		Content:   content,
	}
}

func (c *Controller) calendarNotice(r model.Reservation, ev CalendarEvent) Notification {
	content := fmt.Sprintf("Your reservation for %s has been added to your calendar.\n\nBooking ID: %s\nEvent ID: %s",
		facilityName(r.FacilityID), r.ID, ev.EventID)
	if ev.EventLink != "" {
		content += "\nLink: " + ev.EventLink
	}
	return Notification{
		UserID:    r.UserID,
		BookingID: r.ID,
		EventID:   ev.EventID,
		Type:      NotifyEventReminder,
		Channel:   ChannelEmail,
		Recipient: c.recipients.Recipient(r.UserID),
		Subject:   "Event added to calendar",
		Content:   content,
	}
}

func (c *Controller) cancellationNotice(r model.Reservation) Notification {
	return Notification{
		UserID:    r.UserID,
		BookingID: r.ID,
		Type:      NotifyBookingCancellation,
		Channel:   ChannelEmail,
		Recipient: c.recipients.Recipient(r.UserID),
		Subject:   "Reservation cancelled - " + facilityName(r.FacilityID),
		Content:   fmt.Sprintf("Your reservation for %s has been cancelled.\n\nBooking ID: %s", facilityName(r.FacilityID), r.ID),
	}
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
