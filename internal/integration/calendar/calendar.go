// Package calendar provides booking.CalendarGateway implementations: a
// client for the calendar service, a Google Calendar gateway and a
// disabled gateway.
package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/iliyamo/facility-reservation/internal/booking"
	"github.com/iliyamo/facility-reservation/internal/integration/httpx"
)

// HTTPClient talks to the calendar service over HTTP.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	log     *slog.Logger
}

// NewHTTPClient returns a client for the calendar service at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration, log *slog.Logger) *HTTPClient {
	return &HTTPClient{baseURL: baseURL, http: httpx.NewClient(timeout), log: log}
}

type eventRequest struct {
	BookingID   string    `json:"bookingId"`
	UserID      int64     `json:"userId"`
	FacilityID  int64     `json:"facilityId"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"startTime"`
	EndTime     time.Time `json:"endTime"`
	Location    string    `json:"location"`
}

type eventResponse struct {
	ID              any    `json:"id"`
	GoogleEventID   string `json:"googleEventId"`
	GoogleEventLink string `json:"googleEventLink"`
	Status          string `json:"status"`
}

// CreateEvent posts the event to /events.
func (c *HTTPClient) CreateEvent(ctx context.Context, req booking.CalendarEventRequest) (booking.CalendarEvent, error) {
	c.log.InfoContext(ctx, "creating calendar event", slog.String("reservation_id", req.BookingID))
	var out eventResponse
	err := httpx.PostJSON(ctx, c.http, httpx.Join(c.baseURL, "/events"), eventRequest{
		BookingID:   req.BookingID,
		UserID:      req.UserID,
		FacilityID:  req.FacilityID,
		Title:       req.Title,
		Description: req.Description,
		StartTime:   req.Start.UTC(),
		EndTime:     req.End.UTC(),
		Location:    req.Location,
	}, &out)
	if err != nil {
		return booking.CalendarEvent{}, fmt.Errorf("%w: %v", booking.ErrCalendarUnavailable, err)
	}
	id := httpx.IDString(out.ID)
	if id == "" {
		return booking.CalendarEvent{}, fmt.Errorf("%w: response without event id", booking.ErrCalendarUnavailable)
	}
	return booking.CalendarEvent{EventID: id, EventLink: out.GoogleEventLink}, nil
}

// CancelEvent posts to /events/{id}/cancel.
func (c *HTTPClient) CancelEvent(ctx context.Context, eventID string) error {
	c.log.InfoContext(ctx, "cancelling calendar event", slog.String("event_id", eventID))
	u := httpx.Join(c.baseURL, "/events/"+url.PathEscape(eventID)+"/cancel")
	if err := httpx.PostJSON(ctx, c.http, u, nil, nil); err != nil {
		return fmt.Errorf("%w: %v", booking.ErrCalendarUnavailable, err)
	}
	return nil
}

// Disabled always fails with booking.ErrCalendarUnavailable.
type Disabled struct{}

func (Disabled) CreateEvent(context.Context, booking.CalendarEventRequest) (booking.CalendarEvent, error) {
	return booking.CalendarEvent{}, fmt.Errorf("%w: calendar is disabled", booking.ErrCalendarUnavailable)
}

func (Disabled) CancelEvent(context.Context, string) error {
	return fmt.Errorf("%w: calendar is disabled", booking.ErrCalendarUnavailable)
}
