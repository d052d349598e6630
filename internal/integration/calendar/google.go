package calendar

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/iliyamo/facility-reservation/internal/booking"
)

// GoogleConfig points at the OAuth client secret and a previously
// authorized token, both as JSON files.
type GoogleConfig struct {
	CredentialsFile string
	TokenFile       string
	CalendarID      string
}

// GoogleCalendar creates events directly in a Google calendar.
type GoogleCalendar struct {
	svc        *gcal.Service
	calendarID string
	log        *slog.Logger
}

// NewGoogleCalendar loads the OAuth configuration and token and builds the
// Calendar API service.
func NewGoogleCalendar(ctx context.Context, cfg GoogleConfig, log *slog.Logger) (*GoogleCalendar, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read google credentials: %w", err)
	}
	conf, err := google.ConfigFromJSON(b, gcal.CalendarEventsScope)
	if err != nil {
		return nil, fmt.Errorf("parse google credentials: %w", err)
	}
	tok, err := readToken(cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	svc, err := gcal.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx, tok)))
	if err != nil {
		return nil, fmt.Errorf("create calendar service: %w", err)
	}
	return NewGoogleCalendarWithService(svc, cfg.CalendarID, log), nil
}

// NewGoogleCalendarWithService wraps an existing Calendar API service. An
// empty calendarID means "primary".
func NewGoogleCalendarWithService(svc *gcal.Service, calendarID string, log *slog.Logger) *GoogleCalendar {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleCalendar{svc: svc, calendarID: calendarID, log: log}
}

func readToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open google token: %w", err)
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("decode google token: %w", err)
	}
	return tok, nil
}

// CreateEvent inserts the event and returns its Google id and link.
func (g *GoogleCalendar) CreateEvent(ctx context.Context, req booking.CalendarEventRequest) (booking.CalendarEvent, error) {
	ev := &gcal.Event{
		Summary:     req.Title,
		Description: req.Description,
		Location:    req.Location,
		Start:       &gcal.EventDateTime{DateTime: req.Start.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		End:         &gcal.EventDateTime{DateTime: req.End.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		ExtendedProperties: &gcal.EventExtendedProperties{
			Private: map[string]string{
				"bookingId":  req.BookingID,
				"facilityId": fmt.Sprint(req.FacilityID),
			},
		},
	}
	created, err := g.svc.Events.Insert(g.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return booking.CalendarEvent{}, fmt.Errorf("%w: google: %v", booking.ErrCalendarUnavailable, err)
	}
	g.log.InfoContext(ctx, "google calendar event created",
		slog.String("reservation_id", req.BookingID),
		slog.String("event_id", created.Id))
	return booking.CalendarEvent{EventID: created.Id, EventLink: created.HtmlLink}, nil
}

// CancelEvent deletes the event from the calendar.
func (g *GoogleCalendar) CancelEvent(ctx context.Context, eventID string) error {
	if err := g.svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: google: %v", booking.ErrCalendarUnavailable, err)
	}
	return nil
}
