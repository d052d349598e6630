package queue

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/facility-reservation/internal/booking"
	"github.com/iliyamo/facility-reservation/internal/model"
)

func sampleEvent() booking.ReservationEvent {
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	evt := "evt-1"
	return booking.ReservationEvent{
		Type: booking.EventConfirmed,
		Reservation: model.Reservation{
			ID: "res-1", UserID: 7, FacilityID: 10,
			StartTime: start, EndTime: start.Add(time.Hour),
			Status:          model.StatusConfirmed,
			TotalPrice:      model.MustMoney(1500, "EUR"),
			CalendarEventID: &evt,
		},
		OccurredAt: start.Add(-24 * time.Hour),
	}
}

func TestNewReservationMessage(t *testing.T) {
	m := NewReservationMessage(sampleEvent())
	assert.Equal(t, "reservation.confirmed", m.Event)
	assert.Equal(t, "res-1", m.ReservationID)
	assert.Equal(t, "2025-06-01T10:00:00Z", m.StartsAt)
	assert.Equal(t, int64(1500), m.TotalAmountCents)
	assert.Equal(t, "evt-1", m.CalendarEventID)
	assert.Empty(t, m.PaymentSession)
}

func TestConsumerHandleAppendsLine(t *testing.T) {
	dir := t.TempDir()
	c := &Consumer{LogDir: dir, Log: slog.New(slog.NewTextHandler(io.Discard, nil))}

	body, err := json.Marshal(NewReservationMessage(sampleEvent()))
	require.NoError(t, err)
	require.NoError(t, c.Handle(body))
	require.NoError(t, c.Handle(body))

	b, err := os.ReadFile(filepath.Join(dir, "booking.log"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "reservation.confirmed | reservation_id=res-1 | user_id=7 | facility_id=10 | status=CONFIRMED")
	assert.Contains(t, lines[0], "total=1500 EUR")
}

func TestConsumerHandleRejectsBadPayloads(t *testing.T) {
	c := &Consumer{LogDir: t.TempDir(), Log: slog.New(slog.NewTextHandler(io.Discard, nil))}
	assert.Error(t, c.Handle([]byte("not json")))
	assert.Error(t, c.Handle([]byte(`{"event": "reservation.created"}`)))
}
