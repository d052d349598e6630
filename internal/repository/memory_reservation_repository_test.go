package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/facility-reservation/internal/booking"
	"github.com/iliyamo/facility-reservation/internal/model"
)

func seed(t *testing.T, repo *MemoryReservationRepo, rs ...model.Reservation) {
	t.Helper()
	err := repo.WithinTx(context.Background(), func(tx booking.Tx) error {
		for i := range rs {
			if err := tx.Insert(context.Background(), &rs[i]); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
}

func reservationAt(id string, user, facility int64, start time.Time, status model.Status) model.Reservation {
	return model.Reservation{
		ID: id, UserID: user, FacilityID: facility,
		StartTime: start, EndTime: start.Add(time.Hour),
		Status: status, TotalPrice: model.MustMoney(1500, "EUR"),
	}
}

func TestMemoryRepoRollsBackFailedTx(t *testing.T) {
	repo := NewMemoryReservationRepo()
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	seed(t, repo, reservationAt("a", 1, 10, start, model.StatusPending))

	boom := errors.New("boom")
	err := repo.WithinTx(context.Background(), func(tx booking.Tx) error {
		if err := tx.UpdateStatus(context.Background(), "a", model.StatusConfirmed, start); err != nil {
			return err
		}
		r := reservationAt("b", 1, 10, start.Add(2*time.Hour), model.StatusPending)
		if err := tx.Insert(context.Background(), &r); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := repo.GetByID(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
	_, err = repo.GetByID(context.Background(), "b")
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func TestMemoryRepoTxHandleClosedAfterReturn(t *testing.T) {
	repo := NewMemoryReservationRepo()
	var leaked booking.Tx
	require.NoError(t, repo.WithinTx(context.Background(), func(tx booking.Tx) error {
		leaked = tx
		return nil
	}))
	assert.ErrorIs(t, leaked.LockFacility(context.Background(), 1), ErrTxClosed)
	_, err := leaked.GetForUpdate(context.Background(), "x")
	assert.ErrorIs(t, err, ErrTxClosed)
}

func TestMemoryRepoFindActiveOverlapping(t *testing.T) {
	repo := NewMemoryReservationRepo()
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	seed(t, repo,
		reservationAt("active", 1, 10, start, model.StatusConfirmed),
		reservationAt("cancelled", 1, 10, start, model.StatusCancelled),
		reservationAt("other-facility", 1, 11, start, model.StatusPending),
		reservationAt("adjacent", 1, 10, start.Add(time.Hour), model.StatusPending),
	)

	require.NoError(t, repo.WithinTx(context.Background(), func(tx booking.Tx) error {
		got, err := tx.FindActiveOverlapping(context.Background(), 10, start.Add(-30*time.Minute), start.Add(30*time.Minute))
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "active", got[0].ID)
		return nil
	}))
}

func TestMemoryRepoListOrdering(t *testing.T) {
	repo := NewMemoryReservationRepo()
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	seed(t, repo,
		reservationAt("late", 1, 10, base.Add(48*time.Hour), model.StatusPending),
		reservationAt("early", 1, 10, base, model.StatusPending),
		reservationAt("middle", 1, 11, base.Add(24*time.Hour), model.StatusPending),
		reservationAt("someone-else", 2, 10, base.Add(2*time.Hour), model.StatusPending),
	)
	ctx := context.Background()
	now := base.Add(26 * time.Hour)

	mine, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "middle", "late"}, ids(mine))

	upcoming, err := repo.ListUpcomingByUser(ctx, 1, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"late"}, ids(upcoming))

	past, err := repo.ListPastByUser(ctx, 1, now)
	require.NoError(t, err)
	assert.Equal(t, []string{"middle", "early"}, ids(past))

	facility, err := repo.ListByFacility(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "someone-else", "late"}, ids(facility))

	ranged, err := repo.ListByFacilityRange(ctx, 10, base, base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "someone-else"}, ids(ranged))
}

func TestMemoryRepoReturnsCopies(t *testing.T) {
	repo := NewMemoryReservationRepo()
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	seed(t, repo, reservationAt("a", 1, 10, start, model.StatusPending))

	require.NoError(t, repo.WithinTx(context.Background(), func(tx booking.Tx) error {
		return tx.SetCalendarEventID(context.Background(), "a", "evt-1", start)
	}))
	got, err := repo.GetByID(context.Background(), "a")
	require.NoError(t, err)
	*got.CalendarEventID = "mutated"
	got.Status = model.StatusCancelled

	again, err := repo.GetByID(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "evt-1", *again.CalendarEventID)
	assert.Equal(t, model.StatusPending, again.Status)
}

func TestMemoryRepoUpdateMissing(t *testing.T) {
	repo := NewMemoryReservationRepo()
	err := repo.WithinTx(context.Background(), func(tx booking.Tx) error {
		return tx.SetPaymentRefs(context.Background(), "missing", "cs_1", "pi_1", time.Now())
	})
	assert.ErrorIs(t, err, booking.ErrNotFound)
}

func ids(rs []model.Reservation) []string {
	out := make([]string, len(rs))
	for i, r := range rs {
		out[i] = r.ID
	}
	return out
}
