package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/facility-reservation/internal/booking"
	"github.com/iliyamo/facility-reservation/internal/model"
)

var columnNames = []string{
	"id", "user_id", "facility_id", "start_time", "end_time", "status",
	"total_price_cents", "currency", "notes", "payment_session_ref", "payment_provider_ref",
	"calendar_event_id", "created_at", "updated_at",
}

func newMockRepo(t *testing.T) (*ReservationRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewReservationRepo(db), mock
}

func sampleRow(id string, start time.Time) []driver.Value {
	created := start.Add(-48 * time.Hour)
	return []driver.Value{
		id, int64(7), int64(10), start, start.Add(time.Hour), "PENDING",
		int64(1500), "EUR", nil, nil, nil, nil, created, created,
	}
}

func TestGetByIDScansRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	row := sampleRow("r-1", start)
	row[11] = "evt-9"
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE id = ?")).
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows(columnNames).AddRow(row...))

	res, err := repo.GetByID(context.Background(), "r-1")
	require.NoError(t, err)
	assert.Equal(t, "r-1", res.ID)
	assert.Equal(t, int64(7), res.UserID)
	assert.Equal(t, model.StatusPending, res.Status)
	assert.Equal(t, model.Money{Cents: 1500, Currency: "EUR"}, res.TotalPrice)
	assert.True(t, res.StartTime.Equal(start))
	assert.Nil(t, res.PaymentSessionRef)
	require.NotNil(t, res.CalendarEventID)
	assert.Equal(t, "evt-9", *res.CalendarEventID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE id = ?")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(columnNames))

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, booking.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxCommitsOnSuccess(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO facility_locks")).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT facility_id FROM facility_locks WHERE facility_id = ? FOR UPDATE")).
		WithArgs(int64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"facility_id"}).AddRow(int64(10)))
	mock.ExpectQuery(regexp.QuoteMeta("status IN ('PENDING', 'CONFIRMED')")).
		WithArgs(int64(10), start.Add(time.Hour), start).
		WillReturnRows(sqlmock.NewRows(columnNames))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.WithinTx(context.Background(), func(tx booking.Tx) error {
		if err := tx.LockFacility(context.Background(), 10); err != nil {
			return err
		}
		conflicts, err := tx.FindActiveOverlapping(context.Background(), 10, start, start.Add(time.Hour))
		if err != nil {
			return err
		}
		assert.Empty(t, conflicts)
		return tx.Insert(context.Background(), &model.Reservation{
			ID: "r-1", UserID: 7, FacilityID: 10,
			StartTime: start, EndTime: start.Add(time.Hour),
			Status: model.StatusPending, TotalPrice: model.MustMoney(1500, "EUR"),
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	repo, mock := newMockRepo(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(tx booking.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateStatusMissingRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?")).
		WithArgs("CONFIRMED", now, "nope").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.WithinTx(context.Background(), func(tx booking.Tx) error {
		return tx.UpdateStatus(context.Background(), "nope", model.StatusConfirmed, now)
	})
	assert.ErrorIs(t, err, booking.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetForUpdateLocksRow(t *testing.T) {
	repo, mock := newMockRepo(t)
	start := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = ? FOR UPDATE")).
		WithArgs("r-1").
		WillReturnRows(sqlmock.NewRows(columnNames).AddRow(sampleRow("r-1", start)...))
	mock.ExpectCommit()

	err := repo.WithinTx(context.Background(), func(tx booking.Tx) error {
		res, err := tx.GetForUpdate(context.Background(), "r-1")
		if err != nil {
			return err
		}
		assert.Equal(t, int64(10), res.FacilityID)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPastByUserOrdersByEndDescending(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	first := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	second := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE user_id = ? AND end_time < ? ORDER BY end_time DESC")).
		WithArgs(int64(7), now).
		WillReturnRows(sqlmock.NewRows(columnNames).
			AddRow(sampleRow("r-2", first)...).
			AddRow(sampleRow("r-1", second)...))

	out, err := repo.ListPastByUser(context.Background(), 7, now)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "r-2", out[0].ID)
	assert.Equal(t, "r-1", out[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByFacilityRangeBounds(t *testing.T) {
	repo, mock := newMockRepo(t)
	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("start_time >= ? AND end_time <= ?")).
		WithArgs(int64(10), from, to).
		WillReturnRows(sqlmock.NewRows(columnNames))

	out, err := repo.ListByFacilityRange(context.Background(), 10, from, to)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}
