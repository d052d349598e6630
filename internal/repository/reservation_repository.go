package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/facility-reservation/internal/booking"
	"github.com/iliyamo/facility-reservation/internal/model"
)

// ReservationRepo stores reservations in MySQL and implements
// booking.Store. All timestamps are written and read in UTC (the DSN sets
// loc=UTC). Mutations only happen through WithinTx.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle, e.g. for health checks.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

const reservationColumns = `id, user_id, facility_id, start_time, end_time, status,
       total_price_cents, currency, notes, payment_session_ref, payment_provider_ref,
       calendar_event_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(s rowScanner) (model.Reservation, error) {
	var (
		res                     model.Reservation
		status                  string
		notes, sessRef, provRef sql.NullString
		calEventID              sql.NullString
	)
	err := s.Scan(
		&res.ID, &res.UserID, &res.FacilityID, &res.StartTime, &res.EndTime, &status,
		&res.TotalPrice.Cents, &res.TotalPrice.Currency, &notes, &sessRef, &provRef,
		&calEventID, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return model.Reservation{}, err
	}
	res.Status = model.Status(status)
	res.Notes = notes.String
	res.PaymentSessionRef = nullableString(sessRef)
	res.PaymentProviderRef = nullableString(provRef)
	res.CalendarEventID = nullableString(calEventID)
	res.StartTime = res.StartTime.UTC()
	res.EndTime = res.EndTime.UTC()
	res.CreatedAt = res.CreatedAt.UTC()
	res.UpdatedAt = res.UpdatedAt.UTC()
	return res, nil
}

func nullableString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func listReservations(ctx context.Context, q querier, query string, args ...any) ([]model.Reservation, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// WithinTx runs fn inside a database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
func (r *ReservationRepo) WithinTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&reservationTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

// GetByID returns the reservation with the given id or booking.ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

// ListByUser returns all reservations of a user ordered by start time.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID int64) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = ? ORDER BY start_time ASC`
	return listReservations(ctx, r.db, q, userID)
}

// ListUpcomingByUser returns reservations starting after now, earliest first.
func (r *ReservationRepo) ListUpcomingByUser(ctx context.Context, userID int64, now time.Time) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = ? AND start_time > ? ORDER BY start_time ASC`
	return listReservations(ctx, r.db, q, userID, now.UTC())
}

// ListPastByUser returns reservations that ended before now, latest first.
func (r *ReservationRepo) ListPastByUser(ctx context.Context, userID int64, now time.Time) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = ? AND end_time < ? ORDER BY end_time DESC`
	return listReservations(ctx, r.db, q, userID, now.UTC())
}

// ListByFacility returns all reservations of a facility ordered by start time.
func (r *ReservationRepo) ListByFacility(ctx context.Context, facilityID int64) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE facility_id = ? ORDER BY start_time ASC`
	return listReservations(ctx, r.db, q, facilityID)
}

// ListByFacilityRange returns reservations of a facility that lie fully
// within [from, to], ordered by start time.
func (r *ReservationRepo) ListByFacilityRange(ctx context.Context, facilityID int64, from, to time.Time) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations
	      WHERE facility_id = ? AND start_time >= ? AND end_time <= ?
	      ORDER BY start_time ASC`
	return listReservations(ctx, r.db, q, facilityID, from.UTC(), to.UTC())
}

// reservationTx implements booking.Tx on top of *sql.Tx.
type reservationTx struct {
	tx *sql.Tx
}

// LockFacility makes sure a facility_locks row exists and locks it with
// SELECT ... FOR UPDATE. Every transaction that creates a reservation for
// the facility takes this lock first, so the availability check and the
// insert of concurrent requests cannot interleave.
func (t *reservationTx) LockFacility(ctx context.Context, facilityID int64) error {
	const upsert = `INSERT INTO facility_locks (facility_id) VALUES (?) ON DUPLICATE KEY UPDATE facility_id = facility_id`
	if _, err := t.tx.ExecContext(ctx, upsert, facilityID); err != nil {
		return err
	}
	const lock = `SELECT facility_id FROM facility_locks WHERE facility_id = ? FOR UPDATE`
	var locked int64
	return t.tx.QueryRowContext(ctx, lock, facilityID).Scan(&locked)
}

// FindActiveOverlapping returns PENDING/CONFIRMED reservations of the
// facility whose interval overlaps [start, end).
func (t *reservationTx) FindActiveOverlapping(ctx context.Context, facilityID int64, start, end time.Time) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations
	      WHERE facility_id = ? AND status IN ('PENDING', 'CONFIRMED')
	        AND start_time < ? AND end_time > ?
	      ORDER BY start_time ASC`
	return listReservations(ctx, t.tx, q, facilityID, end.UTC(), start.UTC())
}

// Insert writes a new reservation row.
func (t *reservationTx) Insert(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations
	    (id, user_id, facility_id, start_time, end_time, status, total_price_cents, currency, notes, created_at, updated_at)
	    VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var notes sql.NullString
	if res.Notes != "" {
		notes = sql.NullString{String: res.Notes, Valid: true}
	}
	_, err := t.tx.ExecContext(ctx, q,
		res.ID, res.UserID, res.FacilityID, res.StartTime.UTC(), res.EndTime.UTC(), string(res.Status),
		res.TotalPrice.Cents, res.TotalPrice.Currency, notes, res.CreatedAt.UTC(), res.UpdatedAt.UTC(),
	)
	return err
}

// GetForUpdate loads a reservation and locks its row for the rest of the
// transaction.
func (t *reservationTx) GetForUpdate(ctx context.Context, id string) (*model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ? FOR UPDATE`
	res, err := scanReservation(t.tx.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

// UpdateStatus sets the status and the updated_at audit field.
func (t *reservationTx) UpdateStatus(ctx context.Context, id string, status model.Status, updatedAt time.Time) error {
	const q = `UPDATE reservations SET status = ?, updated_at = ? WHERE id = ?`
	return t.execOne(ctx, q, string(status), updatedAt.UTC(), id)
}

// SetPaymentRefs stores the references returned by the payment collaborator.
func (t *reservationTx) SetPaymentRefs(ctx context.Context, id, sessionRef, providerRef string, updatedAt time.Time) error {
	const q = `UPDATE reservations SET payment_session_ref = ?, payment_provider_ref = ?, updated_at = ? WHERE id = ?`
	return t.execOne(ctx, q, nullIfEmpty(sessionRef), nullIfEmpty(providerRef), updatedAt.UTC(), id)
}

// SetCalendarEventID stores the event id returned by the calendar collaborator.
func (t *reservationTx) SetCalendarEventID(ctx context.Context, id, eventID string, updatedAt time.Time) error {
	const q = `UPDATE reservations SET calendar_event_id = ?, updated_at = ? WHERE id = ?`
	return t.execOne(ctx, q, nullIfEmpty(eventID), updatedAt.UTC(), id)
}

func (t *reservationTx) execOne(ctx context.Context, q string, args ...any) error {
	res, err := t.tx.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func nullIfEmpty(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
