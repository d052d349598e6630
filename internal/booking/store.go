package booking

import (
	"context"
	"time"

	"github.com/iliyamo/facility-reservation/internal/model"
)

// ConflictQuerier returns reservations of a facility whose status is
// PENDING or CONFIRMED and whose interval overlaps [start, end).
type ConflictQuerier interface {
	FindActiveOverlapping(ctx context.Context, facilityID int64, start, end time.Time) ([]model.Reservation, error)
}

// Tx is the unit of work handed to Store.WithinTx. Every mutation of a
// reservation goes through a Tx.
type Tx interface {
	ConflictQuerier
	// LockFacility serializes check-then-insert pairs on one facility
	// until the transaction ends.
	LockFacility(ctx context.Context, facilityID int64) error
	Insert(ctx context.Context, r *model.Reservation) error
	// GetForUpdate loads and locks a reservation. Missing rows yield
	// ErrNotFound.
	GetForUpdate(ctx context.Context, id string) (*model.Reservation, error)
	UpdateStatus(ctx context.Context, id string, status model.Status, updatedAt time.Time) error
	SetPaymentRefs(ctx context.Context, id, sessionRef, providerRef string, updatedAt time.Time) error
	SetCalendarEventID(ctx context.Context, id, eventID string, updatedAt time.Time) error
}

// Store persists reservations. WithinTx commits when fn returns nil and
// rolls back otherwise. Read methods return ErrNotFound for missing ids.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	GetByID(ctx context.Context, id string) (*model.Reservation, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Reservation, error)
	ListUpcomingByUser(ctx context.Context, userID int64, now time.Time) ([]model.Reservation, error)
	ListPastByUser(ctx context.Context, userID int64, now time.Time) ([]model.Reservation, error)
	ListByFacility(ctx context.Context, facilityID int64) ([]model.Reservation, error)
	ListByFacilityRange(ctx context.Context, facilityID int64, from, to time.Time) ([]model.Reservation, error)
}
