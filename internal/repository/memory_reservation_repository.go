package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/facility-reservation/internal/booking"
	"github.com/iliyamo/facility-reservation/internal/model"
)

// MemoryReservationRepo is an in-memory booking.Store. Transactions are
// serialized by a single mutex and work on a private copy of the data that
// replaces the committed state only when the transaction function returns
// nil, so a failed transaction leaves no trace. It is meant for local runs
// and tests; data does not survive a restart.
type MemoryReservationRepo struct {
	txMu  sync.Mutex   // serializes transactions
	mu    sync.RWMutex // guards items
	items map[string]model.Reservation
}

// NewMemoryReservationRepo builds an empty repository.
func NewMemoryReservationRepo() *MemoryReservationRepo {
	return &MemoryReservationRepo{items: make(map[string]model.Reservation)}
}

// WithinTx runs fn with exclusive access to a working copy of the data.
func (r *MemoryReservationRepo) WithinTx(ctx context.Context, fn func(tx booking.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.txMu.Lock()
	defer r.txMu.Unlock()

	r.mu.RLock()
	work := make(map[string]model.Reservation, len(r.items))
	for k, v := range r.items {
		work[k] = v.Clone()
	}
	r.mu.RUnlock()

	tx := &memoryTx{items: work}
	err := fn(tx)
	tx.closed = true
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.items = work
	r.mu.Unlock()
	return nil
}

// GetByID returns a copy of the reservation or booking.ErrNotFound.
func (r *MemoryReservationRepo) GetByID(ctx context.Context, id string) (*model.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.items[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	out := res.Clone()
	return &out, nil
}

// ListByUser returns all reservations of a user ordered by start time.
func (r *MemoryReservationRepo) ListByUser(ctx context.Context, userID int64) ([]model.Reservation, error) {
	return r.filter(func(res model.Reservation) bool { return res.UserID == userID }, byStartAsc), nil
}

// ListUpcomingByUser returns reservations starting after now, earliest first.
func (r *MemoryReservationRepo) ListUpcomingByUser(ctx context.Context, userID int64, now time.Time) ([]model.Reservation, error) {
	return r.filter(func(res model.Reservation) bool {
		return res.UserID == userID && res.StartTime.After(now)
	}, byStartAsc), nil
}

// ListPastByUser returns reservations that ended before now, latest first.
func (r *MemoryReservationRepo) ListPastByUser(ctx context.Context, userID int64, now time.Time) ([]model.Reservation, error) {
	return r.filter(func(res model.Reservation) bool {
		return res.UserID == userID && res.EndTime.Before(now)
	}, byEndDesc), nil
}

// ListByFacility returns all reservations of a facility ordered by start time.
func (r *MemoryReservationRepo) ListByFacility(ctx context.Context, facilityID int64) ([]model.Reservation, error) {
	return r.filter(func(res model.Reservation) bool { return res.FacilityID == facilityID }, byStartAsc), nil
}

// ListByFacilityRange returns reservations of a facility fully inside [from, to].
func (r *MemoryReservationRepo) ListByFacilityRange(ctx context.Context, facilityID int64, from, to time.Time) ([]model.Reservation, error) {
	return r.filter(func(res model.Reservation) bool {
		return res.FacilityID == facilityID && !res.StartTime.Before(from) && !res.EndTime.After(to)
	}, byStartAsc), nil
}

func (r *MemoryReservationRepo) filter(keep func(model.Reservation) bool, less func(a, b model.Reservation) bool) []model.Reservation {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.Reservation, 0)
	for _, res := range r.items {
		if keep(res) {
			out = append(out, res.Clone())
		}
	}
	sortReservations(out, less)
	return out
}

func byStartAsc(a, b model.Reservation) bool {
	if a.StartTime.Equal(b.StartTime) {
		return a.ID < b.ID
	}
	return a.StartTime.Before(b.StartTime)
}

func byEndDesc(a, b model.Reservation) bool {
	if a.EndTime.Equal(b.EndTime) {
		return a.ID < b.ID
	}
	return a.EndTime.After(b.EndTime)
}

func sortReservations(rs []model.Reservation, less func(a, b model.Reservation) bool) {
	sort.Slice(rs, func(i, j int) bool { return less(rs[i], rs[j]) })
}

// memoryTx implements booking.Tx over the working copy of a transaction.
type memoryTx struct {
	items  map[string]model.Reservation
	closed bool
}

// LockFacility is a no-op: the whole transaction already holds the
// repository's transaction mutex.
func (t *memoryTx) LockFacility(ctx context.Context, facilityID int64) error {
	if t.closed {
		return ErrTxClosed
	}
	return nil
}

func (t *memoryTx) FindActiveOverlapping(ctx context.Context, facilityID int64, start, end time.Time) ([]model.Reservation, error) {
	if t.closed {
		return nil, ErrTxClosed
	}
	out := make([]model.Reservation, 0)
	for _, res := range t.items {
		if res.FacilityID == facilityID && res.Status.IsActive() && res.Overlaps(start, end) {
			out = append(out, res.Clone())
		}
	}
	sortReservations(out, byStartAsc)
	return out, nil
}

func (t *memoryTx) Insert(ctx context.Context, res *model.Reservation) error {
	if t.closed {
		return ErrTxClosed
	}
	t.items[res.ID] = res.Clone()
	return nil
}

func (t *memoryTx) GetForUpdate(ctx context.Context, id string) (*model.Reservation, error) {
	if t.closed {
		return nil, ErrTxClosed
	}
	res, ok := t.items[id]
	if !ok {
		return nil, booking.ErrNotFound
	}
	out := res.Clone()
	return &out, nil
}

func (t *memoryTx) UpdateStatus(ctx context.Context, id string, status model.Status, updatedAt time.Time) error {
	return t.update(id, func(res *model.Reservation) {
		res.Status = status
		res.UpdatedAt = updatedAt.UTC()
	})
}

func (t *memoryTx) SetPaymentRefs(ctx context.Context, id, sessionRef, providerRef string, updatedAt time.Time) error {
	return t.update(id, func(res *model.Reservation) {
		res.PaymentSessionRef = optional(sessionRef)
		res.PaymentProviderRef = optional(providerRef)
		res.UpdatedAt = updatedAt.UTC()
	})
}

func (t *memoryTx) SetCalendarEventID(ctx context.Context, id, eventID string, updatedAt time.Time) error {
	return t.update(id, func(res *model.Reservation) {
		res.CalendarEventID = optional(eventID)
		res.UpdatedAt = updatedAt.UTC()
	})
}

func (t *memoryTx) update(id string, mutate func(*model.Reservation)) error {
	if t.closed {
		return ErrTxClosed
	}
	res, ok := t.items[id]
	if !ok {
		return booking.ErrNotFound
	}
	mutate(&res)
	t.items[id] = res
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
