package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/facility-reservation/internal/model"
)

// AvailabilityChecker finds active reservations that collide with a
// requested slot. It has no state and no side effects.
type AvailabilityChecker struct{}

// FindConflicts returns every PENDING or CONFIRMED reservation of
// facilityID whose interval overlaps [start, end), i.e.
// existing.start < end AND existing.end > start. The query runs through q
// so the controller can call it inside the same transaction as the insert.
func (AvailabilityChecker) FindConflicts(ctx context.Context, q ConflictQuerier, facilityID int64, start, end time.Time) ([]model.Reservation, error) {
	start, end = start.UTC(), end.UTC()
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start must be before end", ErrInvalidTimeRange)
	}
	rows, err := q.FindActiveOverlapping(ctx, facilityID, start, end)
	if err != nil {
		return nil, err
	}
	// the querier may be coarser than the invariant (e.g. a backing index
	// scan); filter again so callers only ever see true conflicts
	conflicts := make([]model.Reservation, 0, len(rows))
	for _, r := range rows {
		if r.FacilityID == facilityID && r.Status.IsActive() && r.Overlaps(start, end) {
			conflicts = append(conflicts, r)
		}
	}
	return conflicts, nil
}
