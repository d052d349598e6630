package booking

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindUnknown, KindOf(errors.New("anything")))
	assert.Equal(t, KindFacilityUnavailable, KindOf(fmt.Errorf("%w: 1 overlapping", ErrFacilityUnavailable)))
	assert.Equal(t, KindPastBooking, KindOf(fmt.Errorf("wrap: %w", fmt.Errorf("%w: started", ErrPastBooking))))
	assert.Equal(t, KindAlreadyCancelled, KindOf(ErrAlreadyCancelled))
	assert.Equal(t, KindNotFound, KindOf(ErrNotFound))
}
