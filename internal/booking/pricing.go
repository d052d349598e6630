package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/facility-reservation/internal/model"
)

// RoundingPolicy decides how a duration is converted to billable hours.
type RoundingPolicy string

const (
	// RoundTruncate bills whole hours only; a 90 minute booking is one hour.
	RoundTruncate RoundingPolicy = "truncate"
	// RoundCeil bills any started hour as a full hour.
	RoundCeil RoundingPolicy = "ceil"
)

// ParseRoundingPolicy accepts "truncate" or "ceil" (case-insensitive).
func ParseRoundingPolicy(s string) (RoundingPolicy, error) {
	switch p := RoundingPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case RoundTruncate, RoundCeil:
		return p, nil
	case "":
		return RoundTruncate, nil
	}
	return "", fmt.Errorf("unknown rounding policy %q", s)
}

// Pricer computes the total price of a reservation interval.
type Pricer interface {
	Price(start, end time.Time) model.Money
}

// HourlyRate is a fixed-rate Pricer: billable hours times RatePerHour.
type HourlyRate struct {
	RatePerHour model.Money
	Rounding    RoundingPolicy
}

// NewHourlyRate returns a fixed-rate calculator. An empty policy means
// RoundTruncate.
func NewHourlyRate(rate model.Money, policy RoundingPolicy) HourlyRate {
	if policy == "" {
		policy = RoundTruncate
	}
	return HourlyRate{RatePerHour: rate, Rounding: policy}
}

// BillableHours converts the interval to whole hours using the policy.
func (p HourlyRate) BillableHours(start, end time.Time) int64 {
	d := end.Sub(start)
	if d <= 0 {
		return 0
	}
	hours := int64(d / time.Hour)
	if p.Rounding == RoundCeil && d%time.Hour != 0 {
		hours++
	}
	return hours
}

// Price returns BillableHours(start, end) * RatePerHour.
func (p HourlyRate) Price(start, end time.Time) model.Money {
	return p.RatePerHour.Multiply(p.BillableHours(start, end))
}
