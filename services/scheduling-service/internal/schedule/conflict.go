package schedule

import (
	"fmt"

	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/interval"
)

// Candidate is a prospective reservation time to test against the active
// set for one resource and day.
type Candidate struct {
	ResourceID string
	Date       string
	Slot       interval.Interval
}

// FindConflict returns the first active (pending or confirmed) reservation
// for the candidate's resource and date whose slot overlaps the
// candidate's, or nil when the slot is free. excludeID skips the
// reservation being rescheduled so it does not conflict with itself.
//
// This is the single gate before any reservation is created or its
// time/date changed; no write path may bypass it. A linear scan is
// sufficient at per-resource-per-day cardinality.
func FindConflict(c Candidate, excludeID string, reservations []*Reservation) *Reservation {
	for _, r := range reservations {
		if r.ID == excludeID {
			continue
		}
		if !r.Status.Active() {
			continue
		}
		if r.ResourceID != c.ResourceID || r.Date != c.Date {
			continue
		}
		if r.Slot.Overlaps(c.Slot) {
			return r
		}
	}
	return nil
}

// DeriveDuration recomputes a reservation's duration from its bounds.
// It is invoked explicitly whenever start or end change, never as a
// persistence side effect.
func DeriveDuration(startMinute, endMinute int) (int, error) {
	d := endMinute - startMinute
	if d <= 0 {
		return 0, fmt.Errorf("%w: end %s must be after start %s",
			interval.ErrInvalidInterval, interval.Format(endMinute), interval.Format(startMinute))
	}
	return d, nil
}
