// Package interval provides half-open minute-of-day interval arithmetic.
// All bookable time in the scheduling core is expressed as [Start, End)
// minute intervals within a single calendar day.
package interval

import (
	"errors"
	"fmt"
	"time"
)

const MinutesPerDay = 24 * 60

var ErrInvalidInterval = errors.New("invalid interval")

// Interval is a half-open [Start, End) range of minutes of day.
type Interval struct {
	Start int
	End   int
}

// New validates the bounds. End must be strictly after Start and both
// bounds must fall within a single day. End may be 1440: the half-open
// range means an interval ending at midnight never reaches into the
// next day, and windows like 23:30-24:00 stay representable.
func New(start, end int) (Interval, error) {
	if start < 0 || start >= MinutesPerDay || end < 0 || end > MinutesPerDay {
		return Interval{}, fmt.Errorf("%w: bounds out of range [%d, %d)", ErrInvalidInterval, start, end)
	}
	if end <= start {
		return Interval{}, fmt.Errorf("%w: end %s must be after start %s", ErrInvalidInterval, Format(end), Format(start))
	}
	return Interval{Start: start, End: end}, nil
}

// Parse converts an "HH:MM" clock string to minutes of day.
func Parse(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a valid HH:MM time", ErrInvalidInterval, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Format renders minutes of day as "HH:MM".
func Format(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Duration returns the interval length in minutes.
func (i Interval) Duration() int {
	return i.End - i.Start
}

// Overlaps reports whether two half-open intervals intersect. Intervals
// that merely touch (one ending exactly when the other starts) do not
// overlap.
func (i Interval) Overlaps(other Interval) bool {
	return i.Start < other.End && other.Start < i.End
}

// Contains reports whether other lies entirely within i.
func (i Interval) Contains(other Interval) bool {
	return other.Start >= i.Start && other.End <= i.End
}

func (i Interval) String() string {
	return Format(i.Start) + "-" + Format(i.End)
}
