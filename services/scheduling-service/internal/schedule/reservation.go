// Package schedule defines the reservation model, its lifecycle rules and
// the conflict detection that guards every write path.
package schedule

import (
	"fmt"
	"time"

	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/interval"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no-show"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// Active reservations participate in conflict checks.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal states admit no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted || s == StatusNoShow
}

// CanTransition encodes the state machine:
// pending -> confirmed -> completed; pending|confirmed -> cancelled|no-show.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case StatusConfirmed:
		return from == StatusPending
	case StatusCompleted:
		return from == StatusConfirmed
	case StatusCancelled, StatusNoShow:
		return from.Active()
	}
	return false
}

// Requester is the opaque client payload attached to a reservation. The
// core stores it verbatim and never interprets it.
type Requester struct {
	Name  string
	Email string
	Phone string
	Title string
	Notes string
}

// Reservation is the central entity. ID, ResourceID and Date are fixed at
// creation; time edits replace the Slot after re-running conflict
// detection.
type Reservation struct {
	ID           string
	ResourceID   string
	Requester    Requester
	Date         string // calendar day, "2006-01-02"
	Slot         interval.Interval
	Status       Status
	CancelledBy  string
	CancelledAt  *time.Time
	CancelReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StartAt combines the calendar day with the slot start into a wall-clock
// instant, used for future-date and cancellation-window checks.
func (r *Reservation) StartAt() (time.Time, error) {
	return StartAt(r.Date, r.Slot)
}

func StartAt(date string, slot interval.Interval) (time.Time, error) {
	day, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(slot.Start) * time.Minute), nil
}

// ParseDate validates and normalizes a "YYYY-MM-DD" calendar day.
func ParseDate(date string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", ErrValidation)
	}
	return day, nil
}

// Clone returns a deep copy so stores can hand out snapshots without
// exposing internal state.
func (r *Reservation) Clone() *Reservation {
	cp := *r
	if r.CancelledAt != nil {
		at := *r.CancelledAt
		cp.CancelledAt = &at
	}
	return &cp
}
