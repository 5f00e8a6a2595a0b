// Package directory supplies the resources reservations are booked
// against and their weekly working windows. The scheduling core treats it
// as read-only reference data.
package directory

import (
	"context"
	"errors"

	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/interval"
)

var ErrUnknownResource = errors.New("unknown resource")

// DayWindow is one weekday's bookable window. Weekdays follow time.Weekday
// numbering (0 = Sunday).
type DayWindow struct {
	Working bool
	Window  interval.Interval
}

// Resource is a provider (or the single implicit resource in simple mode)
// with its weekly schedule.
type Resource struct {
	ID    string
	Name  string
	Notes string
	Hours [7]DayWindow
}

type Directory interface {
	// Resource returns ErrUnknownResource for an unknown id.
	Resource(ctx context.Context, id string) (Resource, error)
	List(ctx context.Context) ([]Resource, error)
}
