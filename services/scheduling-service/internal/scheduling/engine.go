// Package scheduling is the booking engine: it validates candidates
// against the resource directory and the clock, applies the lifecycle
// rules, and drives the store. Conflict detection itself lives in the
// store so the scan and the write stay one atomic unit.
package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/catalog"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/directory"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/interval"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/schedule"
)

// Store is the reservation persistence contract. Implementations
// serialize conflict-check-then-write per (resource, date) and surface
// *schedule.ConflictError on overlap.
type Store interface {
	Create(ctx context.Context, r *schedule.Reservation) error
	Get(ctx context.Context, id string) (*schedule.Reservation, error)
	Update(ctx context.Context, r *schedule.Reservation) error
	Delete(ctx context.Context, id string) error
	ListByDate(ctx context.Context, resourceID, date string) ([]*schedule.Reservation, error)
	ListActive(ctx context.Context, resourceID, date string) ([]*schedule.Reservation, error)
}

type Config struct {
	// GranularityMinutes is the catalog slot length.
	GranularityMinutes int
	// MinDuration/MaxDuration bound reservation length in minutes.
	MinDurationMinutes int
	MaxDurationMinutes int
	// CancelLeadTime is the minimum time before start during which
	// cancellation is refused. Zero means unrestricted.
	CancelLeadTime time.Duration
	// AutoConfirm creates reservations directly confirmed (no approval
	// step).
	AutoConfirm bool
	// AlignToCatalog restricts reservations to exact catalog slots.
	AlignToCatalog bool

	// Now and NewID are injectable for deterministic tests.
	Now   func() time.Time
	NewID func() string
}

// SimpleConfig is the fixed-slot mode: 30-minute catalog slots,
// auto-confirmed, 30-minute cancellation window.
func SimpleConfig() Config {
	return Config{
		GranularityMinutes: 30,
		MinDurationMinutes: 30,
		MaxDurationMinutes: 30,
		CancelLeadTime:     30 * time.Minute,
		AutoConfirm:        true,
		AlignToCatalog:     true,
	}
}

// RichConfig is the arbitrary-duration mode: 15..480 minute reservations,
// pending until confirmed, cancellation unrestricted.
func RichConfig() Config {
	return Config{
		GranularityMinutes: 30,
		MinDurationMinutes: 15,
		MaxDurationMinutes: 480,
	}
}

type Engine struct {
	store Store
	dir   directory.Directory
	cfg   Config
	now   func() time.Time
	newID func() string
}

func New(store Store, dir directory.Directory, cfg Config) *Engine {
	if cfg.GranularityMinutes <= 0 {
		cfg.GranularityMinutes = 30
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	newID := cfg.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	return &Engine{store: store, dir: dir, cfg: cfg, now: now, newID: newID}
}

type CreateInput struct {
	ResourceID string
	Date       string
	Slot       interval.Interval
	Requester  schedule.Requester
}

func (e *Engine) Create(ctx context.Context, in CreateInput) (*schedule.Reservation, error) {
	day, err := schedule.ParseDate(in.Date)
	if err != nil {
		return nil, err
	}
	date := day.Format("2006-01-02")

	res, err := e.dir.Resource(ctx, in.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", schedule.ErrValidation, err)
	}
	if err := e.validateSlot(in.Slot); err != nil {
		return nil, err
	}
	if err := validateWithinWorkingHours(res, day, in.Slot); err != nil {
		return nil, err
	}

	now := e.now()
	startAt, err := schedule.StartAt(date, in.Slot)
	if err != nil {
		return nil, err
	}
	if !startAt.After(now) {
		return nil, fmt.Errorf("%w: reservation must start in the future", schedule.ErrValidation)
	}

	status := schedule.StatusPending
	if e.cfg.AutoConfirm {
		status = schedule.StatusConfirmed
	}

	r := &schedule.Reservation{
		ID:         e.newID(),
		ResourceID: in.ResourceID,
		Requester:  in.Requester,
		Date:       date,
		Slot:       in.Slot,
		Status:     status,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
	if err := e.store.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// UpdatePatch merges into an existing reservation. Nil fields are left
// untouched. Cancellation goes through Cancel, not a status patch, so the
// lead-time rule cannot be bypassed.
type UpdatePatch struct {
	Date        *string
	StartMinute *int
	EndMinute   *int
	Status      *schedule.Status
	Requester   *schedule.Requester
}

func (e *Engine) Update(ctx context.Context, id string, patch UpdatePatch) (*schedule.Reservation, error) {
	r, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status.Terminal() {
		return nil, fmt.Errorf("%w: reservation is %s", schedule.ErrInvalidStateTransition, r.Status)
	}

	if patch.Status != nil {
		next := *patch.Status
		if !next.Valid() {
			return nil, fmt.Errorf("%w: unknown status %q", schedule.ErrValidation, next)
		}
		if next == schedule.StatusCancelled {
			return nil, fmt.Errorf("%w: use the cancel operation to cancel", schedule.ErrValidation)
		}
		if next != r.Status {
			if !schedule.CanTransition(r.Status, next) {
				return nil, fmt.Errorf("%w: %s -> %s", schedule.ErrInvalidStateTransition, r.Status, next)
			}
			r.Status = next
		}
	}

	timeTouched := patch.Date != nil || patch.StartMinute != nil || patch.EndMinute != nil
	if timeTouched {
		date := r.Date
		if patch.Date != nil {
			day, err := schedule.ParseDate(*patch.Date)
			if err != nil {
				return nil, err
			}
			date = day.Format("2006-01-02")
		}
		start := r.Slot.Start
		if patch.StartMinute != nil {
			start = *patch.StartMinute
		}
		end := r.Slot.End
		if patch.EndMinute != nil {
			end = *patch.EndMinute
		}

		// Duration is re-derived on every start/end change.
		if _, err := schedule.DeriveDuration(start, end); err != nil {
			return nil, err
		}
		slot, err := interval.New(start, end)
		if err != nil {
			return nil, err
		}
		if err := e.validateSlot(slot); err != nil {
			return nil, err
		}

		day, err := schedule.ParseDate(date)
		if err != nil {
			return nil, err
		}
		res, err := e.dir.Resource(ctx, r.ResourceID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", schedule.ErrValidation, err)
		}
		if err := validateWithinWorkingHours(res, day, slot); err != nil {
			return nil, err
		}

		r.Date = date
		r.Slot = slot
	}

	if patch.Requester != nil {
		r.Requester = *patch.Requester
	}

	r.UpdatedAt = e.now().UTC()
	if err := e.store.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (e *Engine) Cancel(ctx context.Context, id, actor, reason string) (*schedule.Reservation, error) {
	r, err := e.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status.Terminal() {
		return nil, fmt.Errorf("%w: reservation is %s", schedule.ErrInvalidStateTransition, r.Status)
	}

	now := e.now()
	if e.cfg.CancelLeadTime > 0 {
		startAt, err := r.StartAt()
		if err != nil {
			return nil, err
		}
		if startAt.Sub(now) < e.cfg.CancelLeadTime {
			return nil, fmt.Errorf("%w: requires at least %s before start",
				schedule.ErrCancellationWindow, e.cfg.CancelLeadTime)
		}
	}

	cancelledAt := now.UTC()
	r.Status = schedule.StatusCancelled
	r.CancelledBy = actor
	r.CancelledAt = &cancelledAt
	r.CancelReason = reason
	r.UpdatedAt = cancelledAt
	if err := e.store.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// Delete removes a reservation outright, bypassing the cancellation
// window. The caller is responsible for restricting it to privileged
// actors.
func (e *Engine) Delete(ctx context.Context, id string) error {
	return e.store.Delete(ctx, id)
}

func (e *Engine) Get(ctx context.Context, id string) (*schedule.Reservation, error) {
	return e.store.Get(ctx, id)
}

func (e *Engine) ListByDate(ctx context.Context, resourceID, date string) ([]*schedule.Reservation, error) {
	day, err := schedule.ParseDate(date)
	if err != nil {
		return nil, err
	}
	return e.store.ListByDate(ctx, resourceID, day.Format("2006-01-02"))
}

// Availability is a day's slot catalog overlaid with the current active
// reservations. Recomputed from store state on every call.
type Availability struct {
	ResourceID string
	Date       string
	Working    bool
	Reason     string
	Window     interval.Interval
	Entries    []catalog.Entry
	Summary    catalog.Summary
}

func (e *Engine) Availability(ctx context.Context, resourceID, date string) (Availability, error) {
	day, err := schedule.ParseDate(date)
	if err != nil {
		return Availability{}, err
	}
	normalized := day.Format("2006-01-02")

	res, err := e.dir.Resource(ctx, resourceID)
	if err != nil {
		return Availability{}, fmt.Errorf("%w: %v", schedule.ErrValidation, err)
	}

	out := Availability{ResourceID: resourceID, Date: normalized}
	window := res.Hours[int(day.Weekday())]
	if !window.Working {
		out.Reason = "resource does not work on this day"
		return out, nil
	}
	out.Working = true
	out.Window = window.Window

	active, err := e.store.ListActive(ctx, resourceID, normalized)
	if err != nil {
		return Availability{}, err
	}
	slots := catalog.Slots(window.Window, e.cfg.GranularityMinutes)
	out.Entries = catalog.Overlay(slots, active)
	out.Summary = catalog.Summarize(out.Entries)
	return out, nil
}

func (e *Engine) validateSlot(slot interval.Interval) error {
	d := slot.Duration()
	if e.cfg.AlignToCatalog {
		if slot.Start%e.cfg.GranularityMinutes != 0 || d != e.cfg.GranularityMinutes {
			return fmt.Errorf("%w: slot must be a %d-minute catalog slot",
				schedule.ErrValidation, e.cfg.GranularityMinutes)
		}
		return nil
	}
	if e.cfg.MinDurationMinutes > 0 && d < e.cfg.MinDurationMinutes {
		return fmt.Errorf("%w: minimum duration is %d minutes", schedule.ErrValidation, e.cfg.MinDurationMinutes)
	}
	if e.cfg.MaxDurationMinutes > 0 && d > e.cfg.MaxDurationMinutes {
		return fmt.Errorf("%w: maximum duration is %d minutes", schedule.ErrValidation, e.cfg.MaxDurationMinutes)
	}
	return nil
}

func validateWithinWorkingHours(res directory.Resource, day time.Time, slot interval.Interval) error {
	window := res.Hours[int(day.Weekday())]
	if !window.Working {
		return fmt.Errorf("%w: resource %s does not work on %s", schedule.ErrValidation, res.ID, day.Weekday())
	}
	if !window.Window.Contains(slot) {
		return fmt.Errorf("%w: %s is outside working hours %s", schedule.ErrValidation, slot, window.Window)
	}
	return nil
}
