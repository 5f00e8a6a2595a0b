// Package store persists reservations. Both implementations serialize the
// conflict-scan-then-write sequence so concurrent booking attempts for
// overlapping slots on the same resource and day cannot both succeed.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/schedule"
)

// Memory keeps the reservation set behind a single mutex. Every mutating
// operation runs the conflict scan and the write under the same lock
// (single-writer discipline). Reads return deep copies.
type Memory struct {
	mu    sync.Mutex
	byID  map[string]*schedule.Reservation
	byDay map[string][]*schedule.Reservation // resourceID + "|" + date
}

func NewMemory() *Memory {
	return &Memory{
		byID:  make(map[string]*schedule.Reservation),
		byDay: make(map[string][]*schedule.Reservation),
	}
}

func dayKey(resourceID, date string) string {
	return resourceID + "|" + date
}

func (m *Memory) Create(_ context.Context, r *schedule.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byID[r.ID]; exists {
		return fmt.Errorf("duplicate reservation id %s", r.ID)
	}

	day := m.byDay[dayKey(r.ResourceID, r.Date)]
	candidate := schedule.Candidate{ResourceID: r.ResourceID, Date: r.Date, Slot: r.Slot}
	if blocking := schedule.FindConflict(candidate, "", day); blocking != nil {
		return &schedule.ConflictError{Blocking: blocking.Clone()}
	}

	stored := r.Clone()
	m.byID[stored.ID] = stored
	m.byDay[dayKey(stored.ResourceID, stored.Date)] = append(day, stored)
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*schedule.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return nil, schedule.ErrNotFound
	}
	return r.Clone(), nil
}

func (m *Memory) Update(_ context.Context, r *schedule.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.byID[r.ID]
	if !ok {
		return schedule.ErrNotFound
	}
	// Callers validate transitions against a snapshot; the stored row may
	// have reached a terminal state since. Re-check under the lock so a
	// committed cancel cannot be overwritten.
	if stored.Status.Terminal() {
		return fmt.Errorf("%w: reservation is %s", schedule.ErrInvalidStateTransition, stored.Status)
	}

	// A reservation staying (or becoming) active must still fit; a write
	// that deactivates it frees the slot and needs no check.
	if r.Status.Active() {
		day := m.byDay[dayKey(r.ResourceID, r.Date)]
		candidate := schedule.Candidate{ResourceID: r.ResourceID, Date: r.Date, Slot: r.Slot}
		if blocking := schedule.FindConflict(candidate, r.ID, day); blocking != nil {
			return &schedule.ConflictError{Blocking: blocking.Clone()}
		}
	}

	updated := r.Clone()
	// ResourceID never changes; a rescheduled date moves the reservation
	// to another day bucket.
	updated.ResourceID = stored.ResourceID
	if stored.Date != updated.Date {
		oldKey := dayKey(stored.ResourceID, stored.Date)
		day := m.byDay[oldKey]
		for i, candidate := range day {
			if candidate.ID == stored.ID {
				m.byDay[oldKey] = append(day[:i], day[i+1:]...)
				break
			}
		}
		newKey := dayKey(updated.ResourceID, updated.Date)
		m.byDay[newKey] = append(m.byDay[newKey], stored)
	}
	*stored = *updated
	return nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.byID[id]
	if !ok {
		return schedule.ErrNotFound
	}
	delete(m.byID, id)

	key := dayKey(r.ResourceID, r.Date)
	day := m.byDay[key]
	for i, candidate := range day {
		if candidate.ID == id {
			m.byDay[key] = append(day[:i], day[i+1:]...)
			break
		}
	}
	return nil
}

// ListByDate returns all reservations for the date, optionally filtered by
// resource, sorted by slot start.
func (m *Memory) ListByDate(_ context.Context, resourceID, date string) ([]*schedule.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*schedule.Reservation
	for _, r := range m.byID {
		if r.Date != date {
			continue
		}
		if resourceID != "" && r.ResourceID != resourceID {
			continue
		}
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Slot.Start != out[j].Slot.Start {
			return out[i].Slot.Start < out[j].Slot.Start
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ListActive returns the pending and confirmed reservations for one
// resource and date, sorted by slot start.
func (m *Memory) ListActive(_ context.Context, resourceID, date string) ([]*schedule.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	day := m.byDay[dayKey(resourceID, date)]
	out := make([]*schedule.Reservation, 0, len(day))
	for _, r := range day {
		if r.Status.Active() {
			out = append(out, r.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot.Start < out[j].Slot.Start })
	return out, nil
}
