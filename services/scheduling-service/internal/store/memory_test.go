package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/interval"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/schedule"
)

func reservation(id, resource, date string, start, end int, status schedule.Status) *schedule.Reservation {
	return &schedule.Reservation{
		ID:         id,
		ResourceID: resource,
		Date:       date,
		Slot:       interval.Interval{Start: start, End: end},
		Status:     status,
	}
}

func TestMemoryCreateRejectsOverlap(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Create(ctx, reservation("r1", "P1", "2024-01-01", 540, 570, schedule.StatusConfirmed)); err != nil {
		t.Fatalf("first create failed: %v", err)
	}

	err := m.Create(ctx, reservation("r2", "P1", "2024-01-01", 555, 585, schedule.StatusPending))
	if !schedule.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if blocking := schedule.BlockingReservation(err); blocking == nil || blocking.ID != "r1" {
		t.Fatalf("conflict should reference r1, got %+v", blocking)
	}
}

func TestMemoryCreateAllowsAdjacent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Create(ctx, reservation("r1", "P1", "2024-01-01", 540, 570, schedule.StatusConfirmed)); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := m.Create(ctx, reservation("r2", "P1", "2024-01-01", 570, 600, schedule.StatusConfirmed)); err != nil {
		t.Fatalf("adjacent create should succeed: %v", err)
	}
}

func TestMemoryCancelledSlotReusable(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	r := reservation("r1", "P1", "2024-01-01", 540, 570, schedule.StatusConfirmed)
	if err := m.Create(ctx, r); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	r.Status = schedule.StatusCancelled
	if err := m.Update(ctx, r); err != nil {
		t.Fatalf("cancel update failed: %v", err)
	}

	if err := m.Create(ctx, reservation("r2", "P1", "2024-01-01", 540, 570, schedule.StatusConfirmed)); err != nil {
		t.Fatalf("slot freed by cancellation should be bookable: %v", err)
	}
}

func TestMemoryUpdateRejectsTerminalRow(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	r := reservation("r1", "P1", "2024-01-01", 540, 570, schedule.StatusConfirmed)
	if err := m.Create(ctx, r); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	cancelled := r.Clone()
	cancelled.Status = schedule.StatusCancelled
	cancelled.CancelledBy = "requester"
	if err := m.Update(ctx, cancelled); err != nil {
		t.Fatalf("cancel update failed: %v", err)
	}

	// A writer holding a pre-cancellation snapshot must not resurrect
	// the reservation.
	stale := r.Clone()
	stale.Requester.Notes = "rescheduling"
	if err := m.Update(ctx, stale); !errors.Is(err, schedule.ErrInvalidStateTransition) {
		t.Fatalf("expected invalid transition, got %v", err)
	}

	got, err := m.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Status != schedule.StatusCancelled || got.CancelledBy != "requester" {
		t.Fatalf("cancellation overwritten: %+v", got)
	}
}

func TestMemoryUpdateExcludesSelf(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	r := reservation("r1", "P1", "2024-01-01", 540, 570, schedule.StatusConfirmed)
	if err := m.Create(ctx, r); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Growing the same reservation must not conflict with itself.
	r.Slot = interval.Interval{Start: 540, End: 600}
	if err := m.Update(ctx, r); err != nil {
		t.Fatalf("self-overlapping reschedule should succeed: %v", err)
	}

	got, err := m.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Slot.End != 600 {
		t.Fatalf("update not applied, got %s", got.Slot)
	}
}

func TestMemoryUpdateConflictsWithOthers(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Create(ctx, reservation("r1", "P1", "2024-01-01", 540, 570, schedule.StatusConfirmed)); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	r2 := reservation("r2", "P1", "2024-01-01", 600, 630, schedule.StatusConfirmed)
	if err := m.Create(ctx, r2); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	r2.Slot = interval.Interval{Start: 550, End: 580}
	if err := m.Update(ctx, r2); !schedule.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestMemoryNotFound(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Get(ctx, "missing"); !schedule.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := m.Update(ctx, reservation("missing", "P1", "2024-01-01", 540, 570, schedule.StatusConfirmed)); !schedule.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := m.Delete(ctx, "missing"); !schedule.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryListByDateSorted(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for i, start := range []int{660, 540, 600} {
		id := fmt.Sprintf("r%d", i)
		if err := m.Create(ctx, reservation(id, "P1", "2024-01-01", start, start+30, schedule.StatusConfirmed)); err != nil {
			t.Fatalf("create failed: %v", err)
		}
	}
	if err := m.Create(ctx, reservation("other-day", "P1", "2024-01-02", 540, 570, schedule.StatusConfirmed)); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	list, err := m.ListByDate(ctx, "P1", "2024-01-01")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 reservations, got %d", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].Slot.Start < list[i-1].Slot.Start {
			t.Fatalf("list not sorted by start: %v then %v", list[i-1].Slot, list[i].Slot)
		}
	}
}

func TestMemoryConcurrentCreateSingleWinner(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	const attempts = 32
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = m.Create(ctx, reservation(fmt.Sprintf("r%d", i), "P1", "2024-01-01", 540, 570, schedule.StatusConfirmed))
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else if !schedule.IsConflict(err) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("exactly one concurrent booking must win, got %d", winners)
	}
}

func TestMemoryNoOverlapInvariant(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	// A burst of random-ish creates and reschedules; whatever succeeded
	// must leave the active set overlap-free.
	for i := 0; i < 40; i++ {
		start := 420 + (i*25)%600
		_ = m.Create(ctx, reservation(fmt.Sprintf("c%d", i), "P1", "2024-01-01", start, start+40, schedule.StatusConfirmed))
	}

	active, err := m.ListActive(ctx, "P1", "2024-01-01")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	for i := 0; i < len(active); i++ {
		for j := i + 1; j < len(active); j++ {
			if active[i].Slot.Overlaps(active[j].Slot) {
				t.Fatalf("active reservations overlap: %s and %s", active[i].Slot, active[j].Slot)
			}
		}
	}
}
