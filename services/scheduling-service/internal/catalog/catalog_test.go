package catalog

import (
	"reflect"
	"testing"

	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/interval"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/schedule"
)

func window(t *testing.T, start, end int) interval.Interval {
	t.Helper()
	w, err := interval.New(start, end)
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	return w
}

func TestSlotsCoverWindowExactly(t *testing.T) {
	// Simple-mode default: 07:00-19:00 at 30 minutes yields 24 slots.
	w := window(t, 7*60, 19*60)
	slots := Slots(w, 30)

	if len(slots) != 24 {
		t.Fatalf("expected 24 slots, got %d", len(slots))
	}
	if slots[0].Start != w.Start {
		t.Fatalf("first slot must start at window start, got %s", slots[0])
	}
	if slots[len(slots)-1].End != w.End {
		t.Fatalf("last slot must end at window end, got %s", slots[len(slots)-1])
	}
	for i := 1; i < len(slots); i++ {
		if slots[i].Start != slots[i-1].End {
			t.Fatalf("slots must be contiguous: %s then %s", slots[i-1], slots[i])
		}
		if slots[i].Overlaps(slots[i-1]) {
			t.Fatalf("slots must not overlap: %s and %s", slots[i-1], slots[i])
		}
	}
}

func TestSlotsDropShortRemainder(t *testing.T) {
	w := window(t, 540, 590) // 50-minute window
	slots := Slots(w, 30)
	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d", len(slots))
	}
	if slots[0].End != 570 {
		t.Fatalf("remainder shorter than the granularity must not become a slot, got %s", slots[0])
	}
}

func TestOverlaySpanningReservation(t *testing.T) {
	w := window(t, 7*60, 19*60)
	slots := Slots(w, 30)

	// One reservation 12:00-13:00 spans the 12:00 and 12:30 slots.
	r := &schedule.Reservation{
		ID:         "r1",
		ResourceID: "P1",
		Date:       "2024-01-01",
		Slot:       interval.Interval{Start: 720, End: 780},
		Status:     schedule.StatusConfirmed,
	}

	entries := Overlay(slots, []*schedule.Reservation{r})
	var booked []string
	for _, e := range entries {
		if e.Available {
			continue
		}
		if e.Reservation == nil || e.Reservation.ID != "r1" {
			t.Fatalf("occupied slot %s must reference the blocking reservation", e.Slot)
		}
		booked = append(booked, interval.Format(e.Slot.Start))
	}
	if !reflect.DeepEqual(booked, []string{"12:00", "12:30"}) {
		t.Fatalf("expected 12:00 and 12:30 booked, got %v", booked)
	}

	sum := Summarize(entries)
	if sum.Total != 24 || sum.Booked != 2 || sum.Available != 22 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
}

func TestOverlayIgnoresInactive(t *testing.T) {
	slots := Slots(window(t, 540, 600), 30)
	r := &schedule.Reservation{
		ID:     "r1",
		Slot:   interval.Interval{Start: 540, End: 570},
		Status: schedule.StatusCancelled,
	}
	entries := Overlay(slots, []*schedule.Reservation{r})
	for _, e := range entries {
		if !e.Available {
			t.Fatalf("cancelled reservation must not occupy slot %s", e.Slot)
		}
	}
}

func TestOverlayIdempotent(t *testing.T) {
	slots := Slots(window(t, 540, 720), 30)
	active := []*schedule.Reservation{{
		ID:     "r1",
		Slot:   interval.Interval{Start: 600, End: 630},
		Status: schedule.StatusPending,
	}}

	first := Overlay(slots, active)
	second := Overlay(slots, active)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("overlay must be deterministic for identical inputs")
	}
}
