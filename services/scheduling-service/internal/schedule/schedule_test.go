package schedule

import (
	"errors"
	"testing"

	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/interval"
)

func slot(t *testing.T, start, end string) interval.Interval {
	t.Helper()
	s, err := interval.Parse(start)
	if err != nil {
		t.Fatalf("parse %q: %v", start, err)
	}
	e, err := interval.Parse(end)
	if err != nil {
		t.Fatalf("parse %q: %v", end, err)
	}
	iv, err := interval.New(s, e)
	if err != nil {
		t.Fatalf("interval %s-%s: %v", start, end, err)
	}
	return iv
}

func active(t *testing.T, id, resource, date, start, end string, status Status) *Reservation {
	t.Helper()
	return &Reservation{
		ID:         id,
		ResourceID: resource,
		Date:       date,
		Slot:       slot(t, start, end),
		Status:     status,
	}
}

func TestFindConflictOverlap(t *testing.T) {
	existing := []*Reservation{
		active(t, "r1", "P1", "2024-01-01", "09:00", "09:30", StatusConfirmed),
	}

	c := Candidate{ResourceID: "P1", Date: "2024-01-01", Slot: slot(t, "09:15", "09:45")}
	if got := FindConflict(c, "", existing); got == nil || got.ID != "r1" {
		t.Fatalf("expected conflict with r1, got %+v", got)
	}
}

func TestFindConflictAdjacencyAllowed(t *testing.T) {
	existing := []*Reservation{
		active(t, "r1", "P1", "2024-01-01", "09:00", "09:30", StatusConfirmed),
	}

	c := Candidate{ResourceID: "P1", Date: "2024-01-01", Slot: slot(t, "09:30", "10:00")}
	if got := FindConflict(c, "", existing); got != nil {
		t.Fatalf("back-to-back slot should not conflict, got %+v", got)
	}
}

func TestFindConflictIgnoresOtherResourceAndDate(t *testing.T) {
	existing := []*Reservation{
		active(t, "r1", "P1", "2024-01-01", "09:00", "09:30", StatusConfirmed),
	}

	c := Candidate{ResourceID: "P2", Date: "2024-01-01", Slot: slot(t, "09:00", "09:30")}
	if FindConflict(c, "", existing) != nil {
		t.Fatal("different resource must not conflict")
	}

	c = Candidate{ResourceID: "P1", Date: "2024-01-02", Slot: slot(t, "09:00", "09:30")}
	if FindConflict(c, "", existing) != nil {
		t.Fatal("different date must not conflict")
	}
}

func TestFindConflictExcludesSelf(t *testing.T) {
	existing := []*Reservation{
		active(t, "r1", "P1", "2024-01-01", "09:00", "09:30", StatusConfirmed),
	}

	c := Candidate{ResourceID: "P1", Date: "2024-01-01", Slot: slot(t, "09:00", "10:00")}
	if FindConflict(c, "r1", existing) != nil {
		t.Fatal("rescheduling must not conflict with the reservation itself")
	}
}

func TestFindConflictSkipsInactive(t *testing.T) {
	existing := []*Reservation{
		active(t, "r1", "P1", "2024-01-01", "09:00", "09:30", StatusCancelled),
		active(t, "r2", "P1", "2024-01-01", "10:00", "10:30", StatusCompleted),
		active(t, "r3", "P1", "2024-01-01", "11:00", "11:30", StatusNoShow),
	}

	for _, window := range [][2]string{{"09:00", "09:30"}, {"10:00", "10:30"}, {"11:00", "11:30"}} {
		c := Candidate{ResourceID: "P1", Date: "2024-01-01", Slot: slot(t, window[0], window[1])}
		if FindConflict(c, "", existing) != nil {
			t.Fatalf("inactive reservation at %s must not block", window[0])
		}
	}
}

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusPending, StatusNoShow},
		{StatusConfirmed, StatusCompleted},
		{StatusConfirmed, StatusCancelled},
		{StatusConfirmed, StatusNoShow},
	}
	for _, c := range allowed {
		if !CanTransition(c.from, c.to) {
			t.Fatalf("%s -> %s should be allowed", c.from, c.to)
		}
	}

	denied := []struct{ from, to Status }{
		{StatusPending, StatusCompleted},
		{StatusCancelled, StatusConfirmed},
		{StatusCompleted, StatusCancelled},
		{StatusNoShow, StatusPending},
		{StatusConfirmed, StatusPending},
	}
	for _, c := range denied {
		if CanTransition(c.from, c.to) {
			t.Fatalf("%s -> %s should be rejected", c.from, c.to)
		}
	}
}

func TestDeriveDuration(t *testing.T) {
	d, err := DeriveDuration(570, 600)
	if err != nil {
		t.Fatalf("DeriveDuration failed: %v", err)
	}
	if d != 30 {
		t.Fatalf("expected 30, got %d", d)
	}

	// end before start, as in a 10:00 -> 09:30 submission
	if _, err := DeriveDuration(600, 570); !errors.Is(err, interval.ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
	if _, err := DeriveDuration(600, 600); err == nil {
		t.Fatal("zero-length interval should be rejected")
	}
}

func TestParseDate(t *testing.T) {
	if _, err := ParseDate("2024-01-01"); err != nil {
		t.Fatalf("ParseDate failed: %v", err)
	}
	if _, err := ParseDate("01/01/2024"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}
