package interval

import (
	"errors"
	"testing"
)

func mustNew(t *testing.T, start, end int) Interval {
	t.Helper()
	i, err := New(start, end)
	if err != nil {
		t.Fatalf("New(%d, %d) failed: %v", start, end, err)
	}
	return i
}

func TestNewRejectsInvalidBounds(t *testing.T) {
	cases := []struct {
		name       string
		start, end int
	}{
		{"end equals start", 600, 600},
		{"end before start", 600, 570},
		{"negative start", -1, 60},
		{"end past midnight", 1400, 1441},
		{"start past midnight", 1440, 1441},
	}
	for _, tc := range cases {
		if _, err := New(tc.start, tc.end); !errors.Is(err, ErrInvalidInterval) {
			t.Fatalf("%s: expected ErrInvalidInterval, got %v", tc.name, err)
		}
	}
}

func TestNewAllowsMidnightEnd(t *testing.T) {
	// The half-open range makes an end of 1440 exactly midnight without
	// spilling into the next day.
	i := mustNew(t, 1410, 1440) // 23:30-24:00
	if i.Duration() != 30 {
		t.Fatalf("expected 30 minute duration, got %d", i.Duration())
	}
	next := mustNew(t, 0, 30)
	if i.Overlaps(next) {
		t.Fatal("a midnight-ending interval must not overlap the next day's first slot")
	}
}

func TestOverlapsSymmetry(t *testing.T) {
	a := mustNew(t, 540, 570) // 09:00-09:30
	b := mustNew(t, 555, 585) // 09:15-09:45

	if !a.Overlaps(b) || !b.Overlaps(a) {
		t.Fatal("overlapping intervals must overlap in both directions")
	}
	if !a.Overlaps(a) {
		t.Fatal("a non-empty interval must overlap itself")
	}
}

func TestAdjacentIntervalsDoNotOverlap(t *testing.T) {
	a := mustNew(t, 540, 570) // 09:00-09:30
	b := mustNew(t, 570, 600) // 09:30-10:00

	if a.Overlaps(b) || b.Overlaps(a) {
		t.Fatal("back-to-back intervals must not overlap")
	}
}

func TestDuration(t *testing.T) {
	if d := mustNew(t, 540, 570).Duration(); d != 30 {
		t.Fatalf("expected duration 30, got %d", d)
	}
}

func TestParseAndFormat(t *testing.T) {
	min, err := Parse("09:30")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if min != 570 {
		t.Fatalf("expected 570, got %d", min)
	}
	if got := Format(570); got != "09:30" {
		t.Fatalf("expected 09:30, got %q", got)
	}

	for _, bad := range []string{"24:00", "9:61", "abc", ""} {
		if _, err := Parse(bad); err == nil {
			t.Fatalf("Parse(%q) should fail", bad)
		}
	}
}

func TestString(t *testing.T) {
	if got := mustNew(t, 720, 780).String(); got != "12:00-13:00" {
		t.Fatalf("unexpected String: %q", got)
	}
}
