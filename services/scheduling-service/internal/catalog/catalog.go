// Package catalog enumerates the bookable slots of a working window and
// overlays the active reservations onto them. Everything here is derived
// data: catalogs are recomputed per query and never cached, because the
// booking state changes concurrently.
package catalog

import (
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/interval"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/schedule"
)

// Slots cuts the working window into contiguous, non-overlapping intervals
// of granularity minutes, in ascending order. Pure function of its inputs.
// A trailing remainder shorter than the granularity is not bookable.
func Slots(window interval.Interval, granularityMinutes int) []interval.Interval {
	if granularityMinutes <= 0 {
		return nil
	}
	var slots []interval.Interval
	for start := window.Start; start+granularityMinutes <= window.End; start += granularityMinutes {
		slots = append(slots, interval.Interval{Start: start, End: start + granularityMinutes})
	}
	return slots
}

// Entry is one catalog slot with its occupancy.
type Entry struct {
	Slot        interval.Interval
	Available   bool
	Reservation *schedule.Reservation
}

// Overlay marks each slot that intersects an active reservation as
// occupied by it. A reservation longer than the granularity claims every
// slot it overlaps.
func Overlay(slots []interval.Interval, active []*schedule.Reservation) []Entry {
	entries := make([]Entry, 0, len(slots))
	for _, s := range slots {
		e := Entry{Slot: s, Available: true}
		for _, r := range active {
			if !r.Status.Active() {
				continue
			}
			if r.Slot.Overlaps(s) {
				e.Available = false
				e.Reservation = r
				break
			}
		}
		entries = append(entries, e)
	}
	return entries
}

// Summary counts a catalog's occupancy.
type Summary struct {
	Total     int
	Available int
	Booked    int
}

func Summarize(entries []Entry) Summary {
	s := Summary{Total: len(entries)}
	for _, e := range entries {
		if e.Available {
			s.Available++
		} else {
			s.Booked++
		}
	}
	return s
}
