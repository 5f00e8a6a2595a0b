package handlers

import (
	"net/http"

	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/directory"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/interval"
)

type availabilityEntry struct {
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Available     bool   `json:"available"`
	ReservationID string `json:"reservation_id,omitempty"`
}

type availabilityResponse struct {
	ResourceID string              `json:"resource_id"`
	Date       string              `json:"date"`
	Working    bool                `json:"working"`
	Reason     string              `json:"reason,omitempty"`
	OpensAt    string              `json:"opens_at,omitempty"`
	ClosesAt   string              `json:"closes_at,omitempty"`
	Slots      []availabilityEntry `json:"slots"`
	Summary    struct {
		Total     int `json:"total"`
		Available int `json:"available"`
		Booked    int `json:"booked"`
	} `json:"summary"`
}

func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request) {
	resourceID, date, ok := resourceDateQuery(w, r)
	if !ok {
		return
	}

	av, err := h.engine.Availability(r.Context(), resourceID, date)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := availabilityResponse{
		ResourceID: av.ResourceID,
		Date:       av.Date,
		Working:    av.Working,
		Reason:     av.Reason,
		Slots:      make([]availabilityEntry, 0, len(av.Entries)),
	}
	if av.Working {
		resp.OpensAt = interval.Format(av.Window.Start)
		resp.ClosesAt = interval.Format(av.Window.End)
	}
	for _, e := range av.Entries {
		entry := availabilityEntry{
			StartTime: interval.Format(e.Slot.Start),
			EndTime:   interval.Format(e.Slot.End),
			Available: e.Available,
		}
		if e.Reservation != nil {
			entry.ReservationID = e.Reservation.ID
		}
		resp.Slots = append(resp.Slots, entry)
	}
	resp.Summary.Total = av.Summary.Total
	resp.Summary.Available = av.Summary.Available
	resp.Summary.Booked = av.Summary.Booked

	writeJSON(w, http.StatusOK, resp)
}

type slotRange struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type slotsResponse struct {
	ResourceID string      `json:"resource_id"`
	Date       string      `json:"date"`
	Working    bool        `json:"working"`
	Free       []slotRange `json:"free"`
	Booked     []slotRange `json:"booked"`
}

// Slots is the compact availability view: two plain lists of times.
func (h *ReservationHandler) Slots(w http.ResponseWriter, r *http.Request) {
	resourceID, date, ok := resourceDateQuery(w, r)
	if !ok {
		return
	}

	av, err := h.engine.Availability(r.Context(), resourceID, date)
	if err != nil {
		h.writeError(w, err)
		return
	}

	resp := slotsResponse{
		ResourceID: av.ResourceID,
		Date:       av.Date,
		Working:    av.Working,
		Free:       make([]slotRange, 0, len(av.Entries)),
		Booked:     make([]slotRange, 0),
	}
	for _, e := range av.Entries {
		rng := slotRange{
			StartTime: interval.Format(e.Slot.Start),
			EndTime:   interval.Format(e.Slot.End),
		}
		if e.Available {
			resp.Free = append(resp.Free, rng)
		} else {
			resp.Booked = append(resp.Booked, rng)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type resourceResponse struct {
	ID    string        `json:"id"`
	Name  string        `json:"name"`
	Notes string        `json:"notes,omitempty"`
	Hours []resourceDay `json:"working_hours"`
}

type resourceDay struct {
	Weekday  string `json:"weekday"`
	Working  bool   `json:"working"`
	OpensAt  string `json:"opens_at,omitempty"`
	ClosesAt string `json:"closes_at,omitempty"`
}

func (h *ReservationHandler) Resources(w http.ResponseWriter, r *http.Request) {
	list, err := h.dir.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	out := make([]resourceResponse, 0, len(list))
	for _, res := range list {
		item := resourceResponse{ID: res.ID, Name: res.Name, Notes: res.Notes}
		for wd, day := range res.Hours {
			entry := resourceDay{Weekday: weekdayName(wd), Working: day.Working}
			if day.Working {
				entry.OpensAt = interval.Format(day.Window.Start)
				entry.ClosesAt = interval.Format(day.Window.End)
			}
			item.Hours = append(item.Hours, entry)
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"resources": out})
}

func resourceDateQuery(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeErrorMessage(w, http.StatusBadRequest, "date query parameter is required")
		return "", "", false
	}
	resourceID := r.URL.Query().Get("resource_id")
	if resourceID == "" {
		resourceID = directory.DefaultResourceID
	}
	return resourceID, date, true
}

func weekdayName(wd int) string {
	names := [...]string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	if wd < 0 || wd >= len(names) {
		return "unknown"
	}
	return names[wd]
}
