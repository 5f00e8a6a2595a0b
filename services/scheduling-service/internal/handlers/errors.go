package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/interval"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/schedule"
)

type errorBody struct {
	Error    string            `json:"error"`
	Blocking *blockingSlotBody `json:"blocking,omitempty"`
}

type blockingSlotBody struct {
	ReservationID string `json:"reservation_id"`
	Date          string `json:"date"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
}

// writeError maps engine errors onto the HTTP contract: bad input is 400,
// unknown ids are 404, overlaps and illegal transitions are 409, a refused
// cancellation is 422.
func (h *ReservationHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, schedule.ErrValidation), errors.Is(err, interval.ErrInvalidInterval):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case schedule.IsNotFound(err):
		writeErrorMessage(w, http.StatusNotFound, "reservation not found")
	case schedule.IsConflict(err):
		body := errorBody{Error: "time slot already booked"}
		if blocking := schedule.BlockingReservation(err); blocking != nil {
			body.Blocking = &blockingSlotBody{
				ReservationID: blocking.ID,
				Date:          blocking.Date,
				StartTime:     interval.Format(blocking.Slot.Start),
				EndTime:       interval.Format(blocking.Slot.End),
				Status:        string(blocking.Status),
			}
		}
		writeJSON(w, http.StatusConflict, body)
	case errors.Is(err, schedule.ErrInvalidStateTransition):
		writeErrorMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, schedule.ErrCancellationWindow):
		writeErrorMessage(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error("request failed", "err", err)
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func writeErrorMessage(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
