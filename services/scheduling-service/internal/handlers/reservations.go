// Package handlers is the HTTP surface of the scheduling service. It
// translates JSON requests into engine calls and engine errors into
// status codes; no booking rule lives here.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/directory"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/interval"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/schedule"
	"github.com/tiep1406/appointment--system/services/scheduling-service/internal/scheduling"
)

type ReservationHandler struct {
	engine   *scheduling.Engine
	dir      directory.Directory
	logger   *slog.Logger
	validate *validator.Validate
}

func NewReservationHandler(engine *scheduling.Engine, dir directory.Directory, logger *slog.Logger) *ReservationHandler {
	return &ReservationHandler{
		engine:   engine,
		dir:      dir,
		logger:   logger,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *ReservationHandler) Register(r *mux.Router) {
	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/availability", h.Availability).Methods(http.MethodGet)
	api.HandleFunc("/slots", h.Slots).Methods(http.MethodGet)
	api.HandleFunc("/reservations", h.Create).Methods(http.MethodPost)
	api.HandleFunc("/reservations", h.List).Methods(http.MethodGet)
	api.HandleFunc("/reservations/{id}", h.Get).Methods(http.MethodGet)
	api.HandleFunc("/reservations/{id}", h.Update).Methods(http.MethodPatch)
	api.HandleFunc("/reservations/{id}/cancel", h.Cancel).Methods(http.MethodPost)
	api.HandleFunc("/reservations/{id}", h.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/resources", h.Resources).Methods(http.MethodGet)
}

type createReservationRequest struct {
	ResourceID string `json:"resource_id"`
	Date       string `json:"date" validate:"required"`
	StartTime  string `json:"start_time" validate:"required"`
	EndTime    string `json:"end_time" validate:"required"`
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone"`
	Title      string `json:"title"`
	Notes      string `json:"notes"`
}

type updateReservationRequest struct {
	Date      *string `json:"date"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Status    *string `json:"status"`
	Name      *string `json:"name"`
	Email     *string `json:"email" validate:"omitempty,email"`
	Phone     *string `json:"phone"`
	Title     *string `json:"title"`
	Notes     *string `json:"notes"`
}

type cancelReservationRequest struct {
	CancelledBy string `json:"cancelled_by"`
	Reason      string `json:"reason"`
}

type reservationResponse struct {
	ID              string `json:"id"`
	ResourceID      string `json:"resource_id"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	Name            string `json:"name,omitempty"`
	Email           string `json:"email,omitempty"`
	Phone           string `json:"phone,omitempty"`
	Title           string `json:"title,omitempty"`
	Notes           string `json:"notes,omitempty"`
	CancelledBy     string `json:"cancelled_by,omitempty"`
	CancelledAt     string `json:"cancelled_at,omitempty"`
	CancelReason    string `json:"cancel_reason,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func toResponse(r *schedule.Reservation) reservationResponse {
	resp := reservationResponse{
		ID:              r.ID,
		ResourceID:      r.ResourceID,
		Date:            r.Date,
		StartTime:       interval.Format(r.Slot.Start),
		EndTime:         interval.Format(r.Slot.End),
		DurationMinutes: r.Slot.Duration(),
		Status:          string(r.Status),
		Name:            r.Requester.Name,
		Email:           r.Requester.Email,
		Phone:           r.Requester.Phone,
		Title:           r.Requester.Title,
		Notes:           r.Requester.Notes,
		CancelledBy:     r.CancelledBy,
		CancelReason:    r.CancelReason,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       r.UpdatedAt.Format(time.RFC3339),
	}
	if r.CancelledAt != nil {
		resp.CancelledAt = r.CancelledAt.Format(time.RFC3339)
	}
	return resp
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	resourceID := strings.TrimSpace(req.ResourceID)
	if resourceID == "" {
		resourceID = directory.DefaultResourceID
	}
	slot, err := parseSlot(req.StartTime, req.EndTime)
	if err != nil {
		h.writeError(w, err)
		return
	}

	created, err := h.engine.Create(r.Context(), scheduling.CreateInput{
		ResourceID: resourceID,
		Date:       req.Date,
		Slot:       slot,
		Requester: schedule.Requester{
			Name:  strings.TrimSpace(req.Name),
			Email: strings.TrimSpace(req.Email),
			Phone: strings.TrimSpace(req.Phone),
			Title: strings.TrimSpace(req.Title),
			Notes: req.Notes,
		},
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(created))
}

func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
	res, err := h.engine.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res))
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		writeErrorMessage(w, http.StatusBadRequest, "date query parameter is required")
		return
	}
	resourceID := r.URL.Query().Get("resource_id")

	list, err := h.engine.ListByDate(r.Context(), resourceID, date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]reservationResponse, 0, len(list))
	for _, res := range list {
		out = append(out, toResponse(res))
	}
	writeJSON(w, http.StatusOK, map[string]any{"reservations": out})
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	patch := scheduling.UpdatePatch{Date: req.Date}
	if req.StartTime != nil {
		start, err := interval.Parse(*req.StartTime)
		if err != nil {
			h.writeError(w, err)
			return
		}
		patch.StartMinute = &start
	}
	if req.EndTime != nil {
		end, err := interval.Parse(*req.EndTime)
		if err != nil {
			h.writeError(w, err)
			return
		}
		patch.EndMinute = &end
	}
	if req.Status != nil {
		status := schedule.Status(*req.Status)
		patch.Status = &status
	}

	id := mux.Vars(r)["id"]
	if touchesRequester(req) {
		current, err := h.engine.Get(r.Context(), id)
		if err != nil {
			h.writeError(w, err)
			return
		}
		merged := current.Requester
		applyString(&merged.Name, req.Name)
		applyString(&merged.Email, req.Email)
		applyString(&merged.Phone, req.Phone)
		applyString(&merged.Title, req.Title)
		applyString(&merged.Notes, req.Notes)
		patch.Requester = &merged
	}

	updated, err := h.engine.Update(r.Context(), id, patch)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(updated))
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req cancelReservationRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErrorMessage(w, http.StatusBadRequest, "invalid json body")
			return
		}
	}
	actor := strings.TrimSpace(req.CancelledBy)
	if actor == "" {
		actor = "requester"
	}

	cancelled, err := h.engine.Cancel(r.Context(), mux.Vars(r)["id"], actor, strings.TrimSpace(req.Reason))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(cancelled))
}

// Delete removes the reservation row entirely. Restricted to admins;
// everyone else goes through cancel.
func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !strings.EqualFold(r.Header.Get("X-Role"), "admin") {
		writeErrorMessage(w, http.StatusForbidden, "admin role required")
		return
	}
	if err := h.engine.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseSlot(start, end string) (interval.Interval, error) {
	s, err := interval.Parse(start)
	if err != nil {
		return interval.Interval{}, err
	}
	e, err := interval.Parse(end)
	if err != nil {
		return interval.Interval{}, err
	}
	return interval.New(s, e)
}

func touchesRequester(req updateReservationRequest) bool {
	return req.Name != nil || req.Email != nil || req.Phone != nil || req.Title != nil || req.Notes != nil
}

func applyString(dst *string, src *string) {
	if src != nil {
		*dst = strings.TrimSpace(*src)
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		f := verrs[0]
		return "invalid field " + strings.ToLower(f.Field()) + ": failed " + f.Tag()
	}
	return "invalid request"
}
