package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/glowdesk/scheduling-engine/internal/availability"
	"github.com/glowdesk/scheduling-engine/pkg/logging"
)

// SlotsFinder computes raw availability for one provider and day.
// *availability.Engine satisfies it.
type SlotsFinder interface {
	GetAvailableSlots(ctx context.Context, providerID uuid.UUID, date time.Time, durationMinutes, stepMinutes int) ([]availability.Slot, error)
}

// AvailabilityHandler serves raw slot queries.
type AvailabilityHandler struct {
	slots  SlotsFinder
	logger *logging.Logger
}

// NewAvailabilityHandler creates an availability handler.
func NewAvailabilityHandler(slots SlotsFinder, logger *logging.Logger) *AvailabilityHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{slots: slots, logger: logger.Component("http.availability")}
}

// SlotsResponse is the payload for a slot query.
type SlotsResponse struct {
	ProviderID uuid.UUID           `json:"provider_id"`
	Date       string              `json:"date"`
	Slots      []availability.Slot `json:"slots"`
	Count      int                 `json:"count"`
}

// GetProviderSlots handles GET /v1/providers/{providerID}/slots.
// Query params: date (YYYY-MM-DD, required), duration (minutes,
// required), step (minutes, optional).
func (h *AvailabilityHandler) GetProviderSlots(w http.ResponseWriter, r *http.Request) {
	providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid provider id")
		return
	}

	date, err := time.Parse(time.DateOnly, r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	duration, err := strconv.Atoi(r.URL.Query().Get("duration"))
	if err != nil || duration <= 0 {
		writeError(w, http.StatusBadRequest, "duration must be a positive integer")
		return
	}

	step := 0
	if raw := r.URL.Query().Get("step"); raw != "" {
		if step, err = strconv.Atoi(raw); err != nil || step <= 0 {
			writeError(w, http.StatusBadRequest, "step must be a positive integer")
			return
		}
	}

	slots, err := h.slots.GetAvailableSlots(r.Context(), providerID, date, duration, step)
	if err != nil {
		h.logger.Error("slot query failed",
			"provider_id", providerID,
			"date", date.Format(time.DateOnly),
			"error", err,
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, SlotsResponse{
		ProviderID: providerID,
		Date:       date.Format(time.DateOnly),
		Slots:      slots,
		Count:      len(slots),
	})
}
