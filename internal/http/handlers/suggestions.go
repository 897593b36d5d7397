package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/glowdesk/scheduling-engine/internal/suggest"
	"github.com/glowdesk/scheduling-engine/pkg/logging"
)

// Suggester resolves booking suggestions with policy applied.
// *suggest.Service satisfies it.
type Suggester interface {
	SmartSuggestions(ctx context.Context, req suggest.Request) (*suggest.Suggestions, error)
}

// SuggestionsHandler serves policy-filtered suggestion queries.
type SuggestionsHandler struct {
	suggester Suggester
	logger    *logging.Logger
}

// NewSuggestionsHandler creates a suggestions handler.
func NewSuggestionsHandler(suggester Suggester, logger *logging.Logger) *SuggestionsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &SuggestionsHandler{suggester: suggester, logger: logger.Component("http.suggestions")}
}

// GetSuggestions handles GET /v1/providers/{providerID}/suggestions.
// Query params: duration (minutes, required), date (YYYY-MM-DD,
// optional, defaults to today), service (optional).
//
// The result's status field distinguishes a fully booked day ("full")
// from an unknown or non-bookable provider, which maps to 404.
func (h *SuggestionsHandler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	providerID, err := uuid.Parse(chi.URLParam(r, "providerID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid provider id")
		return
	}

	duration, err := strconv.Atoi(r.URL.Query().Get("duration"))
	if err != nil || duration <= 0 {
		writeError(w, http.StatusBadRequest, "duration must be a positive integer")
		return
	}

	req := suggest.Request{
		ProviderID:      providerID,
		Service:         r.URL.Query().Get("service"),
		DurationMinutes: duration,
	}
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		req.TargetDate = &date
	}

	result, err := h.suggester.SmartSuggestions(r.Context(), req)
	if err != nil {
		h.logger.Error("suggestion query failed", "provider_id", providerID, "error", err)
		writeDomainError(w, err)
		return
	}

	switch result.Status {
	case suggest.StatusNotFound:
		writeError(w, http.StatusNotFound, "provider not found")
	case suggest.StatusError:
		writeError(w, http.StatusServiceUnavailable, "schedule data unavailable")
	default:
		writeJSON(w, http.StatusOK, result)
	}
}
