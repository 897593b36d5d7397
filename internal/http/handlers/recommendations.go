package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/glowdesk/scheduling-engine/internal/recommend"
	"github.com/glowdesk/scheduling-engine/pkg/logging"
)

// Recommender matches overdue clients to open capacity and reports
// utilization. *recommend.Engine satisfies it.
type Recommender interface {
	FindClientsForSlots(ctx context.Context, date time.Time, providerID *uuid.UUID, minDays int) ([]recommend.Recommendation, error)
	AutoSuggestBookings(ctx context.Context, date time.Time, maxSuggestions int) ([]recommend.Recommendation, error)
	UnderutilizedSlots(ctx context.Context, from, to time.Time) (*recommend.UtilizationReport, error)
}

// RecommendationsHandler serves rebooking recommendations and capacity
// reports.
type RecommendationsHandler struct {
	recommender Recommender
	logger      *logging.Logger
}

// NewRecommendationsHandler creates a recommendations handler.
func NewRecommendationsHandler(recommender Recommender, logger *logging.Logger) *RecommendationsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &RecommendationsHandler{recommender: recommender, logger: logger.Component("http.recommendations")}
}

// RecommendationsResponse is the payload for a recommendation query.
type RecommendationsResponse struct {
	Date            string                     `json:"date"`
	Recommendations []recommend.Recommendation `json:"recommendations"`
	Count           int                        `json:"count"`
}

// GetRecommendations handles GET /v1/recommendations.
// Query params: date (YYYY-MM-DD, required), provider_id (optional,
// narrows to one provider), min_days (optional staleness threshold),
// max (optional result cap).
func (h *RecommendationsHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	date, err := time.Parse(time.DateOnly, r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	var providerID *uuid.UUID
	if raw := r.URL.Query().Get("provider_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid provider id")
			return
		}
		providerID = &id
	}

	minDays := 0
	if raw := r.URL.Query().Get("min_days"); raw != "" {
		if minDays, err = strconv.Atoi(raw); err != nil || minDays < 0 {
			writeError(w, http.StatusBadRequest, "min_days must be a non-negative integer")
			return
		}
	}

	max := 0
	if raw := r.URL.Query().Get("max"); raw != "" {
		if max, err = strconv.Atoi(raw); err != nil || max < 0 {
			writeError(w, http.StatusBadRequest, "max must be a non-negative integer")
			return
		}
	}

	recs, err := h.recommender.FindClientsForSlots(r.Context(), date, providerID, minDays)
	if err != nil {
		h.logger.Error("recommendation query failed", "date", date.Format(time.DateOnly), "error", err)
		writeDomainError(w, err)
		return
	}
	if max > 0 && len(recs) > max {
		recs = recs[:max]
	}

	writeJSON(w, http.StatusOK, RecommendationsResponse{
		Date:            date.Format(time.DateOnly),
		Recommendations: recs,
		Count:           len(recs),
	})
}

// GetUtilizationReport handles GET /v1/reports/utilization.
// Query params: from and to (YYYY-MM-DD, inclusive, both required).
func (h *RecommendationsHandler) GetUtilizationReport(w http.ResponseWriter, r *http.Request) {
	from, err := time.Parse(time.DateOnly, r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "from must be YYYY-MM-DD")
		return
	}
	to, err := time.Parse(time.DateOnly, r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "to must be YYYY-MM-DD")
		return
	}

	report, err := h.recommender.UnderutilizedSlots(r.Context(), from, to)
	if err != nil {
		h.logger.Error("utilization report failed",
			"from", from.Format(time.DateOnly),
			"to", to.Format(time.DateOnly),
			"error", err,
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
