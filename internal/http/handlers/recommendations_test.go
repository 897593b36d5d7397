package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/scheduling-engine/internal/availability"
	"github.com/glowdesk/scheduling-engine/internal/recommend"
)

type stubRecommender struct {
	recs   []recommend.Recommendation
	report *recommend.UtilizationReport
	err    error

	gotDate     time.Time
	gotProvider *uuid.UUID
	gotMinDays  int
	gotFrom     time.Time
	gotTo       time.Time
}

func (s *stubRecommender) FindClientsForSlots(_ context.Context, date time.Time, providerID *uuid.UUID, minDays int) ([]recommend.Recommendation, error) {
	s.gotDate = date
	s.gotProvider = providerID
	s.gotMinDays = minDays
	return s.recs, s.err
}

func (s *stubRecommender) AutoSuggestBookings(_ context.Context, date time.Time, maxSuggestions int) ([]recommend.Recommendation, error) {
	recs := s.recs
	if maxSuggestions > 0 && len(recs) > maxSuggestions {
		recs = recs[:maxSuggestions]
	}
	return recs, s.err
}

func (s *stubRecommender) UnderutilizedSlots(_ context.Context, from, to time.Time) (*recommend.UtilizationReport, error) {
	s.gotFrom = from
	s.gotTo = to
	return s.report, s.err
}

func recommendationsRouter(stub *stubRecommender) http.Handler {
	r := chi.NewRouter()
	h := NewRecommendationsHandler(stub, nil)
	r.Get("/v1/recommendations", h.GetRecommendations)
	r.Get("/v1/reports/utilization", h.GetUtilizationReport)
	return r
}

func sampleRec(name string, confidence float64) recommend.Recommendation {
	return recommend.Recommendation{
		ClientID:   uuid.New(),
		ClientName: name,
		ProviderID: uuid.New(),
		Slot:       availability.Slot{Start: "10:00", DurationMinutes: 60},
		Service:    "color",
		Confidence: confidence,
	}
}

func TestGetRecommendations(t *testing.T) {
	stub := &stubRecommender{recs: []recommend.Recommendation{
		sampleRec("Avery", 0.9),
		sampleRec("Jordan", 0.6),
	}}

	req := httptest.NewRequest(http.MethodGet, "/v1/recommendations?date=2026-09-01&min_days=30", nil)
	rec := httptest.NewRecorder()
	recommendationsRouter(stub).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp RecommendationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, "Avery", resp.Recommendations[0].ClientName)

	assert.Equal(t, time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC), stub.gotDate)
	assert.Nil(t, stub.gotProvider)
	assert.Equal(t, 30, stub.gotMinDays)
}

func TestGetRecommendations_ProviderFilterAndCap(t *testing.T) {
	providerID := uuid.New()
	stub := &stubRecommender{recs: []recommend.Recommendation{
		sampleRec("A", 0.9), sampleRec("B", 0.8), sampleRec("C", 0.7),
	}}

	req := httptest.NewRequest(http.MethodGet,
		"/v1/recommendations?date=2026-09-01&provider_id="+providerID.String()+"&max=2", nil)
	rec := httptest.NewRecorder()
	recommendationsRouter(stub).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp RecommendationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Count)

	require.NotNil(t, stub.gotProvider)
	assert.Equal(t, providerID, *stub.gotProvider)
}

func TestGetRecommendations_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		path string
	}{
		{"missing date", "/v1/recommendations"},
		{"bad date", "/v1/recommendations?date=soon"},
		{"bad provider", "/v1/recommendations?date=2026-09-01&provider_id=nope"},
		{"bad min_days", "/v1/recommendations?date=2026-09-01&min_days=-1"},
		{"bad max", "/v1/recommendations?date=2026-09-01&max=abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			rec := httptest.NewRecorder()
			recommendationsRouter(&stubRecommender{}).ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetRecommendations_UnknownProvider(t *testing.T) {
	stub := &stubRecommender{err: availability.ErrProviderNotFound}
	req := httptest.NewRequest(http.MethodGet,
		"/v1/recommendations?date=2026-09-01&provider_id="+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	recommendationsRouter(stub).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetUtilizationReport(t *testing.T) {
	from := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 6)
	stub := &stubRecommender{report: &recommend.UtilizationReport{
		From:           from,
		To:             to,
		TotalOpenSlots: 12,
		Days: []recommend.DayUtilization{
			{Date: from, ProviderID: uuid.New(), ProviderName: "Dana", OpenSlots: 12, FirstOpen: "10:00", LastOpen: "19:30"},
		},
	}}

	req := httptest.NewRequest(http.MethodGet, "/v1/reports/utilization?from=2026-09-01&to=2026-09-07", nil)
	rec := httptest.NewRecorder()
	recommendationsRouter(stub).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp recommend.UtilizationReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 12, resp.TotalOpenSlots)
	require.Len(t, resp.Days, 1)
	assert.Equal(t, "Dana", resp.Days[0].ProviderName)

	assert.Equal(t, from, stub.gotFrom)
	assert.Equal(t, to, stub.gotTo)
}

func TestGetUtilizationReport_BadRange(t *testing.T) {
	stub := &stubRecommender{err: availability.ErrInvalidInput}
	req := httptest.NewRequest(http.MethodGet, "/v1/reports/utilization?from=2026-09-07&to=2026-09-01", nil)
	rec := httptest.NewRecorder()
	recommendationsRouter(stub).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUtilizationReport_MissingBounds(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/v1/reports/utilization?from=2026-09-01", nil)
	rec := httptest.NewRecorder()
	recommendationsRouter(&stubRecommender{}).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
