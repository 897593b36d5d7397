package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for the availability
// and recommendation flows.
type SchedulingMetrics struct {
	availabilityTotal    *prometheus.CounterVec
	slotsPerQuery        prometheus.Histogram
	suggestionTotal      *prometheus.CounterVec
	recommendationsTotal prometheus.Counter
	candidatesSkipped    *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		availabilityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "glowdesk",
			Subsystem: "scheduling",
			Name:      "availability_queries_total",
			Help:      "Total availability queries by outcome",
		}, []string{"status"}),
		slotsPerQuery: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "glowdesk",
			Subsystem: "scheduling",
			Name:      "slots_per_query",
			Help:      "Open slots returned per successful availability query",
			Buckets:   []float64{0, 1, 3, 5, 10, 20, 40},
		}),
		suggestionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "glowdesk",
			Subsystem: "scheduling",
			Name:      "smart_suggestions_total",
			Help:      "Total smart suggestion requests by resulting status",
		}, []string{"status"}),
		recommendationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "glowdesk",
			Subsystem: "scheduling",
			Name:      "recommendations_emitted_total",
			Help:      "Total client recommendations emitted",
		}),
		candidatesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "glowdesk",
			Subsystem: "scheduling",
			Name:      "recommendation_candidates_skipped_total",
			Help:      "Candidates discarded during recommendation matching",
		}, []string{"reason"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.availabilityTotal,
		m.slotsPerQuery,
		m.suggestionTotal,
		m.recommendationsTotal,
		m.candidatesSkipped,
	)
	return m
}

func (m *SchedulingMetrics) ObserveAvailabilityQuery(status string, slots int) {
	if m == nil {
		return
	}
	m.availabilityTotal.WithLabelValues(status).Inc()
	if status == "ok" {
		m.slotsPerQuery.Observe(float64(slots))
	}
}

func (m *SchedulingMetrics) ObserveSuggestion(status string) {
	if m == nil {
		return
	}
	m.suggestionTotal.WithLabelValues(status).Inc()
}

func (m *SchedulingMetrics) ObserveRecommendations(count int) {
	if m == nil {
		return
	}
	m.recommendationsTotal.Add(float64(count))
}

func (m *SchedulingMetrics) ObserveCandidateSkipped(reason string) {
	if m == nil {
		return
	}
	m.candidatesSkipped.WithLabelValues(reason).Inc()
}
