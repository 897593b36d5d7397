package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/glowdesk/scheduling-engine/internal/http/handlers"
	httpmiddleware "github.com/glowdesk/scheduling-engine/internal/http/middleware"
	"github.com/glowdesk/scheduling-engine/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Availability       *handlers.AvailabilityHandler
	Suggestions        *handlers.SuggestionsHandler
	Recommendations    *handlers.RecommendationsHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string

	// RateLimitPerSecond caps request throughput per client IP.
	// Zero disables rate limiting.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}
	if cfg.RateLimitPerSecond > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSecond, cfg.RateLimitBurst))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/v1", func(v1 chi.Router) {
		if cfg.Availability != nil {
			v1.Get("/providers/{providerID}/slots", cfg.Availability.GetProviderSlots)
		}
		if cfg.Suggestions != nil {
			v1.Get("/providers/{providerID}/suggestions", cfg.Suggestions.GetSuggestions)
		}
		if cfg.Recommendations != nil {
			v1.Get("/recommendations", cfg.Recommendations.GetRecommendations)
			v1.Get("/reports/utilization", cfg.Recommendations.GetUtilizationReport)
		}
	})

	return r
}
