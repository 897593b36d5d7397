// Package recommend matches overdue clients to open capacity. It sits
// on top of the suggestion service: providers contribute their open
// slots, a client-profiling collaborator contributes candidates, and
// the engine scores and ranks the pairings. Output is a proposal list;
// nothing here reserves a slot or sends a message.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/glowdesk/scheduling-engine/internal/availability"
	"github.com/glowdesk/scheduling-engine/internal/observability/metrics"
	"github.com/glowdesk/scheduling-engine/internal/schedule"
	"github.com/glowdesk/scheduling-engine/internal/suggest"
	"github.com/glowdesk/scheduling-engine/pkg/logging"
)

var recommendTracer = otel.Tracer("glowdesk.internal.recommend")

// SuggestionSource provides per-day availability with booking policy
// applied. *suggest.Service satisfies it.
type SuggestionSource interface {
	SmartSuggestions(ctx context.Context, req suggest.Request) (*suggest.Suggestions, error)
}

// ProviderSource lists and resolves providers.
type ProviderSource interface {
	GetProvider(ctx context.Context, id uuid.UUID) (*schedule.Provider, error)
	ListBookableProviders(ctx context.Context) ([]schedule.Provider, error)
}

// ClientHistory is the client-profiling collaborator: who is overdue,
// and what should they book next.
type ClientHistory interface {
	// GetStaleClients returns up to limit clients whose most recent
	// booking with the provider is at least minDays old, or who have
	// never booked, ordered oldest visit first.
	GetStaleClients(ctx context.Context, providerID uuid.UUID, minDays, limit int) ([]StaleClient, error)
	// SuggestNextBooking derives a suggested next booking for a
	// client. Returns nil when there is no basis for a suggestion.
	SuggestNextBooking(ctx context.Context, clientID uuid.UUID) (*NextBookingSuggestion, error)
}

// Clock supplies the current time, injectable for tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Options are the matching policy knobs. Zero values fall back to the
// historical defaults.
type Options struct {
	// DefaultDurationMinutes is the slot length assumed when scanning
	// open capacity.
	DefaultDurationMinutes int
	// MinDaysSinceVisit is the default staleness threshold.
	MinDaysSinceVisit int
	// CandidateLimit caps how many stale clients are evaluated per
	// provider.
	CandidateLimit int
	// DateDecayFactor scales confidence when the profiling
	// collaborator's recommended date is far from the queried date.
	DateDecayFactor float64
	// DateDecayAfterDays is the distance beyond which the decay
	// applies.
	DateDecayAfterDays int
}

func (o Options) withDefaults() Options {
	if o.DefaultDurationMinutes <= 0 {
		o.DefaultDurationMinutes = 60
	}
	if o.MinDaysSinceVisit <= 0 {
		o.MinDaysSinceVisit = 21
	}
	if o.CandidateLimit <= 0 {
		o.CandidateLimit = 20
	}
	if o.DateDecayFactor <= 0 || o.DateDecayFactor > 1 {
		o.DateDecayFactor = 0.7
	}
	if o.DateDecayAfterDays <= 0 {
		o.DateDecayAfterDays = 7
	}
	return o
}

// Engine ranks (client, provider, slot) pairings.
type Engine struct {
	suggestions SuggestionSource
	providers   ProviderSource
	history     ClientHistory
	clock       Clock
	logger      *logging.Logger
	metrics     *metrics.SchedulingMetrics
	opts        Options
}

// NewEngine creates a recommendation engine. metrics may be nil.
func NewEngine(suggestions SuggestionSource, providers ProviderSource, history ClientHistory, opts Options, logger *logging.Logger, m *metrics.SchedulingMetrics) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		suggestions: suggestions,
		providers:   providers,
		history:     history,
		clock:       realClock{},
		logger:      logger.Component("recommend"),
		metrics:     m,
		opts:        opts.withDefaults(),
	}
}

// WithClock replaces the engine clock. Tests use this to pin "now".
func (e *Engine) WithClock(c Clock) *Engine {
	e.clock = c
	return e
}

// FindClientsForSlots pairs overdue clients with open slots on date,
// ranked by confidence descending. providerID narrows the search to
// one provider; nil evaluates every bookable provider. minDays <= 0
// uses the configured default.
//
// Failures are isolated per provider and per candidate: a failing unit
// is logged and contributes nothing, and the rest of the batch
// proceeds.
func (e *Engine) FindClientsForSlots(ctx context.Context, date time.Time, providerID *uuid.UUID, minDays int) ([]Recommendation, error) {
	ctx, span := recommendTracer.Start(ctx, "recommend.find_clients")
	defer span.End()
	span.SetAttributes(attribute.String("glowdesk.date", date.Format(time.DateOnly)))

	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", availability.ErrInvalidInput)
	}
	if minDays <= 0 {
		minDays = e.opts.MinDaysSinceVisit
	}

	providers, err := e.targetProviders(ctx, providerID)
	if err != nil {
		return nil, err
	}

	var recs []Recommendation
	for i := range providers {
		provider := &providers[i]
		providerRecs, err := e.recommendForProvider(ctx, provider, date, minDays)
		if err != nil {
			e.logger.Error("provider evaluation failed",
				"provider_id", provider.ID,
				"date", date.Format(time.DateOnly),
				"error", err,
			)
			continue
		}
		recs = append(recs, providerRecs...)
	}

	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Confidence != recs[j].Confidence {
			return recs[i].Confidence > recs[j].Confidence
		}
		return recs[i].ClientName < recs[j].ClientName
	})

	e.metrics.ObserveRecommendations(len(recs))
	return recs, nil
}

// AutoSuggestBookings is the externally consumed entry point: the
// top-ranked recommendations for date, truncated to maxSuggestions.
func (e *Engine) AutoSuggestBookings(ctx context.Context, date time.Time, maxSuggestions int) ([]Recommendation, error) {
	recs, err := e.FindClientsForSlots(ctx, date, nil, 0)
	if err != nil {
		return nil, err
	}
	if maxSuggestions > 0 && len(recs) > maxSuggestions {
		recs = recs[:maxSuggestions]
	}
	return recs, nil
}

// UnderutilizedSlots reports open capacity per provider per date over
// the inclusive range. Reporting only; no candidate matching.
func (e *Engine) UnderutilizedSlots(ctx context.Context, from, to time.Time) (*UtilizationReport, error) {
	ctx, span := recommendTracer.Start(ctx, "recommend.underutilized_slots")
	defer span.End()

	if from.IsZero() || to.IsZero() {
		return nil, fmt.Errorf("%w: date range is required", availability.ErrInvalidInput)
	}
	from = dateOnly(from)
	to = dateOnly(to)
	if to.Before(from) {
		return nil, fmt.Errorf("%w: range end precedes start", availability.ErrInvalidInput)
	}

	providers, err := e.providers.ListBookableProviders(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list providers: %v", availability.ErrDataSource, err)
	}

	report := &UtilizationReport{From: from, To: to}
	for i := range providers {
		provider := &providers[i]
		for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
			target := day
			sugg, err := e.suggestions.SmartSuggestions(ctx, suggest.Request{
				ProviderID:      provider.ID,
				TargetDate:      &target,
				DurationMinutes: e.opts.DefaultDurationMinutes,
			})
			if err != nil || sugg.Status == suggest.StatusError {
				e.logger.Warn("utilization day skipped",
					"provider_id", provider.ID,
					"date", day.Format(time.DateOnly),
					"error", err,
				)
				continue
			}
			open := len(sugg.PrimarySlots)
			if open == 0 {
				continue
			}
			detail := DayUtilization{
				Date:         day,
				ProviderID:   provider.ID,
				ProviderName: provider.Name,
				OpenSlots:    open,
				FirstOpen:    sugg.PrimarySlots[0].Start,
				LastOpen:     sugg.PrimarySlots[open-1].Start,
			}
			report.TotalOpenSlots += open
			report.Days = append(report.Days, detail)
		}
	}
	return report, nil
}

func (e *Engine) targetProviders(ctx context.Context, providerID *uuid.UUID) ([]schedule.Provider, error) {
	if providerID == nil {
		providers, err := e.providers.ListBookableProviders(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list providers: %v", availability.ErrDataSource, err)
		}
		return providers, nil
	}

	provider, err := e.providers.GetProvider(ctx, *providerID)
	if err != nil {
		if errors.Is(err, schedule.ErrProviderNotFound) {
			return nil, availability.ErrProviderNotFound
		}
		return nil, fmt.Errorf("%w: get provider: %v", availability.ErrDataSource, err)
	}
	if !provider.Eligible() {
		return nil, nil
	}
	return []schedule.Provider{*provider}, nil
}

func (e *Engine) recommendForProvider(ctx context.Context, provider *schedule.Provider, date time.Time, minDays int) ([]Recommendation, error) {
	target := dateOnly(date)
	sugg, err := e.suggestions.SmartSuggestions(ctx, suggest.Request{
		ProviderID:      provider.ID,
		TargetDate:      &target,
		DurationMinutes: e.opts.DefaultDurationMinutes,
	})
	if err != nil {
		return nil, err
	}
	if sugg.Status != suggest.StatusAvailable || len(sugg.PrimarySlots) == 0 {
		return nil, nil
	}
	openSlots := sugg.PrimarySlots

	candidates, err := e.history.GetStaleClients(ctx, provider.ID, minDays, e.opts.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("stale clients: %w", err)
	}

	now := e.clock.Now()
	var recs []Recommendation
	for i := range candidates {
		candidate := &candidates[i]
		rec, skip := e.scoreCandidate(ctx, provider, candidate, target, openSlots, now)
		if skip != "" {
			e.metrics.ObserveCandidateSkipped(skip)
			continue
		}
		recs = append(recs, *rec)
	}
	return recs, nil
}

// scoreCandidate evaluates one (client, provider) pairing. The second
// return value names the skip reason, or "" when a recommendation was
// produced.
func (e *Engine) scoreCandidate(ctx context.Context, provider *schedule.Provider, candidate *StaleClient, date time.Time, openSlots []availability.Slot, now time.Time) (*Recommendation, string) {
	sugg, err := e.history.SuggestNextBooking(ctx, candidate.ClientID)
	if err != nil {
		e.logger.Warn("candidate profiling failed",
			"client_id", candidate.ClientID,
			"provider_id", provider.ID,
			"error", err,
		)
		return nil, "profile_error"
	}
	if sugg == nil {
		return nil, "no_profile"
	}

	// Provider mismatch disqualifies outright: recommending a client
	// into a chair they do not go to converts poorly and irritates
	// everyone involved.
	if sugg.ProviderID != provider.ID {
		return nil, "provider_mismatch"
	}

	confidence := clamp01(sugg.Confidence)
	if !sugg.RecommendedDate.IsZero() {
		distance := daysApart(sugg.RecommendedDate, date)
		if distance > e.opts.DateDecayAfterDays {
			confidence = clamp01(confidence * e.opts.DateDecayFactor)
		}
	}

	slot := matchSlot(openSlots, sugg.TimeOfDay)

	return &Recommendation{
		ClientID:     candidate.ClientID,
		ClientName:   candidate.Name,
		ProviderID:   provider.ID,
		ProviderName: provider.Name,
		Date:         date,
		Slot:         slot,
		Service:      sugg.Service,
		Confidence:   confidence,
		Reason:       buildReason(candidate.LastVisit, now, confidence),
	}, ""
}

// matchSlot picks the earliest open slot in the preferred time-of-day
// bucket, falling back to the earliest open slot overall. openSlots is
// already sorted ascending.
func matchSlot(openSlots []availability.Slot, preferred TimeOfDay) availability.Slot {
	for _, slot := range openSlots {
		start := slot.StartAt()
		if BucketFor(start.Hour()*60+start.Minute()) == preferred {
			return slot
		}
	}
	return openSlots[0]
}

func buildReason(lastVisit *time.Time, now time.Time, confidence float64) string {
	var visit string
	if lastVisit == nil {
		visit = "no prior visit on record"
	} else {
		visit = fmt.Sprintf("last visit %d days ago", daysApart(*lastVisit, now))
	}

	var tier string
	switch {
	case confidence >= 0.75:
		tier = "strong match"
	case confidence >= 0.5:
		tier = "good match"
	default:
		tier = "tentative match"
	}
	return fmt.Sprintf("%s; %s", visit, tier)
}

func daysApart(a, b time.Time) int {
	return int(math.Abs(dateOnly(b).Sub(dateOnly(a)).Hours() / 24))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
