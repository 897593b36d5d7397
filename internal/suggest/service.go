// Package suggest layers booking policy on top of raw availability:
// a same-day lead-time buffer, and a deterministic search of adjacent
// days when the requested date is too sparse. It decorates the
// availability engine and performs no writes of its own.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/glowdesk/scheduling-engine/internal/availability"
	"github.com/glowdesk/scheduling-engine/internal/observability/metrics"
	"github.com/glowdesk/scheduling-engine/internal/schedule"
	"github.com/glowdesk/scheduling-engine/pkg/logging"
)

var suggestTracer = otel.Tracer("glowdesk.internal.suggest")

// SlotSource is the availability contract this service decorates.
// *availability.Engine satisfies it.
type SlotSource interface {
	GetAvailableSlots(ctx context.Context, providerID uuid.UUID, date time.Time, durationMinutes, stepMinutes int) ([]availability.Slot, error)
}

// ProviderSource resolves provider eligibility so a missing or retired
// provider reports not_found instead of a silent empty day.
type ProviderSource interface {
	GetProvider(ctx context.Context, id uuid.UUID) (*schedule.Provider, error)
}

// Clock supplies the current time, injectable for tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Options are the policy knobs. Zero values fall back to the historical
// defaults.
type Options struct {
	// SameDayBuffer is the minimum lead time between now and a
	// same-day slot's start.
	SameDayBuffer time.Duration
	// MinPrimarySlots is the threshold below which adjacent days are
	// searched.
	MinPrimarySlots int
	// StepMinutes is the slot grid granularity passed through to the
	// availability engine.
	StepMinutes int
}

func (o Options) withDefaults() Options {
	if o.SameDayBuffer <= 0 {
		o.SameDayBuffer = 3 * time.Hour
	}
	if o.MinPrimarySlots <= 0 {
		o.MinPrimarySlots = 3
	}
	if o.StepMinutes <= 0 {
		o.StepMinutes = availability.DefaultStepMinutes
	}
	return o
}

// Service computes smart booking suggestions.
type Service struct {
	slots     SlotSource
	providers ProviderSource
	clock     Clock
	logger    *logging.Logger
	metrics   *metrics.SchedulingMetrics
	opts      Options
}

// NewService creates a suggestion service. metrics may be nil.
func NewService(slots SlotSource, providers ProviderSource, opts Options, logger *logging.Logger, m *metrics.SchedulingMetrics) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		slots:     slots,
		providers: providers,
		clock:     realClock{},
		logger:    logger.Component("suggest"),
		metrics:   m,
		opts:      opts.withDefaults(),
	}
}

// WithClock replaces the service clock. Tests use this to pin "now".
func (s *Service) WithClock(c Clock) *Service {
	s.clock = c
	return s
}

// SmartSuggestions resolves slots for the requested day and, when that
// day is sparse, for its neighbors. Failures on an alternative day are
// logged and that day omitted; they never abort the primary result.
func (s *Service) SmartSuggestions(ctx context.Context, req Request) (*Suggestions, error) {
	ctx, span := suggestTracer.Start(ctx, "suggest.smart_suggestions")
	defer span.End()
	span.SetAttributes(
		attribute.String("glowdesk.provider_id", req.ProviderID.String()),
		attribute.String("glowdesk.service", req.Service),
	)

	if req.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive", availability.ErrInvalidInput)
	}

	now := s.clock.Now()
	today := dateOnly(now)
	primary := today
	if req.TargetDate != nil && !req.TargetDate.IsZero() {
		primary = dateOnly(*req.TargetDate)
	}

	out := &Suggestions{
		Service:     req.Service,
		ProviderID:  req.ProviderID,
		PrimaryDate: primary,
	}

	provider, err := s.providers.GetProvider(ctx, req.ProviderID)
	if err != nil {
		if errors.Is(err, schedule.ErrProviderNotFound) {
			out.Status = StatusNotFound
			s.metrics.ObserveSuggestion(string(out.Status))
			return out, nil
		}
		s.logger.Error("provider lookup failed",
			"provider_id", req.ProviderID, "error", err)
		out.Status = StatusError
		s.metrics.ObserveSuggestion(string(out.Status))
		return out, nil
	}
	if !provider.Eligible() {
		out.Status = StatusNotFound
		s.metrics.ObserveSuggestion(string(out.Status))
		return out, nil
	}

	primarySlots, err := s.daySlots(ctx, req, primary, now)
	if err != nil {
		s.logger.Error("primary date availability failed",
			"provider_id", req.ProviderID,
			"date", primary.Format(time.DateOnly),
			"duration_minutes", req.DurationMinutes,
			"error", err,
		)
		out.Status = StatusError
		s.metrics.ObserveSuggestion(string(out.Status))
		return out, nil
	}
	out.PrimarySlots = primarySlots
	if len(primarySlots) > 0 {
		out.Status = StatusAvailable
	} else {
		out.Status = StatusFull
	}

	// Fallback search. Next day first: "sooner future" outranks
	// "closer past", and a past previous day is never considered.
	if len(primarySlots) < s.opts.MinPrimarySlots {
		candidates := []time.Time{primary.AddDate(0, 0, 1)}
		if prev := primary.AddDate(0, 0, -1); !prev.Before(today) && !prev.Equal(primary) {
			candidates = append(candidates, prev)
		}
		for _, day := range candidates {
			slots, err := s.daySlots(ctx, req, day, now)
			if err != nil {
				s.logger.Warn("alternative date availability failed",
					"provider_id", req.ProviderID,
					"date", day.Format(time.DateOnly),
					"duration_minutes", req.DurationMinutes,
					"error", err,
				)
				continue
			}
			if len(slots) == 0 {
				continue
			}
			out.Alternatives = append(out.Alternatives, DaySlots{Date: day, Slots: slots})
		}
	}

	s.metrics.ObserveSuggestion(string(out.Status))
	return out, nil
}

// daySlots fetches availability for one day and applies the same-day
// lead-time buffer. The engine has already dropped slots in the past;
// this pass additionally enforces the booking notice window.
func (s *Service) daySlots(ctx context.Context, req Request, day time.Time, now time.Time) ([]availability.Slot, error) {
	slots, err := s.slots.GetAvailableSlots(ctx, req.ProviderID, day, req.DurationMinutes, s.opts.StepMinutes)
	if err != nil {
		return nil, err
	}
	if !sameDay(day, now) {
		return slots, nil
	}

	cutoff := now.Add(s.opts.SameDayBuffer)
	filtered := make([]availability.Slot, 0, len(slots))
	for _, slot := range slots {
		if slot.StartAt().Before(cutoff) {
			continue
		}
		filtered = append(filtered, slot)
	}
	return filtered, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}
