// Package availability computes the legally bookable start times for a
// (provider, date) pair. It is a pure read/derive layer: identical
// inputs against unchanged store state always produce the identical
// ordered slot list, and nothing here reserves anything.
package availability

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/glowdesk/scheduling-engine/internal/observability/metrics"
	"github.com/glowdesk/scheduling-engine/internal/schedule"
	"github.com/glowdesk/scheduling-engine/pkg/logging"
)

var availabilityTracer = otel.Tracer("glowdesk.internal.availability")

// DefaultStepMinutes is the slot grid granularity used when the caller
// passes a non-positive step.
const DefaultStepMinutes = 30

// ScheduleSource is the read contract the engine needs from the durable
// store. *schedule.Store satisfies it.
type ScheduleSource interface {
	GetProvider(ctx context.Context, id uuid.UUID) (*schedule.Provider, error)
	GetShifts(ctx context.Context, providerID uuid.UUID, weekday time.Weekday) ([]schedule.Shift, error)
	GetTimeOff(ctx context.Context, providerID uuid.UUID, date time.Time) ([]schedule.TimeOff, error)
	GetHoliday(ctx context.Context, date time.Time) (*schedule.Holiday, error)
	HasHolidayOverride(ctx context.Context, providerID uuid.UUID, date time.Time) (bool, error)
	GetBookings(ctx context.Context, providerID uuid.UUID, date time.Time) ([]schedule.Booking, error)
}

// Clock supplies the current time, injectable for tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Slot is one bookable start time on a specific date. Slots are
// computed on demand and never persisted.
type Slot struct {
	Date            time.Time `json:"date"`
	Start           string    `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
}

// StartAt returns the slot's absolute start timestamp.
func (s Slot) StartAt() time.Time {
	m, err := parseClock(s.Start)
	if err != nil {
		return s.Date
	}
	return time.Date(s.Date.Year(), s.Date.Month(), s.Date.Day(), m/60, m%60, 0, 0, s.Date.Location())
}

// Engine derives open slots from schedule data.
type Engine struct {
	store   ScheduleSource
	clock   Clock
	logger  *logging.Logger
	metrics *metrics.SchedulingMetrics
}

// NewEngine creates an availability engine. metrics may be nil.
func NewEngine(store ScheduleSource, logger *logging.Logger, m *metrics.SchedulingMetrics) *Engine {
	if logger == nil {
		logger = logging.Default()
	}
	return &Engine{
		store:   store,
		clock:   realClock{},
		logger:  logger.Component("availability"),
		metrics: m,
	}
}

// WithClock replaces the engine's clock. Tests use this to pin "now".
func (e *Engine) WithClock(c Clock) *Engine {
	e.clock = c
	return e
}

// GetAvailableSlots returns the ordered, deduplicated start times of
// durationMinutes-long windows the provider can be booked into on date.
//
// An existing but inactive or non-bookable provider yields an empty
// list; an unknown provider id returns ErrProviderNotFound; a store
// failure returns ErrDataSource. "No availability" is always a valid
// empty success, never an error.
func (e *Engine) GetAvailableSlots(ctx context.Context, providerID uuid.UUID, date time.Time, durationMinutes, stepMinutes int) ([]Slot, error) {
	ctx, span := availabilityTracer.Start(ctx, "availability.get_slots")
	defer span.End()
	span.SetAttributes(
		attribute.String("glowdesk.provider_id", providerID.String()),
		attribute.String("glowdesk.date", date.Format(time.DateOnly)),
		attribute.Int("glowdesk.duration_minutes", durationMinutes),
	)

	if durationMinutes <= 0 {
		return nil, fmt.Errorf("%w: duration must be positive, got %d", ErrInvalidInput, durationMinutes)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", ErrInvalidInput)
	}
	if stepMinutes <= 0 {
		stepMinutes = DefaultStepMinutes
	}

	slots, err := e.computeSlots(ctx, providerID, date, durationMinutes, stepMinutes)
	if err != nil {
		span.RecordError(err)
		e.metrics.ObserveAvailabilityQuery(statusLabel(err), 0)
		return nil, err
	}
	e.metrics.ObserveAvailabilityQuery("ok", len(slots))
	return slots, nil
}

func (e *Engine) computeSlots(ctx context.Context, providerID uuid.UUID, date time.Time, durationMinutes, stepMinutes int) ([]Slot, error) {
	provider, err := e.store.GetProvider(ctx, providerID)
	if err != nil {
		if errors.Is(err, schedule.ErrProviderNotFound) {
			return nil, ErrProviderNotFound
		}
		return nil, fmt.Errorf("%w: get provider: %v", ErrDataSource, err)
	}
	if !provider.Eligible() {
		e.logger.Info("provider not bookable",
			"provider_id", providerID,
			"active", provider.Active,
			"bookable", provider.Bookable,
		)
		return []Slot{}, nil
	}

	shifts, err := e.store.GetShifts(ctx, providerID, date.Weekday())
	if err != nil {
		return nil, fmt.Errorf("%w: get shifts: %v", ErrDataSource, err)
	}
	if len(shifts) == 0 {
		return []Slot{}, nil
	}

	holiday, err := e.store.GetHoliday(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("%w: get holiday: %v", ErrDataSource, err)
	}
	if holiday != nil {
		override, err := e.store.HasHolidayOverride(ctx, providerID, date)
		if err != nil {
			return nil, fmt.Errorf("%w: holiday override: %v", ErrDataSource, err)
		}
		if !override {
			e.logger.Info("org holiday, no override",
				"provider_id", providerID,
				"date", date.Format(time.DateOnly),
				"holiday", holiday.Name,
			)
			return []Slot{}, nil
		}
	}

	timeOff, err := e.store.GetTimeOff(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("%w: get time off: %v", ErrDataSource, err)
	}

	bookings, err := e.store.GetBookings(ctx, providerID, date)
	if err != nil {
		return nil, fmt.Errorf("%w: get bookings: %v", ErrDataSource, err)
	}

	// Busy set = merged time-off and active bookings, as minute-of-day
	// intervals clipped to the query date.
	var busy []interval
	for _, t := range timeOff {
		busy = append(busy, clipToDay(date, t.StartsAt, t.EndsAt))
	}
	for i := range bookings {
		b := &bookings[i]
		if !b.Occupies() {
			continue
		}
		busy = append(busy, clipToDay(date, b.StartAt, b.EndAt()))
	}
	busy = mergeIntervals(busy)

	// A slot must fit entirely inside a single shift, so each shift is
	// carved up independently; adjoining shifts are not merged.
	starts := map[int]struct{}{}
	for _, shift := range shifts {
		shiftStart, err := parseClock(shift.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDataSource, err)
		}
		shiftEnd, err := parseClock(shift.End)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrDataSource, err)
		}
		for _, free := range subtractIntervals(interval{start: shiftStart, end: shiftEnd}, busy) {
			for s := free.start; s+durationMinutes <= free.end; s += stepMinutes {
				starts[s] = struct{}{}
			}
		}
	}

	// Truth in time: on the current date a slot that already started is
	// gone, regardless of caller policy.
	var nowCutoff int
	now := e.clock.Now()
	if sameDay(date, now) {
		nowCutoff = now.Hour()*60 + now.Minute()
	}

	ordered := make([]int, 0, len(starts))
	for s := range starts {
		if s < nowCutoff {
			continue
		}
		ordered = append(ordered, s)
	}
	sort.Ints(ordered)

	slots := make([]Slot, 0, len(ordered))
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	for _, s := range ordered {
		slots = append(slots, Slot{Date: day, Start: formatClock(s), DurationMinutes: durationMinutes})
	}

	e.logger.Debug("computed slots",
		"provider_id", providerID,
		"date", date.Format(time.DateOnly),
		"count", len(slots),
	)
	return slots, nil
}

func sameDay(a, b time.Time) bool {
	y1, m1, d1 := a.Date()
	y2, m2, d2 := b.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

func statusLabel(err error) string {
	switch {
	case errors.Is(err, ErrProviderNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "error"
	}
}
