package schedule

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/glowdesk/scheduling-engine/pkg/logging"
)

// ScheduleCache is a read-through Redis cache over a provider's weekly
// schedule (provider row + shift set). Shift definitions change only
// through admin tooling, and slot computation for unchanged inputs is
// deterministic, so serving a short-TTL copy cannot change results —
// only defer visibility of admin edits by at most the TTL.
type ScheduleCache struct {
	store  *Store
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewScheduleCache creates a schedule cache. A nil redis client
// degrades to direct store reads.
func NewScheduleCache(store *Store, redisClient *redis.Client, ttl time.Duration, logger *logging.Logger) *ScheduleCache {
	if logger == nil {
		logger = logging.Default()
	}
	return &ScheduleCache{store: store, redis: redisClient, ttl: ttl, logger: logger}
}

func (c *ScheduleCache) key(providerID uuid.UUID) string {
	return fmt.Sprintf("schedule:weekly:%s", providerID)
}

// GetWeeklySchedule returns the provider's weekly schedule, serving
// from Redis when a fresh copy exists. Cache failures are logged and
// fall through to Postgres; a cache outage must not look like a
// scheduling outage.
func (c *ScheduleCache) GetWeeklySchedule(ctx context.Context, providerID uuid.UUID) (*WeeklySchedule, error) {
	if c.redis == nil {
		return c.store.GetWeeklySchedule(ctx, providerID)
	}

	data, err := c.redis.Get(ctx, c.key(providerID)).Bytes()
	if err == nil {
		var ws WeeklySchedule
		if err := json.Unmarshal(data, &ws); err == nil {
			return &ws, nil
		}
		c.logger.Warn("schedule cache: corrupt entry, re-reading store", "provider_id", providerID)
	} else if err != redis.Nil {
		c.logger.Warn("schedule cache: read failed", "provider_id", providerID, "error", err)
	}

	ws, err := c.store.GetWeeklySchedule(ctx, providerID)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(ws); err == nil {
		if err := c.redis.Set(ctx, c.key(providerID), encoded, c.ttl).Err(); err != nil {
			c.logger.Warn("schedule cache: write failed", "provider_id", providerID, "error", err)
		}
	}
	return ws, nil
}

// CachedSource is the schedule read surface the availability engine
// consumes. Provider and shift lookups are answered from the cached
// weekly schedule; day-specific reads (time off, holidays, bookings)
// always go to Postgres because they change at booking speed.
type CachedSource struct {
	store *Store
	cache *ScheduleCache
}

// NewCachedSource creates a cached schedule source.
func NewCachedSource(store *Store, cache *ScheduleCache) *CachedSource {
	return &CachedSource{store: store, cache: cache}
}

// GetProvider serves the provider row from the weekly-schedule cache.
func (s *CachedSource) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	ws, err := s.cache.GetWeeklySchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ws.Provider, nil
}

// GetShifts serves one weekday's shifts from the weekly-schedule cache.
func (s *CachedSource) GetShifts(ctx context.Context, providerID uuid.UUID, weekday time.Weekday) ([]Shift, error) {
	ws, err := s.cache.GetWeeklySchedule(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return ws.ShiftsOn(weekday), nil
}

// GetTimeOff reads time-off ranges directly from the store.
func (s *CachedSource) GetTimeOff(ctx context.Context, providerID uuid.UUID, date time.Time) ([]TimeOff, error) {
	return s.store.GetTimeOff(ctx, providerID, date)
}

// GetHoliday reads the org holiday directly from the store.
func (s *CachedSource) GetHoliday(ctx context.Context, date time.Time) (*Holiday, error) {
	return s.store.GetHoliday(ctx, date)
}

// HasHolidayOverride reads the override flag directly from the store.
func (s *CachedSource) HasHolidayOverride(ctx context.Context, providerID uuid.UUID, date time.Time) (bool, error) {
	return s.store.HasHolidayOverride(ctx, providerID, date)
}

// GetBookings reads the day's bookings directly from the store.
func (s *CachedSource) GetBookings(ctx context.Context, providerID uuid.UUID, date time.Time) ([]Booking, error) {
	return s.store.GetBookings(ctx, providerID, date)
}

// Invalidate drops the cached schedule for a provider. Admin tooling
// calls this after editing shifts.
func (c *ScheduleCache) Invalidate(ctx context.Context, providerID uuid.UUID) error {
	if c.redis == nil {
		return nil
	}
	if err := c.redis.Del(ctx, c.key(providerID)).Err(); err != nil {
		return fmt.Errorf("schedule cache: invalidate: %w", err)
	}
	return nil
}
