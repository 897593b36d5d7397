package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads scheduling data from Postgres. It is the single durable
// source the availability engine consults; nothing here mutates state.
type Store struct {
	db DB
}

// NewStore creates a schedule store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

// GetProvider fetches one provider by id.
// Returns ErrProviderNotFound when no row exists.
func (s *Store) GetProvider(ctx context.Context, id uuid.UUID) (*Provider, error) {
	var p Provider
	err := s.db.QueryRow(ctx, `
		SELECT id, name, active, bookable
		FROM providers
		WHERE id = $1`, id).Scan(&p.ID, &p.Name, &p.Active, &p.Bookable)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProviderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("schedule: get provider: %w", err)
	}
	return &p, nil
}

// ListBookableProviders returns all active, bookable providers ordered
// by name.
func (s *Store) ListBookableProviders(ctx context.Context) ([]Provider, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, name, active, bookable
		FROM providers
		WHERE active AND bookable
		ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("schedule: list bookable providers: %w", err)
	}
	defer rows.Close()

	var providers []Provider
	for rows.Next() {
		var p Provider
		if err := rows.Scan(&p.ID, &p.Name, &p.Active, &p.Bookable); err != nil {
			return nil, fmt.Errorf("schedule: scan provider: %w", err)
		}
		providers = append(providers, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: list bookable providers: %w", err)
	}
	return providers, nil
}

// GetShifts returns the provider's recurring shifts for one weekday,
// ordered by start time.
func (s *Store) GetShifts(ctx context.Context, providerID uuid.UUID, weekday time.Weekday) ([]Shift, error) {
	rows, err := s.db.Query(ctx, `
		SELECT provider_id, weekday, start_time, end_time
		FROM provider_shifts
		WHERE provider_id = $1 AND weekday = $2
		ORDER BY start_time ASC`, providerID, int(weekday))
	if err != nil {
		return nil, fmt.Errorf("schedule: get shifts: %w", err)
	}
	defer rows.Close()
	return scanShifts(rows)
}

// GetWeeklySchedule returns the provider together with its full shift
// set. The Redis cache stores this bundle as one value.
func (s *Store) GetWeeklySchedule(ctx context.Context, providerID uuid.UUID) (*WeeklySchedule, error) {
	provider, err := s.GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, `
		SELECT provider_id, weekday, start_time, end_time
		FROM provider_shifts
		WHERE provider_id = $1
		ORDER BY weekday ASC, start_time ASC`, providerID)
	if err != nil {
		return nil, fmt.Errorf("schedule: get weekly schedule: %w", err)
	}
	defer rows.Close()

	shifts, err := scanShifts(rows)
	if err != nil {
		return nil, err
	}
	return &WeeklySchedule{Provider: *provider, Shifts: shifts}, nil
}

// GetTimeOff returns the provider's time-off ranges intersecting the
// given calendar date.
func (s *Store) GetTimeOff(ctx context.Context, providerID uuid.UUID, date time.Time) ([]TimeOff, error) {
	dayStart, dayEnd := dayBounds(date)
	rows, err := s.db.Query(ctx, `
		SELECT id, provider_id, starts_at, ends_at, reason
		FROM provider_time_off
		WHERE provider_id = $1 AND starts_at < $3 AND ends_at > $2
		ORDER BY starts_at ASC`, providerID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("schedule: get time off: %w", err)
	}
	defer rows.Close()

	var ranges []TimeOff
	for rows.Next() {
		var t TimeOff
		if err := rows.Scan(&t.ID, &t.ProviderID, &t.StartsAt, &t.EndsAt, &t.Reason); err != nil {
			return nil, fmt.Errorf("schedule: scan time off: %w", err)
		}
		ranges = append(ranges, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: get time off: %w", err)
	}
	return ranges, nil
}

// GetHoliday returns the org holiday on the given date, or nil when the
// org is open.
func (s *Store) GetHoliday(ctx context.Context, date time.Time) (*Holiday, error) {
	var h Holiday
	err := s.db.QueryRow(ctx, `
		SELECT holiday_date, name
		FROM holidays
		WHERE holiday_date = $1`, dateOnly(date)).Scan(&h.Date, &h.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("schedule: get holiday: %w", err)
	}
	return &h, nil
}

// HasHolidayOverride reports whether the provider works on the given
// org holiday.
func (s *Store) HasHolidayOverride(ctx context.Context, providerID uuid.UUID, date time.Time) (bool, error) {
	var exists bool
	err := s.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM holiday_overrides
			WHERE provider_id = $1 AND holiday_date = $2
		)`, providerID, dateOnly(date)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("schedule: holiday override: %w", err)
	}
	return exists, nil
}

// GetBookings returns the provider's non-cancelled bookings starting on
// the given date, ordered by start time. The booking-write service
// guarantees active bookings for one provider never overlap; this layer
// trusts that invariant.
func (s *Store) GetBookings(ctx context.Context, providerID uuid.UUID, date time.Time) ([]Booking, error) {
	dayStart, dayEnd := dayBounds(date)
	rows, err := s.db.Query(ctx, `
		SELECT id, provider_id, client_id, service, start_at, duration_minutes, status
		FROM bookings
		WHERE provider_id = $1 AND start_at >= $2 AND start_at < $3 AND status <> 'cancelled'
		ORDER BY start_at ASC`, providerID, dayStart, dayEnd)
	if err != nil {
		return nil, fmt.Errorf("schedule: get bookings: %w", err)
	}
	defer rows.Close()

	var bookings []Booking
	for rows.Next() {
		var b Booking
		var status string
		if err := rows.Scan(&b.ID, &b.ProviderID, &b.ClientID, &b.Service, &b.StartAt, &b.DurationMinutes, &status); err != nil {
			return nil, fmt.Errorf("schedule: scan booking: %w", err)
		}
		b.Status = BookingStatus(status)
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: get bookings: %w", err)
	}
	return bookings, nil
}

func scanShifts(rows pgx.Rows) ([]Shift, error) {
	var shifts []Shift
	for rows.Next() {
		var sh Shift
		var weekday int
		if err := rows.Scan(&sh.ProviderID, &weekday, &sh.Start, &sh.End); err != nil {
			return nil, fmt.Errorf("schedule: scan shift: %w", err)
		}
		sh.Weekday = time.Weekday(weekday)
		shifts = append(shifts, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("schedule: scan shifts: %w", err)
	}
	return shifts, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayBounds(date time.Time) (time.Time, time.Time) {
	start := dateOnly(date)
	return start, start.AddDate(0, 0, 1)
}
