// Package schedule owns the durable scheduling data: providers, their
// recurring shifts, time off, org holidays, and existing bookings. The
// availability engine reads this data and never writes it.
package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Provider is a person who performs bookable services.
type Provider struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Active   bool      `json:"active"`
	Bookable bool      `json:"bookable"`
}

// Eligible reports whether the provider can appear in availability
// results at all.
func (p *Provider) Eligible() bool {
	return p != nil && p.Active && p.Bookable
}

// Shift is one recurring weekly availability window. Start and End are
// local times of day in "15:04" form; End is exclusive.
type Shift struct {
	ProviderID uuid.UUID    `json:"provider_id"`
	Weekday    time.Weekday `json:"weekday"`
	Start      string       `json:"start"`
	End        string       `json:"end"`
}

// TimeOff is an exclusion range over a provider's shifts. StartsAt and
// EndsAt are timestamps, so both full days and partial-day absences
// (a dentist appointment mid-shift) are expressible.
type TimeOff struct {
	ID         uuid.UUID `json:"id"`
	ProviderID uuid.UUID `json:"provider_id"`
	StartsAt   time.Time `json:"starts_at"`
	EndsAt     time.Time `json:"ends_at"`
	Reason     string    `json:"reason"`
}

// Holiday is an org-wide closed date. It applies to every provider
// unless a holiday override row exists for that provider and date.
type Holiday struct {
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}

// BookingStatus tracks the lifecycle of a booking.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// Booking is an existing reservation against a provider's calendar.
// The booking-write path lives outside this repository; here bookings
// only occupy busy intervals.
type Booking struct {
	ID              uuid.UUID     `json:"id"`
	ProviderID      uuid.UUID     `json:"provider_id"`
	ClientID        uuid.UUID     `json:"client_id"`
	Service         string        `json:"service"`
	StartAt         time.Time     `json:"start_at"`
	DurationMinutes int           `json:"duration_minutes"`
	Status          BookingStatus `json:"status"`
}

// Occupies reports whether the booking blocks its time range. Only
// pending and confirmed bookings do; cancelled ones never block, and
// completed bookings are already in the past.
func (b *Booking) Occupies() bool {
	return b.Status == StatusPending || b.Status == StatusConfirmed
}

// EndAt returns the booking's exclusive end timestamp.
func (b *Booking) EndAt() time.Time {
	return b.StartAt.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// WeeklySchedule bundles a provider with its shift set. This is the
// unit the Redis cache stores, since the two are always read together.
type WeeklySchedule struct {
	Provider Provider `json:"provider"`
	Shifts   []Shift  `json:"shifts"`
}

// ShiftsOn returns the shifts active on the given weekday.
func (ws *WeeklySchedule) ShiftsOn(day time.Weekday) []Shift {
	var out []Shift
	for _, s := range ws.Shifts {
		if s.Weekday == day {
			out = append(out, s)
		}
	}
	return out
}
