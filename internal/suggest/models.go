package suggest

import (
	"time"

	"github.com/google/uuid"

	"github.com/glowdesk/scheduling-engine/internal/availability"
)

// Status summarizes how a suggestion request resolved.
type Status string

const (
	// StatusAvailable means the primary date has open slots.
	StatusAvailable Status = "available"
	// StatusFull means the primary date computed cleanly but has none.
	StatusFull Status = "full"
	// StatusNotFound means the provider is missing or not bookable.
	StatusNotFound Status = "not_found"
	// StatusError means the schedule store could not be reached.
	StatusError Status = "error"
)

// Request asks for booking suggestions for one provider and service.
type Request struct {
	ProviderID      uuid.UUID
	Service         string
	TargetDate      *time.Time // nil defaults to today
	DurationMinutes int
}

// DaySlots is one alternative day's availability.
type DaySlots struct {
	Date  time.Time           `json:"date"`
	Slots []availability.Slot `json:"slots"`
}

// Suggestions is the resolved result: the primary day's slots plus any
// adjacent-day alternatives, ordered next-day before previous-day.
type Suggestions struct {
	Service      string              `json:"service,omitempty"`
	ProviderID   uuid.UUID           `json:"provider_id"`
	PrimaryDate  time.Time           `json:"primary_date"`
	PrimarySlots []availability.Slot `json:"primary_slots"`
	Alternatives []DaySlots          `json:"alternatives,omitempty"`
	Status       Status              `json:"status"`
}
