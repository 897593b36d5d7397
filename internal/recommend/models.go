package recommend

import (
	"time"

	"github.com/google/uuid"

	"github.com/glowdesk/scheduling-engine/internal/availability"
)

// TimeOfDay buckets a client's preferred visiting hours.
type TimeOfDay string

const (
	Morning   TimeOfDay = "morning"   // before 12:00
	Afternoon TimeOfDay = "afternoon" // 12:00–17:00
	Evening   TimeOfDay = "evening"   // 17:00 onward
)

// BucketFor returns the bucket a minute-of-day start time falls into.
func BucketFor(minuteOfDay int) TimeOfDay {
	switch {
	case minuteOfDay < 12*60:
		return Morning
	case minuteOfDay < 17*60:
		return Afternoon
	default:
		return Evening
	}
}

// StaleClient is a client overdue for a visit with a provider. A nil
// LastVisit means the client has never booked, which ranks as
// maximally overdue.
type StaleClient struct {
	ClientID  uuid.UUID  `json:"client_id"`
	Name      string     `json:"name"`
	LastVisit *time.Time `json:"last_visit,omitempty"`
}

// NextBookingSuggestion is the profiling collaborator's guess at what a
// client should book next.
type NextBookingSuggestion struct {
	Service         string    `json:"service"`
	ProviderID      uuid.UUID `json:"provider_id"`
	RecommendedDate time.Time `json:"recommended_date"`
	TimeOfDay       TimeOfDay `json:"time_of_day"`
	Confidence      float64   `json:"confidence"`
}

// Recommendation pairs an overdue client with a concrete open slot.
// Recommendations are computed per call and never stored.
type Recommendation struct {
	ClientID     uuid.UUID         `json:"client_id"`
	ClientName   string            `json:"client_name"`
	ProviderID   uuid.UUID         `json:"provider_id"`
	ProviderName string            `json:"provider_name"`
	Date         time.Time         `json:"date"`
	Slot         availability.Slot `json:"slot"`
	Service      string            `json:"service"`
	Confidence   float64           `json:"confidence"`
	Reason       string            `json:"reason"`
}

// DayUtilization is one provider's open capacity on one date.
type DayUtilization struct {
	Date         time.Time `json:"date"`
	ProviderID   uuid.UUID `json:"provider_id"`
	ProviderName string    `json:"provider_name"`
	OpenSlots    int       `json:"open_slots"`
	FirstOpen    string    `json:"first_open,omitempty"`
	LastOpen     string    `json:"last_open,omitempty"`
}

// UtilizationReport aggregates open capacity across providers and a
// date range.
type UtilizationReport struct {
	From           time.Time        `json:"from"`
	To             time.Time        `json:"to"`
	TotalOpenSlots int              `json:"total_open_slots"`
	Days           []DayUtilization `json:"days"`
}
