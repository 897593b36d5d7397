// Package clients profiles booking history. It answers two questions
// for the recommendation engine: which clients are overdue for a
// provider, and what a given client is likely to book next. Profiles
// are derived on read from completed bookings; nothing is
// pre-aggregated.
package clients

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/glowdesk/scheduling-engine/internal/recommend"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Clock supplies the current time, injectable for tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// visitWindow caps how much history the profiler reads per client.
// Older visits carry little signal about current cadence.
const visitWindow = 20

// defaultRevisitDays is the assumed revisit cadence for clients with a
// single completed visit.
const defaultRevisitDays = 28

// History derives client profiles from Postgres booking history.
type History struct {
	db    DB
	clock Clock
}

// NewHistory creates a client history reader.
func NewHistory(db DB) *History {
	return &History{db: db, clock: realClock{}}
}

// WithClock replaces the clock. Tests use this to pin "now".
func (h *History) WithClock(c Clock) *History {
	h.clock = c
	return h
}

// GetStaleClients returns up to limit clients whose most recent visit
// with the provider is at least minDays old. Clients with no visit at
// all sort first: they are maximally overdue. Confirmed future
// bookings count alongside completed ones so a client who already
// rebooked is not flagged for outreach.
func (h *History) GetStaleClients(ctx context.Context, providerID uuid.UUID, minDays, limit int) ([]recommend.StaleClient, error) {
	cutoff := h.clock.Now().AddDate(0, 0, -minDays)
	rows, err := h.db.Query(ctx, `
		SELECT c.id, c.name, MAX(b.start_at) AS last_visit
		FROM clients c
		LEFT JOIN bookings b
			ON b.client_id = c.id
			AND b.provider_id = $1
			AND b.status IN ('completed', 'confirmed')
		GROUP BY c.id, c.name
		HAVING MAX(b.start_at) IS NULL OR MAX(b.start_at) <= $2
		ORDER BY MAX(b.start_at) ASC NULLS FIRST
		LIMIT $3`, providerID, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("clients: stale clients: %w", err)
	}
	defer rows.Close()

	var stale []recommend.StaleClient
	for rows.Next() {
		var c recommend.StaleClient
		if err := rows.Scan(&c.ClientID, &c.Name, &c.LastVisit); err != nil {
			return nil, fmt.Errorf("clients: scan stale client: %w", err)
		}
		stale = append(stale, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clients: stale clients: %w", err)
	}
	return stale, nil
}

type visit struct {
	providerID uuid.UUID
	service    string
	startAt    time.Time
}

// SuggestNextBooking derives a next-booking suggestion from the
// client's recent completed visits. The preferred service and provider
// are the most frequent in the window, the recommended date projects
// the client's median revisit gap past the latest visit, and the
// preferred time of day is the modal bucket. Returns nil when the
// client has no completed visits.
func (h *History) SuggestNextBooking(ctx context.Context, clientID uuid.UUID) (*recommend.NextBookingSuggestion, error) {
	rows, err := h.db.Query(ctx, `
		SELECT provider_id, service, start_at
		FROM bookings
		WHERE client_id = $1 AND status = 'completed'
		ORDER BY start_at DESC
		LIMIT $2`, clientID, visitWindow)
	if err != nil {
		return nil, fmt.Errorf("clients: visit history: %w", err)
	}
	defer rows.Close()

	var visits []visit
	for rows.Next() {
		var v visit
		if err := rows.Scan(&v.providerID, &v.service, &v.startAt); err != nil {
			return nil, fmt.Errorf("clients: scan visit: %w", err)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clients: visit history: %w", err)
	}
	if len(visits) == 0 {
		return nil, nil
	}

	// visits arrive newest first; ascending order simplifies gap math.
	sort.Slice(visits, func(i, j int) bool { return visits[i].startAt.Before(visits[j].startAt) })

	suggestion := &recommend.NextBookingSuggestion{
		Service:         modalService(visits),
		ProviderID:      modalProvider(visits),
		RecommendedDate: h.projectNextDate(visits),
		TimeOfDay:       modalTimeOfDay(visits),
		Confidence:      confidenceFor(visits),
	}
	return suggestion, nil
}

// projectNextDate is last visit plus the median gap between consecutive
// visits, clamped to today for chronically overdue clients.
func (h *History) projectNextDate(visits []visit) time.Time {
	last := visits[len(visits)-1].startAt
	gap := medianGapDays(visits)
	next := dateOnly(last).AddDate(0, 0, gap)
	today := dateOnly(h.clock.Now())
	if next.Before(today) {
		return today
	}
	return next
}

func medianGapDays(visits []visit) int {
	if len(visits) < 2 {
		return defaultRevisitDays
	}
	gaps := make([]int, 0, len(visits)-1)
	for i := 1; i < len(visits); i++ {
		days := int(dateOnly(visits[i].startAt).Sub(dateOnly(visits[i-1].startAt)).Hours() / 24)
		if days > 0 {
			gaps = append(gaps, days)
		}
	}
	if len(gaps) == 0 {
		return defaultRevisitDays
	}
	sort.Ints(gaps)
	return gaps[len(gaps)/2]
}

func modalService(visits []visit) string {
	counts := map[string]int{}
	for _, v := range visits {
		counts[v.service]++
	}
	best, bestCount := "", 0
	for _, v := range visits {
		if c := counts[v.service]; c > bestCount {
			best, bestCount = v.service, c
		}
	}
	return best
}

func modalProvider(visits []visit) uuid.UUID {
	counts := map[uuid.UUID]int{}
	for _, v := range visits {
		counts[v.providerID]++
	}
	var best uuid.UUID
	bestCount := 0
	for _, v := range visits {
		if c := counts[v.providerID]; c > bestCount {
			best, bestCount = v.providerID, c
		}
	}
	return best
}

func modalTimeOfDay(visits []visit) recommend.TimeOfDay {
	counts := map[recommend.TimeOfDay]int{}
	for _, v := range visits {
		counts[recommend.BucketFor(v.startAt.Hour()*60+v.startAt.Minute())]++
	}
	best, bestCount := recommend.Morning, 0
	for _, bucket := range []recommend.TimeOfDay{recommend.Morning, recommend.Afternoon, recommend.Evening} {
		if counts[bucket] > bestCount {
			best, bestCount = bucket, counts[bucket]
		}
	}
	return best
}

// confidenceFor scores cadence regularity. Visit count carries most of
// the weight, with a bonus when the client sticks to one provider.
func confidenceFor(visits []visit) float64 {
	n := len(visits)
	if n > 5 {
		n = 5
	}
	confidence := 0.3 + 0.1*float64(n)

	providerCounts := map[uuid.UUID]int{}
	for _, v := range visits {
		providerCounts[v.providerID]++
	}
	top := 0
	for _, c := range providerCounts {
		if c > top {
			top = c
		}
	}
	if float64(top)/float64(len(visits)) >= 0.8 {
		confidence += 0.1
	}
	if confidence > 1 {
		confidence = 1
	}
	return confidence
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
