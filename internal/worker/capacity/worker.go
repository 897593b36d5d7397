// Package capacity runs the periodic open-capacity scan: it reports
// underutilized days and pairs them with rebooking recommendations so
// the front desk has an outreach list each cycle. It only reads and
// logs; outreach delivery belongs to downstream tooling.
package capacity

import (
	"context"
	"fmt"
	"time"

	"github.com/glowdesk/scheduling-engine/internal/recommend"
	"github.com/glowdesk/scheduling-engine/pkg/logging"
)

// Reporter is the recommendation surface the worker scans.
// *recommend.Engine satisfies it.
type Reporter interface {
	UnderutilizedSlots(ctx context.Context, from, to time.Time) (*recommend.UtilizationReport, error)
	AutoSuggestBookings(ctx context.Context, date time.Time, maxSuggestions int) ([]recommend.Recommendation, error)
}

// Clock supplies the current time, injectable for tests.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Worker periodically scans the upcoming window for open capacity.
type Worker struct {
	reporter       Reporter
	clock          Clock
	logger         *logging.Logger
	windowDays     int
	maxSuggestions int
}

// NewWorker creates a capacity worker scanning windowDays ahead.
func NewWorker(reporter Reporter, windowDays, maxSuggestions int, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Default()
	}
	if windowDays <= 0 {
		windowDays = 7
	}
	if maxSuggestions <= 0 {
		maxSuggestions = 10
	}
	return &Worker{
		reporter:       reporter,
		clock:          realClock{},
		logger:         logger.Component("capacity-worker"),
		windowDays:     windowDays,
		maxSuggestions: maxSuggestions,
	}
}

// WithClock replaces the worker clock. Tests use this to pin "now".
func (w *Worker) WithClock(c Clock) *Worker {
	w.clock = c
	return w
}

// RunOnce performs a single capacity scan. Returns the number of days
// with open capacity found in the window. Per-day recommendation
// failures are logged and skipped; only a failed utilization report
// aborts the scan.
func (w *Worker) RunOnce(ctx context.Context) (int, error) {
	from := w.clock.Now()
	to := from.AddDate(0, 0, w.windowDays-1)

	report, err := w.reporter.UnderutilizedSlots(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("capacity worker: utilization report: %w", err)
	}

	if len(report.Days) == 0 {
		w.logger.Info("capacity scan: window fully booked",
			"from", from.Format(time.DateOnly),
			"to", to.Format(time.DateOnly),
		)
		return 0, nil
	}

	w.logger.Info("capacity scan: open capacity found",
		"days", len(report.Days),
		"open_slots", report.TotalOpenSlots,
	)

	// One recommendation pass per distinct open date.
	seen := map[string]bool{}
	for _, day := range report.Days {
		key := day.Date.Format(time.DateOnly)
		if seen[key] {
			continue
		}
		seen[key] = true

		recs, err := w.reporter.AutoSuggestBookings(ctx, day.Date, w.maxSuggestions)
		if err != nil {
			w.logger.Error("capacity scan: recommendations failed", "date", key, "error", err)
			continue
		}
		for _, rec := range recs {
			w.logger.Info("capacity scan: rebooking candidate",
				"date", key,
				"client", rec.ClientName,
				"provider", rec.ProviderName,
				"slot", rec.Slot.Start,
				"service", rec.Service,
				"confidence", rec.Confidence,
			)
		}
	}

	return len(report.Days), nil
}

// Run scans on the given interval until ctx is cancelled.
func (w *Worker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := w.RunOnce(ctx); err != nil {
			w.logger.Error("capacity scan failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
