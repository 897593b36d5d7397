package capacity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glowdesk/scheduling-engine/internal/recommend"
)

var scanNow = time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type fakeReporter struct {
	report     *recommend.UtilizationReport
	reportErr  error
	recs       map[string][]recommend.Recommendation
	recErrs    map[string]error
	askedDates []string
}

func (f *fakeReporter) UnderutilizedSlots(_ context.Context, from, to time.Time) (*recommend.UtilizationReport, error) {
	if f.reportErr != nil {
		return nil, f.reportErr
	}
	if f.report != nil {
		return f.report, nil
	}
	return &recommend.UtilizationReport{From: from, To: to}, nil
}

func (f *fakeReporter) AutoSuggestBookings(_ context.Context, date time.Time, _ int) ([]recommend.Recommendation, error) {
	key := date.Format(time.DateOnly)
	f.askedDates = append(f.askedDates, key)
	if err := f.recErrs[key]; err != nil {
		return nil, err
	}
	return f.recs[key], nil
}

func openDay(date time.Time, slots int) recommend.DayUtilization {
	return recommend.DayUtilization{
		Date:       date,
		ProviderID: uuid.New(),
		OpenSlots:  slots,
		FirstOpen:  "10:00",
	}
}

func TestRunOnce_FullyBookedWindow(t *testing.T) {
	reporter := &fakeReporter{}
	w := NewWorker(reporter, 7, 10, nil).WithClock(fixedClock{now: scanNow})

	days, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, days)
	assert.Empty(t, reporter.askedDates)
}

func TestRunOnce_RecommendsPerDistinctDate(t *testing.T) {
	day1 := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC)
	reporter := &fakeReporter{
		report: &recommend.UtilizationReport{
			TotalOpenSlots: 9,
			Days: []recommend.DayUtilization{
				// day1 appears for two providers; it is scanned once.
				openDay(day1, 3),
				openDay(day1, 2),
				openDay(day2, 4),
			},
		},
		recs: map[string][]recommend.Recommendation{
			"2026-09-02": {{ClientName: "Avery", Service: "color", Confidence: 0.8}},
		},
	}
	w := NewWorker(reporter, 7, 10, nil).WithClock(fixedClock{now: scanNow})

	days, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, days)
	assert.Equal(t, []string{"2026-09-02", "2026-09-03"}, reporter.askedDates)
}

func TestRunOnce_RecommendationFailureDoesNotAbort(t *testing.T) {
	day1 := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC)
	reporter := &fakeReporter{
		report: &recommend.UtilizationReport{
			Days: []recommend.DayUtilization{openDay(day1, 1), openDay(day2, 1)},
		},
		recErrs: map[string]error{"2026-09-02": errors.New("history down")},
	}
	w := NewWorker(reporter, 7, 10, nil).WithClock(fixedClock{now: scanNow})

	days, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, days)
	assert.Equal(t, []string{"2026-09-02", "2026-09-03"}, reporter.askedDates)
}

func TestRunOnce_ReportFailureAborts(t *testing.T) {
	reporter := &fakeReporter{reportErr: errors.New("store down")}
	w := NewWorker(reporter, 7, 10, nil).WithClock(fixedClock{now: scanNow})

	_, err := w.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	reporter := &fakeReporter{}
	w := NewWorker(reporter, 7, 10, nil).WithClock(fixedClock{now: scanNow})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, time.Hour) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on cancel")
	}
}
