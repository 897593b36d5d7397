package availability

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	m, err := parseClock("10:30")
	require.NoError(t, err)
	assert.Equal(t, 630, m)

	_, err = parseClock("25:99")
	assert.Error(t, err)

	_, err = parseClock("")
	assert.Error(t, err)
}

func TestFormatClock(t *testing.T) {
	assert.Equal(t, "09:05", formatClock(545))
	assert.Equal(t, "00:00", formatClock(0))
	assert.Equal(t, "20:30", formatClock(1230))
}

func TestMergeIntervals(t *testing.T) {
	tests := []struct {
		name string
		in   []interval
		want []interval
	}{
		{"empty", nil, nil},
		{"disjoint", []interval{{600, 660}, {720, 780}}, []interval{{600, 660}, {720, 780}}},
		{"overlapping", []interval{{600, 700}, {650, 750}}, []interval{{600, 750}}},
		{"touching merge", []interval{{600, 660}, {660, 720}}, []interval{{600, 720}}},
		{"contained", []interval{{600, 800}, {650, 700}}, []interval{{600, 800}}},
		{"unsorted input", []interval{{720, 780}, {600, 660}}, []interval{{600, 660}, {720, 780}}},
		{"drops empty", []interval{{600, 600}, {700, 650}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeIntervals(tt.in))
		})
	}
}

func TestSubtractIntervals(t *testing.T) {
	base := interval{600, 1260} // 10:00–21:00

	tests := []struct {
		name string
		busy []interval
		want []interval
	}{
		{"no busy", nil, []interval{{600, 1260}}},
		{"middle booking", []interval{{840, 900}}, []interval{{600, 840}, {900, 1260}}},
		{"leading edge", []interval{{600, 660}}, []interval{{660, 1260}}},
		{"trailing edge", []interval{{1200, 1260}}, []interval{{600, 1200}}},
		{"full cover", []interval{{540, 1320}}, nil},
		{"outside", []interval{{0, 540}}, []interval{{600, 1260}}},
		{"two holes", []interval{{660, 720}, {900, 960}}, []interval{{600, 660}, {720, 900}, {960, 1260}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, subtractIntervals(base, mergeIntervals(tt.busy)))
		})
	}
}

func TestClipToDay(t *testing.T) {
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	// Fully inside the day.
	iv := clipToDay(date,
		time.Date(2026, 9, 1, 14, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 1, 15, 0, 0, 0, time.UTC))
	assert.Equal(t, interval{840, 900}, iv)

	// Multi-day time off clips to the whole day.
	iv = clipToDay(date,
		time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, interval{0, 1440}, iv)

	// Range entirely before the day is empty.
	iv = clipToDay(date,
		time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 28, 17, 0, 0, 0, time.UTC))
	assert.True(t, iv.empty())

	// Ends mid-day.
	iv = clipToDay(date,
		time.Date(2026, 8, 31, 22, 0, 0, 0, time.UTC),
		time.Date(2026, 9, 1, 12, 30, 0, 0, time.UTC))
	assert.Equal(t, interval{0, 750}, iv)
}
