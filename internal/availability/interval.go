package availability

import (
	"fmt"
	"sort"
	"time"
)

// interval is a half-open [start, end) range in minutes since midnight.
type interval struct {
	start int
	end   int
}

func (iv interval) empty() bool {
	return iv.end <= iv.start
}

// parseClock converts "15:04" into minutes since midnight.
func parseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("availability: bad clock value %q: %w", s, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// formatClock renders minutes since midnight as "15:04".
func formatClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// mergeIntervals collapses overlapping or touching intervals into a
// minimal sorted set. The input is not modified.
func mergeIntervals(ivs []interval) []interval {
	if len(ivs) == 0 {
		return nil
	}
	sorted := make([]interval, 0, len(ivs))
	for _, iv := range ivs {
		if !iv.empty() {
			sorted = append(sorted, iv)
		}
	}
	if len(sorted) == 0 {
		return nil
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].start < sorted[j].start })

	merged := []interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if iv.start <= last.end {
			if iv.end > last.end {
				last.end = iv.end
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// subtractIntervals removes the busy set from base and returns the
// remaining free intervals in ascending order. busy must be merged.
func subtractIntervals(base interval, busy []interval) []interval {
	if base.empty() {
		return nil
	}
	var free []interval
	cursor := base.start
	for _, b := range busy {
		if b.end <= cursor || b.start >= base.end {
			continue
		}
		if b.start > cursor {
			free = append(free, interval{start: cursor, end: b.start})
		}
		if b.end > cursor {
			cursor = b.end
		}
	}
	if cursor < base.end {
		free = append(free, interval{start: cursor, end: base.end})
	}
	return free
}

// clipToDay converts an absolute time range into a minute-of-day
// interval on the given date. Ranges outside the date clip to empty.
func clipToDay(date, from, to time.Time) interval {
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.AddDate(0, 0, 1)

	if !from.After(dayStart) {
		from = dayStart
	}
	if to.After(dayEnd) {
		to = dayEnd
	}
	if !to.After(from) {
		return interval{}
	}
	startMin := from.Hour()*60 + from.Minute()
	endMin := int(to.Sub(dayStart).Minutes())
	return interval{start: startMin, end: endMin}
}
