package transcript

import (
	"sort"
	"time"
)

// activeMinutes estimates hands-on time for one day's event timestamps:
// events are sorted and only consecutive gaps strictly below threshold are
// summed. Gaps at or above the threshold are idle (a transcript can sit
// open across a long break; counting the full span would overstate worked
// time).
func activeMinutes(events []time.Time, threshold time.Duration) int {
	if len(events) < 2 {
		return 0
	}
	sorted := make([]time.Time, len(events))
	copy(sorted, events)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var total time.Duration
	for i := 1; i < len(sorted); i++ {
		gap := sorted[i].Sub(sorted[i-1])
		if gap < threshold {
			total += gap
		}
	}
	return roundMinutes(total)
}

// wallClockMinutes is the unfiltered first-to-last span of the day's events.
func wallClockMinutes(events []time.Time) int {
	first, last, ok := eventBounds(events)
	if !ok {
		return 0
	}
	return roundMinutes(last.Sub(first))
}

// eventBounds returns the earliest and latest timestamps of events.
func eventBounds(events []time.Time) (first, last time.Time, ok bool) {
	if len(events) == 0 {
		return time.Time{}, time.Time{}, false
	}
	first, last = events[0], events[0]
	for _, e := range events[1:] {
		if e.Before(first) {
			first = e
		}
		if e.After(last) {
			last = e
		}
	}
	return first, last, true
}

func roundMinutes(d time.Duration) int {
	return int((d + 30*time.Second) / time.Minute)
}

// localDate maps a UTC timestamp to its calendar date in loc, formatted
// YYYY-MM-DD. Business days are local-midnight-to-midnight, so this
// conversion is load-bearing near timezone boundaries.
func localDate(ts time.Time, loc *time.Location) string {
	return ts.In(loc).Format("2006-01-02")
}
