// Package dates provides the calendar arithmetic the scheduling engine
// is built on: adding days, counting working days against a weekly
// day-off pattern, and searching for availability windows. Weekdays
// are numbered 1=Monday .. 7=Sunday everywhere.
package dates

import (
	"time"

	"github.com/t77yq/cpm-planner/internal/model"
)

// searchHorizonDays bounds the forward search for an availability
// window.
const searchHorizonDays = 60

// Parse parses a date in the canonical YYYY-MM-DD layout.
func Parse(s string) (time.Time, error) {
	return time.Parse(model.DateLayout, s)
}

// Format renders a date in the canonical YYYY-MM-DD layout.
func Format(t time.Time) string {
	return t.Format(model.DateLayout)
}

// AddDays returns the date shifted by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// WorkingDays counts the days in [start, end] that do not fall on one
// of the given weekdays. Both endpoints are counted.
func WorkingDays(start, end time.Time, daysOff []int) int {
	count := 0
	for cur := start; !cur.After(end); cur = AddDays(cur, 1) {
		if !model.DayOff(daysOff, cur) {
			count++
		}
	}
	return count
}

// NextWorkingDay returns the first date on or after t that is not a
// day off. Returns false if the pattern admits no working day within a
// full week, which only happens for an all-days-off configuration.
func NextWorkingDay(t time.Time, daysOff []int) (time.Time, bool) {
	for i := 0; i < 8; i++ {
		if !model.DayOff(daysOff, t) {
			return t, true
		}
		t = AddDays(t, 1)
	}
	return time.Time{}, false
}

// AdvanceWorkingDays returns the date on which the n-th working day on
// or after start falls. For n == 0 it returns start unchanged. The
// scan is capped to guard against patterns with no working days;
// exceeding the cap returns false.
func AdvanceWorkingDays(start time.Time, n int, daysOff []int) (time.Time, bool) {
	if n <= 0 {
		return start, true
	}
	maxIterations := 3*n + 7
	counted := 0
	cur := start
	for i := 0; i < maxIterations; i++ {
		if !model.DayOff(daysOff, cur) {
			counted++
			if counted == n {
				return cur, true
			}
		}
		cur = AddDays(cur, 1)
	}
	return time.Time{}, false
}

// EndAfterWorkingDays returns the end date of a task that starts on
// start and needs duration working days, the start day counting as
// day one when it is a working day. The scan cap mirrors
// AdvanceWorkingDays; exceeding it returns false.
func EndAfterWorkingDays(start time.Time, duration int, daysOff []int) (time.Time, bool) {
	if duration <= 0 {
		return start, true
	}
	maxIterations := 3*duration + 7
	counted := 0
	cur := start
	for i := 0; i < maxIterations; i++ {
		if !model.DayOff(daysOff, cur) {
			counted++
			if counted == duration {
				return cur, true
			}
		}
		cur = AddDays(cur, 1)
	}
	return time.Time{}, false
}

// FindWindow searches forward from start for the nearest span of
// exactly duration consecutive working days for the given day-off
// pattern. A day off inside a candidate span disqualifies it. The
// search is bounded to a fixed horizon of calendar days; no window
// within the horizon returns false.
func FindWindow(daysOff []int, start time.Time, duration int) (model.DateRange, bool) {
	if duration <= 0 {
		return model.DateRange{}, false
	}
	cur := start
	for attempt := 0; attempt < searchHorizonDays; attempt++ {
		if model.DayOff(daysOff, cur) {
			cur = AddDays(cur, 1)
			continue
		}

		end := cur
		ok := true
		for i := 1; i < duration; i++ {
			next := AddDays(end, 1)
			if model.DayOff(daysOff, next) {
				ok = false
				break
			}
			end = next
		}
		if ok {
			return model.DateRange{Start: cur, End: end}, true
		}
		cur = AddDays(cur, 1)
	}
	return model.DateRange{}, false
}
