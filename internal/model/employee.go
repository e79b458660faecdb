package model

import (
	"encoding/json"
	"time"
)

// Weekday values used throughout the planner: 1 = Monday .. 7 = Sunday.

// Employee represents an assignable person with a weekly day-off
// pattern. The scheduling engine only ever reads employees.
type Employee struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Position string `json:"position"`

	// DaysOff lists the weekdays (1=Monday .. 7=Sunday) on which the
	// employee does not work. Empty means the corporate default applies.
	DaysOff []int `json:"days_off,omitempty"`
}

// IsAvailable reports whether the employee works on the given date.
func (e *Employee) IsAvailable(date time.Time) bool {
	return !DayOff(e.DaysOff, date)
}

// DayOff reports whether the date falls on one of the given weekdays
// (1=Monday .. 7=Sunday).
func DayOff(daysOff []int, date time.Time) bool {
	weekday := int(date.Weekday())
	if weekday == 0 {
		weekday = 7 // time.Sunday is 0
	}
	for _, d := range daysOff {
		if d == weekday {
			return true
		}
	}
	return false
}

// DecodeDaysOff normalizes the stored day-off encoding into a weekday
// list. Same contract as DecodePredecessors: bad input yields an empty
// list with ok=false.
func DecodeDaysOff(raw string) (days []int, ok bool) {
	if raw == "" {
		return nil, true
	}
	if err := json.Unmarshal([]byte(raw), &days); err != nil {
		return nil, false
	}
	return days, true
}

// EncodeDaysOff serializes a day-off list for storage.
func EncodeDaysOff(days []int) string {
	if len(days) == 0 {
		return "[]"
	}
	data, err := json.Marshal(days)
	if err != nil {
		return "[]"
	}
	return string(data)
}
