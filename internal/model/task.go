package model

import (
	"encoding/json"
	"time"
)

// DateLayout is the canonical date format used across the planner.
// Dates carry no time-of-day component.
const DateLayout = "2006-01-02"

// Task represents a unit of project work with a duration and
// predecessor ordering constraints.
type Task struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	ParentID  *int64 `json:"parent_id,omitempty"`
	Name      string `json:"name"`

	// Duration is the task length in days, inclusive of both the start
	// and the end day. WorkingDuration is the length used for workload
	// accounting and defaults to Duration.
	Duration        int `json:"duration"`
	WorkingDuration int `json:"working_duration,omitempty"`

	IsGroup  bool `json:"is_group"`
	Parallel bool `json:"parallel"`

	// Position is the role required to perform the task. Empty for
	// group tasks and for tasks that need no assignment.
	Position   string `json:"position,omitempty"`
	EmployeeID *int64 `json:"employee_id,omitempty"`

	// Predecessors holds the ids of tasks that must finish before this
	// one starts.
	Predecessors []int64 `json:"predecessors,omitempty"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// EffectiveWorkingDuration returns WorkingDuration, falling back to
// Duration when it was never set.
func (t *Task) EffectiveWorkingDuration() int {
	if t.WorkingDuration > 0 {
		return t.WorkingDuration
	}
	return t.Duration
}

// DecodePredecessors normalizes the stored predecessor encoding into a
// list of task ids. Storage keeps the list as a JSON array in a text
// column; an empty or unparseable value yields an empty list, never an
// error. Callers log the raw value when ok is false.
func DecodePredecessors(raw string) (ids []int64, ok bool) {
	if raw == "" {
		return nil, true
	}
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil, false
	}
	return ids, true
}

// EncodePredecessors serializes a predecessor list for storage.
func EncodePredecessors(ids []int64) string {
	if len(ids) == 0 {
		return "[]"
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "[]"
	}
	return string(data)
}
