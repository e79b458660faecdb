package model

import "time"

// DateRange holds the inclusive calendar span assigned to a task.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Days returns the calendar length of the range, counting both
// endpoints.
func (r DateRange) Days() int {
	return int(r.End.Sub(r.Start).Hours()/24) + 1
}

// ScheduleResult is the aggregate produced by one scheduling run. It
// has no lifecycle beyond the call that produced it.
type ScheduleResult struct {
	// Duration is the calendar span of the whole project in days;
	// WorkdayDuration is the abstract longest-path length in time
	// units.
	Duration        int `json:"duration"`
	WorkdayDuration int `json:"workday_duration"`

	// CriticalPath lists the ids of zero-slack tasks in node-number
	// order. Consumers must not assume chronological order without
	// consulting TaskDates.
	CriticalPath []int64 `json:"critical_path"`

	TaskDates map[int64]DateRange `json:"task_dates"`

	// Raw solver vectors, indexed by graph node (0 = source, last =
	// sink).
	EarlyTimes []int `json:"early_times"`
	LateTimes  []int `json:"late_times"`
	Reserves   []int `json:"reserves"`

	// Dependencies is the normalized predecessor map the run used.
	Dependencies map[int64][]int64 `json:"dependencies"`

	// Workload accumulates assigned working days per employee.
	Workload map[int64]int `json:"workload,omitempty"`

	// Unassigned lists tasks that required a position but could not be
	// matched with an available employee.
	Unassigned []int64 `json:"unassigned,omitempty"`
}
