// Package schedule implements the calendar planning engine: critical
// path analysis over the task dependency graph, calendar date mapping
// with optional day-off awareness, dependency-order date correction,
// and employee allocation. The engine is synchronous and single-run;
// concurrent runs must operate on their own task copies.
package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/cpm-planner/internal/model"
)

// NetworkModel computes project schedules with the critical path
// method, using Ford-style label correction so the result does not
// depend on the construction order of the graph.
type NetworkModel struct {
	logger *zap.Logger
}

// NewNetworkModel creates a new network model solver.
func NewNetworkModel(logger *zap.Logger) *NetworkModel {
	return &NetworkModel{logger: logger.Named("network-model")}
}

// Calculate builds the dependency graph, solves for early and late
// event times, extracts the critical path, maps abstract times onto
// calendar dates with the given mapper and repairs any ordering
// violations the calendar conversion introduced.
//
// An empty task list yields a zero-value result and no error. A cycle
// among predecessor edges yields ErrCyclicDependency.
func (m *NetworkModel) Calculate(ctx context.Context, project *model.Project, tasks []*model.Task, mapper dateMapper) (*model.ScheduleResult, error) {
	result := &model.ScheduleResult{
		TaskDates:    make(map[int64]model.DateRange),
		Dependencies: make(map[int64][]int64),
	}
	if len(tasks) == 0 {
		return result, nil
	}

	graph := buildGraph(m.logger, tasks)
	if graph.empty() {
		return result, nil
	}

	if graph.hasCycle() {
		m.logger.Warn("Dependency graph contains a cycle, refusing to solve",
			zap.Int64("project_id", project.ID))
		return nil, ErrCyclicDependency
	}

	early := m.earlyTimes(graph)
	late := m.lateTimes(graph, early)
	reserves := make([]int, len(early))
	for i := range early {
		reserves[i] = late[i] - early[i]
	}

	result.EarlyTimes = early
	result.LateTimes = late
	result.Reserves = reserves
	result.CriticalPath = m.criticalPath(graph, reserves)
	result.WorkdayDuration = early[graph.sink]

	byID := make(map[int64]*model.Task, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
		if _, ok := graph.taskNode[task.ID]; ok {
			result.Dependencies[task.ID] = task.Predecessors
		}
	}

	result.TaskDates = mapper.mapDates(ctx, project.StartDate, tasks, graph, early)
	result.TaskDates = correctDependencies(m.logger, result.TaskDates, result.Dependencies, byID)

	result.Duration = calendarDuration(result.TaskDates, result.WorkdayDuration)

	return result, nil
}

// earlyTimes runs the forward relaxation pass: label[v] becomes the
// longest path length from the source to v.
func (m *NetworkModel) earlyTimes(g *depGraph) []int {
	n := g.nodeCount()
	early := make([]int, n)

	maxPasses := relaxationPassFactor * n
	for pass := 0; pass < maxPasses; pass++ {
		changed := false
		for node := 0; node < n; node++ {
			for _, e := range g.adjacency[node] {
				if early[e.to] < early[node]+e.weight {
					early[e.to] = early[node] + e.weight
					changed = true
				}
			}
		}
		if !changed {
			return early
		}
	}

	// Unreachable for acyclic graphs; the cycle check runs first.
	m.logger.Error("Forward relaxation hit the pass cap on an acyclic graph",
		zap.Int("nodes", n))
	return early
}

// lateTimes runs the backward relaxation pass over the reversed graph,
// minimizing from the project completion time at the sink.
func (m *NetworkModel) lateTimes(g *depGraph, early []int) []int {
	n := g.nodeCount()
	completion := early[g.sink]

	late := make([]int, n)
	for i := range late {
		late[i] = completion
	}

	reverse := make(map[int][]edge, n)
	for node, edges := range g.adjacency {
		for _, e := range edges {
			reverse[e.to] = append(reverse[e.to], edge{to: node, weight: e.weight})
		}
	}

	maxPasses := relaxationPassFactor * n
	for pass := 0; pass < maxPasses; pass++ {
		changed := false
		for node := n - 1; node >= 0; node-- {
			for _, e := range reverse[node] {
				if late[e.to] > late[node]-e.weight {
					late[e.to] = late[node] - e.weight
					changed = true
				}
			}
		}
		if !changed {
			return late
		}
	}

	m.logger.Error("Backward relaxation hit the pass cap on an acyclic graph",
		zap.Int("nodes", n))
	return late
}

// criticalPath returns the task ids of all zero-slack interior nodes,
// in node-number order. No chronological ordering is implied.
func (m *NetworkModel) criticalPath(g *depGraph, reserves []int) []int64 {
	var critical []int64
	for node := 1; node < g.sink; node++ {
		if reserves[node] != 0 {
			continue
		}
		if taskID, ok := g.nodeTask[node]; ok {
			critical = append(critical, taskID)
		}
	}
	return critical
}

// calendarDuration computes the inclusive calendar span over all dated
// tasks, falling back to the abstract workday duration when no task
// received dates.
func calendarDuration(dates map[int64]model.DateRange, workdays int) int {
	var minStart, maxEnd time.Time
	first := true
	for _, r := range dates {
		if first || r.Start.Before(minStart) {
			minStart = r.Start
		}
		if first || r.End.After(maxEnd) {
			maxEnd = r.End
		}
		first = false
	}
	if first {
		return workdays
	}
	return int(maxEnd.Sub(minStart).Hours()/24) + 1
}
