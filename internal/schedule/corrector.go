package schedule

import (
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/cpm-planner/internal/dates"
	"github.com/t77yq/cpm-planner/internal/model"
)

// correctDependencies repairs predecessor/successor date violations
// left over from calendar conversion: day-off skipping can place a
// successor's start on or before a predecessor's end even though the
// abstract timeline ordered them correctly. Tasks are walked in
// topological order; any violating task is pushed to the day after its
// latest predecessor end, keeping its duration, and the shift cascades
// to all transitive successors. Running the pass on an already
// consistent map changes nothing.
func correctDependencies(logger *zap.Logger, taskDates map[int64]model.DateRange, deps map[int64][]int64, tasks map[int64]*model.Task) map[int64]model.DateRange {
	corrected := make(map[int64]model.DateRange, len(taskDates))
	for id, r := range taskDates {
		corrected[id] = r
	}

	successors := make(map[int64][]int64, len(deps))
	for taskID, preds := range deps {
		for _, predID := range preds {
			successors[predID] = append(successors[predID], taskID)
		}
	}

	for _, taskID := range topologicalOrder(logger, deps) {
		current, ok := corrected[taskID]
		if !ok {
			continue
		}

		latestEnd, found := latestPredecessorEnd(corrected, deps[taskID])
		if !found || current.Start.After(latestEnd) {
			continue
		}

		task := tasks[taskID]
		if task == nil {
			continue
		}

		shifted := shiftAfter(latestEnd, task.Duration)
		corrected[taskID] = shifted
		logger.Info("Shifted task to honor predecessors",
			zap.Int64("task_id", taskID),
			zap.String("name", task.Name),
			zap.String("old_start", dates.Format(current.Start)),
			zap.String("new_start", dates.Format(shifted.Start)))

		cascadeShift(logger, taskID, corrected, successors, tasks)
	}

	return corrected
}

// cascadeShift re-checks every transitive successor of a shifted task,
// pushing each violating one past its predecessor's new end. An
// explicit work stack is used instead of recursion; the graph is a DAG
// by the time this runs, and each push strictly increases a start
// date, so the walk terminates.
func cascadeShift(logger *zap.Logger, from int64, corrected map[int64]model.DateRange, successors map[int64][]int64, tasks map[int64]*model.Task) {
	stack := []int64{from}
	for len(stack) > 0 {
		predID := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		predEnd := corrected[predID].End
		for _, succID := range successors[predID] {
			current, ok := corrected[succID]
			if !ok || current.Start.After(predEnd) {
				continue
			}
			task := tasks[succID]
			if task == nil {
				continue
			}

			shifted := shiftAfter(predEnd, task.Duration)
			corrected[succID] = shifted
			logger.Info("Cascaded shift to dependent task",
				zap.Int64("task_id", succID),
				zap.Int64("predecessor_id", predID),
				zap.String("new_start", dates.Format(shifted.Start)))

			stack = append(stack, succID)
		}
	}
}

// shiftAfter places a task of the given duration on the day following
// end, endpoints inclusive.
func shiftAfter(end time.Time, duration int) model.DateRange {
	start := dates.AddDays(end, 1)
	return model.DateRange{Start: start, End: dates.AddDays(start, duration-1)}
}

// latestPredecessorEnd returns the latest end date among the given
// predecessors that have dates.
func latestPredecessorEnd(corrected map[int64]model.DateRange, preds []int64) (time.Time, bool) {
	var latest time.Time
	found := false
	for _, predID := range preds {
		r, ok := corrected[predID]
		if !ok {
			continue
		}
		if !found || r.End.After(latest) {
			latest = r.End
			found = true
		}
	}
	return latest, found
}

// topologicalOrder sorts task ids so every task follows its
// predecessors, using Kahn's algorithm over predecessor counts. Tasks
// caught in an undetected cycle are appended in input order rather
// than dropped; a cycle here was already reported upstream.
func topologicalOrder(logger *zap.Logger, deps map[int64][]int64) []int64 {
	ids := make([]int64, 0, len(deps))
	for id := range deps {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	inDegree := make(map[int64]int, len(ids))
	for _, id := range ids {
		count := 0
		for _, predID := range deps[id] {
			if _, known := deps[predID]; known {
				count++
			}
		}
		inDegree[id] = count
	}

	var queue []int64
	for _, id := range ids {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		seen[id] = true

		for _, succID := range ids {
			for _, predID := range deps[succID] {
				if predID != id {
					continue
				}
				inDegree[succID]--
				if inDegree[succID] == 0 {
					queue = append(queue, succID)
				}
			}
		}
	}

	if len(order) < len(ids) {
		logger.Warn("Topological order incomplete, appending remaining tasks",
			zap.Int("sorted", len(order)),
			zap.Int("total", len(ids)))
		for _, id := range ids {
			if !seen[id] {
				order = append(order, id)
			}
		}
	}

	return order
}
