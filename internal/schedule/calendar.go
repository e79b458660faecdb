package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/cpm-planner/internal/dates"
	"github.com/t77yq/cpm-planner/internal/model"
)

// dateMapper converts abstract longest-path times into calendar date
// ranges. Two strategies exist: plain calendar counting, and counting
// that skips the applicable day-off pattern per task. The orchestrator
// picks the strategy based on whether an employee directory is
// available.
type dateMapper interface {
	mapDates(ctx context.Context, projectStart time.Time, tasks []*model.Task, g *depGraph, early []int) map[int64]model.DateRange
}

// earliestStart derives the earliest start offset for a task from its
// node label. Labels of nodes with predecessors include the task's own
// duration (incoming edges carry it), so the start is label minus
// duration; tasks without predecessors start at zero. The value may
// underestimate across day-off boundaries, which the dependency
// corrector repairs by only ever pushing tasks later.
func earliestStart(task *model.Task, g *depGraph, early []int) int {
	if len(task.Predecessors) == 0 {
		return 0
	}
	node := g.taskNode[task.ID]
	if start := early[node] - task.Duration; start > 0 {
		return start
	}
	return 0
}

// simpleDateMapper maps time units one-to-one onto calendar days.
type simpleDateMapper struct{}

func (simpleDateMapper) mapDates(_ context.Context, projectStart time.Time, tasks []*model.Task, g *depGraph, early []int) map[int64]model.DateRange {
	out := make(map[int64]model.DateRange, len(g.taskNode))
	for _, task := range tasks {
		if _, ok := g.taskNode[task.ID]; !ok {
			continue
		}
		start := dates.AddDays(projectStart, earliestStart(task, g, early))
		end := dates.AddDays(start, task.Duration-1)
		out[task.ID] = model.DateRange{Start: start, End: end}
	}
	return out
}

// daysOffDateMapper maps time units onto working days, skipping the
// assigned employee's day-off pattern when one is known and the
// corporate default otherwise.
type daysOffDateMapper struct {
	logger    *zap.Logger
	employees EmployeeDirectory
}

func (m *daysOffDateMapper) mapDates(ctx context.Context, projectStart time.Time, tasks []*model.Task, g *depGraph, early []int) map[int64]model.DateRange {
	out := make(map[int64]model.DateRange, len(g.taskNode))
	for _, task := range tasks {
		if _, ok := g.taskNode[task.ID]; !ok {
			continue
		}

		daysOff := m.daysOffFor(ctx, task)

		start := projectStart
		if units := earliestStart(task, g, early); units > 0 {
			reached, ok := dates.AdvanceWorkingDays(projectStart, units, daysOff)
			if !ok {
				m.logger.Warn("No working days reachable for task, omitting dates",
					zap.Int64("task_id", task.ID),
					zap.Ints("days_off", daysOff))
				continue
			}
			start = reached
		}

		start, ok := dates.NextWorkingDay(start, daysOff)
		if !ok {
			m.logger.Warn("Day-off pattern admits no working day, omitting dates",
				zap.Int64("task_id", task.ID),
				zap.Ints("days_off", daysOff))
			continue
		}

		end, ok := dates.EndAfterWorkingDays(start, task.Duration, daysOff)
		if !ok {
			m.logger.Warn("Could not accumulate working days for task, omitting dates",
				zap.Int64("task_id", task.ID),
				zap.Int("duration", task.Duration),
				zap.Ints("days_off", daysOff))
			continue
		}

		out[task.ID] = model.DateRange{Start: start, End: end}
	}
	return out
}

// daysOffFor resolves the applicable day-off pattern: the assigned
// employee's non-empty pattern when one exists, the corporate default
// otherwise.
func (m *daysOffDateMapper) daysOffFor(ctx context.Context, task *model.Task) []int {
	if task.EmployeeID == nil {
		return corpDaysOff
	}
	employee, err := m.employees.Employee(ctx, *task.EmployeeID)
	if err != nil {
		m.logger.Warn("Falling back to corporate days off",
			zap.Int64("task_id", task.ID),
			zap.Int64("employee_id", *task.EmployeeID),
			zap.Error(err))
		return corpDaysOff
	}
	if len(employee.DaysOff) == 0 {
		return corpDaysOff
	}
	return employee.DaysOff
}
