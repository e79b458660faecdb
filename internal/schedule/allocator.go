package schedule

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/cpm-planner/internal/dates"
	"github.com/t77yq/cpm-planner/internal/model"
)

// Allocator assigns employees to tasks. Selection is greedy first-fit:
// candidates holding the required position are tried least-loaded
// first, and the first fully available one wins. There is no
// backtracking, so an early choice can foreclose a better global
// assignment; callers wanting a provably minimal schedule need a
// different tool. Least-loaded ties keep the order the directory
// returned.
type Allocator struct {
	logger    *zap.Logger
	employees EmployeeDirectory
}

// NewAllocator creates a new allocator backed by the given directory.
func NewAllocator(employees EmployeeDirectory, logger *zap.Logger) *Allocator {
	return &Allocator{
		logger:    logger.Named("allocator"),
		employees: employees,
	}
}

// Allocate walks all dated non-group tasks that require a position, in
// start-date order, and picks an employee for each. Tasks whose
// proposed dates suit no candidate are moved to the earliest window a
// candidate is free; tasks with no eligible or available candidate at
// all stay unassigned and unmoved. Date moves are written back into
// result.TaskDates; workload and the unassigned list accumulate on the
// result. The returned map holds the new task-to-employee assignments.
func (a *Allocator) Allocate(ctx context.Context, tasks []*model.Task, result *model.ScheduleResult) map[int64]int64 {
	assignments := make(map[int64]int64)
	if result.Workload == nil {
		result.Workload = make(map[int64]int)
	}

	for _, task := range tasksByStartDate(tasks, result.TaskDates) {
		if task.IsGroup || task.Position == "" {
			continue
		}
		span := result.TaskDates[task.ID]

		if task.EmployeeID != nil {
			employee, err := a.employees.Employee(ctx, *task.EmployeeID)
			if err != nil {
				a.logger.Warn("Assigned employee not resolvable, reassigning",
					zap.Int64("task_id", task.ID),
					zap.Int64("employee_id", *task.EmployeeID),
					zap.Error(err))
			} else if availableOver(employee, span) {
				result.Workload[employee.ID] += task.EffectiveWorkingDuration()
				continue
			}
			// Assigned employee is off during the span; reassign.
		}

		a.assign(ctx, task, span, result, assignments)
	}

	return assignments
}

// AllocateGroup lays out and staffs the subtasks of one group task.
// Parallel subtasks anchor to the group's start date; sequential ones
// run back-to-back from it. Subtasks already dated by the main pass
// are left alone. Ends are clipped to the group's end date before any
// availability-driven move.
func (a *Allocator) AllocateGroup(ctx context.Context, group *model.Task, subtasks []*model.Task, result *model.ScheduleResult, assignments map[int64]int64) {
	groupSpan, ok := result.TaskDates[group.ID]
	if !ok {
		return
	}
	if result.Workload == nil {
		result.Workload = make(map[int64]int)
	}

	for _, subtask := range subtasks {
		if !subtask.Parallel {
			continue
		}
		if _, done := result.TaskDates[subtask.ID]; done {
			continue
		}
		span := clipToGroup(groupSpan, groupSpan.Start, subtask.Duration)
		a.placeSubtask(ctx, subtask, span, result, assignments)
	}

	cursor := groupSpan.Start
	for _, subtask := range subtasks {
		if subtask.Parallel {
			continue
		}
		if placed, done := result.TaskDates[subtask.ID]; done {
			cursor = dates.AddDays(placed.End, 1)
			continue
		}
		span := clipToGroup(groupSpan, cursor, subtask.Duration)
		a.placeSubtask(ctx, subtask, span, result, assignments)
		cursor = dates.AddDays(result.TaskDates[subtask.ID].End, 1)
	}
}

// placeSubtask records the proposed span and then runs the regular
// selection, which may move the span to an availability window. A
// subtask with a pre-assigned employee keeps both the employee and the
// proposed span.
func (a *Allocator) placeSubtask(ctx context.Context, subtask *model.Task, span model.DateRange, result *model.ScheduleResult, assignments map[int64]int64) {
	result.TaskDates[subtask.ID] = span

	if subtask.EmployeeID != nil {
		result.Workload[*subtask.EmployeeID] += subtask.EffectiveWorkingDuration()
		return
	}
	if subtask.Position == "" {
		return
	}
	a.assign(ctx, subtask, span, result, assignments)
}

// assign tries candidates least-loaded first on the proposed span,
// then falls back to searching each candidate for the nearest window
// of consecutive working days, moving the task's dates on success.
func (a *Allocator) assign(ctx context.Context, task *model.Task, span model.DateRange, result *model.ScheduleResult, assignments map[int64]int64) {
	candidates, err := a.employees.EmployeesByPosition(ctx, task.Position)
	if err != nil {
		a.logger.Error("Employee lookup failed",
			zap.Int64("task_id", task.ID),
			zap.String("position", task.Position),
			zap.Error(err))
		result.Unassigned = append(result.Unassigned, task.ID)
		return
	}
	if len(candidates) == 0 {
		a.logger.Warn("No employees hold required position",
			zap.Int64("task_id", task.ID),
			zap.String("name", task.Name),
			zap.String("position", task.Position),
			zap.Error(ErrNoEligibleEmployees))
		result.Unassigned = append(result.Unassigned, task.ID)
		return
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return result.Workload[candidates[i].ID] < result.Workload[candidates[j].ID]
	})

	for _, employee := range candidates {
		if !availableOver(employee, span) {
			continue
		}
		assignments[task.ID] = employee.ID
		result.Workload[employee.ID] += task.EffectiveWorkingDuration()
		a.logger.Info("Assigned employee to task",
			zap.Int64("task_id", task.ID),
			zap.Int64("employee_id", employee.ID),
			zap.String("employee", employee.Name))
		return
	}

	for _, employee := range candidates {
		window, found := dates.FindWindow(employee.DaysOff, span.Start, task.Duration)
		if !found {
			continue
		}
		assignments[task.ID] = employee.ID
		result.TaskDates[task.ID] = window
		result.Workload[employee.ID] += task.EffectiveWorkingDuration()
		a.logger.Info("Moved task to employee availability window",
			zap.Int64("task_id", task.ID),
			zap.Int64("employee_id", employee.ID),
			zap.String("new_start", dates.Format(window.Start)),
			zap.String("new_end", dates.Format(window.End)))
		return
	}

	a.logger.Warn("No available dates for any candidate",
		zap.Int64("task_id", task.ID),
		zap.String("name", task.Name),
		zap.String("position", task.Position),
		zap.Error(ErrNoAvailableDates))
	result.Unassigned = append(result.Unassigned, task.ID)
}

// availableOver checks the employee day by day across the whole span.
func availableOver(employee *model.Employee, span model.DateRange) bool {
	for cur := span.Start; !cur.After(span.End); cur = dates.AddDays(cur, 1) {
		if !employee.IsAvailable(cur) {
			return false
		}
	}
	return true
}

// tasksByStartDate orders dated tasks by their proposed start date,
// keeping input order for equal starts. Tasks without dates are
// dropped.
func tasksByStartDate(tasks []*model.Task, taskDates map[int64]model.DateRange) []*model.Task {
	ordered := make([]*model.Task, 0, len(tasks))
	for _, task := range tasks {
		if _, ok := taskDates[task.ID]; ok {
			ordered = append(ordered, task)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return taskDates[ordered[i].ID].Start.Before(taskDates[ordered[j].ID].Start)
	})
	return ordered
}

// clipToGroup builds a span of the given duration starting at start,
// clipped so it never runs past the group's end date.
func clipToGroup(group model.DateRange, start time.Time, duration int) model.DateRange {
	end := dates.AddDays(start, duration-1)
	if end.After(group.End) {
		end = group.End
	}
	return model.DateRange{Start: start, End: end}
}
