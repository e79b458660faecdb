package schedule

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/cpm-planner/internal/model"
)

// TaskSource is the persistence collaborator the engine reads tasks
// from and writes computed dates and assignments to. Implementations
// are synchronous; the engine issues writes only after the full
// computation is final.
type TaskSource interface {
	// Task returns a single task by id.
	Task(ctx context.Context, id int64) (*model.Task, error)

	// Subtasks returns the direct children of a group task.
	Subtasks(ctx context.Context, parentID int64) ([]*model.Task, error)

	// UpdateTaskDates stores the computed date span for a task.
	UpdateTaskDates(ctx context.Context, id int64, start, end time.Time) error

	// AssignEmployee stores an employee assignment for a task.
	AssignEmployee(ctx context.Context, taskID, employeeID int64) error
}

// EmployeeDirectory is the read-only collaborator for assignable
// people.
type EmployeeDirectory interface {
	// Employee returns a single employee by id.
	Employee(ctx context.Context, id int64) (*model.Employee, error)

	// EmployeesByPosition returns every employee holding the given
	// position. The iteration order breaks least-loaded ties, so
	// callers wanting a deterministic tie-break must return a total
	// order.
	EmployeesByPosition(ctx context.Context, position string) ([]*model.Employee, error)
}

// Scheduler sequences one full scheduling run: solve the network
// model, map and correct calendar dates, allocate employees, lay out
// group subtasks, then persist the consolidated outcome.
type Scheduler struct {
	logger    *zap.Logger
	model     *NetworkModel
	tasks     TaskSource
	employees EmployeeDirectory
	allocator *Allocator
}

// NewScheduler creates a scheduler. A nil employee directory selects
// simple calendar mapping and disables allocation; with a directory
// the run is days-off-aware end to end.
func NewScheduler(tasks TaskSource, employees EmployeeDirectory, logger *zap.Logger) *Scheduler {
	s := &Scheduler{
		logger:    logger.Named("scheduler"),
		model:     NewNetworkModel(logger),
		tasks:     tasks,
		employees: employees,
	}
	if employees != nil {
		s.allocator = NewAllocator(employees, logger)
	}
	return s
}

// ComputeSchedule computes the calendar plan for one project. Cyclic
// dependency graphs return ErrCyclicDependency; an empty task list
// returns a zero-value result. Allocation and persistence problems
// never fail the run; they are logged and surface as unassigned tasks
// on the result.
func (s *Scheduler) ComputeSchedule(ctx context.Context, project *model.Project, tasks []*model.Task) (*model.ScheduleResult, error) {
	s.logger.Info("Computing schedule",
		zap.Int64("project_id", project.ID),
		zap.String("project", project.Name),
		zap.Int("tasks", len(tasks)))

	var mapper dateMapper = simpleDateMapper{}
	if s.employees != nil {
		mapper = &daysOffDateMapper{logger: s.logger, employees: s.employees}
	}

	result, err := s.model.Calculate(ctx, project, tasks, mapper)
	if err != nil {
		return nil, err
	}
	if len(result.TaskDates) == 0 {
		return result, nil
	}

	assignments := make(map[int64]int64)
	if s.allocator != nil {
		assignments = s.allocator.Allocate(ctx, tasks, result)
		s.allocateGroups(ctx, tasks, result, assignments)
		result.Duration = calendarDuration(result.TaskDates, result.WorkdayDuration)
	}

	s.persist(ctx, result, assignments)

	s.logger.Info("Schedule computed",
		zap.Int64("project_id", project.ID),
		zap.Int("calendar_duration", result.Duration),
		zap.Int("critical_tasks", len(result.CriticalPath)),
		zap.Int("unassigned", len(result.Unassigned)))

	return result, nil
}

// allocateGroups runs the specialized subtask pass for every dated
// group task.
func (s *Scheduler) allocateGroups(ctx context.Context, tasks []*model.Task, result *model.ScheduleResult, assignments map[int64]int64) {
	for _, task := range tasks {
		if !task.IsGroup {
			continue
		}
		if _, ok := result.TaskDates[task.ID]; !ok {
			continue
		}

		subtasks, err := s.tasks.Subtasks(ctx, task.ID)
		if err != nil {
			s.logger.Error("Failed to load subtasks",
				zap.Int64("group_id", task.ID),
				zap.Error(err))
			continue
		}
		if len(subtasks) == 0 {
			continue
		}

		s.allocator.AllocateGroup(ctx, task, subtasks, result, assignments)
	}
}

// persist writes the final date map and assignments through the task
// source. Individual write failures are logged and skipped; the
// computed result is returned to the caller either way.
func (s *Scheduler) persist(ctx context.Context, result *model.ScheduleResult, assignments map[int64]int64) {
	for taskID, span := range result.TaskDates {
		if err := s.tasks.UpdateTaskDates(ctx, taskID, span.Start, span.End); err != nil {
			s.logger.Error("Failed to store task dates",
				zap.Int64("task_id", taskID),
				zap.Error(err))
		}
	}
	for taskID, employeeID := range assignments {
		if err := s.tasks.AssignEmployee(ctx, taskID, employeeID); err != nil {
			s.logger.Error("Failed to store assignment",
				zap.Int64("task_id", taskID),
				zap.Int64("employee_id", employeeID),
				zap.Error(err))
		}
	}
}
