package schedule

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/t77yq/cpm-planner/internal/dates"
	"github.com/t77yq/cpm-planner/internal/model"
)

// stubDirectory serves employees from memory.
type stubDirectory struct {
	employees map[int64]*model.Employee
}

func (d *stubDirectory) Employee(_ context.Context, id int64) (*model.Employee, error) {
	employee, ok := d.employees[id]
	if !ok {
		return nil, ErrEmployeeNotFound
	}
	return employee, nil
}

func (d *stubDirectory) EmployeesByPosition(_ context.Context, position string) ([]*model.Employee, error) {
	var out []*model.Employee
	for _, employee := range d.employees {
		if employee.Position == position {
			out = append(out, employee)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// stubSource records writes instead of persisting them.
type stubSource struct {
	subtasks map[int64][]*model.Task
	dates    map[int64]model.DateRange
	assigned map[int64]int64
}

func newStubSource() *stubSource {
	return &stubSource{
		subtasks: make(map[int64][]*model.Task),
		dates:    make(map[int64]model.DateRange),
		assigned: make(map[int64]int64),
	}
}

func (s *stubSource) Task(_ context.Context, id int64) (*model.Task, error) {
	return nil, ErrTaskNotFound
}

func (s *stubSource) Subtasks(_ context.Context, parentID int64) ([]*model.Task, error) {
	return s.subtasks[parentID], nil
}

func (s *stubSource) UpdateTaskDates(_ context.Context, id int64, start, end time.Time) error {
	s.dates[id] = model.DateRange{Start: start, End: end}
	return nil
}

func (s *stubSource) AssignEmployee(_ context.Context, taskID, employeeID int64) error {
	s.assigned[taskID] = employeeID
	return nil
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := dates.Parse(s)
	require.NoError(t, err)
	return d
}

func i64(v int64) *int64 {
	return &v
}

func TestScheduler_ComputeSchedule_SimpleMode(t *testing.T) {
	// Setup
	logger, _ := zap.NewDevelopment()
	source := newStubSource()
	scheduler := NewScheduler(source, nil, logger)

	project := &model.Project{ID: 1, Name: "release", StartDate: mustDate(t, "2025-01-06")}
	tasks := []*model.Task{
		{ID: 1, Name: "A", Duration: 3},
		{ID: 2, Name: "B", Duration: 2, Predecessors: []int64{1}},
		{ID: 3, Name: "C", Duration: 1, Predecessors: []int64{1}},
	}

	result, err := scheduler.ComputeSchedule(context.Background(), project, tasks)
	require.NoError(t, err)

	// Dates follow the critical path solution
	require.Equal(t, mustDate(t, "2025-01-06"), result.TaskDates[1].Start)
	require.Equal(t, mustDate(t, "2025-01-08"), result.TaskDates[1].End)
	require.Equal(t, mustDate(t, "2025-01-09"), result.TaskDates[2].Start)
	require.Equal(t, mustDate(t, "2025-01-10"), result.TaskDates[2].End)
	require.Equal(t, mustDate(t, "2025-01-09"), result.TaskDates[3].Start)
	require.Equal(t, mustDate(t, "2025-01-09"), result.TaskDates[3].End)

	require.Equal(t, []int64{1, 2}, result.CriticalPath)
	require.Equal(t, 5, result.Duration)

	// All spans were written back
	require.Len(t, source.dates, 3)
	require.Equal(t, result.TaskDates[2], source.dates[2])
	require.Empty(t, source.assigned)
}

func TestScheduler_ComputeSchedule_MissingRole(t *testing.T) {
	// Setup: the directory holds nobody with the required position
	logger, _ := zap.NewDevelopment()
	source := newStubSource()
	directory := &stubDirectory{employees: map[int64]*model.Employee{
		1: {ID: 1, Name: "Alice", Position: "Developer"},
	}}
	scheduler := NewScheduler(source, directory, logger)

	project := &model.Project{ID: 1, Name: "review", StartDate: mustDate(t, "2025-01-06")}
	tasks := []*model.Task{
		{ID: 1, Name: "audit", Duration: 2, Position: "Reviewer"},
	}

	result, err := scheduler.ComputeSchedule(context.Background(), project, tasks)
	require.NoError(t, err)

	// The task keeps its dates but stays unassigned
	require.Contains(t, result.TaskDates, int64(1))
	require.Equal(t, []int64{1}, result.Unassigned)
	require.Empty(t, source.assigned)
	require.Contains(t, source.dates, int64(1))
}

func TestScheduler_ComputeSchedule_AssignsAndPersists(t *testing.T) {
	// Setup
	logger, _ := zap.NewDevelopment()
	source := newStubSource()
	directory := &stubDirectory{employees: map[int64]*model.Employee{
		1: {ID: 1, Name: "Alice", Position: "Developer", DaysOff: []int{6, 7}},
	}}
	scheduler := NewScheduler(source, directory, logger)

	project := &model.Project{ID: 1, Name: "build", StartDate: mustDate(t, "2025-01-06")}
	tasks := []*model.Task{
		{ID: 1, Name: "implement", Duration: 3, Position: "Developer"},
	}

	result, err := scheduler.ComputeSchedule(context.Background(), project, tasks)
	require.NoError(t, err)

	require.Equal(t, mustDate(t, "2025-01-06"), result.TaskDates[1].Start)
	require.Equal(t, mustDate(t, "2025-01-08"), result.TaskDates[1].End)
	require.Empty(t, result.Unassigned)
	require.Equal(t, int64(1), source.assigned[1])
	require.Equal(t, 3, result.Workload[1])
	require.Equal(t, result.TaskDates[1], source.dates[1])
}

func TestScheduler_ComputeSchedule_GroupSubtasks(t *testing.T) {
	// Setup: one group with a parallel and two sequential subtasks
	logger, _ := zap.NewDevelopment()
	source := newStubSource()
	directory := &stubDirectory{employees: map[int64]*model.Employee{
		1: {ID: 1, Name: "Alice", Position: "Developer", DaysOff: []int{6, 7}},
		2: {ID: 2, Name: "Bob", Position: "Developer", DaysOff: []int{6, 7}},
	}}
	scheduler := NewScheduler(source, directory, logger)

	group := &model.Task{ID: 10, Name: "feature", Duration: 4, IsGroup: true}
	source.subtasks[10] = []*model.Task{
		{ID: 11, Name: "spike", ParentID: i64(10), Duration: 2, Parallel: true, Position: "Developer"},
		{ID: 12, Name: "code", ParentID: i64(10), Duration: 2, Position: "Developer"},
		{ID: 13, Name: "test", ParentID: i64(10), Duration: 2, Position: "Developer"},
	}

	project := &model.Project{ID: 1, Name: "sprint", StartDate: mustDate(t, "2025-01-06")}
	result, err := scheduler.ComputeSchedule(context.Background(), project, []*model.Task{group})
	require.NoError(t, err)

	groupSpan := result.TaskDates[10]
	require.Equal(t, mustDate(t, "2025-01-06"), groupSpan.Start)

	// The parallel subtask anchors to the group start
	require.Equal(t, groupSpan.Start, result.TaskDates[11].Start)

	// Sequential subtasks run back to back from the group start
	require.Equal(t, groupSpan.Start, result.TaskDates[12].Start)
	require.Equal(t, dates.AddDays(result.TaskDates[12].End, 1), result.TaskDates[13].Start)

	// Every subtask got someone
	require.Contains(t, source.assigned, int64(11))
	require.Contains(t, source.assigned, int64(12))
	require.Contains(t, source.assigned, int64(13))
}

func TestScheduler_ComputeSchedule_CyclicGraph(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	scheduler := NewScheduler(newStubSource(), nil, logger)

	project := &model.Project{ID: 1, Name: "loop", StartDate: mustDate(t, "2025-01-06")}
	tasks := []*model.Task{
		{ID: 1, Name: "A", Duration: 1, Predecessors: []int64{2}},
		{ID: 2, Name: "B", Duration: 1, Predecessors: []int64{1}},
	}

	_, err := scheduler.ComputeSchedule(context.Background(), project, tasks)
	require.ErrorIs(t, err, ErrCyclicDependency)
}

func TestScheduler_ComputeSchedule_EmptyProject(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	scheduler := NewScheduler(newStubSource(), nil, logger)

	project := &model.Project{ID: 1, Name: "empty", StartDate: mustDate(t, "2025-01-06")}
	result, err := scheduler.ComputeSchedule(context.Background(), project, nil)
	require.NoError(t, err)
	require.Empty(t, result.TaskDates)
	require.Zero(t, result.Duration)
}
