package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/t77yq/cpm-planner/internal/model"
	"github.com/t77yq/cpm-planner/internal/schedule"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	store, err := New(logger, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_Projects(t *testing.T) {
	// Setup
	store := newTestStore(t)
	ctx := context.Background()

	start, err := time.Parse(model.DateLayout, "2025-01-06")
	require.NoError(t, err)

	// Test case 1: create and read back
	id, err := store.CreateProject(ctx, &model.Project{Name: "release", StartDate: start})
	require.NoError(t, err)
	require.NotZero(t, id)

	project, err := store.Project(ctx, id)
	require.NoError(t, err)
	require.Equal(t, "release", project.Name)
	require.Equal(t, start, project.StartDate)
	require.Equal(t, model.ProjectStatusActive, project.Status)

	// Test case 2: archived projects are not listed as active
	_, err = store.CreateProject(ctx, &model.Project{
		Name:      "done",
		StartDate: start,
		Status:    model.ProjectStatusArchived,
	})
	require.NoError(t, err)

	active, err := store.ActiveProjects(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, id, active[0].ID)

	// Test case 3: unknown id
	_, err = store.Project(ctx, 9999)
	require.ErrorIs(t, err, schedule.ErrProjectNotFound)
}

func TestStore_Tasks(t *testing.T) {
	// Setup
	store := newTestStore(t)
	ctx := context.Background()

	projectID, err := store.CreateProject(ctx, &model.Project{
		Name:      "plan",
		StartDate: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	// Test case 1: roundtrip with predecessors
	firstID, err := store.CreateTask(ctx, &model.Task{
		ProjectID: projectID,
		Name:      "design",
		Duration:  3,
		Position:  "Architect",
	})
	require.NoError(t, err)

	secondID, err := store.CreateTask(ctx, &model.Task{
		ProjectID:    projectID,
		Name:         "build",
		Duration:     5,
		Position:     "Developer",
		Predecessors: []int64{firstID},
	})
	require.NoError(t, err)

	task, err := store.Task(ctx, secondID)
	require.NoError(t, err)
	require.Equal(t, "build", task.Name)
	require.Equal(t, 5, task.Duration)
	require.Equal(t, 5, task.WorkingDuration)
	require.Equal(t, "Developer", task.Position)
	require.Equal(t, []int64{firstID}, task.Predecessors)
	require.Nil(t, task.StartDate)

	// Test case 2: duplicate predecessors are ignored
	require.NoError(t, store.AddPredecessor(ctx, secondID, firstID))
	task, err = store.Task(ctx, secondID)
	require.NoError(t, err)
	require.Equal(t, []int64{firstID}, task.Predecessors)

	// Test case 3: date and assignment updates
	start := time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 13, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.UpdateTaskDates(ctx, secondID, start, end))
	require.NoError(t, store.AssignEmployee(ctx, secondID, 42))

	task, err = store.Task(ctx, secondID)
	require.NoError(t, err)
	require.NotNil(t, task.StartDate)
	require.Equal(t, start, *task.StartDate)
	require.NotNil(t, task.EndDate)
	require.Equal(t, end, *task.EndDate)
	require.NotNil(t, task.EmployeeID)
	require.Equal(t, int64(42), *task.EmployeeID)

	// Test case 4: unknown id
	_, err = store.Task(ctx, 9999)
	require.ErrorIs(t, err, schedule.ErrTaskNotFound)
}

func TestStore_TasksByProject_ExcludesSubtasks(t *testing.T) {
	// Setup
	store := newTestStore(t)
	ctx := context.Background()

	projectID, err := store.CreateProject(ctx, &model.Project{
		Name:      "plan",
		StartDate: time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	groupID, err := store.CreateTask(ctx, &model.Task{
		ProjectID: projectID,
		Name:      "feature",
		Duration:  4,
		IsGroup:   true,
	})
	require.NoError(t, err)

	subID, err := store.CreateTask(ctx, &model.Task{
		ProjectID: projectID,
		ParentID:  &groupID,
		Name:      "step",
		Duration:  2,
		Parallel:  true,
	})
	require.NoError(t, err)

	// Top-level listing holds the group only
	tasks, err := store.TasksByProject(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	require.Equal(t, groupID, tasks[0].ID)
	require.True(t, tasks[0].IsGroup)

	// The subtask shows up under its parent
	subtasks, err := store.Subtasks(ctx, groupID)
	require.NoError(t, err)
	require.Len(t, subtasks, 1)
	require.Equal(t, subID, subtasks[0].ID)
	require.True(t, subtasks[0].Parallel)
	require.NotNil(t, subtasks[0].ParentID)
	require.Equal(t, groupID, *subtasks[0].ParentID)
}

func TestStore_Employees(t *testing.T) {
	// Setup
	store := newTestStore(t)
	ctx := context.Background()

	aliceID, err := store.CreateEmployee(ctx, &model.Employee{
		Name:     "Alice",
		Position: "Developer",
		DaysOff:  []int{6, 7},
	})
	require.NoError(t, err)

	bobID, err := store.CreateEmployee(ctx, &model.Employee{
		Name:     "Bob",
		Position: "Developer",
	})
	require.NoError(t, err)

	_, err = store.CreateEmployee(ctx, &model.Employee{
		Name:     "Carol",
		Position: "Reviewer",
	})
	require.NoError(t, err)

	// Test case 1: roundtrip
	alice, err := store.Employee(ctx, aliceID)
	require.NoError(t, err)
	require.Equal(t, "Alice", alice.Name)
	require.Equal(t, []int{6, 7}, alice.DaysOff)

	// Test case 2: by position, in id order
	developers, err := store.EmployeesByPosition(ctx, "Developer")
	require.NoError(t, err)
	require.Len(t, developers, 2)
	require.Equal(t, aliceID, developers[0].ID)
	require.Equal(t, bobID, developers[1].ID)

	// Test case 3: everyone
	all, err := store.Employees(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Test case 4: unknown id
	_, err = store.Employee(ctx, 9999)
	require.ErrorIs(t, err, schedule.ErrEmployeeNotFound)
}

func TestStore_ScheduleRuns(t *testing.T) {
	// Setup
	store := newTestStore(t)
	ctx := context.Background()

	result := &model.ScheduleResult{
		Duration:        5,
		WorkdayDuration: 5,
		CriticalPath:    []int64{1, 2},
		Unassigned:      []int64{3},
	}

	// Test case 1: record and list
	runID, err := store.RecordRun(ctx, 1, result)
	require.NoError(t, err)
	require.NotEmpty(t, runID)

	runs, err := store.Runs(ctx, 1, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, runID, runs[0].ID)
	require.Equal(t, 5, runs[0].Duration)
	require.Equal(t, []int64{1, 2}, runs[0].CriticalPath)
	require.Equal(t, 1, runs[0].Unassigned)

	// Test case 2: other projects see nothing
	runs, err = store.Runs(ctx, 2, 10)
	require.NoError(t, err)
	require.Empty(t, runs)

	// Test case 3: retention cleanup
	require.NoError(t, store.DeleteRunsBefore(ctx, time.Now().Add(time.Hour)))
	runs, err = store.Runs(ctx, 1, 10)
	require.NoError(t, err)
	require.Empty(t, runs)
}
