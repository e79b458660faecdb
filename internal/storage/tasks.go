package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/t77yq/cpm-planner/internal/model"
	"github.com/t77yq/cpm-planner/internal/schedule"
)

// CreateTask stores a new task and returns its id. The predecessor
// list is serialized into a JSON text column.
func (s *Store) CreateTask(ctx context.Context, task *model.Task) (int64, error) {
	var parentID sql.NullInt64
	if task.ParentID != nil {
		parentID = sql.NullInt64{Int64: *task.ParentID, Valid: true}
	}
	var employeeID sql.NullInt64
	if task.EmployeeID != nil {
		employeeID = sql.NullInt64{Int64: *task.EmployeeID, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (
			project_id, parent_id, name, duration, working_duration,
			is_group, parallel, position, employee_id, predecessors
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		task.ProjectID,
		parentID,
		task.Name,
		task.Duration,
		task.EffectiveWorkingDuration(),
		task.IsGroup,
		task.Parallel,
		sql.NullString{String: task.Position, Valid: task.Position != ""},
		employeeID,
		model.EncodePredecessors(task.Predecessors),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get task id: %w", err)
	}
	return id, nil
}

// Task retrieves a single task by id.
func (s *Store) Task(ctx context.Context, id int64) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx, taskSelect+` WHERE id = ?`, id)
	task, err := s.scanTask(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, schedule.ErrTaskNotFound
		}
		return nil, err
	}
	return task, nil
}

// TasksByProject lists a project's top-level tasks (subtasks of group
// tasks excluded) in id order.
func (s *Store) TasksByProject(ctx context.Context, projectID int64) ([]*model.Task, error) {
	rows, err := s.db.QueryContext(ctx, taskSelect+` WHERE project_id = ? AND parent_id IS NULL ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()
	return s.collectTasks(rows)
}

// Subtasks lists the direct children of a group task in id order.
func (s *Store) Subtasks(ctx context.Context, parentID int64) ([]*model.Task, error) {
	rows, err := s.db.QueryContext(ctx, taskSelect+` WHERE parent_id = ? ORDER BY id`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subtasks: %w", err)
	}
	defer rows.Close()
	return s.collectTasks(rows)
}

// UpdateTaskDates stores the computed date span for a task.
func (s *Store) UpdateTaskDates(ctx context.Context, id int64, start, end time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET start_date = ?, end_date = ? WHERE id = ?`,
		start.Format(model.DateLayout),
		end.Format(model.DateLayout),
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to update task dates: %w", err)
	}
	return nil
}

// AssignEmployee stores an employee assignment for a task.
func (s *Store) AssignEmployee(ctx context.Context, taskID, employeeID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET employee_id = ? WHERE id = ?`, employeeID, taskID)
	if err != nil {
		return fmt.Errorf("failed to assign employee: %w", err)
	}
	return nil
}

// AddPredecessor appends a predecessor id to a task's list, ignoring
// duplicates.
func (s *Store) AddPredecessor(ctx context.Context, taskID, predecessorID int64) error {
	task, err := s.Task(ctx, taskID)
	if err != nil {
		return err
	}
	for _, id := range task.Predecessors {
		if id == predecessorID {
			return nil
		}
	}
	preds := append(task.Predecessors, predecessorID)

	_, err = s.db.ExecContext(ctx, `
		UPDATE tasks SET predecessors = ? WHERE id = ?`,
		model.EncodePredecessors(preds), taskID)
	if err != nil {
		return fmt.Errorf("failed to update predecessors: %w", err)
	}
	return nil
}

const taskSelect = `
	SELECT id, project_id, parent_id, name, duration, working_duration,
	       is_group, parallel, position, employee_id, predecessors,
	       start_date, end_date
	FROM tasks`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanTask reads one task row, normalizing the serialized predecessor
// column into a typed list. An unparseable encoding degrades to an
// empty list with a warning rather than failing the load.
func (s *Store) scanTask(row rowScanner) (*model.Task, error) {
	var task model.Task
	var parentID, employeeID, workingDuration sql.NullInt64
	var position, predecessors, startDate, endDate sql.NullString

	err := row.Scan(
		&task.ID,
		&task.ProjectID,
		&parentID,
		&task.Name,
		&task.Duration,
		&workingDuration,
		&task.IsGroup,
		&task.Parallel,
		&position,
		&employeeID,
		&predecessors,
		&startDate,
		&endDate,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan task: %w", err)
	}

	if parentID.Valid {
		task.ParentID = &parentID.Int64
	}
	if employeeID.Valid {
		task.EmployeeID = &employeeID.Int64
	}
	if workingDuration.Valid {
		task.WorkingDuration = int(workingDuration.Int64)
	}
	if position.Valid {
		task.Position = position.String
	}

	preds, ok := model.DecodePredecessors(predecessors.String)
	if !ok {
		s.logger.Warn("Unparseable predecessor encoding, treating as empty",
			zap.Int64("task_id", task.ID),
			zap.String("raw", predecessors.String))
	}
	task.Predecessors = preds

	if startDate.Valid && startDate.String != "" {
		if t, err := time.Parse(model.DateLayout, startDate.String); err == nil {
			task.StartDate = &t
		}
	}
	if endDate.Valid && endDate.String != "" {
		if t, err := time.Parse(model.DateLayout, endDate.String); err == nil {
			task.EndDate = &t
		}
	}

	return &task, nil
}

func (s *Store) collectTasks(rows *sql.Rows) ([]*model.Task, error) {
	var tasks []*model.Task
	for rows.Next() {
		task, err := s.scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return tasks, nil
}
