package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/t77yq/cpm-planner/internal/model"
	"github.com/t77yq/cpm-planner/internal/schedule"
)

// CreateProject stores a new project and returns its id.
func (s *Store) CreateProject(ctx context.Context, project *model.Project) (int64, error) {
	status := project.Status
	if status == "" {
		status = model.ProjectStatusActive
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO projects (name, start_date, status, created_at)
		VALUES (?, ?, ?, ?)`,
		project.Name,
		project.StartDate.Format(model.DateLayout),
		status,
		time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get project id: %w", err)
	}
	return id, nil
}

// Project retrieves a project by id.
func (s *Store) Project(ctx context.Context, id int64) (*model.Project, error) {
	var project model.Project
	var startDate string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, start_date, status, created_at
		FROM projects WHERE id = ?`, id).Scan(
		&project.ID,
		&project.Name,
		&startDate,
		&project.Status,
		&project.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, schedule.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to scan project: %w", err)
	}

	project.StartDate, err = time.Parse(model.DateLayout, startDate)
	if err != nil {
		return nil, fmt.Errorf("invalid project start date %q: %w", startDate, err)
	}
	return &project, nil
}

// ActiveProjects lists all projects with active status.
func (s *Store) ActiveProjects(ctx context.Context) ([]*model.Project, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, start_date, status, created_at
		FROM projects WHERE status = ? ORDER BY id`, model.ProjectStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*model.Project
	for rows.Next() {
		var project model.Project
		var startDate string
		if err := rows.Scan(&project.ID, &project.Name, &startDate, &project.Status, &project.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		project.StartDate, err = time.Parse(model.DateLayout, startDate)
		if err != nil {
			return nil, fmt.Errorf("invalid project start date %q: %w", startDate, err)
		}
		projects = append(projects, &project)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return projects, nil
}
