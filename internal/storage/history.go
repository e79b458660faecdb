package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/t77yq/cpm-planner/internal/model"
)

// ScheduleRun is a historical record of one schedule computation.
type ScheduleRun struct {
	ID              string    `json:"id"`
	ProjectID       int64     `json:"project_id"`
	Duration        int       `json:"duration"`
	WorkdayDuration int       `json:"workday_duration"`
	CriticalPath    []int64   `json:"critical_path,omitempty"`
	Unassigned      int       `json:"unassigned"`
	CreatedAt       time.Time `json:"created_at"`
}

// RecordRun stores a history record for a completed scheduling run and
// returns the generated run id.
func (s *Store) RecordRun(ctx context.Context, projectID int64, result *model.ScheduleResult) (string, error) {
	id := uuid.New().String()

	var criticalPath string
	if len(result.CriticalPath) > 0 {
		data, err := json.Marshal(result.CriticalPath)
		if err != nil {
			return "", fmt.Errorf("failed to marshal critical path: %w", err)
		}
		criticalPath = string(data)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedule_runs (
			id, project_id, duration, workday_duration, critical_path, unassigned, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id,
		projectID,
		result.Duration,
		result.WorkdayDuration,
		sql.NullString{String: criticalPath, Valid: criticalPath != ""},
		len(result.Unassigned),
		time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to record schedule run: %w", err)
	}
	return id, nil
}

// Runs lists the most recent schedule runs for a project.
func (s *Store) Runs(ctx context.Context, projectID int64, limit int) ([]*ScheduleRun, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, duration, workday_duration, critical_path, unassigned, created_at
		FROM schedule_runs
		WHERE project_id = ?
		ORDER BY created_at DESC LIMIT ?`, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedule runs: %w", err)
	}
	defer rows.Close()

	var runs []*ScheduleRun
	for rows.Next() {
		run := &ScheduleRun{}
		var criticalPath sql.NullString
		if err := rows.Scan(&run.ID, &run.ProjectID, &run.Duration, &run.WorkdayDuration, &criticalPath, &run.Unassigned, &run.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan schedule run: %w", err)
		}
		if criticalPath.Valid && criticalPath.String != "" {
			if err := json.Unmarshal([]byte(criticalPath.String), &run.CriticalPath); err != nil {
				s.logger.Warn("Unparseable critical path in run record",
					zap.String("run_id", run.ID))
			}
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return runs, nil
}

// DeleteRunsBefore deletes run records older than the specified time.
func (s *Store) DeleteRunsBefore(ctx context.Context, before time.Time) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM schedule_runs WHERE created_at < ?`, before)
	if err != nil {
		return fmt.Errorf("failed to delete schedule runs: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	s.logger.Info("Deleted old schedule runs",
		zap.Time("before", before),
		zap.Int64("deleted", affected))

	return nil
}
