// Package storage persists projects, tasks, employees and schedule
// runs in SQLite. It implements the scheduling engine's collaborator
// interfaces; the engine itself never sees SQL.
package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Store wraps a SQLite database holding the planner's data.
type Store struct {
	logger *zap.Logger
	db     *sql.DB
}

// New opens (or creates) the database at dbPath and ensures the
// schema exists.
func New(logger *zap.Logger, dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{
		logger: logger.Named("storage"),
		db:     db,
	}

	if err := store.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initialize creates the necessary tables if they don't exist
func (s *Store) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS projects (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			start_date TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'active',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS employees (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			position TEXT NOT NULL,
			days_off TEXT NOT NULL DEFAULT '[]'
		);
		CREATE TABLE IF NOT EXISTS tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL,
			parent_id INTEGER,
			name TEXT NOT NULL,
			duration INTEGER NOT NULL,
			working_duration INTEGER,
			is_group INTEGER NOT NULL DEFAULT 0,
			parallel INTEGER NOT NULL DEFAULT 0,
			position TEXT,
			employee_id INTEGER,
			predecessors TEXT NOT NULL DEFAULT '[]',
			start_date TEXT,
			end_date TEXT
		);
		CREATE TABLE IF NOT EXISTS schedule_runs (
			id TEXT PRIMARY KEY,
			project_id INTEGER NOT NULL,
			duration INTEGER NOT NULL,
			workday_duration INTEGER NOT NULL,
			critical_path TEXT,
			unassigned INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_project_id ON tasks(project_id);
		CREATE INDEX IF NOT EXISTS idx_tasks_parent_id ON tasks(parent_id);
		CREATE INDEX IF NOT EXISTS idx_employees_position ON employees(position);
		CREATE INDEX IF NOT EXISTS idx_schedule_runs_project_id ON schedule_runs(project_id);
		CREATE INDEX IF NOT EXISTS idx_schedule_runs_created_at ON schedule_runs(created_at);
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}
