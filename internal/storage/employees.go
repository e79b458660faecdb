package storage

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/t77yq/cpm-planner/internal/model"
	"github.com/t77yq/cpm-planner/internal/schedule"
)

// CreateEmployee stores a new employee and returns their id.
func (s *Store) CreateEmployee(ctx context.Context, employee *model.Employee) (int64, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (name, position, days_off)
		VALUES (?, ?, ?)`,
		employee.Name,
		employee.Position,
		model.EncodeDaysOff(employee.DaysOff),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to create employee: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get employee id: %w", err)
	}
	return id, nil
}

// Employee retrieves a single employee by id.
func (s *Store) Employee(ctx context.Context, id int64) (*model.Employee, error) {
	var employee model.Employee
	var daysOff string

	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, position, days_off
		FROM employees WHERE id = ?`, id).Scan(
		&employee.ID,
		&employee.Name,
		&employee.Position,
		&daysOff,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, schedule.ErrEmployeeNotFound
		}
		return nil, fmt.Errorf("failed to scan employee: %w", err)
	}

	s.decodeDaysOff(&employee, daysOff)
	return &employee, nil
}

// EmployeesByPosition lists every employee holding the given position,
// in id order.
func (s *Store) EmployeesByPosition(ctx context.Context, position string) ([]*model.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, position, days_off
		FROM employees WHERE position = ? ORDER BY id`, position)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()
	return s.collectEmployees(rows)
}

// Employees lists everyone in the directory in id order.
func (s *Store) Employees(ctx context.Context) ([]*model.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, position, days_off
		FROM employees ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()
	return s.collectEmployees(rows)
}

func (s *Store) collectEmployees(rows *sql.Rows) ([]*model.Employee, error) {
	var employees []*model.Employee
	for rows.Next() {
		var employee model.Employee
		var daysOff string
		if err := rows.Scan(&employee.ID, &employee.Name, &employee.Position, &daysOff); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		s.decodeDaysOff(&employee, daysOff)
		employees = append(employees, &employee)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %w", err)
	}
	return employees, nil
}

func (s *Store) decodeDaysOff(employee *model.Employee, raw string) {
	days, ok := model.DecodeDaysOff(raw)
	if !ok {
		s.logger.Warn("Unparseable days-off encoding, treating as empty",
			zap.Int64("employee_id", employee.ID),
			zap.String("raw", raw))
	}
	employee.DaysOff = days
}
