// Package importer loads project plans from CSV files. The expected
// layout is one row per task with the columns Name, Duration, Type,
// Position, Predecessors, Parent and Parallel; group tasks may be
// declared implicitly by referencing them in the Parent column, in
// which case their duration is derived from their subtasks (max of
// parallel children, sum of sequential ones).
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/t77yq/cpm-planner/internal/model"
)

// PlannedTask is one parsed plan row, with predecessors referenced by
// task name until import resolves them to ids.
type PlannedTask struct {
	Name         string
	Duration     int
	IsGroup      bool
	Position     string
	Parallel     bool
	Predecessors []string
	Subtasks     []*PlannedTask
}

// TaskStore is the subset of the storage layer the importer writes
// through.
type TaskStore interface {
	CreateTask(ctx context.Context, task *model.Task) (int64, error)
	AddPredecessor(ctx context.Context, taskID, predecessorID int64) error
}

// Importer parses plan files and creates the corresponding tasks.
type Importer struct {
	logger *zap.Logger
	store  TaskStore
}

// New creates an importer writing through the given store.
func New(store TaskStore, logger *zap.Logger) *Importer {
	return &Importer{
		logger: logger.Named("importer"),
		store:  store,
	}
}

// ParsePlan reads a CSV plan into a task tree. Rows naming a parent
// become subtasks of that parent; the parent is created on first
// reference when no explicit group row exists.
func ParsePlan(r io.Reader) ([]*PlannedTask, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read plan header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"name", "duration"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("plan header missing %q column", required)
		}
	}

	field := func(record []string, name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	var plan []*PlannedTask
	groups := make(map[string]*PlannedTask)

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read plan row %d: %w", line, err)
		}

		name := field(record, "name")
		if name == "" {
			continue
		}

		duration, err := strconv.Atoi(field(record, "duration"))
		if err != nil {
			return nil, fmt.Errorf("invalid duration on row %d: %w", line, err)
		}

		task := &PlannedTask{
			Name:     name,
			Duration: duration,
			IsGroup:  strings.EqualFold(field(record, "type"), "group"),
			Position: field(record, "position"),
			Parallel: parseBool(field(record, "parallel")),
		}
		if preds := field(record, "predecessors"); preds != "" {
			for _, p := range strings.Split(preds, ",") {
				if p = strings.TrimSpace(p); p != "" {
					task.Predecessors = append(task.Predecessors, p)
				}
			}
		}

		parent := field(record, "parent")
		if parent == "" {
			if task.IsGroup {
				groups[task.Name] = task
			}
			plan = append(plan, task)
			continue
		}

		group, ok := groups[parent]
		if !ok {
			group = &PlannedTask{Name: parent, IsGroup: true}
			groups[parent] = group
			plan = append(plan, group)
		}
		group.Subtasks = append(group.Subtasks, task)

		// Derived group duration: parallel children overlap,
		// sequential ones stack.
		if task.Parallel {
			if task.Duration > group.Duration {
				group.Duration = task.Duration
			}
		} else {
			group.Duration += task.Duration
		}
	}

	return plan, nil
}

// Import creates the planned tasks in the store under the given
// project and resolves predecessor names to task ids. Predecessors
// naming unknown tasks are skipped with a warning.
func (imp *Importer) Import(ctx context.Context, projectID int64, plan []*PlannedTask) error {
	ids := make(map[string]int64, len(plan))

	for _, planned := range plan {
		id, err := imp.store.CreateTask(ctx, &model.Task{
			ProjectID: projectID,
			Name:      planned.Name,
			Duration:  planned.Duration,
			IsGroup:   planned.IsGroup,
			Position:  planned.Position,
		})
		if err != nil {
			return fmt.Errorf("failed to import task %q: %w", planned.Name, err)
		}
		ids[planned.Name] = id

		for _, sub := range planned.Subtasks {
			subID, err := imp.store.CreateTask(ctx, &model.Task{
				ProjectID: projectID,
				ParentID:  &id,
				Name:      sub.Name,
				Duration:  sub.Duration,
				Position:  sub.Position,
				Parallel:  sub.Parallel,
			})
			if err != nil {
				return fmt.Errorf("failed to import subtask %q: %w", sub.Name, err)
			}
			ids[sub.Name] = subID
		}
	}

	for _, planned := range plan {
		taskID := ids[planned.Name]
		for _, predName := range planned.Predecessors {
			predID, ok := ids[predName]
			if !ok {
				imp.logger.Warn("Predecessor names unknown task, skipping",
					zap.String("task", planned.Name),
					zap.String("predecessor", predName))
				continue
			}
			if err := imp.store.AddPredecessor(ctx, taskID, predID); err != nil {
				return fmt.Errorf("failed to link predecessor %q -> %q: %w", predName, planned.Name, err)
			}
		}
	}

	imp.logger.Info("Imported project plan",
		zap.Int64("project_id", projectID),
		zap.Int("tasks", len(ids)))
	return nil
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "yes", "true", "1", "y":
		return true
	}
	return false
}
