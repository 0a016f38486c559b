package planner

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/josephgoksu/featuregraph/internal/connector"
	"github.com/josephgoksu/featuregraph/internal/task"
)

var (
	// ErrDependenciesIncomplete is returned when a task is started or
	// completed before the tasks it depends on.
	ErrDependenciesIncomplete = errors.New("dependencies not completed")

	ErrInvalidStatus = errors.New("invalid status")
)

// Service tracks task status and rolls it up into feature status.
type Service struct {
	conn *connector.Connector
}

// NewService returns a Service over conn.
func NewService(conn *connector.Connector) *Service {
	return &Service{conn: conn}
}

// UpdateStatus moves a task to status. Moving to in-progress or completed
// requires every dependency to be completed. The owning feature's status is
// recomputed afterwards.
func (s *Service) UpdateStatus(ctx context.Context, taskID string, status task.Status) (task.Task, error) {
	if !status.Valid() {
		return task.Task{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	cur, err := s.conn.GetTask(taskID)
	if err != nil {
		return task.Task{}, err
	}
	if status == task.StatusInProgress || status == task.StatusCompleted {
		if pending := s.pendingDependencies(cur); len(pending) > 0 {
			return task.Task{}, fmt.Errorf("%w: %s waits on %s", ErrDependenciesIncomplete, taskID, strings.Join(pending, ", "))
		}
	}
	updated, err := s.conn.UpdateTask(ctx, taskID, map[string]any{"status": string(status)})
	if err != nil {
		return task.Task{}, err
	}
	if _, err := s.RollUp(ctx, updated.FeatureID); err != nil {
		return updated, fmt.Errorf("roll up feature %s: %w", updated.FeatureID, err)
	}
	return updated, nil
}

func (s *Service) pendingDependencies(t task.Task) []string {
	var pending []string
	for _, id := range t.Dependencies {
		dep, err := s.conn.GetTask(id)
		if err != nil || dep.Status != task.StatusCompleted {
			pending = append(pending, id)
		}
	}
	return pending
}

// RollUp derives the feature status from its tasks: all completed gives
// completed, any started gives in-progress. Features without tasks, or whose
// tasks are all untouched, keep their status.
func (s *Service) RollUp(ctx context.Context, featureID string) (task.Status, error) {
	f, err := s.conn.GetFeature(featureID)
	if err != nil {
		return "", err
	}
	tasks, err := s.conn.ListTasks(featureID)
	if err != nil {
		return "", err
	}
	p := task.Summarize(featureID, tasks)
	next := f.Status
	switch {
	case p.Total == 0:
		return f.Status, nil
	case p.Completed == p.Total:
		next = task.StatusCompleted
	case p.InProgress > 0 || p.Completed > 0:
		next = task.StatusInProgress
	case f.Status == task.StatusCompleted || f.Status == task.StatusInProgress:
		next = task.StatusNotStarted
	}
	if next == f.Status {
		return next, nil
	}
	if _, err := s.conn.UpdateFeature(ctx, featureID, map[string]any{"status": string(next)}); err != nil {
		return "", err
	}
	return next, nil
}

// Progress summarizes the feature's tasks.
func (s *Service) Progress(featureID string) (task.Progress, error) {
	return s.conn.FeatureProgress(featureID)
}

// NextTasks returns up to limit not-started tasks whose dependencies are all
// completed, in dependency order. limit <= 0 returns all of them.
func (s *Service) NextTasks(featureID string, limit int) ([]task.Task, error) {
	tasks, err := s.conn.ListTasks(featureID)
	if err != nil {
		return nil, err
	}
	ordered, err := task.TopologicalSort(tasks)
	if err != nil {
		return nil, err
	}
	var out []task.Task
	for _, t := range ordered {
		if limit > 0 && len(out) >= limit {
			break
		}
		if t.Status == task.StatusNotStarted && len(s.pendingDependencies(t)) == 0 {
			out = append(out, t)
		}
	}
	return out, nil
}
