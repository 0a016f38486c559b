package task

import (
	"errors"
	"fmt"
)

// ErrCycle is returned when task dependencies loop back on themselves.
var ErrCycle = errors.New("dependency cycle")

// VerifyDAG checks that the dependency edges among tasks form no cycle.
// Dependencies on tasks outside the slice are treated as already satisfied.
func VerifyDAG(tasks []Task) error {
	taskMap := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		if t.ID == "" {
			return errors.New("task ID cannot be empty")
		}
		taskMap[t.ID] = t
	}

	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var visit func(id string) error
	visit = func(id string) error {
		visited[id] = true
		onStack[id] = true
		defer func() { onStack[id] = false }()

		t, ok := taskMap[id]
		if !ok {
			return nil
		}
		for _, dep := range t.Dependencies {
			if onStack[dep] {
				return fmt.Errorf("%w: %s -> %s", ErrCycle, id, dep)
			}
			if !visited[dep] {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for _, t := range tasks {
		if !visited[t.ID] {
			if err := visit(t.ID); err != nil {
				return err
			}
		}
	}
	return nil
}

// TopologicalSort returns tasks with every dependency ahead of its
// dependents. Unrelated tasks keep their input order.
func TopologicalSort(tasks []Task) ([]Task, error) {
	if err := VerifyDAG(tasks); err != nil {
		return nil, err
	}
	taskMap := make(map[string]Task, len(tasks))
	for _, t := range tasks {
		taskMap[t.ID] = t
	}

	sorted := make([]Task, 0, len(tasks))
	visited := make(map[string]bool)
	var visit func(id string)
	visit = func(id string) {
		if visited[id] {
			return
		}
		visited[id] = true
		t, ok := taskMap[id]
		if !ok {
			return
		}
		for _, dep := range t.Dependencies {
			visit(dep)
		}
		sorted = append(sorted, t)
	}
	for _, t := range tasks {
		visit(t.ID)
	}
	return sorted, nil
}
