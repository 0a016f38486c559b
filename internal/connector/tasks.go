package connector

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/josephgoksu/featuregraph/internal/graph"
	"github.com/josephgoksu/featuregraph/internal/task"
	"github.com/josephgoksu/featuregraph/internal/util"
)

// TaskDraft is a task waiting to be created. DependsOn holds positions of
// earlier drafts in the same batch; Task.Dependencies holds ids of tasks that
// already exist.
type TaskDraft struct {
	Task      task.Task
	DependsOn []int
}

// AddTaskToFeature creates one task under the feature. Without an explicit id
// the task is numbered after the feature's existing tasks.
func (c *Connector) AddTaskToFeature(ctx context.Context, featureID string, t task.Task) (string, error) {
	ids, err := c.CreateTasks(ctx, featureID, []TaskDraft{{Task: t}})
	if err != nil {
		return "", err
	}
	return ids[0], nil
}

// GenerateTasksFromRequirements creates one task per requirement of the feature.
func (c *Connector) GenerateTasksFromRequirements(ctx context.Context, featureID string) ([]string, error) {
	f, err := c.GetFeature(featureID)
	if err != nil {
		return nil, err
	}
	if len(f.Requirements) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRequirements, featureID)
	}
	drafts := make([]TaskDraft, 0, len(f.Requirements))
	for _, req := range f.Requirements {
		req = strings.TrimSpace(req)
		if req == "" {
			continue
		}
		drafts = append(drafts, TaskDraft{Task: task.Task{
			Name:        "Implement: " + util.Truncate(req, 120),
			Description: req,
			Priority:    f.Priority,
			Stage:       task.StageImplement,
			Source:      task.SourceRequirement,
		}})
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRequirements, featureID)
	}
	return c.CreateTasks(ctx, featureID, drafts)
}

// CreateTasks adds a batch of tasks to a feature atomically, wiring
// feature_has_task and task_depends_on edges, then saves once.
func (c *Connector) CreateTasks(ctx context.Context, featureID string, drafts []TaskDraft) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.GetFeature(featureID); err != nil {
		return nil, err
	}
	seq := len(graph.ConnectedByType(c.store, featureID, graph.Outgoing, graph.EdgeFeatureHasTask))
	now := c.now().UTC()

	j := newJournal(c.store)
	ids := make([]string, 0, len(drafts))
	fail := func(err error) ([]string, error) {
		j.rollback()
		return nil, err
	}

	for i, d := range drafts {
		t := d.Task
		seq++
		if t.ID == "" {
			t.ID = util.TaskID(featureID, seq)
		}
		if _, exists := c.store.GetNode(t.ID); exists {
			return fail(fmt.Errorf("%w: %s", ErrDuplicateTask, t.ID))
		}
		t.FeatureID = featureID
		t.CreatedAt, t.UpdatedAt = now, now
		if t.Source == "" {
			t.Source = task.SourceManual
		}
		if t.Order == 0 {
			t.Order = seq
		}
		if err := t.Validate(); err != nil {
			return fail(fmt.Errorf("task %s: %w", t.ID, err))
		}

		deps := make([]string, 0, len(t.Dependencies)+len(d.DependsOn))
		for _, depID := range t.Dependencies {
			if n, ok := c.store.GetNode(depID); !ok || n.Type != graph.NodeTask {
				return fail(fmt.Errorf("%w: dependency %s", ErrTaskNotFound, depID))
			}
			deps = append(deps, depID)
		}
		for _, pos := range d.DependsOn {
			if pos < 0 || pos >= i {
				return fail(fmt.Errorf("task %s: dependency position %d is not an earlier draft", t.ID, pos))
			}
			deps = append(deps, ids[pos])
		}

		if _, err := j.addNode(t.ID, graph.NodeTask, taskProperties(t), map[string]any{"source": t.Source}); err != nil {
			return fail(fmt.Errorf("create task %s: %w", t.ID, err))
		}
		if _, err := j.addEdge(graph.EdgeFeatureHasTask, featureID, t.ID, nil); err != nil {
			return fail(err)
		}
		for _, dep := range deps {
			if err := c.ensureEdge(j, graph.EdgeTaskDependsOn, t.ID, dep); err != nil {
				return fail(err)
			}
		}
		ids = append(ids, t.ID)
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if err := c.store.Save(); err != nil {
		return fail(fmt.Errorf("save graph: %w", err))
	}
	return ids, nil
}

// GetTask returns a task with its dependency ids filled in.
func (c *Connector) GetTask(id string) (task.Task, error) {
	n, ok := c.store.GetNode(id)
	if !ok || n.Type != graph.NodeTask {
		return task.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return c.taskFromNode(n)
}

// ListTasks returns the feature's tasks ordered by Order, then id.
func (c *Connector) ListTasks(featureID string) ([]task.Task, error) {
	if _, err := c.GetFeature(featureID); err != nil {
		return nil, err
	}
	nodes := graph.ConnectedByType(c.store, featureID, graph.Outgoing, graph.EdgeFeatureHasTask)
	out := make([]task.Task, 0, len(nodes))
	for _, n := range nodes {
		t, err := c.taskFromNode(n)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Order != out[j].Order {
			return out[i].Order < out[j].Order
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// TaskIDs lists every task id in the graph.
func (c *Connector) TaskIDs() []string {
	nodes := c.store.GetNodesByType(graph.NodeTask)
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

// UpdateTask merges updates into the task and validates the result.
func (c *Connector) UpdateTask(ctx context.Context, id string, updates map[string]any) (task.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cur, err := c.GetTask(id)
	if err != nil {
		return task.Task{}, err
	}
	merged := taskProperties(cur)
	for k, v := range updates {
		switch k {
		case "id", "feature_id", "created_at", "dependencies":
			continue
		}
		merged[k] = v
	}
	var next task.Task
	if err := decodeRecord(merged, &next); err != nil {
		return task.Task{}, fmt.Errorf("decode update: %w", err)
	}
	next.ID, next.Dependencies = cur.ID, cur.Dependencies
	next.UpdatedAt = c.now().UTC()
	if next.Status == task.StatusCompleted && next.CompletedAt == nil {
		done := next.UpdatedAt
		next.CompletedAt = &done
	} else if next.Status != task.StatusCompleted {
		next.CompletedAt = nil
	}
	if err := next.Validate(); err != nil {
		return task.Task{}, err
	}

	j := newJournal(c.store)
	props := taskProperties(next)
	if next.CompletedAt == nil {
		props["completed_at"] = nil
	}
	if _, err := j.updateNode(id, props); err != nil {
		j.rollback()
		return task.Task{}, err
	}
	if err := ctx.Err(); err != nil {
		j.rollback()
		return task.Task{}, err
	}
	if err := c.store.Save(); err != nil {
		j.rollback()
		return task.Task{}, fmt.Errorf("save graph: %w", err)
	}
	return next, nil
}

// AddTaskDependency makes taskID depend on dependsOn, refusing edges that
// would close a cycle.
func (c *Connector) AddTaskDependency(ctx context.Context, taskID, dependsOn string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.GetTask(taskID); err != nil {
		return err
	}
	if _, err := c.GetTask(dependsOn); err != nil {
		return err
	}
	if c.reachable(dependsOn, taskID) {
		return fmt.Errorf("%w: %s -> %s", task.ErrCycle, taskID, dependsOn)
	}
	j := newJournal(c.store)
	if err := c.ensureEdge(j, graph.EdgeTaskDependsOn, taskID, dependsOn); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		j.rollback()
		return err
	}
	if err := c.store.Save(); err != nil {
		j.rollback()
		return fmt.Errorf("save graph: %w", err)
	}
	return nil
}

// reachable reports whether to can be reached from from along task_depends_on edges.
func (c *Connector) reachable(from, to string) bool {
	if from == to {
		return true
	}
	seen := map[string]bool{from: true}
	stack := []string{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range c.store.EdgesOf(cur, graph.Outgoing) {
			if e.Type != graph.EdgeTaskDependsOn || seen[e.Target] {
				continue
			}
			if e.Target == to {
				return true
			}
			seen[e.Target] = true
			stack = append(stack, e.Target)
		}
	}
	return false
}

func (c *Connector) taskFromNode(n *graph.Node) (task.Task, error) {
	var t task.Task
	if err := decodeRecord(n.Properties, &t); err != nil {
		return task.Task{}, fmt.Errorf("decode task %s: %w", n.ID, err)
	}
	t.ID = n.ID
	t.Dependencies = nil
	for _, e := range c.store.EdgesOf(n.ID, graph.Outgoing) {
		if e.Type == graph.EdgeTaskDependsOn {
			t.Dependencies = append(t.Dependencies, e.Target)
		}
	}
	return t, nil
}

// FeatureProgress summarizes task completion for a feature.
func (c *Connector) FeatureProgress(featureID string) (task.Progress, error) {
	tasks, err := c.ListTasks(featureID)
	if err != nil {
		return task.Progress{}, err
	}
	return task.Summarize(featureID, tasks), nil
}

