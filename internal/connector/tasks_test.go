package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/featuregraph/internal/graph"
	"github.com/josephgoksu/featuregraph/internal/task"
)

func TestAddTaskToFeature_NumbersTasks(t *testing.T) {
	c, store, _ := newTestConnector(t)
	ctx := context.Background()
	_, err := c.AddFeature(ctx, loginFeature())
	require.NoError(t, err)

	first, err := c.AddTaskToFeature(ctx, "feature-1", task.Task{Name: "Design login form", Stage: task.StageDesign})
	require.NoError(t, err)
	second, err := c.AddTaskToFeature(ctx, "feature-1", task.Task{Name: "Build login API"})
	require.NoError(t, err)

	assert.Equal(t, "task-1-001", first)
	assert.Equal(t, "task-1-002", second)
	assert.True(t, graph.HasEdge(store, graph.EdgeFeatureHasTask, "feature-1", first))

	got, err := c.GetTask(second)
	require.NoError(t, err)
	assert.Equal(t, task.StatusNotStarted, got.Status)
	assert.Equal(t, task.PriorityMedium, got.Priority)
	assert.Equal(t, task.SourceManual, got.Source)
	assert.Equal(t, "feature-1", got.FeatureID)
	assert.Equal(t, 2, got.Order)
}

func TestAddTaskToFeature_Errors(t *testing.T) {
	c, _, _ := newTestConnector(t)
	ctx := context.Background()

	_, err := c.AddTaskToFeature(ctx, "feature-404", task.Task{Name: "orphan"})
	assert.ErrorIs(t, err, ErrFeatureNotFound)

	_, err = c.AddFeature(ctx, loginFeature())
	require.NoError(t, err)

	_, err = c.AddTaskToFeature(ctx, "feature-1", task.Task{ID: "task-x", Name: "one"})
	require.NoError(t, err)
	_, err = c.AddTaskToFeature(ctx, "feature-1", task.Task{ID: "task-x", Name: "again"})
	assert.ErrorIs(t, err, ErrDuplicateTask)

	_, err = c.AddTaskToFeature(ctx, "feature-1", task.Task{Name: "bad dep", Dependencies: []string{"task-missing"}})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = c.AddTaskToFeature(ctx, "feature-1", task.Task{})
	assert.Error(t, err, "name is required")
}

func TestGenerateTasksFromRequirements(t *testing.T) {
	c, _, _ := newTestConnector(t)
	ctx := context.Background()
	_, err := c.AddFeature(ctx, loginFeature())
	require.NoError(t, err)

	ids, err := c.GenerateTasksFromRequirements(ctx, "feature-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"task-1-001", "task-1-002"}, ids)

	tasks, err := c.ListTasks("feature-1")
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "Implement: Validate credentials", tasks[0].Name)
	assert.Equal(t, task.SourceRequirement, tasks[0].Source)
	assert.Equal(t, task.PriorityHigh, tasks[0].Priority)

	_, err = c.AddFeature(ctx, FeatureInput{Feature: Feature{ID: "feature-2", Name: "Bare"}})
	require.NoError(t, err)
	_, err = c.GenerateTasksFromRequirements(ctx, "feature-2")
	assert.ErrorIs(t, err, ErrNoRequirements)
}

func TestCreateTasks_BatchIsAtomic(t *testing.T) {
	c, store, _ := newTestConnector(t)
	ctx := context.Background()
	_, err := c.AddFeature(ctx, loginFeature())
	require.NoError(t, err)
	before := store.Stats()

	_, err = c.CreateTasks(ctx, "feature-1", []TaskDraft{
		{Task: task.Task{Name: "ok"}},
		{Task: task.Task{Name: "forward ref"}, DependsOn: []int{2}},
	})
	require.Error(t, err)
	assert.Equal(t, before, store.Stats())

	ids, err := c.CreateTasks(ctx, "feature-1", []TaskDraft{
		{Task: task.Task{Name: "design", Stage: task.StageDesign}},
		{Task: task.Task{Name: "build", Stage: task.StageImplement}, DependsOn: []int{0}},
	})
	require.NoError(t, err)
	built, err := c.GetTask(ids[1])
	require.NoError(t, err)
	assert.Equal(t, []string{ids[0]}, built.Dependencies)
}

func TestUpdateTask_CompletedAt(t *testing.T) {
	c, _, _ := newTestConnector(t)
	ctx := context.Background()
	_, err := c.AddFeature(ctx, loginFeature())
	require.NoError(t, err)
	id, err := c.AddTaskToFeature(ctx, "feature-1", task.Task{Name: "ship"})
	require.NoError(t, err)

	done, err := c.UpdateTask(ctx, id, map[string]any{"status": "completed"})
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)

	reopened, err := c.UpdateTask(ctx, id, map[string]any{"status": "in-progress"})
	require.NoError(t, err)
	assert.Nil(t, reopened.CompletedAt)

	stored, err := c.GetTask(id)
	require.NoError(t, err)
	assert.Nil(t, stored.CompletedAt)
	assert.Equal(t, task.StatusInProgress, stored.Status)

	_, err = c.UpdateTask(ctx, id, map[string]any{"status": "finished"})
	assert.Error(t, err)
}

func TestAddTaskDependency_RefusesCycles(t *testing.T) {
	c, _, _ := newTestConnector(t)
	ctx := context.Background()
	_, err := c.AddFeature(ctx, loginFeature())
	require.NoError(t, err)
	ids, err := c.CreateTasks(ctx, "feature-1", []TaskDraft{
		{Task: task.Task{Name: "a"}},
		{Task: task.Task{Name: "b"}, DependsOn: []int{0}},
		{Task: task.Task{Name: "c"}, DependsOn: []int{1}},
	})
	require.NoError(t, err)

	err = c.AddTaskDependency(ctx, ids[0], ids[2])
	assert.ErrorIs(t, err, task.ErrCycle)
	err = c.AddTaskDependency(ctx, ids[0], ids[0])
	assert.ErrorIs(t, err, task.ErrCycle)

	require.NoError(t, c.AddTaskDependency(ctx, ids[2], ids[0]))
	got, err := c.GetTask(ids[2])
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{ids[1], ids[0]}, got.Dependencies)
}

func TestFeatureProgress(t *testing.T) {
	c, _, _ := newTestConnector(t)
	ctx := context.Background()
	_, err := c.AddFeature(ctx, loginFeature())
	require.NoError(t, err)
	ids, err := c.GenerateTasksFromRequirements(ctx, "feature-1")
	require.NoError(t, err)
	_, err = c.UpdateTask(ctx, ids[0], map[string]any{"status": "completed"})
	require.NoError(t, err)

	p, err := c.FeatureProgress("feature-1")
	require.NoError(t, err)
	assert.Equal(t, 2, p.Total)
	assert.Equal(t, 1, p.Completed)
}
