package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/featuregraph/internal/connector"
	"github.com/josephgoksu/featuregraph/internal/task"
)

func seedChain(t *testing.T) (*connector.Connector, []string) {
	t.Helper()
	c := newTestConnector(t)
	addFeature(t, c, connector.FeatureInput{Feature: connector.Feature{ID: "feature-3", Name: "Reports"}})
	ids, err := c.CreateTasks(context.Background(), "feature-3", []connector.TaskDraft{
		{Task: task.Task{Name: "Design report layout", Stage: task.StageDesign}},
		{Task: task.Task{Name: "Build report query", Stage: task.StageImplement}, DependsOn: []int{0}},
		{Task: task.Task{Name: "Test report totals", Stage: task.StageTest}, DependsOn: []int{1}},
	})
	require.NoError(t, err)
	return c, ids
}

func TestService_UpdateStatusRequiresDependencies(t *testing.T) {
	c, ids := seedChain(t)
	s := NewService(c)
	ctx := context.Background()

	_, err := s.UpdateStatus(ctx, ids[1], task.StatusInProgress)
	assert.ErrorIs(t, err, ErrDependenciesIncomplete)

	_, err = s.UpdateStatus(ctx, ids[1], task.StatusBlocked)
	assert.NoError(t, err, "blocking does not need dependencies")

	_, err = s.UpdateStatus(ctx, ids[0], "done")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = s.UpdateStatus(ctx, "task-missing", task.StatusCompleted)
	assert.ErrorIs(t, err, connector.ErrTaskNotFound)
}

func TestService_RollUp(t *testing.T) {
	c, ids := seedChain(t)
	s := NewService(c)
	ctx := context.Background()

	_, err := s.UpdateStatus(ctx, ids[0], task.StatusInProgress)
	require.NoError(t, err)
	f, err := c.GetFeature("feature-3")
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, f.Status)

	for _, id := range ids {
		done, err := s.UpdateStatus(ctx, id, task.StatusCompleted)
		require.NoError(t, err)
		assert.NotNil(t, done.CompletedAt)
	}
	f, err = c.GetFeature("feature-3")
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, f.Status)

	_, err = s.UpdateStatus(ctx, ids[2], task.StatusNotStarted)
	require.NoError(t, err)
	f, err = c.GetFeature("feature-3")
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, f.Status)

	p, err := s.Progress("feature-3")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Total)
	assert.Equal(t, 2, p.Completed)
}

func TestService_NextTasks(t *testing.T) {
	c, ids := seedChain(t)
	s := NewService(c)
	ctx := context.Background()

	next, err := s.NextTasks("feature-3", 0)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, ids[0], next[0].ID)

	_, err = s.UpdateStatus(ctx, ids[0], task.StatusCompleted)
	require.NoError(t, err)
	next, err = s.NextTasks("feature-3", 1)
	require.NoError(t, err)
	require.Len(t, next, 1)
	assert.Equal(t, ids[1], next[0].ID)

	_, err = s.NextTasks("feature-404", 0)
	assert.ErrorIs(t, err, connector.ErrFeatureNotFound)
}
