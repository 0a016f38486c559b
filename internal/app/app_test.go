package app

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/featuregraph/internal/graph"
	"github.com/josephgoksu/featuregraph/internal/planner"
	"github.com/josephgoksu/featuregraph/internal/task"
	"github.com/josephgoksu/featuregraph/internal/telemetry"
	"github.com/josephgoksu/featuregraph/internal/validation"
)

type recordingTelemetry struct {
	events []string
	closed bool
}

func (r *recordingTelemetry) Track(event string, _ telemetry.Properties) {
	r.events = append(r.events, event)
}

func (r *recordingTelemetry) Close() error {
	r.closed = true
	return nil
}

func newTestApp(t *testing.T) (*App, afero.Fs, *recordingTelemetry) {
	t.Helper()
	fs := afero.NewMemMapFs()
	cfg := validation.DefaultConfig()
	cfg.Validators.Policy.Dir = "/data/policies"
	rec := &recordingTelemetry{}
	a, err := New(context.Background(), Options{
		Fs:         fs,
		GraphPath:  "/data/graph.json",
		TagCache:   "/data/tag_cache.json",
		Lemmatize:  true,
		Validation: cfg,
		Telemetry:  rec,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a, fs, rec
}

func TestNew_UnknownBackend(t *testing.T) {
	_, err := New(context.Background(), Options{Fs: afero.NewMemMapFs(), Backend: "mongo", GraphPath: "/g"})
	assert.ErrorContains(t, err, "unknown graph backend")
}

func TestNew_BrokenPolicyFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/data/policies/bad.rego", []byte("package featuregraph.docs\ndeny[msg {"), 0o644))
	cfg := validation.DefaultConfig()
	cfg.Validators.Policy.Dir = "/data/policies"

	_, err := New(context.Background(), Options{Fs: fs, GraphPath: "/data/graph.json", Validation: cfg})
	assert.ErrorContains(t, err, "policy engine")
}

func TestNew_SQLiteBackend(t *testing.T) {
	a, err := New(context.Background(), Options{
		Backend:    "sqlite",
		GraphPath:  ":memory:",
		Validation: validation.DefaultConfig(),
	})
	require.NoError(t, err)
	defer func() { require.NoError(t, a.Close()) }()

	_, err = a.AddFeature(context.Background(), map[string]any{"id": "f1", "name": "Search"})
	require.NoError(t, err)
	assert.Equal(t, 1, a.Store.Stats().NodesByType[graph.NodeFeature])
}

func TestAddFeatureAndGenerateTasks(t *testing.T) {
	a, _, rec := newTestApp(t)
	ctx := context.Background()

	f, err := a.AddFeature(ctx, map[string]any{
		"id":           "feature-login",
		"name":         "User Login",
		"tags":         []any{"Authentication"},
		"requirements": []any{"Design the login form", "Implement password check"},
	})
	require.NoError(t, err)
	assert.Equal(t, "User Login", f.Name)
	assert.False(t, a.HasLLM())

	_, err = a.GenerateTasks(ctx, f.ID, GenerateOptions{RequireLLM: true})
	assert.ErrorIs(t, err, ErrLLMNotConfigured)

	plan, err := a.GenerateTasks(ctx, f.ID, GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, planner.PlanHeuristic, plan.Source)
	assert.NotEmpty(t, plan.TaskIDs)

	_, err = a.GenerateTasks(ctx, f.ID, GenerateOptions{})
	assert.True(t, errors.Is(err, planner.ErrAlreadyPlanned))

	assert.Equal(t, []string{telemetry.EventFeatureAdded, telemetry.EventTasksGenerated}, rec.events)
}

func TestGenerateTasks_RequirementsOnly(t *testing.T) {
	a, _, _ := newTestApp(t)
	ctx := context.Background()
	_, err := a.AddFeature(ctx, map[string]any{
		"id":           "f1",
		"name":         "Export",
		"requirements": []any{"CSV export", "PDF export"},
	})
	require.NoError(t, err)

	plan, err := a.GenerateTasks(ctx, "f1", GenerateOptions{RequirementsOnly: true})
	require.NoError(t, err)
	assert.Equal(t, "requirements", plan.Source)
	assert.Len(t, plan.TaskIDs, 2)
}

func TestAddTask(t *testing.T) {
	a, _, _ := newTestApp(t)
	ctx := context.Background()
	_, err := a.AddFeature(ctx, map[string]any{"id": "f1", "name": "Export"})
	require.NoError(t, err)

	got, err := a.AddTask(ctx, "f1", task.Task{Name: "Write exporter", EstimatedHours: 3})
	require.NoError(t, err)
	assert.Equal(t, "f1", got.FeatureID)
	assert.Equal(t, task.StatusNotStarted, got.Status)
}

func TestClose_LeavesTelemetryOpen(t *testing.T) {
	a, _, rec := newTestApp(t)
	require.NoError(t, a.Close())
	assert.False(t, rec.closed)
}

func TestAddTask_WithDependencyPrefix(t *testing.T) {
	a, _, _ := newTestApp(t)
	ctx := context.Background()
	_, err := a.AddFeature(ctx, map[string]any{"id": "f1", "name": "Export"})
	require.NoError(t, err)

	first, err := a.AddTask(ctx, "f1", task.Task{Name: "Design format"})
	require.NoError(t, err)
	second, err := a.AddTask(ctx, "f1", task.Task{Name: "Write exporter"}, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, second.Dependencies)

	_, err = a.UpdateTaskStatus(ctx, second.ID, task.StatusInProgress)
	assert.ErrorIs(t, err, planner.ErrDependenciesIncomplete)

	done, err := a.UpdateTaskStatus(ctx, first.ID, task.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, task.StatusCompleted, done.Status)

	_, err = a.AddTask(ctx, "f1", task.Task{Name: "Ship"}, "no-such-task")
	assert.Error(t, err)
}
