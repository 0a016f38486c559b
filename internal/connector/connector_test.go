package connector

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/featuregraph/internal/graph"
	"github.com/josephgoksu/featuregraph/internal/tags"
	"github.com/josephgoksu/featuregraph/internal/task"
)

type failingSaveStore struct {
	*graph.MemoryStore
	err error
}

func (s *failingSaveStore) Save() error { return s.err }

func newTestConnector(t *testing.T) (*Connector, *graph.FileStore, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := graph.OpenFileStore(fs, "/kg/graph.json")
	require.NoError(t, err)
	tm := tags.NewManager(tags.Options{Fs: fs, CachePath: "/kg/tags.json", Lemmatize: true})
	return New(store, tm), store, fs
}

func loginFeature() FeatureInput {
	return FeatureInput{
		Feature: Feature{
			ID:           "feature-1",
			Name:         "User Login",
			Description:  "Email and password sign-in",
			Tags:         []string{"Authentication", "UI"},
			Domain:       "Security",
			Purpose:      "Access Control",
			Requirements: []string{"Validate credentials", "Lock account after 5 failures"},
			UserStories:  []string{"As a user, I want to sign in so that I can see my dashboard"},
			Priority:     task.PriorityHigh,
			TestCoverage: 40,
			MilestoneID:  "milestone-1",
			PhaseID:      "phase-1",
			ModuleID:     "module-auth",
		},
		MilestoneName: "MVP",
		ModuleName:    "Auth",
		Dependencies:  []Dependency{{ID: "feature-0", Name: "User Accounts"}},
	}
}

func TestAddFeature_WiresGraph(t *testing.T) {
	c, store, fs := newTestConnector(t)
	ctx := context.Background()

	id, err := c.AddFeature(ctx, loginFeature())
	require.NoError(t, err)
	assert.Equal(t, "feature-1", id)

	m, ok := store.GetNode("milestone-1")
	require.True(t, ok)
	assert.Equal(t, graph.NodeMilestone, m.Type)
	assert.Equal(t, "MVP", m.String("name"))

	assert.True(t, graph.HasEdge(store, graph.EdgeMilestoneContainsPhase, "milestone-1", "phase-1"))
	assert.True(t, graph.HasEdge(store, graph.EdgePhaseContainsModule, "phase-1", "module-auth"))
	assert.True(t, graph.HasEdge(store, graph.EdgeModuleContainsFeature, "module-auth", "feature-1"))
	assert.False(t, graph.HasEdge(store, graph.EdgePhaseContainsFeature, "phase-1", "feature-1"), "only the deepest ancestor links the feature")

	dep, ok := store.GetNode("feature-0")
	require.True(t, ok)
	assert.Equal(t, true, dep.Properties["placeholder"])
	assert.True(t, graph.HasEdge(store, graph.EdgeFeatureDependsOn, "feature-1", "feature-0"))

	for _, concept := range []string{"concept-authentication", "concept-ui"} {
		assert.True(t, graph.HasEdge(store, graph.EdgeFeatureRelatedToConcept, "feature-1", concept), concept)
	}
	auth, _ := store.GetNode("concept-authentication")
	assert.Equal(t, "Authentication", auth.String("name"))
	assert.True(t, graph.HasEdge(store, graph.EdgeFeatureBelongsToDomain, "feature-1", "domain-security"))
	assert.True(t, graph.HasEdge(store, graph.EdgeFeatureHasPurpose, "feature-1", "purpose-access-control"))

	f, err := c.GetFeature("feature-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"authentication", "ui"}, f.Tags)
	assert.Equal(t, task.StatusNotStarted, f.Status)
	assert.False(t, f.CreatedAt.IsZero())

	exists, _ := afero.Exists(fs, "/kg/graph.json")
	assert.True(t, exists, "graph should be saved")
	exists, _ = afero.Exists(fs, "/kg/tags.json")
	assert.True(t, exists, "tag cache should be saved")
}

func TestAddFeature_DuplicateLeavesGraphUntouched(t *testing.T) {
	c, store, _ := newTestConnector(t)
	ctx := context.Background()

	_, err := c.AddFeature(ctx, loginFeature())
	require.NoError(t, err)
	before := store.Stats()

	_, err = c.AddFeature(ctx, loginFeature())
	require.ErrorIs(t, err, ErrDuplicateFeature)
	assert.Equal(t, before, store.Stats())
}

func TestAddFeature_UpgradesPlaceholder(t *testing.T) {
	c, store, _ := newTestConnector(t)
	ctx := context.Background()
	_, err := c.AddFeature(ctx, loginFeature())
	require.NoError(t, err)

	_, err = c.AddFeature(ctx, FeatureInput{Feature: Feature{ID: "feature-0", Name: "User Accounts", Domain: "Security"}})
	require.NoError(t, err)

	f, err := c.GetFeature("feature-0")
	require.NoError(t, err)
	assert.False(t, f.Placeholder)
	assert.Equal(t, "Security", f.Domain)
	assert.True(t, graph.HasEdge(store, graph.EdgeFeatureDependsOn, "feature-1", "feature-0"), "existing dependency edge survives the upgrade")
}

func TestAddFeature_RollsBackOnSaveFailure(t *testing.T) {
	store := &failingSaveStore{MemoryStore: graph.NewMemoryStore(), err: errors.New("disk full")}
	c := New(store, tags.NewManager(tags.Options{Fs: afero.NewMemMapFs()}))

	_, err := c.AddFeature(context.Background(), loginFeature())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	st := store.Stats()
	assert.Zero(t, st.Nodes)
	assert.Zero(t, st.Edges)
}

func TestAddFeature_RollsBackOnTypeConflict(t *testing.T) {
	c, store, _ := newTestConnector(t)
	_, err := store.AddNode("module-auth", graph.NodeConcept, nil, nil)
	require.NoError(t, err)
	before := store.Stats()

	_, err = c.AddFeature(context.Background(), loginFeature())
	require.ErrorIs(t, err, ErrWrongNodeType)
	assert.Equal(t, before, store.Stats())
	assert.Empty(t, graph.Check(store))
}

func TestAddFeature_RejectsDependencyOnNonFeature(t *testing.T) {
	c, store, _ := newTestConnector(t)
	_, err := store.AddNode("task-feature-9-001", graph.NodeTask, map[string]any{"name": "Write schema"}, nil)
	require.NoError(t, err)
	before := store.Stats()

	in := loginFeature()
	in.Dependencies = append(in.Dependencies, Dependency{ID: "task-feature-9-001"})
	_, err = c.AddFeature(context.Background(), in)
	require.ErrorIs(t, err, ErrWrongNodeType)
	assert.Equal(t, before, store.Stats())
	assert.False(t, graph.HasEdge(store, graph.EdgeFeatureDependsOn, "feature-1", "task-feature-9-001"))
	assert.Empty(t, graph.Check(store))
}

func TestAddFeature_Validation(t *testing.T) {
	c, _, _ := newTestConnector(t)
	ctx := context.Background()

	_, err := c.AddFeature(ctx, FeatureInput{Feature: Feature{ID: "feature-9"}})
	assert.Error(t, err, "name is required")

	_, err = c.AddFeature(ctx, FeatureInput{Feature: Feature{ID: "feature-9", Name: "x", TestCoverage: 120}})
	assert.Error(t, err, "coverage above 100")

	_, err = c.AddFeature(ctx, FeatureInput{Feature: Feature{ID: "feature-9", Name: "x"}, Dependencies: []Dependency{{ID: "feature-9"}}})
	assert.Error(t, err, "self dependency")
}

func TestDecodeFeatureInput(t *testing.T) {
	in, err := DecodeFeatureInput(map[string]any{
		"id":            "feature-7",
		"name":          "Search",
		"tags":          []any{"search", "indexing"},
		"dependencies":  []any{"feature-1", map[string]any{"id": "feature-2", "name": "Catalog"}},
		"test_coverage": 80,
		"module_id":     "module-search",
		"module_name":   "Search",
	})
	require.NoError(t, err)
	assert.Equal(t, "feature-7", in.ID)
	assert.Equal(t, []string{"search", "indexing"}, in.Tags)
	assert.Equal(t, []Dependency{{ID: "feature-1"}, {ID: "feature-2", Name: "Catalog"}}, in.Dependencies)
	assert.Equal(t, 80.0, in.TestCoverage)
	assert.Equal(t, "Search", in.ModuleName)
}

func TestFeature_AdditionalPropertiesRoundTrip(t *testing.T) {
	c, _, _ := newTestConnector(t)
	in := FeatureInput{Feature: Feature{
		ID:                   "feature-3",
		Name:                 "Export",
		AdditionalProperties: map[string]any{"jira_key": "EXP-12"},
	}}
	_, err := c.AddFeature(context.Background(), in)
	require.NoError(t, err)

	f, err := c.GetFeature("feature-3")
	require.NoError(t, err)
	assert.Equal(t, "EXP-12", f.AdditionalProperties["jira_key"])
}

func TestUpdateFeature_RewiresConcepts(t *testing.T) {
	c, store, _ := newTestConnector(t)
	ctx := context.Background()
	_, err := c.AddFeature(ctx, loginFeature())
	require.NoError(t, err)

	f, err := c.UpdateFeature(ctx, "feature-1", map[string]any{
		"tags":   []string{"Sessions"},
		"status": "in-progress",
		"domain": "Identity",
	})
	require.NoError(t, err)
	assert.Equal(t, task.StatusInProgress, f.Status)
	assert.Equal(t, []string{"session"}, f.Tags)

	assert.False(t, graph.HasEdge(store, graph.EdgeFeatureRelatedToConcept, "feature-1", "concept-authentication"))
	assert.True(t, graph.HasEdge(store, graph.EdgeFeatureRelatedToConcept, "feature-1", "concept-session"))
	assert.False(t, graph.HasEdge(store, graph.EdgeFeatureBelongsToDomain, "feature-1", "domain-security"))
	assert.True(t, graph.HasEdge(store, graph.EdgeFeatureBelongsToDomain, "feature-1", "domain-identity"))

	_, err = c.UpdateFeature(ctx, "feature-1", map[string]any{"status": "done"})
	assert.Error(t, err)
	_, err = c.UpdateFeature(ctx, "missing", nil)
	assert.ErrorIs(t, err, ErrFeatureNotFound)
}
