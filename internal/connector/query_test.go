package connector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedCatalog builds:
//
//	feature-1 <- feature-2 <- feature-3 <- feature-4   (depends_on chain)
//	feature-5 independent, same domain as feature-1
func seedCatalog(t *testing.T, c *Connector) {
	t.Helper()
	ctx := context.Background()
	add := func(in FeatureInput) {
		_, err := c.AddFeature(ctx, in)
		require.NoError(t, err)
	}
	add(FeatureInput{Feature: Feature{ID: "feature-1", Name: "Accounts", Domain: "Identity", Purpose: "Core", Tags: []string{"users", "database"}, ModuleID: "module-id"}})
	add(FeatureInput{Feature: Feature{ID: "feature-2", Name: "Login", Domain: "Identity", Purpose: "Access", Tags: []string{"users", "sessions"}, ModuleID: "module-id"},
		Dependencies: []Dependency{{ID: "feature-1"}}})
	add(FeatureInput{Feature: Feature{ID: "feature-3", Name: "MFA", Domain: "Security", Purpose: "Access", Tags: []string{"sessions"}, MilestoneID: "milestone-2"},
		Dependencies: []Dependency{{ID: "feature-2"}}})
	add(FeatureInput{Feature: Feature{ID: "feature-4", Name: "Audit", Domain: "Security", Tags: []string{"logging"}},
		Dependencies: []Dependency{{ID: "feature-3"}}})
	add(FeatureInput{Feature: Feature{ID: "feature-5", Name: "Profiles", Domain: "identity", Tags: []string{"Users", "database"}}})
}

func summaryIDs(s []FeatureSummary) []string {
	out := make([]string, len(s))
	for i, f := range s {
		out[i] = f.ID
	}
	return out
}

func relatedIDs(r []RelatedFeature) []string {
	out := make([]string, len(r))
	for i, f := range r {
		out[i] = f.ID
	}
	return out
}

func TestQueryFeatures(t *testing.T) {
	c, _, _ := newTestConnector(t)
	seedCatalog(t, c)

	tests := []struct {
		name string
		q    FeatureQuery
		want []string
	}{
		{"all", FeatureQuery{}, []string{"feature-1", "feature-2", "feature-3", "feature-4", "feature-5"}},
		{"domain is case-insensitive", FeatureQuery{Domain: "IDENTITY"}, []string{"feature-1", "feature-2", "feature-5"}},
		{"domain and purpose", FeatureQuery{Domain: "Identity", Purpose: "Access"}, []string{"feature-2"}},
		{"any tag", FeatureQuery{Tags: []string{"Logging", "Session"}}, []string{"feature-2", "feature-3", "feature-4"}},
		{"module", FeatureQuery{ModuleID: "module-id"}, []string{"feature-1", "feature-2"}},
		{"milestone", FeatureQuery{MilestoneID: "milestone-2"}, []string{"feature-3"}},
		{"limit", FeatureQuery{Domain: "identity", Limit: 2}, []string{"feature-1", "feature-2"}},
		{"no match", FeatureQuery{Purpose: "Billing"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := summaryIDs(c.QueryFeatures(tt.q))
			if tt.want == nil {
				assert.Empty(t, got)
				return
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetRelatedFeatures_Depth(t *testing.T) {
	c, _, _ := newTestConnector(t)
	seedCatalog(t, c)

	one, err := c.GetRelatedFeatures("feature-4", RelatedQuery{Relations: []Relation{RelDependencies}, MaxDepth: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"feature-3"}, relatedIDs(one[RelDependencies]))

	deep, err := c.GetRelatedFeatures("feature-4", RelatedQuery{Relations: []Relation{RelDependencies}, MaxDepth: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{"feature-3", "feature-2", "feature-1"}, relatedIDs(deep[RelDependencies]))
	assert.Equal(t, 3, deep[RelDependencies][2].Depth)

	dependents, err := c.GetRelatedFeatures("feature-1", RelatedQuery{Relations: []Relation{RelDependents}, MaxDepth: 2, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"feature-2", "feature-3"}, relatedIDs(dependents[RelDependents]))

	limited, err := c.GetRelatedFeatures("feature-4", RelatedQuery{Relations: []Relation{RelDependencies}, MaxDepth: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited[RelDependencies], 2)
}

func TestGetRelatedFeatures_Categories(t *testing.T) {
	c, _, _ := newTestConnector(t)
	seedCatalog(t, c)

	got, err := c.GetRelatedFeatures("feature-1", RelatedQuery{})
	require.NoError(t, err)
	assert.Len(t, got, len(AllRelations))

	assert.Equal(t, []string{"feature-2", "feature-5"}, relatedIDs(got[RelSameDomain]))
	assert.Empty(t, got[RelDependencies])
	assert.Equal(t, []string{"feature-2"}, relatedIDs(got[RelSameModule]))

	shared := got[RelSharedConcepts]
	require.NotEmpty(t, shared)
	assert.Equal(t, "feature-5", shared[0].ID, "feature-5 shares two concepts")
	assert.Len(t, shared[0].SharedConcepts, 2)
	assert.Equal(t, "feature-2", shared[1].ID)
}

func TestGetRelatedFeatures_Errors(t *testing.T) {
	c, _, _ := newTestConnector(t)
	seedCatalog(t, c)

	_, err := c.GetRelatedFeatures("feature-404", RelatedQuery{})
	assert.ErrorIs(t, err, ErrFeatureNotFound)

	_, err = c.GetRelatedFeatures("feature-1", RelatedQuery{Relations: []Relation{"siblings"}})
	assert.Error(t, err)
}
