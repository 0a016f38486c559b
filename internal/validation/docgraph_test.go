package validation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/featuregraph/internal/graph"
)

func TestGraphDocuments(t *testing.T) {
	store := graph.NewMemoryStore()
	docs := NewGraphDocuments(store)
	ctx := context.Background()

	require.NoError(t, docs.Register(ctx, Document{ID: "doc-api", Title: "API", Type: DocAPI, Version: "1.2.0", Related: []string{"doc-design", "doc-missing"}, Content: "# API"}))
	require.NoError(t, docs.Register(ctx, Document{ID: "doc-design", Type: DocDesign}))

	ok, err := docs.DocumentExists(ctx, "doc-api")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, _ = docs.DocumentExists(ctx, "doc-missing")
	assert.False(t, ok, "dangling reference is not a document")

	refs, err := docs.References(ctx, "doc-api")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-design", "doc-missing"}, refs)

	related, err := docs.RelatedDocuments(ctx, "doc-design")
	require.NoError(t, err)
	require.Len(t, related, 1)
	assert.Equal(t, "doc-api", related[0].ID)
	assert.Equal(t, "1.2.0", related[0].Version)
	assert.Equal(t, DocAPI, related[0].Type)
	assert.Equal(t, []string{"doc-design", "doc-missing"}, related[0].Related)

	// Re-registering replaces references.
	require.NoError(t, docs.Register(ctx, Document{ID: "doc-api", Type: DocAPI, Related: []string{"doc-design"}}))
	refs, _ = docs.References(ctx, "doc-api")
	assert.Equal(t, []string{"doc-design"}, refs)
	assert.Empty(t, graph.Check(store))

	_, err = store.AddNode("feature-1", graph.NodeFeature, nil, nil)
	require.NoError(t, err)
	assert.Error(t, docs.Register(ctx, Document{ID: "feature-1"}))
}
