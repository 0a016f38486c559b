package app

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/featuregraph/internal/graph"
	"github.com/josephgoksu/featuregraph/internal/telemetry"
)

const overviewDoc = `---
id: doc-overview
related: [doc-api]
---
# Overview

The service stores features.
`

const apiDoc = `---
id: doc-api
related: [doc-overview]
---
# API

The API lists features.
`

func TestValidatePaths_RegistersBatchFirst(t *testing.T) {
	a, fs, rec := newTestApp(t)
	require.NoError(t, afero.WriteFile(fs, "/docs/overview.md", []byte(overviewDoc), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/docs/api.md", []byte(apiDoc), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/docs/notes.txt", []byte("skip"), 0o644))

	reports, err := a.ValidatePaths(context.Background(), []string{"/docs"}, ValidateOptions{Register: true, Related: true})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	for _, r := range reports {
		assert.NotEmpty(t, r.Path)
		assert.Len(t, r.Outcome.Related, 1, "related document of %s", r.Path)
	}
	assert.Len(t, a.Store.GetNodesByType(graph.NodeDocument), 2)
	assert.Len(t, a.Store.GetEdgesByType(graph.EdgeDocumentReferences), 2)
	assert.Equal(t, []string{telemetry.EventDocumentValidated, telemetry.EventDocumentValidated}, rec.events)
}

func TestValidatePaths_WithoutRegisterLeavesGraphEmpty(t *testing.T) {
	a, fs, _ := newTestApp(t)
	require.NoError(t, afero.WriteFile(fs, "/docs/overview.md", []byte(overviewDoc), 0o644))

	reports, err := a.ValidatePaths(context.Background(), []string{"/docs/overview.md"}, ValidateOptions{})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Empty(t, a.Store.GetNodesByType(graph.NodeDocument))
}

func TestValidatePaths_MissingPath(t *testing.T) {
	a, _, _ := newTestApp(t)
	_, err := a.ValidatePaths(context.Background(), []string{"/nope"}, ValidateOptions{})
	assert.Error(t, err)
}

func TestValidateContent_SelectsValidators(t *testing.T) {
	a, _, _ := newTestApp(t)

	r, err := a.ValidateContent(context.Background(), "inline.md", "# Title\n\nShort text.\n", ValidateOptions{Validators: []string{"readability"}})
	require.NoError(t, err)
	assert.Equal(t, "doc-inline", r.Outcome.Primary.DocumentID)
	assert.Equal(t, r.Outcome.Primary.IsValid, r.Valid())
}

func TestValidateContent_BadFrontMatter(t *testing.T) {
	a, _, _ := newTestApp(t)
	_, err := a.ValidateContent(context.Background(), "x.md", "---\nid: [\n", ValidateOptions{})
	assert.Error(t, err)
}
