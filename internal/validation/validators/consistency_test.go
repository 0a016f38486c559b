package validators

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/featuregraph/internal/graph"
	"github.com/josephgoksu/featuregraph/internal/validation"
)

func runConsistency(t *testing.T, content string) []validation.Issue {
	t.Helper()
	v := NewConsistency(validation.DefaultConfig().Validators.Consistency, nil)
	issues, err := v.Validate(context.Background(), doc(validation.DocGeneric, content))
	require.NoError(t, err)
	return issues
}

func TestConsistency_HeadingJump(t *testing.T) {
	issues := runConsistency(t, "# A\n\n### C\n\n## B\n")
	require.Len(t, issues, 1)
	assert.Equal(t, "heading level jumps from H1 to H3", issues[0].Message)
	assert.Equal(t, validation.SeverityWarning, issues[0].Severity)
	assert.Equal(t, "line 3", issues[0].Location)
}

func TestConsistency_StyleGroups(t *testing.T) {
	issues := runConsistency(t, "- a\n- b\n* c\n- d\n")
	require.Len(t, issues, 1, "one issue per group")
	assert.Equal(t, "inconsistent bullet list style: - (3), * (1)", issues[0].Message)
	assert.Equal(t, validation.SeverityInfo, issues[0].Severity)

	assert.Empty(t, runConsistency(t, "- a\n* b\n"), "below the occurrence threshold")

	fences := runConsistency(t, "```go\nx\n```\n\n~~~go\ny\n~~~\n\n```go\nz\n```\n")
	findIssue(t, fences, "inconsistent code block style")
}

func TestConsistency_LinkStyles(t *testing.T) {
	md := strings.Repeat("[a](https://a.io) ", 5) + "https://raw.io\n"
	assert.Empty(t, runConsistency(t, md), "raw URL minority is tolerated")

	md = strings.Repeat("[a](https://a.io) ", 3) + "https://raw.io\n"
	findIssue(t, runConsistency(t, md), "inconsistent link style")

	md = `[a](https://a.io) <a href="https://b.io">b</a>` + "\n"
	findIssue(t, runConsistency(t, md), "inconsistent link style: html (1), markdown (1)")
}

func TestConsistency_CrossReferencesAndVersions(t *testing.T) {
	ctx := context.Background()
	docs := validation.NewGraphDocuments(graph.NewMemoryStore())
	require.NoError(t, docs.Register(ctx, validation.Document{ID: "doc-b", Type: validation.DocDesign, Version: "1.3.1"}))
	require.NoError(t, docs.Register(ctx, validation.Document{ID: "doc-c", Type: validation.DocAPI, Version: "1.2.9", Related: []string{"doc-a"}}))
	a := validation.Document{ID: "doc-a", Type: validation.DocRequirements, Version: "1.2.0", Related: []string{"doc-b", "doc-c", "doc-missing"}}
	require.NoError(t, docs.Register(ctx, a))

	v := NewConsistency(validation.DefaultConfig().Validators.Consistency, docs)
	issues, err := v.Validate(ctx, a)
	require.NoError(t, err)

	missing := findIssue(t, issues, `"doc-missing" does not exist`)
	assert.Equal(t, validation.SeverityWarning, missing.Severity)
	oneWay := findIssue(t, issues, `"doc-b" does not reference "doc-a" back`)
	assert.Equal(t, validation.SeverityInfo, oneWay.Severity)
	assert.False(t, hasIssue(issues, `"doc-c" does not reference`))

	version := findIssue(t, issues, "version 1.2.0 does not match 1.3.1")
	assert.Equal(t, validation.SeverityWarning, version.Severity)
	assert.Equal(t, "doc-b", version.Metadata["reference"])
	assert.False(t, hasIssue(issues, "1.2.9"))

	a.Version = "latest"
	issues, err = v.Validate(ctx, a)
	require.NoError(t, err)
	findIssue(t, issues, `version "latest" is not a semantic version`)
}
