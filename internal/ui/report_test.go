package ui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/josephgoksu/featuregraph/internal/connector"
	"github.com/josephgoksu/featuregraph/internal/graph"
	"github.com/josephgoksu/featuregraph/internal/task"
	"github.com/josephgoksu/featuregraph/internal/validation"
)

func TestNewPrinter_BufferIsPlain(t *testing.T) {
	var buf bytes.Buffer
	assert.True(t, NewPrinter(&buf).Plain())
}

func TestValidationOutcome_SortsBySeverity(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	p.ValidationOutcome("docs/api.md", validation.Outcome{
		Primary: validation.Result{
			DocumentID: "doc-api",
			Issues: []validation.Issue{
				validation.NewIssue(validation.IssueReadability, validation.SeverityInfo, "long sentence"),
				validation.NewIssue(validation.IssueTechnical, validation.SeverityError, "unclosed fence").At("line 12"),
			},
		},
		Related: map[string]validation.Result{"doc-overview": {DocumentID: "doc-overview", IsValid: true}},
	})

	out := buf.String()
	require.Contains(t, out, "INVALID docs/api.md")
	assert.Less(t, strings.Index(out, "unclosed fence"), strings.Index(out, "long sentence"))
	assert.Contains(t, out, "(line 12)")
	assert.Contains(t, out, "VALID   ↳ doc-overview")
	assert.NotContains(t, out, "\x1b[")
}

func TestFeatureAndTasks(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	p.Feature(connector.Feature{ID: "f1", Name: "Login", Domain: "security", Requirements: []string{"Hash passwords"}})
	p.Tasks([]task.Task{{ID: "task-1-1", Name: "Design", Status: task.StatusNotStarted, EstimatedHours: 2}})
	p.Progress(task.Progress{Total: 2, Completed: 1, Percent: 50})

	out := buf.String()
	assert.Contains(t, out, "Domain: security")
	assert.Contains(t, out, "- Hash passwords")
	assert.Contains(t, out, "task-1-1")
	assert.Contains(t, out, "50.0%")
}

func TestEmptyListings(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)
	p.Features(nil)
	p.Tasks(nil)
	p.Inconsistencies(nil)
	assert.Equal(t, "No features found.\nNo tasks.\n✓ Indices consistent\n", buf.String())
}

func TestStats(t *testing.T) {
	var buf bytes.Buffer
	NewPlainPrinter(&buf).Stats(graph.Stats{
		Nodes:       3,
		Edges:       1,
		NodesByType: map[graph.NodeType]int{graph.NodeTask: 2, graph.NodeFeature: 1},
		EdgesByType: map[string]int{graph.EdgeFeatureHasTask: 1},
	})
	out := buf.String()
	assert.Contains(t, out, "3 nodes, 1 edges")
	assert.Less(t, strings.Index(out, "feature"), strings.Index(out, "task "))
}

func TestPrinter_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPlainPrinter(&buf).JSON(map[string]int{"a": 1}))
	assert.JSONEq(t, `{"a":1}`, buf.String())
}

func TestSeverityStyles_CoverEverySeverity(t *testing.T) {
	for _, sev := range []validation.Severity{validation.SeverityInfo, validation.SeverityWarning, validation.SeverityError, validation.SeverityCritical} {
		_, ok := severityStyles[sev]
		assert.True(t, ok, "no style for %s", sev)
	}
	assert.True(t, severityStyle(validation.SeverityCritical).GetBold())
	assert.False(t, severityStyle(validation.SeverityWarning).GetBold())

	word, _ := verdict(true)
	assert.Equal(t, "VALID", word)
	word, _ = verdict(false)
	assert.Equal(t, "INVALID", word)
}
