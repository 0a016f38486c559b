package validation

import (
	"encoding/json"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult(docID string, valid bool, issues ...Issue) Result {
	return Result{
		DocumentID:    docID,
		Timestamp:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		IsValid:       valid,
		Issues:        issues,
		ValidatorsRun: []string{NameTechnical},
		Metadata:      map[string]any{"source": "a"},
	}
}

func issueIDs(issues []Issue) []string {
	ids := make([]string, len(issues))
	for i, is := range issues {
		ids[i] = is.ID
	}
	sort.Strings(ids)
	return ids
}

func TestResult_Counts(t *testing.T) {
	r := sampleResult("doc-1", true,
		NewIssue(IssueTechnical, SeverityError, "e"),
		NewIssue(IssueTechnical, SeverityWarning, "w1"),
		NewIssue(IssueReadability, SeverityWarning, "w2"),
		NewIssue(IssueConsistency, SeverityInfo, "i"),
		NewIssue(IssueSecurity, SeverityCritical, "c"),
	)
	assert.Equal(t, 1, r.ErrorCount())
	assert.Equal(t, 2, r.WarningCount())
	assert.Equal(t, 1, r.InfoCount())
	assert.True(t, r.HasCriticalIssues())

	s := r.Summary()
	assert.Equal(t, 5, s.TotalIssues)
	assert.Equal(t, 2, s.ByType["technical"])
	assert.Equal(t, 0, s.ByType["completeness"])
	assert.Len(t, r.IssuesOfType(IssueReadability), 1)
}

func TestResult_Merge(t *testing.T) {
	a := sampleResult("doc-1", true, NewIssue(IssueTechnical, SeverityInfo, "a"))
	b := sampleResult("doc-1", false, NewIssue(IssueReadability, SeverityWarning, "b"))
	b.Timestamp = a.Timestamp.Add(time.Minute)
	b.ValidatorsRun = []string{NameReadability, NameTechnical}
	b.Metadata = map[string]any{"source": "b", "extra": 1}

	m, err := a.Merge(b)
	require.NoError(t, err)
	assert.False(t, m.IsValid)
	assert.Equal(t, b.Timestamp, m.Timestamp)
	assert.Equal(t, []string{NameTechnical, NameReadability}, m.ValidatorsRun)
	assert.Equal(t, "b", m.Metadata["source"])
	assert.Equal(t, 1, m.Metadata["extra"])
	assert.Len(t, m.Issues, 2)

	_, err = a.Merge(sampleResult("doc-2", true))
	assert.ErrorIs(t, err, ErrDocumentMismatch)
}

func TestResult_MergeLaws(t *testing.T) {
	a := sampleResult("doc-1", true, NewIssue(IssueTechnical, SeverityInfo, "a"))
	b := sampleResult("doc-1", false, NewIssue(IssueReadability, SeverityWarning, "b"))
	c := sampleResult("doc-1", true, NewIssue(IssueConsistency, SeverityError, "c"), NewIssue(IssueCustom, SeverityInfo, "d"))

	ab, err := a.Merge(b)
	require.NoError(t, err)
	left, err := ab.Merge(c)
	require.NoError(t, err)

	bc, err := b.Merge(c)
	require.NoError(t, err)
	right, err := a.Merge(bc)
	require.NoError(t, err)

	assert.Equal(t, left.Issues, right.Issues, "issue concatenation is associative")
	assert.Equal(t, a.IsValid && b.IsValid && c.IsValid, left.IsValid)
	assert.Equal(t, left.IsValid, right.IsValid)

	ac, err := a.Merge(c)
	require.NoError(t, err)
	assert.True(t, ac.IsValid, "true AND true")
}

func TestResult_RoundTrip(t *testing.T) {
	orig := sampleResult("doc-7", false,
		NewIssue(IssueTechnical, SeverityError, "unbalanced braces").At("line 12").Suggest("close the block"),
		NewIssue(IssueReadability, SeverityWarning, "long sentence").With("words", "44"),
	)

	m, err := orig.ToMap()
	require.NoError(t, err)
	summary, ok := m["summary"].(map[string]any)
	require.True(t, ok, "summary included on serialize")
	assert.EqualValues(t, 2, summary["total_issues"])
	assert.Equal(t, "2026-03-01T12:00:00Z", m["timestamp"])
	issues := m["issues"].([]any)
	assert.Equal(t, "technical", issues[0].(map[string]any)["type"])
	assert.Equal(t, "error", issues[0].(map[string]any)["severity"])

	back, err := ResultFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, orig.DocumentID, back.DocumentID)
	assert.Equal(t, orig.IsValid, back.IsValid)
	assert.True(t, orig.Timestamp.Equal(back.Timestamp))
	assert.ElementsMatch(t, orig.Issues, back.Issues)

	delete(m, "summary")
	again, err := ResultFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, issueIDs(orig.Issues), issueIDs(again.Issues))
}

func TestResult_MarshalEmpty(t *testing.T) {
	data, err := json.Marshal(Result{DocumentID: "doc-1"})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"issues":[]`)
	assert.Contains(t, string(data), `"validators_run":[]`)
}

func TestIssue_BuildersCopy(t *testing.T) {
	base := NewIssue(IssueTechnical, SeverityInfo, "x").With("k", "v").Suggest("a")
	derived := base.With("k", "w").Suggest("b")
	assert.Equal(t, "v", base.Metadata["k"])
	assert.Equal(t, []string{"a"}, base.Suggestions)
	assert.Equal(t, []string{"a", "b"}, derived.Suggestions)
	assert.NotEmpty(t, base.ID)
}
