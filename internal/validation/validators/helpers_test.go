package validators

import (
	"strings"
	"testing"

	"github.com/josephgoksu/featuregraph/internal/validation"
)

// findIssue returns the first issue whose message contains substr.
func findIssue(t *testing.T, issues []validation.Issue, substr string) validation.Issue {
	t.Helper()
	for _, i := range issues {
		if strings.Contains(i.Message, substr) {
			return i
		}
	}
	var msgs []string
	for _, i := range issues {
		msgs = append(msgs, i.Message)
	}
	t.Fatalf("no issue containing %q in %q", substr, msgs)
	return validation.Issue{}
}

func hasIssue(issues []validation.Issue, substr string) bool {
	for _, i := range issues {
		if strings.Contains(i.Message, substr) {
			return true
		}
	}
	return false
}

func doc(typ validation.DocumentType, content string) validation.Document {
	return validation.Document{ID: "doc-test", Type: typ, Content: content}
}
