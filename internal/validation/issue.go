// Package validation runs document validators concurrently and aggregates
// their issues into a pass/fail Result.
package validation

import (
	"github.com/google/uuid"
)

// IssueType names the concern an issue belongs to.
type IssueType string

const (
	IssueTechnical    IssueType = "technical"
	IssueCompleteness IssueType = "completeness"
	IssueConsistency  IssueType = "consistency"
	IssueReadability  IssueType = "readability"
	IssueSecurity     IssueType = "security"
	IssueCustom       IssueType = "custom"
)

// IssueTypes lists every issue type in summary order.
var IssueTypes = []IssueType{IssueTechnical, IssueCompleteness, IssueConsistency, IssueReadability, IssueSecurity, IssueCustom}

// Severity ranks an issue.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from info (0) to critical (3). Unknown values rank -1.
func (s Severity) Rank() int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityWarning:
		return 1
	case SeverityError:
		return 2
	case SeverityCritical:
		return 3
	}
	return -1
}

// Issue is one finding. Validators build issues and never touch them again
// after returning.
type Issue struct {
	ID          string         `json:"id"`
	Type        IssueType      `json:"type"`
	Severity    Severity       `json:"severity"`
	Message     string         `json:"message"`
	Location    string         `json:"location,omitempty"`
	Context     string         `json:"context,omitempty"`
	Suggestions []string       `json:"suggestions,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// NewIssue returns an issue with a fresh id.
func NewIssue(typ IssueType, sev Severity, message string) Issue {
	return Issue{
		ID:       uuid.NewString(),
		Type:     typ,
		Severity: sev,
		Message:  message,
	}
}

// At sets the location.
func (i Issue) At(location string) Issue {
	i.Location = location
	return i
}

// WithContext sets the excerpt the issue refers to.
func (i Issue) WithContext(context string) Issue {
	i.Context = context
	return i
}

// Suggest appends suggestions.
func (i Issue) Suggest(s ...string) Issue {
	i.Suggestions = append(append([]string(nil), i.Suggestions...), s...)
	return i
}

// With sets a metadata key.
func (i Issue) With(key string, value any) Issue {
	m := make(map[string]any, len(i.Metadata)+1)
	for k, v := range i.Metadata {
		m[k] = v
	}
	m[key] = value
	i.Metadata = m
	return i
}
