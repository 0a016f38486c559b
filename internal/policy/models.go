// Package policy evaluates Rego policies (Open Policy Agent) against
// documents. Policies define deny and warn rules in one package.
package policy

import (
	"time"
)

// Decision is the outcome of evaluating the loaded policies against one input.
type Decision struct {
	DecisionID  string    `json:"decisionId"`
	PolicyPath  string    `json:"policyPath"`           // Rego package, e.g. "featuregraph.docs"
	Result      string    `json:"result"`               // "allow" or "deny"
	Violations  []string  `json:"violations,omitempty"` // deny messages
	Warnings    []string  `json:"warnings,omitempty"`   // warn messages
	EvaluatedAt time.Time `json:"evaluatedAt"`
}

const (
	ResultAllow = "allow"
	ResultDeny  = "deny"
)

// IsAllowed reports whether no deny rule fired.
func (d *Decision) IsAllowed() bool {
	return d.Result == ResultAllow
}

// DocumentInput is what policies see as `input`.
type DocumentInput struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Type     string         `json:"type"`
	Version  string         `json:"version,omitempty"`
	Path     string         `json:"path,omitempty"`
	Related  []string       `json:"related"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
	Headings []HeadingInput `json:"headings"`
	Code     []CodeInput    `json:"code_blocks"`
	Links    []string       `json:"links"`
}

type HeadingInput struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
	Line  int    `json:"line"`
}

type CodeInput struct {
	Language string `json:"language"`
	Code     string `json:"code"`
	Line     int    `json:"line"`
}
