package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

// ErrDocumentMismatch is returned when merging results of different documents.
var ErrDocumentMismatch = errors.New("results belong to different documents")

// Result is the outcome of validating one document. Counts are derived from
// Issues on every call.
type Result struct {
	DocumentID    string         `json:"document_id"`
	Timestamp     time.Time      `json:"timestamp"`
	IsValid       bool           `json:"is_valid"`
	Issues        []Issue        `json:"issues"`
	ValidatorsRun []string       `json:"validators_run"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// Summary is the computed digest included when a Result is serialized.
type Summary struct {
	TotalIssues       int            `json:"total_issues"`
	CriticalCount     int            `json:"critical_count"`
	ErrorCount        int            `json:"error_count"`
	WarningCount      int            `json:"warning_count"`
	InfoCount         int            `json:"info_count"`
	HasCriticalIssues bool           `json:"has_critical_issues"`
	ByType            map[string]int `json:"by_type"`
}

func (r Result) count(sev Severity) int {
	n := 0
	for _, i := range r.Issues {
		if i.Severity == sev {
			n++
		}
	}
	return n
}

func (r Result) ErrorCount() int    { return r.count(SeverityError) }
func (r Result) WarningCount() int  { return r.count(SeverityWarning) }
func (r Result) InfoCount() int     { return r.count(SeverityInfo) }
func (r Result) CriticalCount() int { return r.count(SeverityCritical) }

// HasCriticalIssues reports whether any issue is critical.
func (r Result) HasCriticalIssues() bool { return r.CriticalCount() > 0 }

// IssuesOfType filters issues by type, keeping order.
func (r Result) IssuesOfType(t IssueType) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Type == t {
			out = append(out, i)
		}
	}
	return out
}

// Summary computes the digest of r.
func (r Result) Summary() Summary {
	s := Summary{
		TotalIssues:   len(r.Issues),
		CriticalCount: r.CriticalCount(),
		ErrorCount:    r.ErrorCount(),
		WarningCount:  r.WarningCount(),
		InfoCount:     r.InfoCount(),
		ByType:        make(map[string]int, len(IssueTypes)),
	}
	s.HasCriticalIssues = s.CriticalCount > 0
	for _, t := range IssueTypes {
		s.ByType[string(t)] = 0
	}
	for _, i := range r.Issues {
		s.ByType[string(i.Type)]++
	}
	return s
}

// Merge combines two results of the same document: issues concatenate,
// validity is ANDed, the later timestamp wins, validator names are unioned and
// other's metadata wins on conflicting keys.
func (r Result) Merge(other Result) (Result, error) {
	if r.DocumentID != other.DocumentID {
		return Result{}, fmt.Errorf("%w: %q and %q", ErrDocumentMismatch, r.DocumentID, other.DocumentID)
	}
	out := Result{
		DocumentID: r.DocumentID,
		Timestamp:  r.Timestamp,
		IsValid:    r.IsValid && other.IsValid,
		Issues:     make([]Issue, 0, len(r.Issues)+len(other.Issues)),
	}
	if other.Timestamp.After(out.Timestamp) {
		out.Timestamp = other.Timestamp
	}
	out.Issues = append(append(out.Issues, r.Issues...), other.Issues...)
	for _, name := range append(slices.Clone(r.ValidatorsRun), other.ValidatorsRun...) {
		if !slices.Contains(out.ValidatorsRun, name) {
			out.ValidatorsRun = append(out.ValidatorsRun, name)
		}
	}
	if len(r.Metadata)+len(other.Metadata) > 0 {
		out.Metadata = make(map[string]any, len(r.Metadata)+len(other.Metadata))
		for k, v := range r.Metadata {
			out.Metadata[k] = v
		}
		for k, v := range other.Metadata {
			out.Metadata[k] = v
		}
	}
	return out, nil
}

type resultAlias Result

// MarshalJSON adds the computed summary.
func (r Result) MarshalJSON() ([]byte, error) {
	a := resultAlias(r)
	if a.Issues == nil {
		a.Issues = []Issue{}
	}
	if a.ValidatorsRun == nil {
		a.ValidatorsRun = []string{}
	}
	return json.Marshal(struct {
		resultAlias
		Summary Summary `json:"summary"`
	}{a, r.Summary()})
}

// UnmarshalJSON ignores the summary; it is recomputed on demand.
func (r *Result) UnmarshalJSON(data []byte) error {
	var a resultAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = Result(a)
	return nil
}

// ToMap renders r as a plain JSON-compatible map.
func (r Result) ToMap() (map[string]any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return m, nil
}

// ResultFromMap is the inverse of ToMap. A summary key is accepted and ignored.
func ResultFromMap(m map[string]any) (Result, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return Result{}, fmt.Errorf("marshal map: %w", err)
	}
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return Result{}, fmt.Errorf("decode result: %w", err)
	}
	return r, nil
}
