package validation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"time"
)

// State is a step of one document's validation run.
type State string

const (
	StatePending     State = "PENDING"
	StateRunning     State = "RUNNING"
	StateAggregating State = "AGGREGATING"
	StateValid       State = "VALID"
	StateInvalid     State = "INVALID"
)

// Observer is told about every state transition of every run.
type Observer func(documentID string, state State)

// Options select validators and cascading for one call.
type Options struct {
	// Validators restricts the run to these names. Unknown names are logged
	// and skipped. Empty means the configured default set.
	Validators []string
	// ValidateRelated also validates documents one hop away in the graph.
	ValidateRelated bool
}

// Outcome is the primary result plus results for cascaded documents.
type Outcome struct {
	Primary Result            `json:"primary"`
	Related map[string]Result `json:"related,omitempty"`
}

// Manager runs validators concurrently and applies the pass/fail thresholds.
// Validate never fails: validator errors, panics and timeouts become issues.
type Manager struct {
	cfg        ManagerConfig
	graph      KnowledgeGraph
	validators map[string]Validator
	order      []string
	observer   Observer
	now        func() time.Time
}

// NewManager returns a Manager. graph may be nil, which disables cascading.
func NewManager(cfg ManagerConfig, graph KnowledgeGraph, validators ...Validator) *Manager {
	m := &Manager{
		cfg:        cfg,
		graph:      graph,
		validators: make(map[string]Validator),
		now:        time.Now,
	}
	for _, v := range validators {
		m.Register(v)
	}
	return m
}

// Register adds or replaces a validator under its name.
func (m *Manager) Register(v Validator) {
	name := v.Name()
	if _, ok := m.validators[name]; !ok {
		m.order = append(m.order, name)
	}
	m.validators[name] = v
}

// Names lists registered validators in registration order.
func (m *Manager) Names() []string { return slices.Clone(m.order) }

// SetObserver installs o; nil removes it.
func (m *Manager) SetObserver(o Observer) { m.observer = o }

// Config returns the thresholds in use.
func (m *Manager) Config() ManagerConfig { return m.cfg }

// Validate validates doc and, when asked, its directly related documents.
// Related documents are validated without further cascading.
func (m *Manager) Validate(ctx context.Context, doc Document, opts Options) Outcome {
	out := Outcome{Primary: m.ValidateDocument(ctx, doc, opts.Validators)}
	if !opts.ValidateRelated || m.graph == nil {
		return out
	}
	related, err := m.relatedDocuments(ctx, doc.ID)
	if err != nil {
		slog.Warn("related documents unavailable", "document", doc.ID, "error", err)
		return out
	}
	for _, r := range related {
		if r.ID == doc.ID {
			continue
		}
		if _, done := out.Related[r.ID]; done {
			continue
		}
		if out.Related == nil {
			out.Related = make(map[string]Result, len(related))
		}
		out.Related[r.ID] = m.Validate(ctx, r, Options{Validators: opts.Validators}).Primary
	}
	return out
}

func (m *Manager) relatedDocuments(ctx context.Context, id string) ([]Document, error) {
	if m.cfg.ValidatorTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.ValidatorTimeout)
		defer cancel()
	}
	return m.graph.RelatedDocuments(ctx, id)
}

// ValidateDocument runs the selected validators on doc only.
func (m *Manager) ValidateDocument(ctx context.Context, doc Document, names []string) Result {
	start := m.now()
	m.emit(doc.ID, StatePending)
	active := m.resolve(names)

	m.emit(doc.ID, StateRunning)
	var wg sync.WaitGroup
	collected := make([][]Issue, len(active))
	for i, v := range active {
		wg.Add(1)
		go func(idx int, v Validator) {
			defer wg.Done()
			collected[idx] = m.runOne(ctx, v, doc)
		}(i, v)
	}
	wg.Wait()

	m.emit(doc.ID, StateAggregating)
	res := Result{
		DocumentID:    doc.ID,
		Timestamp:     m.now().UTC(),
		Issues:        []Issue{},
		ValidatorsRun: make([]string, 0, len(active)),
		Metadata: map[string]any{
			"document_type": string(doc.Type),
			"duration_ms":   m.now().Sub(start).Milliseconds(),
		},
	}
	if doc.Path != "" {
		res.Metadata["path"] = doc.Path
	}
	for i, v := range active {
		res.ValidatorsRun = append(res.ValidatorsRun, v.Name())
		res.Issues = append(res.Issues, collected[i]...)
	}
	res.IsValid = m.cfg.Decide(res)
	if res.IsValid {
		m.emit(doc.ID, StateValid)
	} else {
		m.emit(doc.ID, StateInvalid)
	}
	return res
}

func (m *Manager) resolve(names []string) []Validator {
	if len(names) == 0 {
		names = m.cfg.Enabled
	}
	if len(names) == 0 {
		names = m.order
	}
	var out []Validator
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		v, ok := m.validators[n]
		if !ok {
			slog.Warn("unknown validator skipped", "validator", n)
			continue
		}
		out = append(out, v)
	}
	return out
}

type runOutcome struct {
	issues []Issue
	err    error
}

// runOne isolates a validator: its error, panic or timeout becomes a single
// synthetic error issue.
func (m *Manager) runOne(ctx context.Context, v Validator, doc Document) []Issue {
	if m.cfg.ValidatorTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.ValidatorTimeout)
		defer cancel()
	}
	done := make(chan runOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("validator panicked", "validator", v.Name(), "panic", r, "stack", string(debug.Stack()))
				done <- runOutcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		issues, err := v.Validate(ctx, doc)
		done <- runOutcome{issues: issues, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			slog.Warn("validator failed", "validator", v.Name(), "document", doc.ID, "error", out.err)
			return []Issue{failureIssue(v.Name(), out.err)}
		}
		return out.issues
	case <-ctx.Done():
		err := ctx.Err()
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s", m.cfg.ValidatorTimeout)
		}
		slog.Warn("validator did not finish", "validator", v.Name(), "document", doc.ID, "error", err)
		return []Issue{failureIssue(v.Name(), err)}
	}
}

// failureIssue stands in for the output of a validator that failed. It takes
// the validator's own issue type; validators outside the built-in four get
// IssueCustom.
func failureIssue(name string, err error) Issue {
	typ := IssueCustom
	switch name {
	case NameTechnical, NameCompleteness, NameConsistency, NameReadability:
		typ = IssueType(name)
	}
	return NewIssue(typ, SeverityError, fmt.Sprintf("validator %q failed: %v", name, err)).
		With("validator", name).
		With("synthetic", true)
}

func (m *Manager) emit(id string, s State) {
	if m.observer != nil {
		m.observer(id, s)
	}
}
