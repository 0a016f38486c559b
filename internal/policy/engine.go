package policy

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/spf13/afero"
)

// DefaultPackage is the Rego package evaluated when none is configured.
const DefaultPackage = "featuregraph.docs"

// Config locates the policies an Engine evaluates.
type Config struct {
	// Dir holds the .rego files. A missing directory means no policies.
	Dir string
	// Package defaults to DefaultPackage.
	Package string
	// Fs defaults to the OS filesystem.
	Fs afero.Fs
}

// Engine evaluates one Rego package compiled once from its sources. It is
// safe for concurrent use. Evaluation is local.
type Engine struct {
	pkg     string
	sources []Source
	query   *rego.PreparedEvalQuery
}

// Open loads the policies under cfg.Dir and compiles them.
func Open(ctx context.Context, cfg Config) (*Engine, error) {
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	sources, err := LoadSources(cfg.Fs, cfg.Dir)
	if err != nil {
		return nil, err
	}
	return New(ctx, cfg.Package, sources)
}

// New compiles sources and prepares the query for pkg. Any module that does
// not parse or type-check fails the whole engine.
func New(ctx context.Context, pkg string, sources []Source) (*Engine, error) {
	if pkg == "" {
		pkg = DefaultPackage
	}
	e := &Engine{pkg: pkg, sources: sources}
	if len(sources) == 0 {
		return e, nil
	}
	opts := []func(*rego.Rego){rego.Query("data." + pkg)}
	for _, s := range sources {
		opts = append(opts, rego.Module(s.Path, s.Module))
	}
	pq, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("compile policies: %w", err)
	}
	e.query = &pq
	return e, nil
}

// Len returns the number of loaded modules.
func (e *Engine) Len() int { return len(e.sources) }

// Names returns the module names in load order.
func (e *Engine) Names() []string {
	names := make([]string, len(e.sources))
	for i, s := range e.sources {
		names[i] = s.Name
	}
	return names
}

// Package returns the evaluated Rego package.
func (e *Engine) Package() string { return e.pkg }

// Evaluate reads the deny and warn sets of the package for input. Any deny
// message makes the decision a deny; warn messages never do.
func (e *Engine) Evaluate(ctx context.Context, input any) (*Decision, error) {
	d := &Decision{
		DecisionID:  uuid.NewString(),
		PolicyPath:  e.pkg,
		Result:      ResultAllow,
		EvaluatedAt: time.Now().UTC(),
	}
	if e.query == nil {
		return d, nil
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", e.pkg, err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		// package has no rules
		return d, nil
	}
	doc, _ := rs[0].Expressions[0].Value.(map[string]any)
	d.Violations = messages(doc["deny"])
	d.Warnings = messages(doc["warn"])
	if len(d.Violations) > 0 {
		d.Result = ResultDeny
	}
	return d, nil
}

// messages keeps the string members of a Rego set.
func messages(v any) []string {
	set, _ := v.([]any)
	var out []string
	for _, m := range set {
		if s, ok := m.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
