package validators

import (
	"context"
	"fmt"

	"github.com/josephgoksu/featuregraph/internal/policy"
	"github.com/josephgoksu/featuregraph/internal/validation"
)

// Policy turns Rego deny rules into error issues and warn rules into
// warnings. With no engine or no policies it reports nothing.
type Policy struct {
	engine *policy.Engine
}

// NewPolicy returns a Policy validator over engine, which may be nil.
func NewPolicy(engine *policy.Engine) *Policy {
	return &Policy{engine: engine}
}

func (p *Policy) Name() string { return validation.NamePolicy }

func (p *Policy) Validate(ctx context.Context, doc validation.Document) ([]validation.Issue, error) {
	if p.engine == nil || p.engine.Len() == 0 {
		return nil, nil
	}
	decision, err := p.engine.Evaluate(ctx, PolicyInput(doc))
	if err != nil {
		return nil, fmt.Errorf("evaluate policies: %w", err)
	}
	var out []validation.Issue
	for _, v := range decision.Violations {
		out = append(out, validation.NewIssue(validation.IssueCustom, validation.SeverityError, v).
			With("decision_id", decision.DecisionID).
			With("policy_package", decision.PolicyPath))
	}
	for _, w := range decision.Warnings {
		out = append(out, validation.NewIssue(validation.IssueCustom, validation.SeverityWarning, w).
			With("decision_id", decision.DecisionID).
			With("policy_package", decision.PolicyPath))
	}
	return out, nil
}

// PolicyInput builds the Rego input for doc.
func PolicyInput(doc validation.Document) policy.DocumentInput {
	md := Parse(doc.Content)
	in := policy.DocumentInput{
		ID:       doc.ID,
		Title:    doc.Title,
		Type:     string(doc.Type),
		Version:  doc.Version,
		Path:     doc.Path,
		Related:  append([]string{}, doc.Related...),
		Content:  doc.Content,
		Metadata: doc.Metadata,
		Headings: make([]policy.HeadingInput, 0, len(md.Headings)),
		Code:     make([]policy.CodeInput, 0, len(md.CodeBlocks)),
		Links:    make([]string, 0, len(md.Links)),
	}
	for _, h := range md.Headings {
		in.Headings = append(in.Headings, policy.HeadingInput{Level: h.Level, Text: h.Text, Line: h.Line})
	}
	for _, b := range md.CodeBlocks {
		in.Code = append(in.Code, policy.CodeInput{Language: b.Lang, Code: b.Code, Line: b.Line})
	}
	for _, l := range md.Links {
		in.Links = append(in.Links, l.URL)
	}
	return in
}
