package validation

import "context"

// Validator analyzes a document and returns its issues in emission order.
// Implementations must not modify the document and must honor ctx.
type Validator interface {
	Name() string
	Validate(ctx context.Context, doc Document) ([]Issue, error)
}

// KnowledgeGraph is the optional document graph validators and the manager
// consult. Every method may be slow; callers pass a context with a deadline.
type KnowledgeGraph interface {
	// DocumentExists reports whether a document with id is registered.
	DocumentExists(ctx context.Context, id string) (bool, error)
	// RelatedDocuments returns documents one reference away from id, in
	// either direction.
	RelatedDocuments(ctx context.Context, id string) ([]Document, error)
	// References returns the ids document id points at.
	References(ctx context.Context, id string) ([]string, error)
}

// Func adapts a function to Validator.
type Func struct {
	ValidatorName string
	Fn            func(ctx context.Context, doc Document) ([]Issue, error)
}

func (f Func) Name() string { return f.ValidatorName }

func (f Func) Validate(ctx context.Context, doc Document) ([]Issue, error) {
	return f.Fn(ctx, doc)
}
