package validators

import (
	"github.com/josephgoksu/featuregraph/internal/policy"
	"github.com/josephgoksu/featuregraph/internal/validation"
)

// All builds every validator from cfg. graph and engine may be nil.
func All(cfg validation.ValidatorsConfig, graph validation.KnowledgeGraph, engine *policy.Engine) []validation.Validator {
	return []validation.Validator{
		NewTechnical(cfg.Technical),
		NewCompleteness(cfg.Completeness, graph),
		NewConsistency(cfg.Consistency, graph),
		NewReadability(cfg.Readability),
		NewPolicy(engine),
	}
}

// NewManager wires all validators into a Manager.
func NewManager(cfg validation.Config, graph validation.KnowledgeGraph, engine *policy.Engine) *validation.Manager {
	return validation.NewManager(cfg.Manager, graph, All(cfg.Validators, graph, engine)...)
}
