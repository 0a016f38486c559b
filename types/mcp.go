/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package types

// MCP Tool Parameter Types

// AddFeatureParams for creating a feature. Extra holds any additional
// properties to store on the feature node.
type AddFeatureParams struct {
	ID            string         `json:"id" jsonschema:"unique feature id"`
	Name          string         `json:"name" jsonschema:"feature name"`
	Description   string         `json:"description,omitempty"`
	Tags          []string       `json:"tags,omitempty" jsonschema:"free-text tags, normalized on write"`
	Domain        string         `json:"domain,omitempty"`
	Purpose       string         `json:"purpose,omitempty"`
	Requirements  []string       `json:"requirements,omitempty"`
	UserStories   []string       `json:"user_stories,omitempty" jsonschema:"stories of the form: As a X, I want Y so that Z"`
	Priority      string         `json:"priority,omitempty" jsonschema:"high, medium or low"`
	MilestoneID   string         `json:"milestone_id,omitempty"`
	MilestoneName string         `json:"milestone_name,omitempty"`
	PhaseID       string         `json:"phase_id,omitempty"`
	PhaseName     string         `json:"phase_name,omitempty"`
	ModuleID      string         `json:"module_id,omitempty"`
	ModuleName    string         `json:"module_name,omitempty"`
	DependsOn     []string       `json:"depends_on,omitempty" jsonschema:"ids of features this one depends on"`
	Extra         map[string]any `json:"extra,omitempty"`
}

// QueryFeaturesParams filters features. Empty fields match everything.
type QueryFeaturesParams struct {
	Domain    string   `json:"domain,omitempty"`
	Purpose   string   `json:"purpose,omitempty"`
	Tags      []string `json:"tags,omitempty" jsonschema:"match features carrying any of these tags"`
	Milestone string   `json:"milestone,omitempty"`
	Phase     string   `json:"phase,omitempty"`
	Module    string   `json:"module,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

// GetRelatedFeaturesParams selects relations of one feature.
type GetRelatedFeaturesParams struct {
	ID        string   `json:"id" jsonschema:"feature id"`
	Relations []string `json:"relations,omitempty" jsonschema:"dependencies, dependents, same_domain, same_purpose, same_module, shared_concepts; empty means all"`
	MaxDepth  int      `json:"max_depth,omitempty" jsonschema:"hops for dependencies and dependents, default 1"`
	Limit     int      `json:"limit,omitempty"`
}

// AddTaskParams for attaching one task to a feature
type AddTaskParams struct {
	FeatureID      string   `json:"feature_id"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	Priority       string   `json:"priority,omitempty" jsonschema:"high, medium or low"`
	Complexity     string   `json:"complexity,omitempty" jsonschema:"low, medium or high"`
	EstimatedHours float64  `json:"estimated_hours,omitempty"`
	DependsOn      []string `json:"depends_on,omitempty" jsonschema:"ids of tasks this task depends on"`
}

// GenerateTasksParams for planning a feature's tasks
type GenerateTasksParams struct {
	FeatureID        string `json:"feature_id"`
	RequirementsOnly bool   `json:"requirements_only,omitempty" jsonschema:"one task per requirement, no ordering"`
}

// UpdateTaskStatusParams for moving a task through its lifecycle
type UpdateTaskStatusParams struct {
	ID     string `json:"id" jsonschema:"task id or unique prefix"`
	Status string `json:"status" jsonschema:"not-started, in-progress, completed or blocked"`
}

// ValidateDocumentParams for validating markdown content
type ValidateDocumentParams struct {
	Path       string   `json:"path,omitempty" jsonschema:"file to read when content is empty; also seeds id and type"`
	Content    string   `json:"content,omitempty" jsonschema:"markdown with optional YAML front matter"`
	Validators []string `json:"validators,omitempty" jsonschema:"technical, completeness, consistency, readability, policy; empty means all enabled"`
	Related    bool     `json:"validate_related,omitempty"`
	Register   bool     `json:"register,omitempty" jsonschema:"store the document in the graph first"`
}
