// Package mcp exposes the feature graph to AI tools. Handlers take plain
// arguments and return JSON-serializable maps carrying a "success" flag;
// failures put a types.ToolError under "error" instead of failing the call.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/afero"

	"github.com/josephgoksu/featuregraph/internal/app"
	"github.com/josephgoksu/featuregraph/internal/connector"
	"github.com/josephgoksu/featuregraph/internal/graph"
	"github.com/josephgoksu/featuregraph/internal/planner"
	"github.com/josephgoksu/featuregraph/internal/task"
	"github.com/josephgoksu/featuregraph/internal/util"
	"github.com/josephgoksu/featuregraph/types"
)

// Tools binds the tool handlers to one App.
type Tools struct {
	app *app.App
	fs  afero.Fs
}

// NewTools returns handlers over a. fs is used to read documents by path and
// defaults to the OS filesystem.
func NewTools(a *app.App, fs afero.Fs) *Tools {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Tools{app: a, fs: fs}
}

func ok(fields map[string]any) map[string]any {
	fields["success"] = true
	return fields
}

func fail(err error) map[string]any {
	return map[string]any{"success": false, "error": toToolError(err)}
}

func invalid(field, msg string) map[string]any {
	return map[string]any{
		"success": false,
		"error":   types.InvalidField(field, msg),
	}
}

// toToolError classifies err by the sentinel it wraps.
func toToolError(err error) *types.ToolError {
	var te *types.ToolError
	if errors.As(err, &te) {
		return te
	}
	code := types.CodeInternal
	switch {
	case connector.IsNotFound(err), errors.Is(err, util.ErrNotFound), errors.Is(err, graph.ErrNodeNotFound):
		code = types.CodeNotFound
	case errors.Is(err, connector.ErrDuplicateFeature), errors.Is(err, connector.ErrDuplicateTask),
		errors.Is(err, graph.ErrDuplicateNode), errors.Is(err, planner.ErrAlreadyPlanned):
		code = types.CodeAlreadyExists
	case errors.Is(err, planner.ErrDependenciesIncomplete), errors.Is(err, connector.ErrNoRequirements),
		errors.Is(err, task.ErrCycle), errors.Is(err, connector.ErrWrongNodeType):
		code = types.CodeFailedPrecondition
	case errors.Is(err, util.ErrInvalid), errors.Is(err, util.ErrAmbiguousID), errors.Is(err, planner.ErrInvalidStatus):
		code = types.CodeInvalidArgument
	}
	return &types.ToolError{Code: code, Message: err.Error()}
}

// AddFeature creates a feature with its placement, dependencies and concepts.
func (t *Tools) AddFeature(ctx context.Context, p types.AddFeatureParams) map[string]any {
	if strings.TrimSpace(p.ID) == "" {
		return invalid("id", "id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return invalid("name", "name is required")
	}
	f, err := t.app.AddFeature(ctx, featureArgs(p))
	if err != nil {
		return fail(err)
	}
	return ok(map[string]any{"feature_id": f.ID, "feature": f})
}

func featureArgs(p types.AddFeatureParams) map[string]any {
	args := make(map[string]any, len(p.Extra)+16)
	for k, v := range p.Extra {
		args[k] = v
	}
	set := func(k, v string) {
		if v != "" {
			args[k] = v
		}
	}
	args["id"] = p.ID
	args["name"] = p.Name
	set("description", p.Description)
	set("domain", p.Domain)
	set("purpose", p.Purpose)
	set("priority", p.Priority)
	set("milestone_id", p.MilestoneID)
	set("milestone_name", p.MilestoneName)
	set("phase_id", p.PhaseID)
	set("phase_name", p.PhaseName)
	set("module_id", p.ModuleID)
	set("module_name", p.ModuleName)
	if len(p.Tags) > 0 {
		args["tags"] = p.Tags
	}
	if len(p.Requirements) > 0 {
		args["requirements"] = p.Requirements
	}
	if len(p.UserStories) > 0 {
		args["user_stories"] = p.UserStories
	}
	if len(p.DependsOn) > 0 {
		args["dependencies"] = p.DependsOn
	}
	return args
}

// QueryFeatures lists features matching every given filter.
func (t *Tools) QueryFeatures(_ context.Context, p types.QueryFeaturesParams) map[string]any {
	features := t.app.Connector.QueryFeatures(connector.FeatureQuery{
		Domain:      p.Domain,
		Purpose:     p.Purpose,
		Tags:        p.Tags,
		MilestoneID: p.Milestone,
		PhaseID:     p.Phase,
		ModuleID:    p.Module,
		Limit:       p.Limit,
	})
	if features == nil {
		features = []connector.FeatureSummary{}
	}
	return ok(map[string]any{"features": features, "count": len(features)})
}

// GetRelatedFeatures groups the features related to one feature.
func (t *Tools) GetRelatedFeatures(_ context.Context, p types.GetRelatedFeaturesParams) map[string]any {
	if p.ID == "" {
		return invalid("id", "id is required")
	}
	rels := make([]connector.Relation, 0, len(p.Relations))
	for _, r := range p.Relations {
		rel := connector.Relation(r)
		if !isRelation(rel) {
			return invalid("relations", fmt.Sprintf("unknown relation %q", r))
		}
		rels = append(rels, rel)
	}
	related, err := t.app.Connector.GetRelatedFeatures(p.ID, connector.RelatedQuery{
		Relations: rels,
		MaxDepth:  p.MaxDepth,
		Limit:     p.Limit,
	})
	if err != nil {
		return fail(err)
	}
	return ok(map[string]any{"feature_id": p.ID, "related": related})
}

func isRelation(r connector.Relation) bool {
	for _, known := range connector.AllRelations {
		if r == known {
			return true
		}
	}
	return false
}

// AddTask attaches one task to a feature.
func (t *Tools) AddTask(ctx context.Context, p types.AddTaskParams) map[string]any {
	if p.FeatureID == "" {
		return invalid("feature_id", "feature_id is required")
	}
	if strings.TrimSpace(p.Name) == "" {
		return invalid("name", "name is required")
	}
	created, err := t.app.AddTask(ctx, p.FeatureID, task.Task{
		Name:           p.Name,
		Description:    p.Description,
		Priority:       task.Priority(p.Priority),
		Complexity:     task.Complexity(p.Complexity),
		EstimatedHours: p.EstimatedHours,
		Source:         task.SourceManual,
	}, p.DependsOn...)
	if err != nil {
		return fail(err)
	}
	return ok(map[string]any{"task_id": created.ID, "task": created})
}

// GenerateTasks plans the tasks of a feature.
func (t *Tools) GenerateTasks(ctx context.Context, p types.GenerateTasksParams) map[string]any {
	if p.FeatureID == "" {
		return invalid("feature_id", "feature_id is required")
	}
	plan, err := t.app.GenerateTasks(ctx, p.FeatureID, app.GenerateOptions{RequirementsOnly: p.RequirementsOnly})
	if err != nil {
		return fail(err)
	}
	tasks, err := t.app.Connector.ListTasks(p.FeatureID)
	if err != nil {
		return fail(err)
	}
	return ok(map[string]any{
		"feature_id": plan.FeatureID,
		"task_ids":   plan.TaskIDs,
		"source":     plan.Source,
		"tasks":      tasks,
	})
}

// UpdateTaskStatus moves a task to a new status and rolls the feature up.
func (t *Tools) UpdateTaskStatus(ctx context.Context, p types.UpdateTaskStatusParams) map[string]any {
	status := task.Status(p.Status)
	if !status.Valid() {
		return invalid("status", fmt.Sprintf("status must be one of not-started, in-progress, completed, blocked; got %q", p.Status))
	}
	updated, err := t.app.UpdateTaskStatus(ctx, p.ID, status)
	if err != nil {
		return fail(err)
	}
	feature, err := t.app.Connector.GetFeature(updated.FeatureID)
	if err != nil {
		return fail(err)
	}
	return ok(map[string]any{"task": updated, "feature_status": feature.Status})
}

// ValidateDocument validates inline content, or the file at path when no
// content is given.
func (t *Tools) ValidateDocument(ctx context.Context, p types.ValidateDocumentParams) map[string]any {
	content := p.Content
	if content == "" {
		if p.Path == "" {
			return invalid("content", "content or path is required")
		}
		data, err := afero.ReadFile(t.fs, p.Path)
		if err != nil {
			return fail(types.NewToolError(types.CodeNotFound, "%v", err).With("path", p.Path))
		}
		content = string(data)
	}
	path := p.Path
	if path == "" {
		path = "inline.md"
	}
	report, err := t.app.ValidateContent(ctx, path, content, app.ValidateOptions{
		Validators: p.Validators,
		Related:    p.Related,
		Register:   p.Register,
	})
	if err != nil {
		return invalid("content", err.Error())
	}

	primary, err := report.Outcome.Primary.ToMap()
	if err != nil {
		return fail(err)
	}
	related := make(map[string]any, len(report.Outcome.Related))
	for id, r := range report.Outcome.Related {
		m, err := r.ToMap()
		if err != nil {
			return fail(err)
		}
		related[id] = m
	}
	return ok(map[string]any{
		"is_valid": report.Valid(),
		"result":   primary,
		"related":  related,
	})
}
