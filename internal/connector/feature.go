package connector

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"

	"github.com/josephgoksu/featuregraph/internal/task"
)

// Feature is the typed view of a feature node. Properties the struct does not
// name survive in AdditionalProperties.
type Feature struct {
	ID             string        `json:"id" mapstructure:"id" validate:"required,max=200"`
	Name           string        `json:"name" mapstructure:"name" validate:"required,max=300"`
	Description    string        `json:"description,omitempty" mapstructure:"description"`
	Status         task.Status   `json:"status" mapstructure:"status" validate:"omitempty,oneof=not-started in-progress completed blocked"`
	Tags           []string      `json:"tags,omitempty" mapstructure:"tags"`
	Domain         string        `json:"domain,omitempty" mapstructure:"domain"`
	Purpose        string        `json:"purpose,omitempty" mapstructure:"purpose"`
	Requirements   []string      `json:"requirements,omitempty" mapstructure:"requirements"`
	UserStories    []string      `json:"user_stories,omitempty" mapstructure:"user_stories"`
	Priority       task.Priority `json:"priority,omitempty" mapstructure:"priority" validate:"omitempty,oneof=high medium low"`
	EffortEstimate string        `json:"effort_estimate,omitempty" mapstructure:"effort_estimate"`
	RiskLevel      string        `json:"risk_level,omitempty" mapstructure:"risk_level"`
	TestCoverage   float64       `json:"test_coverage" mapstructure:"test_coverage" validate:"gte=0,lte=100"`
	Version        string        `json:"version,omitempty" mapstructure:"version"`
	Stakeholders   []string      `json:"stakeholders,omitempty" mapstructure:"stakeholders"`

	MilestoneID string `json:"milestone_id,omitempty" mapstructure:"milestone_id"`
	PhaseID     string `json:"phase_id,omitempty" mapstructure:"phase_id"`
	ModuleID    string `json:"module_id,omitempty" mapstructure:"module_id"`

	// Placeholder marks a node created only because another feature depends on it.
	Placeholder bool      `json:"placeholder,omitempty" mapstructure:"placeholder"`
	CreatedAt   time.Time `json:"created_at" mapstructure:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" mapstructure:"updated_at"`

	AdditionalProperties map[string]any `json:"additional_properties,omitempty" mapstructure:",remain"`
}

// Dependency names a feature the new feature depends on. Name is used only
// when a placeholder has to be created.
type Dependency struct {
	ID   string `json:"id" mapstructure:"id"`
	Name string `json:"name,omitempty" mapstructure:"name"`
}

// FeatureInput is the payload of AddFeature.
type FeatureInput struct {
	Feature `mapstructure:",squash"`

	MilestoneName string       `json:"milestone_name,omitempty" mapstructure:"milestone_name"`
	PhaseName     string       `json:"phase_name,omitempty" mapstructure:"phase_name"`
	ModuleName    string       `json:"module_name,omitempty" mapstructure:"module_name"`
	Dependencies  []Dependency `json:"dependencies,omitempty" mapstructure:"dependencies"`
}

// DecodeFeatureInput turns a plain map (tool arguments, YAML) into a
// FeatureInput. Dependencies may be ids or {id, name} objects.
func DecodeFeatureInput(args map[string]any) (FeatureInput, error) {
	var in FeatureInput
	if err := decodeRecord(args, &in); err != nil {
		return FeatureInput{}, fmt.Errorf("decode feature: %w", err)
	}
	return in, nil
}

// FeatureSummary is the compact form returned by queries.
type FeatureSummary struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      task.Status   `json:"status"`
	Priority    task.Priority `json:"priority,omitempty"`
	Domain      string        `json:"domain,omitempty"`
	Purpose     string        `json:"purpose,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	ModuleID    string        `json:"module_id,omitempty"`
	Placeholder bool          `json:"placeholder,omitempty"`
}

// Summary returns the compact form of f.
func (f Feature) Summary() FeatureSummary {
	return FeatureSummary{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Status:      f.Status,
		Priority:    f.Priority,
		Domain:      f.Domain,
		Purpose:     f.Purpose,
		Tags:        f.Tags,
		ModuleID:    f.ModuleID,
		Placeholder: f.Placeholder,
	}
}

func (f Feature) properties() map[string]any {
	p := make(map[string]any, len(f.AdditionalProperties)+20)
	for k, v := range f.AdditionalProperties {
		p[k] = v
	}
	p["name"] = f.Name
	p["description"] = f.Description
	p["status"] = string(f.Status)
	p["tags"] = nonNil(f.Tags)
	p["domain"] = f.Domain
	p["purpose"] = f.Purpose
	p["requirements"] = nonNil(f.Requirements)
	p["user_stories"] = nonNil(f.UserStories)
	p["priority"] = string(f.Priority)
	p["effort_estimate"] = f.EffortEstimate
	p["risk_level"] = f.RiskLevel
	p["test_coverage"] = f.TestCoverage
	p["version"] = f.Version
	p["stakeholders"] = nonNil(f.Stakeholders)
	p["milestone_id"] = f.MilestoneID
	p["phase_id"] = f.PhaseID
	p["module_id"] = f.ModuleID
	p["placeholder"] = f.Placeholder
	p["created_at"] = f.CreatedAt.Format(time.RFC3339Nano)
	p["updated_at"] = f.UpdatedAt.Format(time.RFC3339Nano)
	return p
}

func taskProperties(t task.Task) map[string]any {
	p := make(map[string]any, len(t.AdditionalProperties)+14)
	for k, v := range t.AdditionalProperties {
		p[k] = v
	}
	p["feature_id"] = t.FeatureID
	p["name"] = t.Name
	p["description"] = t.Description
	p["status"] = string(t.Status)
	p["priority"] = string(t.Priority)
	p["complexity"] = string(t.Complexity)
	p["estimated_hours"] = t.EstimatedHours
	p["stage"] = string(t.Stage)
	p["source"] = t.Source
	p["order"] = t.Order
	p["created_at"] = t.CreatedAt.Format(time.RFC3339Nano)
	p["updated_at"] = t.UpdatedAt.Format(time.RFC3339Nano)
	if t.CompletedAt != nil {
		p["completed_at"] = t.CompletedAt.Format(time.RFC3339Nano)
	}
	return p
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var dependencyType = reflect.TypeOf(Dependency{})

// stringToDependency lets callers list dependencies as bare ids.
func stringToDependency(from, to reflect.Type, data any) (any, error) {
	if from == nil || to != dependencyType || from.Kind() != reflect.String {
		return data, nil
	}
	return Dependency{ID: strings.TrimSpace(data.(string))}, nil
}

func decodeRecord(props map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			stringToDependency,
		),
	})
	if err != nil {
		return err
	}
	return dec.Decode(props)
}
