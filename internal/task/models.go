// Package task defines the task record attached to features and the
// dependency-graph helpers used to order tasks.
package task

import (
	"time"

	"github.com/josephgoksu/featuregraph/internal/util"
)

// Status is the lifecycle state shared by tasks and features.
type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
	StatusBlocked    Status = "blocked"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted, StatusBlocked:
		return true
	}
	return false
}

// Priority ranks urgency.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Complexity is a coarse effort class.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// Stage is the lifecycle bucket a generated task belongs to. Stages run in
// declaration order.
type Stage string

const (
	StageDesign    Stage = "design"
	StageImplement Stage = "implement"
	StageTest      Stage = "test"
	StageDocument  Stage = "document"
	StageDeploy    Stage = "deploy"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageDesign, StageImplement, StageTest, StageDocument, StageDeploy}

// Rank returns the stage position, or len(Stages) for unknown stages.
func (s Stage) Rank() int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return len(Stages)
}

// Task sources.
const (
	SourceRequirement  = "requirement"
	SourceUserStory    = "user_story"
	SourceVerification = "verification"
	SourceManual       = "manual"
	SourceLLM          = "llm"
)

// Task is a unit of work linked to one feature by a feature_has_task edge.
// Dependencies is derived from task_depends_on edges and never stored as a
// property.
type Task struct {
	ID             string     `json:"id" mapstructure:"id"`
	FeatureID      string     `json:"feature_id" mapstructure:"feature_id"`
	Name           string     `json:"name" mapstructure:"name" validate:"required,max=300"`
	Description    string     `json:"description,omitempty" mapstructure:"description"`
	Status         Status     `json:"status" mapstructure:"status" validate:"omitempty,oneof=not-started in-progress completed blocked"`
	Priority       Priority   `json:"priority,omitempty" mapstructure:"priority" validate:"omitempty,oneof=high medium low"`
	Complexity     Complexity `json:"complexity,omitempty" mapstructure:"complexity" validate:"omitempty,oneof=low medium high"`
	EstimatedHours float64    `json:"estimated_hours" mapstructure:"estimated_hours" validate:"gte=0"`
	Stage          Stage      `json:"stage,omitempty" mapstructure:"stage"`
	Source         string     `json:"source,omitempty" mapstructure:"source"`
	Order          int        `json:"order" mapstructure:"order"`
	CreatedAt      time.Time  `json:"created_at" mapstructure:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" mapstructure:"updated_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty" mapstructure:"completed_at"`

	Dependencies []string `json:"dependencies,omitempty" mapstructure:"dependencies"`

	AdditionalProperties map[string]any `json:"additional_properties,omitempty" mapstructure:",remain"`
}

// Validate checks field constraints and fills defaults for status and priority.
func (t *Task) Validate() error {
	if t.Status == "" {
		t.Status = StatusNotStarted
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	return util.ValidateStruct(t)
}

// Progress summarizes task completion for one feature.
type Progress struct {
	FeatureID  string  `json:"feature_id"`
	Total      int     `json:"total"`
	NotStarted int     `json:"not_started"`
	InProgress int     `json:"in_progress"`
	Completed  int     `json:"completed"`
	Blocked    int     `json:"blocked"`
	Percent    float64 `json:"percent"`
	Hours      float64 `json:"estimated_hours"`
	HoursDone  float64 `json:"completed_hours"`
}

// Summarize counts tasks by status.
func Summarize(featureID string, tasks []Task) Progress {
	p := Progress{FeatureID: featureID, Total: len(tasks)}
	for _, t := range tasks {
		p.Hours += t.EstimatedHours
		switch t.Status {
		case StatusCompleted:
			p.Completed++
			p.HoursDone += t.EstimatedHours
		case StatusInProgress:
			p.InProgress++
		case StatusBlocked:
			p.Blocked++
		default:
			p.NotStarted++
		}
	}
	if p.Total > 0 {
		p.Percent = float64(p.Completed) * 100 / float64(p.Total)
	}
	return p
}
