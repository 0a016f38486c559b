// Package planner turns features into ordered task lists and tracks their
// completion. Model output is held to a strict schema before any task is
// written to the graph.
package planner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("nonempty", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}

// LLMTaskList is the JSON a model must return when asked to break a feature
// into tasks.
type LLMTaskList struct {
	Tasks []LLMTask `json:"tasks" validate:"required,min=1,max=40,dive"`
}

// LLMTask is one task in an LLMTaskList.
type LLMTask struct {
	Name           string  `json:"name" validate:"required,nonempty,max=200"`
	Description    string  `json:"description"`
	Stage          string  `json:"stage" validate:"required,oneof=design implement test document deploy"`
	Complexity     string  `json:"complexity" validate:"required,oneof=low medium high"`
	EstimatedHours float64 `json:"estimated_hours" validate:"gte=0,lte=200"`

	// DependsOn lists 0-based indices of other tasks in the list.
	DependsOn []int `json:"depends_on,omitempty"`
}

// Validate checks struct rules and that every index in DependsOn points at
// another task of the list.
func (l *LLMTaskList) Validate() ValidationResult {
	result := validateStruct(l)
	for i, t := range l.Tasks {
		for _, d := range t.DependsOn {
			if d < 0 || d >= len(l.Tasks) || d == i {
				result.Valid = false
				result.Errors = append(result.Errors, ValidationError{
					Field:   fmt.Sprintf("Tasks[%d].DependsOn", i),
					Tag:     "index",
					Value:   d,
					Message: fmt.Sprintf("task %d depends on invalid index %d", i, d),
				})
			}
		}
	}
	return result
}

// ValidationError is one schema violation, phrased for feeding back to the model.
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   any    `json:"value,omitempty"`
	Message string `json:"message"`
}

// ValidationResult collects schema violations.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

func validateStruct(s any) ValidationResult {
	err := validate.Struct(s)
	if err == nil {
		return ValidationResult{Valid: true}
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return ValidationResult{Errors: []ValidationError{{Message: err.Error()}}}
	}
	out := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out = append(out, ValidationError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Value:   fe.Value(),
			Message: formatValidationError(fe),
		})
	}
	return ValidationResult{Errors: out}
}

func formatValidationError(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "nonempty":
		return fmt.Sprintf("%s cannot be empty or whitespace", err.Field())
	case "min":
		return fmt.Sprintf("%s must have at least %s items", err.Field(), err.Param())
	case "max":
		if err.Kind().String() == "string" {
			return fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		}
		return fmt.Sprintf("%s must have at most %s items", err.Field(), err.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range (%s %s)", err.Field(), err.Tag(), err.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", err.Field(), err.Tag())
	}
}

// ErrorSummary joins every message into one line.
func (r ValidationResult) ErrorSummary() string {
	if r.Valid {
		return ""
	}
	parts := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, "; ")
}
