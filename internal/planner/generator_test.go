package planner

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/josephgoksu/featuregraph/internal/connector"
)

const validTaskJSON = `{"tasks": [
	{"name": "Design checkout flow", "description": "Screens and states", "stage": "design", "complexity": "low", "estimated_hours": 3},
	{"name": "Build payment form", "description": "Card entry", "stage": "implement", "complexity": "medium", "estimated_hours": 5, "depends_on": [0]}
]}`

func TestGenerator_RetriesOnParseError(t *testing.T) {
	m := &MockChatModel{Responses: []string{"not json at all", validTaskJSON}}
	g := NewGenerator(m)
	g.delay = 0

	res, err := g.GenerateTasks(context.Background(), connector.Feature{Name: "Checkout", Requirements: []string{"Take payment"}})
	if err != nil {
		t.Fatalf("GenerateTasks: %v", err)
	}
	if res.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", res.Attempts)
	}
	if len(res.Tasks.Tasks) != 2 {
		t.Errorf("got %d tasks, want 2", len(res.Tasks.Tasks))
	}
	if !strings.Contains(m.Prompts[1], "PREVIOUS ATTEMPT FAILED") {
		t.Error("second prompt should carry error feedback")
	}
	if !strings.Contains(m.Prompts[0], "- Take payment") {
		t.Error("prompt should list requirements")
	}
}

func TestGenerator_FeedsBackSchemaErrors(t *testing.T) {
	bad := `{"tasks": [{"name": "x", "stage": "build", "complexity": "low", "depends_on": [3]}]}`
	m := &MockChatModel{Responses: []string{bad}}
	g := NewGenerator(m)
	g.delay = 0

	_, err := g.GenerateTasks(context.Background(), connector.Feature{Name: "Checkout"})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if m.calls() != MaxGenerationRetries {
		t.Errorf("calls = %d, want %d", m.calls(), MaxGenerationRetries)
	}
	last := m.Prompts[len(m.Prompts)-1]
	if !strings.Contains(last, "SCHEMA VALIDATION ERRORS") || !strings.Contains(last, "invalid index 3") {
		t.Errorf("feedback missing schema errors:\n%s", last)
	}
}

func TestGenerator_NonTransientErrorStops(t *testing.T) {
	m := &MockChatModel{Err: errors.New("invalid api key")}
	g := NewGenerator(m)
	g.delay = 0

	if _, err := g.GenerateTasks(context.Background(), connector.Feature{Name: "x"}); err == nil {
		t.Fatal("expected error")
	}
	if m.calls() != 1 {
		t.Errorf("calls = %d, want 1", m.calls())
	}
}

func TestGenerator_TransientErrorRetries(t *testing.T) {
	m := &MockChatModel{Err: errors.New("429 too many requests")}
	g := NewGenerator(m)
	g.delay = 0

	if _, err := g.GenerateTasks(context.Background(), connector.Feature{Name: "x"}); err == nil {
		t.Fatal("expected error")
	}
	if m.calls() != MaxGenerationRetries {
		t.Errorf("calls = %d, want %d", m.calls(), MaxGenerationRetries)
	}
}

func TestFormatErrorFeedback_Truncation(t *testing.T) {
	long := strings.Repeat("a", 600)
	feedback := formatErrorFeedback("Test Error", "test message", long)
	if !strings.Contains(feedback, "[truncated]") {
		t.Error("expected long output to be truncated")
	}
	if strings.Contains(feedback, long) {
		t.Error("found full output in feedback")
	}
}

func TestNewGenerator_NilModel(t *testing.T) {
	if NewGenerator(nil) != nil {
		t.Error("nil model should give nil generator")
	}
}

func TestLLMTaskList_Validate(t *testing.T) {
	tests := []struct {
		name  string
		list  LLMTaskList
		valid bool
	}{
		{"empty", LLMTaskList{}, false},
		{"ok", LLMTaskList{Tasks: []LLMTask{{Name: "Build", Stage: "implement", Complexity: "low"}}}, true},
		{"blank name", LLMTaskList{Tasks: []LLMTask{{Name: "   ", Stage: "implement", Complexity: "low"}}}, false},
		{"bad stage", LLMTaskList{Tasks: []LLMTask{{Name: "Build", Stage: "code", Complexity: "low"}}}, false},
		{"self dependency", LLMTaskList{Tasks: []LLMTask{{Name: "Build", Stage: "implement", Complexity: "low", DependsOn: []int{0}}}}, false},
		{"negative hours", LLMTaskList{Tasks: []LLMTask{{Name: "Build", Stage: "implement", Complexity: "low", EstimatedHours: -1}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.list.Validate()
			if res.Valid != tt.valid {
				t.Errorf("Valid = %v, want %v (%s)", res.Valid, tt.valid, res.ErrorSummary())
			}
		})
	}
}
