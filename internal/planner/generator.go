package planner

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"strings"
	"text/template"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/josephgoksu/featuregraph/internal/connector"
)

const (
	// MaxGenerationRetries bounds attempts per feature, including retries
	// after a schema violation.
	MaxGenerationRetries = 3

	// RetryDelay is the base pause between attempts.
	RetryDelay = 500 * time.Millisecond
)

// Generator asks a chat model for a feature's task list and holds the answer
// to the LLMTaskList schema, feeding violations back on retry.
type Generator struct {
	chatModel model.BaseChatModel
	delay     time.Duration
}

// NewGenerator wraps a chat model. A nil model yields a nil Generator.
func NewGenerator(m model.BaseChatModel) *Generator {
	if m == nil {
		return nil
	}
	return &Generator{chatModel: m, delay: RetryDelay}
}

// GenerationResult is a validated model answer.
type GenerationResult struct {
	Tasks     LLMTaskList
	RawOutput string
	Attempts  int
	Duration  time.Duration
}

// GenerateTasks returns a validated task list for f.
func (g *Generator) GenerateTasks(ctx context.Context, f connector.Feature) (*GenerationResult, error) {
	start := time.Now()
	tmpl, err := template.New("tasks").Parse(taskPromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse template: %w", err)
	}
	input := map[string]any{
		"Name":         f.Name,
		"Description":  f.Description,
		"Requirements": f.Requirements,
		"UserStories":  f.UserStories,
		"Domain":       f.Domain,
	}

	var lastErr error
	var feedback string
	for attempt := 1; attempt <= MaxGenerationRetries; attempt++ {
		promptInput := maps.Clone(input)
		if feedback != "" {
			promptInput["ValidationErrors"] = feedback
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, promptInput); err != nil {
			return nil, fmt.Errorf("execute template: %w", err)
		}

		resp, err := g.chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(buf.String())})
		if err != nil {
			lastErr = fmt.Errorf("LLM generate: %w", err)
			if isTransientError(err) && attempt < MaxGenerationRetries {
				if !g.sleep(ctx, g.delay*time.Duration(attempt)) {
					return nil, ctx.Err()
				}
				continue
			}
			return nil, lastErr
		}

		list, err := decodeModelJSON[LLMTaskList](resp.Content)
		if err != nil {
			lastErr = fmt.Errorf("parse JSON (attempt %d): %w", attempt, err)
			feedback = formatErrorFeedback("JSON Parse Error", err.Error(), resp.Content)
		} else if res := list.Validate(); !res.Valid {
			lastErr = fmt.Errorf("validation failed (attempt %d): %s", attempt, res.ErrorSummary())
			feedback = formatValidationFeedback(res)
		} else {
			return &GenerationResult{
				Tasks:     list,
				RawOutput: resp.Content,
				Attempts:  attempt,
				Duration:  time.Since(start),
			}, nil
		}
		if attempt < MaxGenerationRetries && !g.sleep(ctx, g.delay) {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("generation failed after %d attempts: %w", MaxGenerationRetries, lastErr)
}

func (g *Generator) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func formatErrorFeedback(errorType, errorMsg, rawOutput string) string {
	truncated := rawOutput
	if len(truncated) > 500 {
		truncated = truncated[:500] + "... [truncated]"
	}
	return fmt.Sprintf(`
PREVIOUS ATTEMPT FAILED - PLEASE FIX

Error Type: %s
Error: %s

Your previous output (which failed):
%s

Please ensure your response is valid JSON matching the required schema.
`, errorType, errorMsg, truncated)
}

func formatValidationFeedback(result ValidationResult) string {
	var sb strings.Builder
	sb.WriteString("\nPREVIOUS ATTEMPT FAILED - SCHEMA VALIDATION ERRORS\n\n")
	sb.WriteString("Please fix the following issues:\n")
	for i, e := range result.Errors {
		fmt.Fprintf(&sb, "%d. Field '%s': %s\n", i+1, e.Field, e.Message)
		if e.Value != nil {
			fmt.Fprintf(&sb, "   Current value: %v\n", e.Value)
		}
	}
	sb.WriteString("\nPlease regenerate the response with these issues corrected.\n")
	return sb.String()
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}
	s := strings.ToLower(err.Error())
	for _, marker := range []string{"rate limit", "429", "too many requests", "quota exceeded", "timeout", "connection", "temporary"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

const taskPromptTemplate = `You are a senior engineer breaking a product feature into implementation tasks.

FEATURE: {{.Name}}
{{if .Domain}}DOMAIN: {{.Domain}}
{{end}}{{if .Description}}DESCRIPTION:
{{.Description}}
{{end}}{{if .Requirements}}
REQUIREMENTS:
{{range .Requirements}}- {{.}}
{{end}}{{end}}{{if .UserStories}}
USER STORIES:
{{range .UserStories}}- {{.}}
{{end}}{{end}}{{if .ValidationErrors}}
{{.ValidationErrors}}
{{end}}
Return JSON with this schema:

{
  "tasks": [
    {
      "name": "string (max 200 chars, action-oriented)",
      "description": "string",
      "stage": "design|implement|test|document|deploy",
      "complexity": "low|medium|high",
      "estimated_hours": number,
      "depends_on": [0-based indices of tasks that must finish first]
    }
  ]
}

RULES:
- Cover every requirement and user story
- Include at least one test task
- depends_on must not form a cycle
- Output ONLY valid JSON, no markdown or explanation

Generate the task JSON now:`
