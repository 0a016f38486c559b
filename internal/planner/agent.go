package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/cloudwego/eino/components/model"
	"golang.org/x/sync/singleflight"

	"github.com/josephgoksu/featuregraph/internal/connector"
	"github.com/josephgoksu/featuregraph/internal/task"
)

// ErrAlreadyPlanned is returned when a feature already has tasks.
var ErrAlreadyPlanned = errors.New("feature already has tasks")

// Plan sources.
const (
	PlanHeuristic = "heuristic"
	PlanLLM       = "llm"
)

// Plan reports what GenerateTasks created.
type Plan struct {
	FeatureID string   `json:"feature_id"`
	TaskIDs   []string `json:"task_ids"`
	Source    string   `json:"source"`
	Attempts  int      `json:"attempts,omitempty"`
}

// Agent generates the task list of a feature. Concurrent calls for the same
// feature share one generation.
type Agent struct {
	conn  *connector.Connector
	gen   *Generator
	group singleflight.Group
}

// NewAgent returns an Agent. With a nil chat model only keyword heuristics
// are used.
func NewAgent(conn *connector.Connector, chatModel model.BaseChatModel) *Agent {
	return &Agent{conn: conn, gen: NewGenerator(chatModel)}
}

// GenerateTasks creates tasks for the feature from its requirements and user
// stories and wires their dependencies.
func (a *Agent) GenerateTasks(ctx context.Context, featureID string) (Plan, error) {
	v, err, shared := a.group.Do(featureID, func() (any, error) {
		return a.generate(ctx, featureID)
	})
	if err != nil {
		return Plan{}, err
	}
	if shared {
		slog.Debug("task generation shared", "feature", featureID)
	}
	return v.(Plan), nil
}

func (a *Agent) generate(ctx context.Context, featureID string) (Plan, error) {
	f, err := a.conn.GetFeature(featureID)
	if err != nil {
		return Plan{}, err
	}
	existing, err := a.conn.ListTasks(featureID)
	if err != nil {
		return Plan{}, err
	}
	if len(existing) > 0 {
		return Plan{}, fmt.Errorf("%w: %s has %d", ErrAlreadyPlanned, featureID, len(existing))
	}
	if len(f.Requirements) == 0 && len(f.UserStories) == 0 {
		return Plan{}, fmt.Errorf("%w: %s", connector.ErrNoRequirements, featureID)
	}

	plan := Plan{FeatureID: featureID, Source: PlanHeuristic}
	var drafts []connector.TaskDraft
	if a.gen != nil {
		res, err := a.gen.GenerateTasks(ctx, f)
		if err == nil {
			drafts, err = draftsFromLLM(f, res.Tasks)
		}
		if err != nil {
			if ctx.Err() != nil {
				return Plan{}, ctx.Err()
			}
			slog.Warn("LLM task generation failed, using heuristics", "feature", featureID, "error", err)
		} else {
			plan.Source, plan.Attempts = PlanLLM, res.Attempts
		}
	}
	if drafts == nil {
		drafts = ExtractDrafts(f)
	}
	if err := verifyDrafts(drafts); err != nil {
		return Plan{}, err
	}

	ids, err := a.conn.CreateTasks(ctx, featureID, drafts)
	if err != nil {
		return Plan{}, err
	}
	plan.TaskIDs = ids
	slog.Info("tasks generated", "feature", featureID, "count", len(ids), "source", plan.Source)
	return plan, nil
}

// draftsFromLLM orders the model's tasks so every dependency comes first and
// rewrites depends_on indices to positions in that order.
func draftsFromLLM(f connector.Feature, list LLMTaskList) ([]connector.TaskDraft, error) {
	tasks := make([]task.Task, len(list.Tasks))
	for i, lt := range list.Tasks {
		deps := make([]string, 0, len(lt.DependsOn))
		for _, d := range lt.DependsOn {
			deps = append(deps, draftID(d))
		}
		tasks[i] = task.Task{
			ID:             draftID(i),
			Name:           lt.Name,
			Description:    lt.Description,
			Priority:       f.Priority,
			Complexity:     task.Complexity(lt.Complexity),
			EstimatedHours: lt.EstimatedHours,
			Stage:          task.Stage(lt.Stage),
			Source:         task.SourceLLM,
			Dependencies:   deps,
		}
	}
	sorted, err := task.TopologicalSort(tasks)
	if err != nil {
		return nil, err
	}

	pos := make(map[string]int, len(sorted))
	drafts := make([]connector.TaskDraft, len(sorted))
	for i, t := range sorted {
		pos[t.ID] = i
		d := connector.TaskDraft{Task: t}
		for _, dep := range t.Dependencies {
			d.DependsOn = append(d.DependsOn, pos[dep])
		}
		d.Task.ID, d.Task.Dependencies = "", nil
		drafts[i] = d
	}

	if !slices.ContainsFunc(drafts, func(d connector.TaskDraft) bool { return d.Task.Stage == task.StageTest }) {
		verify := connector.TaskDraft{Task: task.Task{
			Name:           "Verify " + f.Name,
			Description:    fmt.Sprintf("Verify that %s meets all of its requirements and user stories.", f.Name),
			Priority:       f.Priority,
			Complexity:     task.ComplexityMedium,
			EstimatedHours: hoursByComplexity[task.ComplexityMedium],
			Stage:          task.StageTest,
			Source:         task.SourceVerification,
		}}
		for i, d := range drafts {
			if d.Task.Stage.Rank() < task.StageTest.Rank() {
				verify.DependsOn = append(verify.DependsOn, i)
			}
		}
		drafts = append(drafts, verify)
	}
	return drafts, nil
}

// verifyDrafts checks a batch for cycles and forward references.
func verifyDrafts(drafts []connector.TaskDraft) error {
	tasks := make([]task.Task, len(drafts))
	for i, d := range drafts {
		t := task.Task{ID: draftID(i)}
		for _, p := range d.DependsOn {
			if p < 0 || p >= i {
				return fmt.Errorf("draft %d depends on position %d", i, p)
			}
			t.Dependencies = append(t.Dependencies, draftID(p))
		}
		tasks[i] = t
	}
	return task.VerifyDAG(tasks)
}

func draftID(i int) string { return fmt.Sprintf("draft-%d", i) }
