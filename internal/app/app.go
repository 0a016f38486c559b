// Package app is the composition root. It builds every service once and
// exposes the operations the CLI and the MCP server share, so both stay thin
// adapters over the same code.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/spf13/afero"

	"github.com/josephgoksu/featuregraph/internal/config"
	"github.com/josephgoksu/featuregraph/internal/connector"
	"github.com/josephgoksu/featuregraph/internal/graph"
	"github.com/josephgoksu/featuregraph/internal/llm"
	"github.com/josephgoksu/featuregraph/internal/planner"
	"github.com/josephgoksu/featuregraph/internal/policy"
	"github.com/josephgoksu/featuregraph/internal/tags"
	"github.com/josephgoksu/featuregraph/internal/task"
	"github.com/josephgoksu/featuregraph/internal/telemetry"
	"github.com/josephgoksu/featuregraph/internal/util"
	"github.com/josephgoksu/featuregraph/internal/validation"
	"github.com/josephgoksu/featuregraph/internal/validation/validators"
)

// ErrLLMNotConfigured is returned when a caller insists on LLM planning but
// no provider is configured.
var ErrLLMNotConfigured = errors.New("no LLM provider configured (set llm.provider)")

// Options carries everything New needs. Zero values fall back to the OS
// filesystem, the JSON backend and disabled telemetry.
type Options struct {
	Fs         afero.Fs
	Backend    string
	GraphPath  string
	TagCache   string
	Lemmatize  bool
	Validation validation.Config
	LLM        llm.Config
	Telemetry  telemetry.Client
}

// App holds the wired services. Fields are exported for read access by the
// adapters; construct it only through New.
type App struct {
	Store     graph.Store
	Tags      *tags.Manager
	Connector *connector.Connector
	Agent     *planner.Agent
	Tasks     *planner.Service
	Documents *validation.GraphDocuments
	Policies  *policy.Engine
	Validator *validation.Manager
	Loader    *validation.Loader
	Telemetry telemetry.Client

	hasLLM bool
	closer func() error
}

// New opens the graph and builds the service graph on top of it. A chat model
// is created only when an LLM provider is configured; if that fails the
// planner falls back to heuristics.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Telemetry == nil {
		opts.Telemetry = telemetry.NoopClient{}
	}

	store, closer, err := openStore(opts)
	if err != nil {
		return nil, err
	}

	tm := tags.NewManager(tags.Options{Fs: opts.Fs, CachePath: opts.TagCache, Lemmatize: opts.Lemmatize})
	conn := connector.New(store, tm)

	var chatModel model.BaseChatModel
	if opts.LLM.Enabled() {
		chatModel, err = llm.NewChatModel(ctx, opts.LLM)
		if err != nil {
			slog.Warn("LLM unavailable, task planning uses heuristics", "provider", opts.LLM.Provider, "error", err)
			chatModel = nil
		}
	}

	pcfg := opts.Validation.Validators.Policy
	engine, err := policy.Open(ctx, policy.Config{Dir: pcfg.Dir, Package: pcfg.Package, Fs: opts.Fs})
	if err != nil {
		if closer != nil {
			_ = closer()
		}
		return nil, fmt.Errorf("policy engine: %w", err)
	}

	docs := validation.NewGraphDocuments(store)
	return &App{
		Store:     store,
		Tags:      tm,
		Connector: conn,
		Agent:     planner.NewAgent(conn, chatModel),
		Tasks:     planner.NewService(conn),
		Documents: docs,
		Policies:  engine,
		Validator: validators.NewManager(opts.Validation, docs, engine),
		Loader:    validation.NewLoader(opts.Fs),
		Telemetry: opts.Telemetry,
		hasLLM:    chatModel != nil,
		closer:    closer,
	}, nil
}

func openStore(opts Options) (graph.Store, func() error, error) {
	switch opts.Backend {
	case config.BackendSQLite:
		s, err := graph.OpenSQLiteStore(opts.GraphPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite graph: %w", err)
		}
		return s, s.Close, nil
	case "", config.BackendJSON:
		s, err := graph.OpenFileStore(opts.Fs, opts.GraphPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open graph: %w", err)
		}
		return s, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown graph backend %q", opts.Backend)
	}
}

// HasLLM reports whether task planning can use a chat model.
func (a *App) HasLLM() bool { return a.hasLLM }

// Close releases the graph backend. The telemetry client belongs to the
// caller and stays open.
func (a *App) Close() error {
	if a.closer == nil {
		return nil
	}
	return a.closer()
}

// AddFeature creates a feature from plain arguments.
func (a *App) AddFeature(ctx context.Context, args map[string]any) (connector.Feature, error) {
	in, err := connector.DecodeFeatureInput(args)
	if err != nil {
		return connector.Feature{}, err
	}
	id, err := a.Connector.AddFeature(ctx, in)
	if err != nil {
		return connector.Feature{}, err
	}
	f, err := a.Connector.GetFeature(id)
	if err != nil {
		return connector.Feature{}, err
	}
	a.Telemetry.Track(telemetry.EventFeatureAdded, telemetry.Properties{
		"requirements": len(f.Requirements),
		"tags":         len(f.Tags),
		"dependencies": len(in.Dependencies),
	})
	return f, nil
}

// GenerateOptions tunes GenerateTasks.
type GenerateOptions struct {
	// RequirementsOnly creates one task per requirement with no ordering.
	RequirementsOnly bool
	// RequireLLM fails instead of falling back when no chat model exists.
	RequireLLM bool
}

// GenerateTasks plans the tasks of a feature.
func (a *App) GenerateTasks(ctx context.Context, featureID string, opts GenerateOptions) (planner.Plan, error) {
	start := time.Now()
	var plan planner.Plan
	switch {
	case opts.RequirementsOnly:
		ids, err := a.Connector.GenerateTasksFromRequirements(ctx, featureID)
		if err != nil {
			return planner.Plan{}, err
		}
		plan = planner.Plan{FeatureID: featureID, TaskIDs: ids, Source: "requirements"}
	case opts.RequireLLM && !a.hasLLM:
		return planner.Plan{}, ErrLLMNotConfigured
	default:
		var err error
		if plan, err = a.Agent.GenerateTasks(ctx, featureID); err != nil {
			return planner.Plan{}, err
		}
	}
	a.Telemetry.Track(telemetry.EventTasksGenerated, telemetry.Properties{
		"count":       len(plan.TaskIDs),
		"source":      plan.Source,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return plan, nil
}

// AddTask attaches a single task to a feature and makes it depend on the
// given tasks. Dependency ids may be unique prefixes.
func (a *App) AddTask(ctx context.Context, featureID string, t task.Task, dependsOn ...string) (task.Task, error) {
	deps := make([]string, 0, len(dependsOn))
	for _, d := range dependsOn {
		id, err := a.ResolveTaskID(d)
		if err != nil {
			return task.Task{}, err
		}
		deps = append(deps, id)
	}
	id, err := a.Connector.AddTaskToFeature(ctx, featureID, t)
	if err != nil {
		return task.Task{}, err
	}
	for _, d := range deps {
		if err := a.Connector.AddTaskDependency(ctx, id, d); err != nil {
			return task.Task{}, fmt.Errorf("task %s created, dependency on %s failed: %w", id, d, err)
		}
	}
	return a.Connector.GetTask(id)
}

// ResolveTaskID accepts a full task id or a unique prefix of one.
func (a *App) ResolveTaskID(idOrPrefix string) (string, error) {
	return util.ResolvePrefix(idOrPrefix, a.Connector.TaskIDs(), "task")
}

// UpdateTaskStatus resolves the task id and moves it to status.
func (a *App) UpdateTaskStatus(ctx context.Context, idOrPrefix string, status task.Status) (task.Task, error) {
	id, err := a.ResolveTaskID(idOrPrefix)
	if err != nil {
		return task.Task{}, err
	}
	return a.Tasks.UpdateStatus(ctx, id, status)
}
