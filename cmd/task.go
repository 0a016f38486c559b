/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/featuregraph/internal/app"
	"github.com/josephgoksu/featuregraph/internal/task"
	"github.com/josephgoksu/featuregraph/internal/ui"
)

// taskCmd represents the task command
var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Plan and track the tasks of a feature",
	Long: `Plan and track the tasks of a feature.

Task ids may be shortened to any unique prefix.

Examples:
  featuregraph task generate feature-001
  featuregraph task add feature-001 --name "Write migration" --depends-on 3f2a
  featuregraph task status 3f2a in-progress
  featuregraph task next feature-001`,
}

var taskGenerateCmd = &cobra.Command{
	Use:   "generate <feature-id>",
	Short: "Generate tasks from a feature's requirements and user stories",
	Long: `Generate tasks for a feature that has none yet. With an LLM configured the
model drafts the plan; otherwise, or when the model fails, tasks are extracted
from the requirements and user stories.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.GenerateOptions{}
		opts.RequirementsOnly, _ = cmd.Flags().GetBool("requirements-only")
		opts.RequireLLM, _ = cmd.Flags().GetBool("llm")
		if opts.RequirementsOnly && opts.RequireLLM {
			return fmt.Errorf("--requirements-only and --llm are mutually exclusive")
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			plan, err := a.GenerateTasks(cmd.Context(), args[0], opts)
			if err != nil {
				return err
			}
			tasks, err := a.Connector.ListTasks(args[0])
			if err != nil {
				return err
			}
			out := map[string]any{"plan": plan, "tasks": tasks}
			return emit(out, func(p *ui.Printer) {
				p.Success("Generated %d tasks for %s (%s)", len(plan.TaskIDs), plan.FeatureID, plan.Source)
				p.Println()
				p.Tasks(tasks)
			})
		})
	},
}

var taskAddCmd = &cobra.Command{
	Use:   "add <feature-id>",
	Short: "Add a task to a feature",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fl := cmd.Flags()
		t := task.Task{Source: task.SourceManual}
		t.Name, _ = fl.GetString("name")
		t.Description, _ = fl.GetString("description")
		priority, _ := fl.GetString("priority")
		t.Priority = task.Priority(priority)
		complexity, _ := fl.GetString("complexity")
		t.Complexity = task.Complexity(complexity)
		stage, _ := fl.GetString("stage")
		t.Stage = task.Stage(stage)
		t.EstimatedHours, _ = fl.GetFloat64("hours")
		deps, _ := fl.GetStringArray("depends-on")

		return withApp(cmd.Context(), func(a *app.App) error {
			created, err := a.AddTask(cmd.Context(), args[0], t, deps...)
			if err != nil {
				return err
			}
			return emit(created, func(p *ui.Printer) {
				p.Success("Task %s added to %s", created.ID, args[0])
			})
		})
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list <feature-id>",
	Short: "List the tasks of a feature in dependency order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			tasks, err := a.Connector.ListTasks(args[0])
			if err != nil {
				return err
			}
			return emit(tasks, func(p *ui.Printer) { p.Tasks(tasks) })
		})
	},
}

var taskStatusCmd = &cobra.Command{
	Use:   "status <task-id> <status>",
	Short: "Change a task's status",
	Long: `Change a task's status to not-started, in-progress, completed or blocked.
A task cannot complete before its dependencies. The feature status is rolled
up from its tasks afterwards.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			updated, err := a.UpdateTaskStatus(cmd.Context(), args[0], task.Status(args[1]))
			if err != nil {
				return err
			}
			return emit(updated, func(p *ui.Printer) {
				p.Success("%s is now %s", updated.ID, updated.Status)
			})
		})
	},
}

var taskNextCmd = &cobra.Command{
	Use:   "next <feature-id>",
	Short: "Show tasks that are ready to start",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		return withApp(cmd.Context(), func(a *app.App) error {
			tasks, err := a.Tasks.NextTasks(args[0], limit)
			if err != nil {
				return err
			}
			return emit(tasks, func(p *ui.Printer) { p.Tasks(tasks) })
		})
	},
}

var taskProgressCmd = &cobra.Command{
	Use:   "progress <feature-id>",
	Short: "Show completion of a feature's tasks",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			pr, err := a.Tasks.Progress(args[0])
			if err != nil {
				return err
			}
			return emit(pr, func(p *ui.Printer) { p.Progress(pr) })
		})
	},
}

func init() {
	rootCmd.AddCommand(taskCmd)
	taskCmd.AddCommand(taskGenerateCmd, taskAddCmd, taskListCmd, taskStatusCmd, taskNextCmd, taskProgressCmd)

	taskGenerateCmd.Flags().Bool("requirements-only", false, "extract tasks from requirements without the LLM")
	taskGenerateCmd.Flags().Bool("llm", false, "fail instead of falling back when no LLM is configured")

	fl := taskAddCmd.Flags()
	fl.String("name", "", "task name (required)")
	fl.String("description", "", "description")
	fl.String("priority", "", "high, medium or low")
	fl.String("complexity", "", "low, medium or high")
	fl.String("stage", "", "design, implement, test, document or deploy")
	fl.Float64("hours", 0, "estimated hours")
	fl.StringArray("depends-on", nil, "id or prefix of a task this one depends on (repeatable)")
	_ = taskAddCmd.MarkFlagRequired("name")

	taskNextCmd.Flags().Int("limit", 5, "maximum tasks to show (0 = all)")
}
