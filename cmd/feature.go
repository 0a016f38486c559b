/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/josephgoksu/featuregraph/internal/app"
	"github.com/josephgoksu/featuregraph/internal/connector"
	"github.com/josephgoksu/featuregraph/internal/task"
	"github.com/josephgoksu/featuregraph/internal/ui"
)

// featureCmd represents the feature command
var featureCmd = &cobra.Command{
	Use:   "feature",
	Short: "Manage features in the knowledge graph",
	Long: `Manage features in the knowledge graph.

Adding a feature creates its milestone, phase and module ancestors, placeholder
nodes for dependencies that do not exist yet, and concept, domain and purpose
nodes derived from its tags.

Examples:
  featuregraph feature add --id feature-001 --name "User Login" --tag auth --requirement "Hash passwords"
  featuregraph feature add --file feature.yaml
  featuregraph feature list --domain security
  featuregraph feature related feature-001 --relation dependencies --depth 3`,
}

// featureFlagKeys maps string flags to feature property keys.
var featureFlagKeys = map[string]string{
	"id":             "id",
	"name":           "name",
	"description":    "description",
	"domain":         "domain",
	"purpose":        "purpose",
	"priority":       "priority",
	"status":         "status",
	"version":        "version",
	"effort":         "effort_estimate",
	"risk":           "risk_level",
	"milestone":      "milestone_id",
	"milestone-name": "milestone_name",
	"phase":          "phase_id",
	"phase-name":     "phase_name",
	"module":         "module_id",
	"module-name":    "module_name",
}

// featureListFlagKeys maps repeatable flags to list properties.
var featureListFlagKeys = map[string]string{
	"tag":         "tags",
	"requirement": "requirements",
	"user-story":  "user_stories",
	"depends-on":  "dependencies",
	"stakeholder": "stakeholders",
}

var featureAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a feature",
	Long: `Add a feature from flags, a YAML file, or both. Flags override file values.

The YAML file uses the property names of the graph, for example:

  id: feature-001
  name: User Login
  domain: security
  tags: [authentication, ui]
  requirements:
    - Hash passwords with bcrypt
  dependencies: [feature-000]`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		props, err := featureArgsFromFlags(cmd)
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			f, err := a.AddFeature(cmd.Context(), props)
			if err != nil {
				return err
			}
			return emit(f, func(p *ui.Printer) {
				p.Success("Feature %s created", f.ID)
			})
		})
	},
}

func featureArgsFromFlags(cmd *cobra.Command) (map[string]any, error) {
	props := map[string]any{}
	if file, _ := cmd.Flags().GetString("file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read feature file: %w", err)
		}
		if err := yaml.Unmarshal(data, &props); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		if props == nil {
			props = map[string]any{}
		}
	}
	for flag, key := range featureFlagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			props[key] = f.Value.String()
		}
	}
	for flag, key := range featureListFlagKeys {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			vals, _ := cmd.Flags().GetStringArray(flag)
			props[key] = vals
		}
	}
	return props, nil
}

var featureShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one feature",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			f, err := a.Connector.GetFeature(args[0])
			if err != nil {
				return err
			}
			progress, err := a.Tasks.Progress(f.ID)
			if err != nil {
				return err
			}
			out := map[string]any{"feature": f, "progress": progress}
			return emit(out, func(p *ui.Printer) {
				p.Feature(f)
				if progress.Total > 0 {
					p.Section("Progress")
					p.Progress(progress)
				}
			})
		})
	},
}

var featureListCmd = &cobra.Command{
	Use:   "list",
	Short: "List features",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fl := cmd.Flags()
		q := connector.FeatureQuery{}
		q.Domain, _ = fl.GetString("domain")
		q.Purpose, _ = fl.GetString("purpose")
		q.Tags, _ = fl.GetStringArray("tag")
		q.MilestoneID, _ = fl.GetString("milestone")
		q.PhaseID, _ = fl.GetString("phase")
		q.ModuleID, _ = fl.GetString("module")
		status, _ := fl.GetString("status")
		q.Status = task.Status(status)
		q.IncludePlaceholders, _ = fl.GetBool("placeholders")
		q.Limit, _ = fl.GetInt("limit")

		return withApp(cmd.Context(), func(a *app.App) error {
			features := a.Connector.QueryFeatures(q)
			if features == nil {
				features = []connector.FeatureSummary{}
			}
			return emit(features, func(p *ui.Printer) { p.Features(features) })
		})
	},
}

var featureRelatedCmd = &cobra.Command{
	Use:   "related <id>",
	Short: "Show features related to a feature",
	Long: `Show features related to a feature, grouped by relation:
dependencies, dependents, same_domain, same_purpose, same_module, shared_concepts.
Dependencies and dependents are followed up to --depth hops.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		names, _ := cmd.Flags().GetStringSlice("relation")
		q := connector.RelatedQuery{}
		q.MaxDepth, _ = cmd.Flags().GetInt("depth")
		q.Limit, _ = cmd.Flags().GetInt("limit")
		for _, n := range names {
			q.Relations = append(q.Relations, connector.Relation(n))
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			related, err := a.Connector.GetRelatedFeatures(args[0], q)
			if err != nil {
				return err
			}
			return emit(related, func(p *ui.Printer) {
				p.Header("Related to "+args[0], "")
				p.Related(related)
			})
		})
	},
}

var featureUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Update feature properties",
	Long: `Update feature properties. Only the given flags change. Changing tags
rewires the feature's concept nodes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		updates, err := featureArgsFromFlags(cmd)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			return fmt.Errorf("nothing to update; pass at least one property flag")
		}
		return withApp(cmd.Context(), func(a *app.App) error {
			f, err := a.Connector.UpdateFeature(cmd.Context(), args[0], updates)
			if err != nil {
				return err
			}
			return emit(f, func(p *ui.Printer) { p.Success("Feature %s updated", f.ID) })
		})
	},
}

func addFeaturePropertyFlags(cmd *cobra.Command, withID bool) {
	fl := cmd.Flags()
	if withID {
		fl.String("id", "", "feature id")
		fl.String("file", "", "YAML file with feature properties")
		fl.String("milestone-name", "", "name for a newly created milestone")
		fl.String("phase-name", "", "name for a newly created phase")
		fl.String("module-name", "", "name for a newly created module")
		fl.StringArray("depends-on", nil, "id of a feature this one depends on (repeatable)")
	}
	fl.String("name", "", "feature name")
	fl.String("description", "", "description")
	fl.String("domain", "", "business domain")
	fl.String("purpose", "", "purpose")
	fl.String("priority", "", "high, medium or low")
	fl.String("status", "", "not-started, in-progress, completed or blocked")
	fl.String("version", "", "version")
	fl.String("effort", "", "effort estimate")
	fl.String("risk", "", "risk level")
	fl.String("milestone", "", "milestone id")
	fl.String("phase", "", "phase id")
	fl.String("module", "", "module id")
	fl.StringArray("tag", nil, "tag (repeatable)")
	fl.StringArray("requirement", nil, "requirement (repeatable)")
	fl.StringArray("user-story", nil, `user story, "As a X, I want Y so that Z" (repeatable)`)
	fl.StringArray("stakeholder", nil, "stakeholder (repeatable)")
}

func init() {
	rootCmd.AddCommand(featureCmd)
	featureCmd.AddCommand(featureAddCmd, featureShowCmd, featureListCmd, featureRelatedCmd, featureUpdateCmd)

	addFeaturePropertyFlags(featureAddCmd, true)
	addFeaturePropertyFlags(featureUpdateCmd, false)

	fl := featureListCmd.Flags()
	fl.String("domain", "", "filter by domain (case-insensitive)")
	fl.String("purpose", "", "filter by purpose (case-insensitive)")
	fl.StringArray("tag", nil, "match features with any of these tags (repeatable)")
	fl.String("milestone", "", "filter by milestone id")
	fl.String("phase", "", "filter by phase id")
	fl.String("module", "", "filter by module id")
	fl.String("status", "", "filter by status")
	fl.Bool("placeholders", false, "include placeholder features")
	fl.Int("limit", 0, "maximum results (0 = no limit)")

	featureRelatedCmd.Flags().StringSlice("relation", nil, "relations to include (default all)")
	featureRelatedCmd.Flags().Int("depth", 1, "hops for dependencies and dependents (max 10)")
	featureRelatedCmd.Flags().Int("limit", 10, "maximum features per relation")
}
