/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/featuregraph/internal/app"
	"github.com/josephgoksu/featuregraph/internal/graph"
	"github.com/josephgoksu/featuregraph/internal/ui"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect and maintain the knowledge graph",
}

var graphStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show node and edge counts by type",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			s := a.Store.Stats()
			return emit(s, func(p *ui.Printer) { p.Stats(s) })
		})
	},
}

var graphCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the graph's secondary indices",
	Long: `Verify the type and adjacency indices against the stored nodes and edges.
With --repair the indices are rebuilt from the primary data and the graph is
saved. Exits with status 1 when inconsistencies remain.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repair, _ := cmd.Flags().GetBool("repair")
		return withApp(cmd.Context(), func(a *app.App) error {
			found := graph.Check(a.Store)
			repaired := false
			if repair && len(found) > 0 {
				if !graph.Repair(a.Store) {
					return fmt.Errorf("this graph backend cannot rebuild its indices")
				}
				if err := a.Store.Save(); err != nil {
					return fmt.Errorf("save repaired graph: %w", err)
				}
				repaired = true
			}
			out := map[string]any{"inconsistencies": found, "repaired": repaired}
			if err := emit(out, func(p *ui.Printer) {
				p.Inconsistencies(found)
				if repaired {
					p.Success("Indices rebuilt")
				}
			}); err != nil {
				return err
			}
			if len(found) > 0 && !repaired {
				return exitError{code: 1}
			}
			return nil
		})
	},
}

var graphExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the whole graph as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(a *app.App) error {
			return newPrinter().JSON(graph.Export(a.Store))
		})
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.AddCommand(graphStatsCmd, graphCheckCmd, graphExportCmd)
	graphCheckCmd.Flags().Bool("repair", false, "rebuild indices when inconsistencies are found")
}
