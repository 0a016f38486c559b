/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/featuregraph/internal/app"
	"github.com/josephgoksu/featuregraph/internal/ui"
	"github.com/josephgoksu/featuregraph/internal/watch"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <path>...",
	Short: "Validate markdown documents",
	Long: `Validate markdown documents with the technical, completeness, consistency,
readability and policy validators. Directories are searched recursively for
.md files.

The exit status is 1 when any document fails. Documents related through the
knowledge graph are reported but do not affect the exit status.

Examples:
  featuregraph validate docs/feature-001.md
  featuregraph validate docs/ --register --related
  featuregraph validate docs/ --validators technical,readability
  featuregraph validate docs/ --watch`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		fl := cmd.Flags()
		opts := app.ValidateOptions{}
		opts.Validators, _ = fl.GetStringSlice("validators")
		opts.Related, _ = fl.GetBool("related")
		opts.Register, _ = fl.GetBool("register")
		watchMode, _ := fl.GetBool("watch")

		return withApp(cmd.Context(), func(a *app.App) error {
			if watchMode {
				return watchDocuments(cmd.Context(), a, args, opts)
			}
			reports, err := a.ValidatePaths(cmd.Context(), args, opts)
			if err != nil {
				return err
			}
			if err := printReports(reports); err != nil {
				return err
			}
			for _, r := range reports {
				if !r.Valid() {
					return exitError{code: 1}
				}
			}
			return nil
		})
	},
}

func printReports(reports []app.DocumentReport) error {
	return emit(reports, func(p *ui.Printer) {
		if len(reports) == 0 {
			p.Println(p.Style(ui.StyleSubtle, "No markdown documents found."))
			return
		}
		valid := 0
		for _, r := range reports {
			p.ValidationOutcome(r.Path, r.Outcome)
			if r.Valid() {
				valid++
			}
		}
		p.Println()
		if valid == len(reports) {
			p.Success("%d of %d documents valid", valid, len(reports))
		} else {
			p.Warn("%d of %d documents valid", valid, len(reports))
		}
	})
}

// watchDocuments validates paths once, then again for every batch of
// changes until interrupted.
func watchDocuments(ctx context.Context, a *app.App, paths []string, opts app.ValidateOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	run := func(ctx context.Context, changed []string) {
		reports, err := a.ValidatePaths(ctx, changed, opts)
		if err != nil {
			slog.Error("validation failed", "error", err)
			return
		}
		if err := printReports(reports); err != nil {
			slog.Error("print report", "error", err)
		}
	}

	w, err := watch.New(paths, run, watch.Options{})
	if err != nil {
		return err
	}
	run(ctx, paths)
	if !isJSON() {
		p := newPrinter()
		p.Println(p.Style(ui.StyleSubtle, "Watching for changes. Press Ctrl+C to stop."))
	}
	return w.Run(ctx)
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringSlice("validators", nil, "validators to run (default from config)")
	validateCmd.Flags().Bool("related", false, "also validate documents related through the graph")
	validateCmd.Flags().Bool("register", false, "store the documents in the knowledge graph before validating")
	validateCmd.Flags().Bool("watch", false, "re-validate documents when they change")
}
