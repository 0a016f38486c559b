/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/josephgoksu/featuregraph/internal/config"
	"github.com/josephgoksu/featuregraph/internal/ui"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the project data directory and config file",
	Long: `Create .featuregraph/ in the current directory with a config.yaml and an
empty policies/ directory. Running init again keeps existing settings and only
changes the ones passed as flags.

Examples:
  featuregraph init
  featuregraph init --backend sqlite
  featuregraph init --provider openai --model gpt-4o-mini`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fl := cmd.Flags()
		opts := config.InitOptions{}
		opts.Backend, _ = fl.GetString("backend")
		opts.Provider, _ = fl.GetString("provider")
		opts.Model, _ = fl.GetString("model")
		opts.APIKey, _ = fl.GetString("api-key")

		path, err := config.WriteProjectConfig(config.DirName, opts)
		if err != nil {
			return err
		}
		return emit(map[string]string{"config": path}, func(p *ui.Printer) {
			p.Success("Wrote %s", path)
			p.Println(p.Style(ui.StyleSubtle, "Next: featuregraph feature add --id feature-001 --name \"...\""))
		})
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().String("backend", "", "graph backend: json or sqlite")
	initCmd.Flags().String("provider", "", "LLM provider: openai, ollama, anthropic or gemini")
	initCmd.Flags().String("model", "", "LLM model (default depends on provider)")
	initCmd.Flags().String("api-key", "", "LLM API key (stored in config.yaml with mode 0600)")
}
