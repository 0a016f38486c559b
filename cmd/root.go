/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/josephgoksu/featuregraph/internal/logger"
	"github.com/josephgoksu/featuregraph/internal/telemetry"
)

var (
	// cfgFile is the path to the configuration file.
	cfgFile string
	// verbose enables verbose output.
	verbose bool
	// version is the application version, overridden at build time.
	version = "0.1.0"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "featuregraph",
	Short: "Feature knowledge graph, task planning and document validation",
	Long: `featuregraph keeps a knowledge graph of features, their placement,
dependencies, concepts and tasks, and validates the markdown documents
that describe them.

  featuregraph feature add --id feature-001 --name "User Login" --requirement "..."
  featuregraph task generate feature-001
  featuregraph validate docs/ --related
  featuregraph mcp`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := setupLogging(); err != nil {
			return err
		}
		logger.SetVersion(version)
		logger.SetCommand(cmd.CommandPath())
		logger.SetSubject(strings.Join(args, " "))
		// only the command path is sent; arguments never leave the machine
		telemetryClient().Track(telemetry.EventCommandExecuted, telemetry.Properties{"command": cmd.CommandPath()})
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	closeTelemetry()
	if err != nil {
		if code, ok := exitCode(err); ok {
			os.Exit(code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// GetVersion returns the build version.
func GetVersion() string { return version }

func init() {
	cobra.OnInitialize(InitConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is ./.featuregraph/config.yaml or $HOME/.featuregraph/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().Bool("json", false, "print machine-readable JSON")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding the graph, tag cache and policies")

	// Bind persistent flags to Viper
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}
