/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"runtime"

	"github.com/spf13/cobra"

	"github.com/josephgoksu/featuregraph/internal/ui"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := map[string]string{
			"version": version,
			"go":      runtime.Version(),
			"os":      runtime.GOOS + "/" + runtime.GOARCH,
		}
		return emit(info, func(p *ui.Printer) {
			p.Printf("featuregraph %s (%s, %s)\n", version, info["go"], info["os"])
		})
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
