/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/josephgoksu/featuregraph/internal/app"
	"github.com/josephgoksu/featuregraph/internal/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the feature graph tools over MCP on stdio",
	Long: `Start a Model Context Protocol server on stdin/stdout exposing add_feature,
query_features, get_related_features, add_task, generate_tasks,
update_task_status and validate_document.

Logs are written to stderr; stdout carries only protocol messages.

Example client configuration:
  {"command": "featuregraph", "args": ["mcp"]}`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withApp(ctx, func(a *app.App) error {
			server := mcp.NewServer(mcp.NewTools(a, nil), version)
			slog.Info("MCP server starting", "name", mcp.ServerName, "version", version, "llm", a.HasLLM())
			if err := server.Run(ctx, mcpsdk.NewStdioTransport()); err != nil && ctx.Err() == nil {
				return err
			}
			slog.Info("MCP server stopped")
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
