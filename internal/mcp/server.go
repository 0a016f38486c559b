package mcp

import (
	"context"
	"encoding/json"
	"log/slog"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ServerName identifies the server to MCP clients.
const ServerName = "featuregraph-mcp"

// NewServer builds an MCP server with every tool registered.
func NewServer(tools *Tools, version string) *mcpsdk.Server {
	impl := &mcpsdk.Implementation{Name: ServerName, Version: version}
	server := mcpsdk.NewServer(impl, &mcpsdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.InitializedParams) {
			slog.Info("MCP connection established")
		},
	})
	Register(server, tools)
	return server
}

// Register adds the feature graph tools to server.
func Register(server *mcpsdk.Server, tools *Tools) {
	addTool(server, "add_feature",
		"Create a feature in the knowledge graph. Creates milestone, phase and module ancestors, placeholder dependencies and concept nodes for its tags.",
		tools.AddFeature)
	addTool(server, "query_features",
		"List features filtered by domain, purpose, tags, milestone, phase or module.",
		tools.QueryFeatures)
	addTool(server, "get_related_features",
		"Find features related to one feature: dependencies and dependents (multi-hop), same domain, purpose or module, and shared concepts.",
		tools.GetRelatedFeatures)
	addTool(server, "add_task",
		"Attach a task to a feature, optionally depending on other tasks.",
		tools.AddTask)
	addTool(server, "generate_tasks",
		"Generate ordered, dependency-linked tasks from a feature's requirements and user stories.",
		tools.GenerateTasks)
	addTool(server, "update_task_status",
		"Set a task's status. Starting or completing a task requires its dependencies to be completed. The feature status is rolled up.",
		tools.UpdateTaskStatus)
	addTool(server, "validate_document",
		"Validate a markdown document with the technical, completeness, consistency, readability and policy validators.",
		tools.ValidateDocument)
}

func addTool[T any](server *mcpsdk.Server, name, description string, handle func(context.Context, T) map[string]any) {
	tool := &mcpsdk.Tool{Name: name, Description: description}
	mcpsdk.AddTool(server, tool, func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[T]) (*mcpsdk.CallToolResultFor[any], error) {
		out := handle(ctx, params.Arguments)
		success, _ := out["success"].(bool)
		if !success {
			slog.Debug("tool failed", "tool", name, "error", out["error"])
		}
		return jsonResponse(out, !success), nil
	})
}

// jsonResponse wraps v in a text result. Tool failures are reported in the
// result with IsError so the model can see them and correct its call.
func jsonResponse(v any, isError bool) *mcpsdk.CallToolResultFor[any] {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		data = []byte(`{"success":false,"error":{"code":"internal","message":"encode response"}}`)
		isError = true
	}
	return &mcpsdk.CallToolResultFor[any]{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: string(data)}},
		IsError: isError,
	}
}
