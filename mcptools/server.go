package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"microwin/tasks"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Tool is what every microwin tool provides to the server
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// NewServer creates the MCP server with every microwin tool registered
func NewServer(svc *tasks.Service) *server.MCPServer {
	s := server.NewMCPServer(
		"microwin",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	for _, t := range Tools(svc) {
		s.AddTool(t.Definition(), t.Handle)
	}
	return s
}

// Tools returns every microwin tool bound to svc
func Tools(svc *tasks.Service) []Tool {
	return []Tool{
		NewStartTool(svc),
		NewNextTool(svc),
		NewSimplifyTool(svc),
		NewPauseTool(svc),
		NewResumeTool(svc),
		NewFinishTool(svc),
		NewInsightsTool(svc),
	}
}

func serverInstructions() string {
	return `You have access to MicroWin, a helper for task-initiation paralysis.

Use it when the user says they cannot get started, feel stuck or overwhelmed.

- microwin_start turns their goal into one tiny physical first step.
- Show one step at a time. Do not list future steps.
- When the user did the step, call microwin_next (pass duration_seconds if known).
- If the user says a step is too hard, call microwin_simplify.
- microwin_pause keeps their place; microwin_resume brings it back.
- Call microwin_finish when the goal is done.`
}
