// Package mcptools exposes the micro-step workflow as MCP tools so an agent
// can walk a user through a goal one tiny step at a time.
//
// Each tool is a struct holding the tasks.Service, with Definition()
// returning the schema and Handle() serving the call. Failures come back as
// tool errors, never as protocol errors.
package mcptools

import (
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"microwin/tasks"
)

// optionalIntArg extracts an integer argument, reporting whether it was set.
// JSON numbers arrive as float64.
func optionalIntArg(req mcp.CallToolRequest, key string) (*int, bool) {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return nil, false
	}
	n := int(v)
	return &n, true
}

// formatStep renders a step for the agent, ids included so it can continue
func formatStep(step *tasks.StepResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Step: %s (~%ds)\n", step.StepText, step.EstimatedSeconds)
	fmt.Fprintf(&b, "task_id: %s\n", step.TaskID)
	fmt.Fprintf(&b, "step_id: %s\n", step.StepID)
	fmt.Fprintf(&b, "order: %d, simplification level: %d", step.StepOrder, step.SimplificationLevel)
	if step.IsComplete {
		b.WriteString("\nThis should finish the goal. Call microwin_finish once the user confirms.")
	}
	return b.String()
}

func toolError(action string, err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("failed to %s: %v", action, err))
}
