package mcptools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"microwin/prompts"
	"microwin/tasks"
)

// StartTool handles the microwin_start MCP tool.
type StartTool struct {
	svc *tasks.Service
}

// NewStartTool creates a StartTool.
func NewStartTool(svc *tasks.Service) *StartTool {
	return &StartTool{svc: svc}
}

// Definition returns the MCP tool definition for microwin_start.
func (t *StartTool) Definition() mcp.Tool {
	return mcp.NewTool("microwin_start",
		mcp.WithDescription(
			"Start a new goal and get the first tiny physical step (a few seconds long). "+
				"Use this when the user is stuck and cannot begin a task.",
		),
		mcp.WithString("goal",
			mcp.Required(),
			mcp.Description("What the user wants to get done, in their words (max 500 characters)"),
		),
		mcp.WithString("energy_level",
			mcp.Description("How much energy the user reports right now (default: medium)"),
			mcp.Enum(prompts.EnergyLevels...),
		),
	)
}

// Handle processes the microwin_start tool call.
func (t *StartTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	goal := req.GetString("goal", "")
	if goal == "" {
		return mcp.NewToolResultError("'goal' is required"), nil
	}
	if len([]rune(goal)) > 500 {
		return mcp.NewToolResultError("'goal' must be at most 500 characters"), nil
	}

	step, err := t.svc.Start(ctx, goal, req.GetString("energy_level", ""))
	if err != nil {
		return toolError("start task", err), nil
	}
	return mcp.NewToolResultText(formatStep(step)), nil
}

// NextTool handles the microwin_next MCP tool.
type NextTool struct {
	svc *tasks.Service
}

// NewNextTool creates a NextTool.
func NewNextTool(svc *tasks.Service) *NextTool {
	return &NextTool{svc: svc}
}

// Definition returns the MCP tool definition for microwin_next.
func (t *NextTool) Definition() mcp.Tool {
	return mcp.NewTool("microwin_next",
		mcp.WithDescription(
			"Mark the current step done and get the next tiny step for the same goal.",
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task id returned by microwin_start"),
		),
		mcp.WithString("step_id",
			mcp.Description("Step the user just finished (default: the current step)"),
		),
		mcp.WithNumber("duration_seconds",
			mcp.Description("How long the step actually took, in seconds"),
		),
	)
}

// Handle processes the microwin_next tool call.
func (t *NextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := req.GetString("task_id", "")
	if taskID == "" {
		return mcp.NewToolResultError("'task_id' is required"), nil
	}

	duration, ok := optionalIntArg(req, "duration_seconds")
	if ok && *duration < 0 {
		return mcp.NewToolResultError("'duration_seconds' must not be negative"), nil
	}

	step, err := t.svc.Next(ctx, taskID, req.GetString("step_id", ""), duration)
	if err != nil {
		return toolError("get next step", err), nil
	}
	return mcp.NewToolResultText(formatStep(step)), nil
}

// SimplifyTool handles the microwin_simplify MCP tool.
type SimplifyTool struct {
	svc *tasks.Service
}

// NewSimplifyTool creates a SimplifyTool.
func NewSimplifyTool(svc *tasks.Service) *SimplifyTool {
	return &SimplifyTool{svc: svc}
}

// Definition returns the MCP tool definition for microwin_simplify.
func (t *SimplifyTool) Definition() mcp.Tool {
	return mcp.NewTool("microwin_simplify",
		mcp.WithDescription(
			"The current step feels too hard. Replace it with an even smaller step (5 seconds or less).",
		),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task id returned by microwin_start"),
		),
		mcp.WithString("step_id",
			mcp.Description("Id of the step that feels too hard. Rejected if it is no longer the current step."),
		),
	)
}

// Handle processes the microwin_simplify tool call.
func (t *SimplifyTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := req.GetString("task_id", "")
	if taskID == "" {
		return mcp.NewToolResultError("'task_id' is required"), nil
	}

	step, err := t.svc.Simplify(ctx, taskID, req.GetString("step_id", ""))
	if err != nil {
		return toolError("simplify step", err), nil
	}
	return mcp.NewToolResultText(formatStep(step)), nil
}
