package mcptools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"microwin/db"
	"microwin/tasks"
)

// PauseTool handles the microwin_pause MCP tool.
type PauseTool struct {
	svc *tasks.Service
}

// NewPauseTool creates a PauseTool.
func NewPauseTool(svc *tasks.Service) *PauseTool {
	return &PauseTool{svc: svc}
}

// Definition returns the MCP tool definition for microwin_pause.
func (t *PauseTool) Definition() mcp.Tool {
	return mcp.NewTool("microwin_pause",
		mcp.WithDescription("Pause a task. The current step is kept for when the user comes back."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task to pause"),
		),
	)
}

// Handle processes the microwin_pause tool call.
func (t *PauseTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := req.GetString("task_id", "")
	if taskID == "" {
		return mcp.NewToolResultError("'task_id' is required"), nil
	}

	if err := t.svc.Pause(taskID); err != nil {
		return toolError("pause task", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Task %s paused.", taskID)), nil
}

// ResumeTool handles the microwin_resume MCP tool.
type ResumeTool struct {
	svc *tasks.Service
}

// NewResumeTool creates a ResumeTool.
func NewResumeTool(svc *tasks.Service) *ResumeTool {
	return &ResumeTool{svc: svc}
}

// Definition returns the MCP tool definition for microwin_resume.
func (t *ResumeTool) Definition() mcp.Tool {
	return mcp.NewTool("microwin_resume",
		mcp.WithDescription(
			"Resume a paused task and show the step the user left off on. "+
				"Without task_id, lists the paused tasks.",
		),
		mcp.WithString("task_id",
			mcp.Description("Task to resume"),
		),
	)
}

// Handle processes the microwin_resume tool call.
func (t *ResumeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := req.GetString("task_id", "")
	if taskID == "" {
		return t.listPaused()
	}

	result, err := t.svc.Resume(taskID)
	if err != nil {
		return toolError("resume task", err), nil
	}

	text := fmt.Sprintf("Resumed: %s\n", result.OriginalGoal)
	if result.CurrentStep == nil {
		text += fmt.Sprintf("No open step. Call microwin_next with task_id %s to continue.", result.TaskID)
	} else {
		text += formatStep(result.CurrentStep)
	}
	return mcp.NewToolResultText(text), nil
}

func (t *ResumeTool) listPaused() (*mcp.CallToolResult, error) {
	paused, err := t.svc.Tasks(db.StatusPaused)
	if err != nil {
		return toolError("list paused tasks", err), nil
	}
	if len(paused) == 0 {
		return mcp.NewToolResultText("No paused tasks."), nil
	}

	var b strings.Builder
	b.WriteString("Paused tasks:")
	for _, task := range paused {
		fmt.Fprintf(&b, "\n- %s (task_id: %s)", task.OriginalGoal, task.ID)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// FinishTool handles the microwin_finish MCP tool.
type FinishTool struct {
	svc *tasks.Service
}

// NewFinishTool creates a FinishTool.
func NewFinishTool(svc *tasks.Service) *FinishTool {
	return &FinishTool{svc: svc}
}

// Definition returns the MCP tool definition for microwin_finish.
func (t *FinishTool) Definition() mcp.Tool {
	return mcp.NewTool("microwin_finish",
		mcp.WithDescription("Mark a task as done. Finished tasks cannot be changed afterwards."),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task to finish"),
		),
	)
}

// Handle processes the microwin_finish tool call.
func (t *FinishTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID := req.GetString("task_id", "")
	if taskID == "" {
		return mcp.NewToolResultError("'task_id' is required"), nil
	}

	if err := t.svc.Finish(taskID); err != nil {
		return toolError("finish task", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Task %s finished. Nice work.", taskID)), nil
}

// InsightsTool handles the microwin_insights MCP tool.
type InsightsTool struct {
	svc *tasks.Service
}

// NewInsightsTool creates an InsightsTool.
func NewInsightsTool(svc *tasks.Service) *InsightsTool {
	return &InsightsTool{svc: svc}
}

// Definition returns the MCP tool definition for microwin_insights.
func (t *InsightsTool) Definition() mcp.Tool {
	return mcp.NewTool("microwin_insights",
		mcp.WithDescription(
			"Show how estimates compare to real durations per energy level, and the hours when the user finishes the most steps.",
		),
	)
}

// Handle processes the microwin_insights tool call.
func (t *InsightsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	insights, err := t.svc.Insights()
	if err != nil {
		return toolError("load insights", err), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Best time to start: %s\n", insights.BestTimeToStart)
	if len(insights.PeakHours) > 0 {
		fmt.Fprintf(&b, "Peak hours (UTC): %s\n", strings.Join(insights.PeakHours, ", "))
	}
	if len(insights.EfficiencyLog) == 0 {
		b.WriteString("No timed steps yet.")
	}
	for _, e := range insights.EfficiencyLog {
		fmt.Fprintf(&b, "%s energy: %.1f%% efficiency over %d steps\n", e.Level, e.Efficiency, e.Count)
	}
	return mcp.NewToolResultText(strings.TrimRight(b.String(), "\n")), nil
}
