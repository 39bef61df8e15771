package mcptools

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"microwin/config"
	"microwin/db"
	"microwin/generator"
	"microwin/prompts"
	"microwin/tasks"
	"microwin/validation"
)

// ─── Test helpers ────────────────────────────────────────────────────────────

// queueCompleter replays replies in order, then repeats the last one
type queueCompleter struct {
	mu      sync.Mutex
	replies []string
}

func (q *queueCompleter) Complete(ctx context.Context, p prompts.Prompt) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r := q.replies[0]
	if len(q.replies) > 1 {
		q.replies = q.replies[1:]
	}
	return r, nil
}

func newTestService(t *testing.T, replies ...string) *tasks.Service {
	t.Helper()
	database, err := db.OpenPath(config.DriverSQLite, filepath.Join(t.TempDir(), "microwin.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if len(replies) == 0 {
		replies = []string{`{"step":"Tap the table","estimated_seconds":2}`}
	}
	gen := generator.New(&queueCompleter{replies: replies}, validation.NewPolicy(config.Default()))
	return tasks.NewService(db.NewTaskStore(database), gen)
}

// makeReq builds a mcp.CallToolRequest with the given arguments.
func makeReq(args map[string]interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

// resultText extracts the text content from a tool result.
func resultText(r *mcp.CallToolResult) string {
	if r == nil || len(r.Content) == 0 {
		return ""
	}
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// field pulls "key: value" out of a formatted step
func field(text, key string) string {
	for _, line := range strings.Split(text, "\n") {
		if v, ok := strings.CutPrefix(line, key+": "); ok {
			return v
		}
	}
	return ""
}

func call(t *testing.T, tool Tool, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	result, err := tool.Handle(context.Background(), makeReq(args))
	if err != nil {
		t.Fatalf("unexpected protocol error: %v", err)
	}
	return result
}

// ─── Definitions ─────────────────────────────────────────────────────────────

func TestToolDefinitions(t *testing.T) {
	svc := newTestService(t)

	want := map[string][]string{
		"microwin_start":    {"goal"},
		"microwin_next":     {"task_id"},
		"microwin_simplify": {"task_id"},
		"microwin_pause":    {"task_id"},
		"microwin_resume":   nil,
		"microwin_finish":   {"task_id"},
		"microwin_insights": nil,
	}

	tools := Tools(svc)
	if len(tools) != len(want) {
		t.Fatalf("tool count = %d, want %d", len(tools), len(want))
	}

	for _, tool := range tools {
		def := tool.Definition()
		required, ok := want[def.Name]
		if !ok {
			t.Errorf("unexpected tool %q", def.Name)
			continue
		}
		for _, r := range required {
			found := false
			for _, got := range def.InputSchema.Required {
				if got == r {
					found = true
				}
			}
			if !found {
				t.Errorf("%s: %q should be required", def.Name, r)
			}
		}
	}
}

// ─── Step tools ──────────────────────────────────────────────────────────────

func TestStartTool(t *testing.T) {
	svc := newTestService(t, `{"step":"Walk to the sink","estimated_seconds":4}`)
	tool := NewStartTool(svc)

	result := call(t, tool, map[string]interface{}{"goal": "Clean the kitchen", "energy_level": "low"})
	if result.IsError {
		t.Fatalf("unexpected error: %s", resultText(result))
	}

	text := resultText(result)
	if !strings.Contains(text, "Step: Walk to the sink (~4s)") {
		t.Errorf("missing step line in %q", text)
	}
	if field(text, "task_id") == "" || field(text, "step_id") == "" {
		t.Errorf("expected ids in %q", text)
	}
}

func TestStartTool_Validation(t *testing.T) {
	tool := NewStartTool(newTestService(t))

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing goal", map[string]interface{}{}, "'goal' is required"},
		{"goal too long", map[string]interface{}{"goal": strings.Repeat("a", 501)}, "at most 500"},
		{"bad energy", map[string]interface{}{"goal": "x", "energy_level": "sleepy"}, "energy level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := call(t, tool, tt.args)
			if !result.IsError {
				t.Fatal("expected tool error")
			}
			if !strings.Contains(resultText(result), tt.want) {
				t.Errorf("error %q should contain %q", resultText(result), tt.want)
			}
		})
	}
}

func TestStartTool_PolicyRejection(t *testing.T) {
	tool := NewStartTool(newTestService(t, `{"step":"organize your desk","estimated_seconds":4}`))

	result := call(t, tool, map[string]interface{}{"goal": "Clean the desk"})
	if !result.IsError {
		t.Fatal("expected tool error")
	}
	if !strings.Contains(resultText(result), "organize") {
		t.Errorf("error should name the rejected verb, got %q", resultText(result))
	}
}

func TestNextAndSimplifyTools(t *testing.T) {
	svc := newTestService(t,
		`{"step":"Stand up","estimated_seconds":3}`,
		`{"step":"Wipe the counter","estimated_seconds":9}`,
		`{"step":"Touch the sponge","estimated_seconds":3}`,
	)

	started := resultText(call(t, NewStartTool(svc), map[string]interface{}{"goal": "Clean the kitchen"}))
	taskID := field(started, "task_id")

	next := call(t, NewNextTool(svc), map[string]interface{}{
		"task_id":          taskID,
		"step_id":          field(started, "step_id"),
		"duration_seconds": float64(5),
	})
	if next.IsError {
		t.Fatalf("unexpected error: %s", resultText(next))
	}
	if !strings.Contains(resultText(next), "order: 1, simplification level: 0") {
		t.Errorf("unexpected next step: %q", resultText(next))
	}

	simpler := call(t, NewSimplifyTool(svc), map[string]interface{}{"task_id": taskID})
	if simpler.IsError {
		t.Fatalf("unexpected error: %s", resultText(simpler))
	}
	if !strings.Contains(resultText(simpler), "order: 1, simplification level: 1") {
		t.Errorf("unexpected simplified step: %q", resultText(simpler))
	}
}

func TestNextTool_NegativeDuration(t *testing.T) {
	tool := NewNextTool(newTestService(t))

	result := call(t, tool, map[string]interface{}{"task_id": "t", "duration_seconds": float64(-1)})
	if !result.IsError {
		t.Fatal("expected tool error")
	}
}

// ─── Lifecycle tools ─────────────────────────────────────────────────────────

func TestPauseResumeTools(t *testing.T) {
	svc := newTestService(t)
	started := resultText(call(t, NewStartTool(svc), map[string]interface{}{"goal": "Answer the email"}))
	taskID := field(started, "task_id")

	if r := call(t, NewPauseTool(svc), map[string]interface{}{"task_id": taskID}); r.IsError {
		t.Fatalf("pause failed: %s", resultText(r))
	}

	listed := resultText(call(t, NewResumeTool(svc), map[string]interface{}{}))
	if !strings.Contains(listed, "Answer the email") || !strings.Contains(listed, taskID) {
		t.Errorf("paused list should include the task, got %q", listed)
	}

	resumed := resultText(call(t, NewResumeTool(svc), map[string]interface{}{"task_id": taskID}))
	if field(resumed, "step_id") != field(started, "step_id") {
		t.Errorf("resume should return the same step, got %q", resumed)
	}

	listed = resultText(call(t, NewResumeTool(svc), map[string]interface{}{}))
	if listed != "No paused tasks." {
		t.Errorf("expected no paused tasks, got %q", listed)
	}
}

func TestFinishTool(t *testing.T) {
	svc := newTestService(t)
	started := resultText(call(t, NewStartTool(svc), map[string]interface{}{"goal": "Answer the email"}))
	taskID := field(started, "task_id")

	if r := call(t, NewFinishTool(svc), map[string]interface{}{"task_id": taskID}); r.IsError {
		t.Fatalf("finish failed: %s", resultText(r))
	}

	r := call(t, NewPauseTool(svc), map[string]interface{}{"task_id": taskID})
	if !r.IsError || !strings.Contains(resultText(r), "already completed") {
		t.Errorf("pausing a finished task should fail, got %q", resultText(r))
	}
}

func TestInsightsTool_Empty(t *testing.T) {
	text := resultText(call(t, NewInsightsTool(newTestService(t)), map[string]interface{}{}))

	if !strings.Contains(text, "Best time to start: No data") {
		t.Errorf("unexpected insights: %q", text)
	}
	if !strings.Contains(text, "No timed steps yet.") {
		t.Errorf("unexpected insights: %q", text)
	}
}
