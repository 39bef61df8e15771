//go:build cgo

package db

import (
	"path/filepath"
	"testing"
	"time"

	"microwin/config"
)

func TestDuckDBStoreLifecycle(t *testing.T) {
	database, err := OpenPath(config.DriverDuckDB, filepath.Join(t.TempDir(), "microwin.duckdb"))
	if err != nil {
		t.Fatalf("Failed to open duckdb store: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	version, err := database.SchemaVersion()
	if err != nil {
		t.Fatal(err)
	}
	if version != migrations[len(migrations)-1].Version {
		t.Errorf("Expected version %d, got %d", migrations[len(migrations)-1].Version, version)
	}

	store := NewTaskStore(database)
	fixed := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	taskID, err := store.CreateTask("Clean the kitchen", "low")
	if err != nil {
		t.Fatalf("Failed to create task: %v", err)
	}
	stepID, err := store.CreateStep(NewStep{TaskID: taskID, StepText: "Walk to the sink", EstimatedSeconds: 4})
	if err != nil {
		t.Fatalf("Failed to create step: %v", err)
	}

	// The task row is referenced by its step from here on
	for _, status := range []TaskStatus{StatusPaused, StatusActive, StatusCompleted} {
		if err := store.SetTaskStatus(taskID, status); err != nil {
			t.Fatalf("Failed to set status %s: %v", status, err)
		}
		task, err := store.GetTask(taskID)
		if err != nil {
			t.Fatal(err)
		}
		if task.Status != status {
			t.Errorf("Expected status %s, got %s", status, task.Status)
		}
	}

	if err := store.CompleteStep(stepID, intPtr(8)); err != nil {
		t.Fatalf("Failed to complete step: %v", err)
	}
	step, err := store.GetStep(stepID)
	if err != nil {
		t.Fatal(err)
	}
	if !step.Completed || step.ActualDurationSeconds == nil || *step.ActualDurationSeconds != 8 {
		t.Errorf("Expected completed step with duration 8, got %+v", step)
	}
	if step.CompletedAt == nil || !step.CompletedAt.Equal(fixed) {
		t.Errorf("Expected completed_at %v, got %v", fixed, step.CompletedAt)
	}

	current, err := store.CurrentStep(taskID)
	if err != nil || current != nil {
		t.Errorf("Expected no current step, got %v, %v", current, err)
	}

	insights, err := store.Insights()
	if err != nil {
		t.Fatalf("Failed to load insights: %v", err)
	}
	if len(insights.EfficiencyLog) != 1 || insights.EfficiencyLog[0].Efficiency != 50 {
		t.Errorf("Expected low 50%%, got %+v", insights.EfficiencyLog)
	}
	if insights.BestTimeToStart != "14" {
		t.Errorf("Expected best time 14, got %q", insights.BestTimeToStart)
	}
}
