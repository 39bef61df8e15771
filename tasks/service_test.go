package tasks

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"microwin/config"
	"microwin/db"
	"microwin/generator"
	"microwin/prompts"
	"microwin/providers"
	"microwin/validation"
)

const defaultReply = `{"step":"Tap the table","estimated_seconds":2}`

// fakeCompleter replays queued replies, then falls back to defaultReply
type fakeCompleter struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
}

func (f *fakeCompleter) Complete(ctx context.Context, p prompts.Prompt) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		if err != nil {
			return "", err
		}
	}
	if len(f.replies) == 0 {
		return defaultReply, nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func newTestService(t *testing.T, c providers.Completer) (*Service, *db.TaskStore) {
	t.Helper()
	database, err := db.OpenPath(config.DriverSQLite, filepath.Join(t.TempDir(), "microwin.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	store := db.NewTaskStore(database)
	gen := generator.New(c, validation.NewPolicy(config.Default()))
	return NewService(store, gen), store
}

func intPtr(n int) *int { return &n }

func TestStartLowEnergy(t *testing.T) {
	c := &fakeCompleter{replies: []string{`{"step":"Walk to the sink","estimated_seconds":4}`}}
	svc, store := newTestService(t, c)

	result, err := svc.Start(context.Background(), "Clean the kitchen", prompts.EnergyLow)
	if err != nil {
		t.Fatalf("Expected start to succeed, got %v", err)
	}
	if result.EstimatedSeconds > 5 {
		t.Errorf("Expected low energy step within 5s, got %d", result.EstimatedSeconds)
	}
	if result.StepOrder != 0 || result.SimplificationLevel != 0 {
		t.Errorf("Expected order 0 level 0, got %d/%d", result.StepOrder, result.SimplificationLevel)
	}

	task, err := store.GetTask(result.TaskID)
	if err != nil {
		t.Fatal(err)
	}
	if task.Status != db.StatusActive {
		t.Errorf("Expected active task, got %s", task.Status)
	}
	if task.EnergyLevel != prompts.EnergyLow {
		t.Errorf("Expected energy low, got %q", task.EnergyLevel)
	}
}

func TestStartRejectsBadInput(t *testing.T) {
	svc, store := newTestService(t, &fakeCompleter{})

	if _, err := svc.Start(context.Background(), "   ", ""); !errors.Is(err, ErrEmptyGoal) {
		t.Errorf("Expected ErrEmptyGoal, got %v", err)
	}
	if _, err := svc.Start(context.Background(), "Clean", "sleepy"); !errors.Is(err, ErrInvalidEnergy) {
		t.Errorf("Expected ErrInvalidEnergy, got %v", err)
	}

	tasks, _ := store.ListTasks("")
	if len(tasks) != 0 {
		t.Errorf("Expected no tasks created, got %d", len(tasks))
	}
}

func TestStartGenerationFailureLeavesNoStep(t *testing.T) {
	c := &fakeCompleter{replies: []string{`{"step":"organize the kitchen","estimated_seconds":4}`}}
	svc, store := newTestService(t, c)

	_, err := svc.Start(context.Background(), "Clean the kitchen", "")

	var rejected *validation.AbstractVerbRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("Expected AbstractVerbRejectedError, got %v", err)
	}

	tasks, _ := store.ListTasks("")
	if len(tasks) != 1 {
		t.Fatalf("Expected the task to exist, got %d tasks", len(tasks))
	}
	steps, _ := store.ListSteps(tasks[0].ID)
	if len(steps) != 0 {
		t.Errorf("Expected no partial step, got %d", len(steps))
	}
}

func TestNextCompletesAndAppends(t *testing.T) {
	c := &fakeCompleter{replies: []string{
		`{"step":"Stand up","estimated_seconds":3}`,
		`{"step":"Walk to the sink","estimated_seconds":5,"is_complete":true}`,
	}}
	svc, store := newTestService(t, c)

	first, _ := svc.Start(context.Background(), "Clean the kitchen", "")
	next, err := svc.Next(context.Background(), first.TaskID, first.StepID, intPtr(6))
	if err != nil {
		t.Fatalf("Expected next to succeed, got %v", err)
	}

	if next.StepOrder != 1 || next.SimplificationLevel != 0 {
		t.Errorf("Expected order 1 level 0, got %d/%d", next.StepOrder, next.SimplificationLevel)
	}
	if !next.IsComplete {
		t.Error("Expected completion signal to be passed through")
	}

	done, _ := store.GetStep(first.StepID)
	if !done.Completed || done.ActualDurationSeconds == nil || *done.ActualDurationSeconds != 6 {
		t.Errorf("Expected first step completed with 6s, got %+v", done)
	}

	current, _ := store.CurrentStep(first.TaskID)
	if current == nil || current.ID != next.StepID {
		t.Error("Expected the new step to be current")
	}
}

func TestNextRetriesAfterGenerationFailure(t *testing.T) {
	c := &fakeCompleter{
		replies: []string{`{"step":"Stand up","estimated_seconds":3}`},
		errs:    []error{nil, &providers.GenerationBackendError{Provider: "ollama", Err: errors.New("down")}},
	}
	svc, store := newTestService(t, c)

	first, _ := svc.Start(context.Background(), "Clean the kitchen", "")

	_, err := svc.Next(context.Background(), first.TaskID, first.StepID, intPtr(4))
	var backendErr *providers.GenerationBackendError
	if !errors.As(err, &backendErr) {
		t.Fatalf("Expected GenerationBackendError, got %v", err)
	}

	next, err := svc.Next(context.Background(), first.TaskID, first.StepID, intPtr(99))
	if err != nil {
		t.Fatalf("Expected retry to succeed, got %v", err)
	}
	if next.StepOrder != 1 {
		t.Errorf("Expected order 1, got %d", next.StepOrder)
	}

	done, _ := store.GetStep(first.StepID)
	if *done.ActualDurationSeconds != 4 {
		t.Errorf("Expected the first recorded duration to stand, got %d", *done.ActualDurationSeconds)
	}
}

func TestNextRejectsStaleStep(t *testing.T) {
	svc, _ := newTestService(t, &fakeCompleter{})

	first, _ := svc.Start(context.Background(), "Clean the kitchen", "")
	if _, err := svc.Next(context.Background(), first.TaskID, first.StepID, nil); err != nil {
		t.Fatal(err)
	}

	_, err := svc.Next(context.Background(), first.TaskID, first.StepID, nil)
	if !errors.Is(err, ErrStepMismatch) {
		t.Errorf("Expected ErrStepMismatch, got %v", err)
	}

	other, _ := svc.Start(context.Background(), "Write the email", "")
	_, err = svc.Next(context.Background(), first.TaskID, other.StepID, nil)
	if !errors.Is(err, ErrStepMismatch) {
		t.Errorf("Expected ErrStepMismatch for a foreign step, got %v", err)
	}
}

func TestSimplifyAddsRung(t *testing.T) {
	c := &fakeCompleter{replies: []string{
		`{"step":"Wipe the counter","estimated_seconds":9}`,
		`{"step":"Touch the sponge","estimated_seconds":3,"is_complete":true}`,
	}}
	svc, store := newTestService(t, c)

	first, _ := svc.Start(context.Background(), "Clean the kitchen", "")
	simpler, err := svc.Simplify(context.Background(), first.TaskID, "")
	if err != nil {
		t.Fatalf("Expected simplify to succeed, got %v", err)
	}

	if simpler.StepOrder != first.StepOrder {
		t.Errorf("Expected same order %d, got %d", first.StepOrder, simpler.StepOrder)
	}
	if simpler.SimplificationLevel != 1 {
		t.Errorf("Expected level 1, got %d", simpler.SimplificationLevel)
	}
	if simpler.IsComplete {
		t.Error("Expected simplification never to complete a task")
	}

	old, _ := store.GetStep(first.StepID)
	if !old.Completed || old.ActualDurationSeconds != nil {
		t.Errorf("Expected old step completed without duration, got %+v", old)
	}

	current, _ := store.CurrentStep(first.TaskID)
	if current.ID != simpler.StepID {
		t.Error("Expected the simpler step to be current")
	}

	history, _ := svc.History(first.TaskID)
	if len(history) != 2 {
		t.Errorf("Expected both rungs in history, got %d", len(history))
	}
}

func TestSimplifyStrictCeiling(t *testing.T) {
	c := &fakeCompleter{replies: []string{
		`{"step":"Wipe the counter","estimated_seconds":9}`,
		`{"step":"Touch the sponge","estimated_seconds":6}`,
	}}
	svc, store := newTestService(t, c)

	first, _ := svc.Start(context.Background(), "Clean the kitchen", "")
	_, err := svc.Simplify(context.Background(), first.TaskID, "")

	var budget *validation.TimeBudgetExceededError
	if !errors.As(err, &budget) || budget.Ceiling != 5 {
		t.Fatalf("Expected TimeBudgetExceeded(5), got %v", err)
	}

	current, _ := store.CurrentStep(first.TaskID)
	if current == nil || current.ID != first.StepID {
		t.Error("Expected the original step to remain current after a failed simplify")
	}
}

func TestSimplifyRejectsStaleStep(t *testing.T) {
	c := &fakeCompleter{replies: []string{
		`{"step":"Wipe the counter","estimated_seconds":9}`,
		`{"step":"Touch the sponge","estimated_seconds":3}`,
	}}
	svc, _ := newTestService(t, c)

	first, _ := svc.Start(context.Background(), "Clean the kitchen", "")
	if _, err := svc.Simplify(context.Background(), first.TaskID, first.StepID); err != nil {
		t.Fatalf("Expected simplify of the current step to succeed, got %v", err)
	}

	// A second click on the same, now replaced, step
	_, err := svc.Simplify(context.Background(), first.TaskID, first.StepID)
	if !errors.Is(err, ErrStepMismatch) {
		t.Errorf("Expected ErrStepMismatch, got %v", err)
	}
}

func TestSimplifyWithoutCurrentStep(t *testing.T) {
	c := &fakeCompleter{errs: []error{errors.New("boom")}}
	svc, store := newTestService(t, c)

	svc.Start(context.Background(), "Clean the kitchen", "")
	tasks, _ := store.ListTasks("")

	_, err := svc.Simplify(context.Background(), tasks[0].ID, "")
	if !errors.Is(err, ErrNoCurrentStep) {
		t.Errorf("Expected ErrNoCurrentStep, got %v", err)
	}
}

func TestPauseResumeReturnsSameStep(t *testing.T) {
	svc, store := newTestService(t, &fakeCompleter{})

	first, _ := svc.Start(context.Background(), "Clean the kitchen", "")

	if err := svc.Pause(first.TaskID); err != nil {
		t.Fatalf("Expected pause to succeed, got %v", err)
	}
	task, _ := store.GetTask(first.TaskID)
	if task.Status != db.StatusPaused {
		t.Errorf("Expected paused, got %s", task.Status)
	}

	resumed, err := svc.Resume(first.TaskID)
	if err != nil {
		t.Fatalf("Expected resume to succeed, got %v", err)
	}
	if resumed.Status != db.StatusActive {
		t.Errorf("Expected active, got %s", resumed.Status)
	}
	if resumed.OriginalGoal != "Clean the kitchen" {
		t.Errorf("Expected goal carried, got %q", resumed.OriginalGoal)
	}
	if resumed.CurrentStep == nil {
		t.Fatal("Expected the outstanding step")
	}
	if resumed.CurrentStep.StepID != first.StepID || resumed.CurrentStep.StepText != first.StepText {
		t.Errorf("Expected the exact step back, got %+v", resumed.CurrentStep)
	}

	task, _ = store.GetTask(first.TaskID)
	if task.Status != db.StatusActive {
		t.Errorf("Expected stored status active, got %s", task.Status)
	}
}

func TestFinishIsTerminal(t *testing.T) {
	svc, _ := newTestService(t, &fakeCompleter{})
	first, _ := svc.Start(context.Background(), "Clean the kitchen", "")

	if err := svc.Finish(first.TaskID); err != nil {
		t.Fatalf("Expected finish to succeed, got %v", err)
	}

	checks := map[string]error{}
	checks["pause"] = svc.Pause(first.TaskID)
	_, checks["resume"] = svc.Resume(first.TaskID)
	_, checks["next"] = svc.Next(context.Background(), first.TaskID, "", nil)
	_, checks["simplify"] = svc.Simplify(context.Background(), first.TaskID, "")
	checks["finish"] = svc.Finish(first.TaskID)

	for op, err := range checks {
		if !errors.Is(err, ErrTaskCompleted) {
			t.Errorf("Expected %s to fail with ErrTaskCompleted, got %v", op, err)
		}
	}
}

func TestUnknownTask(t *testing.T) {
	svc, _ := newTestService(t, &fakeCompleter{})

	if err := svc.Pause("missing"); !errors.Is(err, db.ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
	if _, err := svc.Resume("missing"); !errors.Is(err, db.ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
	if _, err := svc.History("missing"); !errors.Is(err, db.ErrTaskNotFound) {
		t.Errorf("Expected ErrTaskNotFound, got %v", err)
	}
}

func TestConcurrentNextIsSerialized(t *testing.T) {
	svc, store := newTestService(t, &fakeCompleter{})
	first, _ := svc.Start(context.Background(), "Clean the kitchen", "")

	const workers = 5
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.Next(context.Background(), first.TaskID, "", nil); err != nil {
				t.Errorf("Expected next to succeed, got %v", err)
			}
		}()
	}
	wg.Wait()

	steps, _ := store.ListSteps(first.TaskID)
	if len(steps) != workers+1 {
		t.Fatalf("Expected %d steps, got %d", workers+1, len(steps))
	}

	seen := map[int]bool{}
	incomplete := 0
	for _, s := range steps {
		if seen[s.StepOrder] {
			t.Errorf("Expected unique step orders, %d repeated", s.StepOrder)
		}
		seen[s.StepOrder] = true
		if !s.Completed {
			incomplete++
		}
	}
	if incomplete != 1 {
		t.Errorf("Expected exactly one outstanding step, got %d", incomplete)
	}
	if svc.locks.size() != 0 {
		t.Errorf("Expected lock table drained, got %d entries", svc.locks.size())
	}
}

func TestNextWithoutStepIDAfterFailure(t *testing.T) {
	c := &fakeCompleter{
		replies: []string{`{"step":"Stand up","estimated_seconds":3}`},
		errs:    []error{nil, errors.New("timeout")},
	}
	svc, _ := newTestService(t, c)

	first, _ := svc.Start(context.Background(), "Clean the kitchen", "")
	if _, err := svc.Next(context.Background(), first.TaskID, "", nil); err == nil {
		t.Fatal("Expected the first next to fail")
	}

	next, err := svc.Next(context.Background(), first.TaskID, "", nil)
	if err != nil {
		t.Fatalf("Expected to continue from the last step, got %v", err)
	}
	if next.StepOrder != 1 {
		t.Errorf("Expected order 1, got %d", next.StepOrder)
	}
}

func TestNextOnTaskWithoutSteps(t *testing.T) {
	c := &fakeCompleter{errs: []error{errors.New("down")}}
	svc, store := newTestService(t, c)

	svc.Start(context.Background(), "Clean the kitchen", "")
	tasks, _ := store.ListTasks("")

	_, err := svc.Next(context.Background(), tasks[0].ID, "", nil)
	if !errors.Is(err, ErrNoCurrentStep) {
		t.Errorf("Expected ErrNoCurrentStep, got %v", err)
	}
}
