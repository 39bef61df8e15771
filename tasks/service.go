// Package tasks drives the task and step lifecycle: starting a goal,
// advancing to the next micro-step, simplifying a step that is too hard,
// and pausing or resuming work.
//
// Steps are an append-only log. Simplifying never edits a step; it adds a
// new rung at the same order and completes the old one without a duration.
package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/rohanthewiz/logger"

	"microwin/db"
	"microwin/generator"
	"microwin/prompts"
)

var (
	ErrNoCurrentStep = errors.New("no current step found")
	ErrTaskCompleted = errors.New("task is already completed")
	ErrStepMismatch  = errors.New("step is not the current step of this task")
	ErrEmptyGoal     = errors.New("goal must not be empty")
	ErrInvalidEnergy = errors.New("energy level must be low, medium or high")
)

// Store is the record store the service needs
type Store interface {
	CreateTask(goal, energy string) (string, error)
	GetTask(id string) (*db.Task, error)
	SetTaskStatus(id string, status db.TaskStatus) error
	ListTasks(status db.TaskStatus) ([]*db.Task, error)
	CreateStep(step db.NewStep) (string, error)
	GetStep(id string) (*db.Step, error)
	CurrentStep(taskID string) (*db.Step, error)
	CompleteStep(id string, durationSeconds *int) error
	NextStepOrder(taskID string) (int, error)
	ListSteps(taskID string) ([]*db.Step, error)
	Insights() (*db.Insights, error)
}

// StepResult is a freshly generated and persisted step
type StepResult struct {
	TaskID              string `json:"task_id"`
	StepID              string `json:"step_id"`
	StepText            string `json:"step_text"`
	EstimatedSeconds    int    `json:"estimated_seconds"`
	SimplificationLevel int    `json:"simplification_level"`
	StepOrder           int    `json:"step_order"`
	IsComplete          bool   `json:"is_complete"`
}

// ResumeResult is a task picked back up, with its outstanding step if any
type ResumeResult struct {
	TaskID       string        `json:"task_id"`
	OriginalGoal string        `json:"original_goal"`
	Status       db.TaskStatus `json:"status"`
	CurrentStep  *StepResult   `json:"current_step"`
}

// Service coordinates the generator and the store
type Service struct {
	store Store
	gen   *generator.Generator
	locks *keyedMutex
}

// NewService creates a Service
func NewService(store Store, gen *generator.Generator) *Service {
	return &Service{
		store: store,
		gen:   gen,
		locks: newKeyedMutex(),
	}
}

// Start creates an active task and generates its first step.
// When generation fails the task exists with no step.
func (s *Service) Start(ctx context.Context, goal, energy string) (*StepResult, error) {
	if prompts.SanitizeGoal(goal) == "" {
		return nil, ErrEmptyGoal
	}
	if !prompts.ValidEnergy(energy) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidEnergy, energy)
	}

	taskID, err := s.store.CreateTask(prompts.SanitizeGoal(goal), energy)
	if err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(taskID)
	defer unlock()

	step, err := s.gen.InitialStep(ctx, goal, energy)
	if err != nil {
		logger.LogErr(err, "Failed to generate initial step", "task_id", taskID)
		return nil, err
	}

	result, err := s.saveStep(taskID, step.Text, step.EstimatedSeconds, 0, 0, step.IsComplete)
	if err != nil {
		return nil, err
	}

	logger.Info("Task started", "task_id", taskID, "energy", energy, "step_id", result.StepID)
	return result, nil
}

// Next completes a step and generates the one that follows it.
// stepID may be empty to mean the current step. A step that is already
// completed is accepted only when the task has no outstanding step, so a
// failed generation can be retried.
// A completed step is never completed again; its first duration stands.
func (s *Service) Next(ctx context.Context, taskID, stepID string, durationSeconds *int) (*StepResult, error) {
	unlock := s.locks.Lock(taskID)
	defer unlock()

	task, err := s.openTask(taskID)
	if err != nil {
		return nil, err
	}

	current, err := s.store.CurrentStep(taskID)
	if err != nil {
		return nil, err
	}

	step := current
	if stepID != "" {
		step, err = s.store.GetStep(stepID)
		if err != nil {
			return nil, err
		}
		if step.TaskID != taskID {
			return nil, ErrStepMismatch
		}
		if step.Completed && current != nil {
			return nil, ErrStepMismatch
		}
		if !step.Completed && current != nil && current.ID != step.ID {
			return nil, ErrStepMismatch
		}
	}
	if step == nil {
		// Nothing outstanding: continue from the last step, if any
		steps, err := s.store.ListSteps(taskID)
		if err != nil {
			return nil, err
		}
		if len(steps) == 0 {
			return nil, ErrNoCurrentStep
		}
		step = steps[len(steps)-1]
	}

	if !step.Completed {
		if err := s.store.CompleteStep(step.ID, durationSeconds); err != nil {
			return nil, err
		}
	}

	next, err := s.gen.NextStep(ctx, task.OriginalGoal, step.StepText, task.EnergyLevel)
	if err != nil {
		logger.LogErr(err, "Failed to generate next step", "task_id", taskID, "after_step", step.ID)
		return nil, err
	}

	order, err := s.store.NextStepOrder(taskID)
	if err != nil {
		return nil, err
	}

	result, err := s.saveStep(taskID, next.Text, next.EstimatedSeconds, order, 0, next.IsComplete)
	if err != nil {
		return nil, err
	}

	logger.Info("Next step", "task_id", taskID, "step_order", order, "is_complete", next.IsComplete)
	return result, nil
}

// Simplify replaces the current step with a smaller one at the same order.
// A non-empty stepID must name the current step.
func (s *Service) Simplify(ctx context.Context, taskID, stepID string) (*StepResult, error) {
	unlock := s.locks.Lock(taskID)
	defer unlock()

	if _, err := s.openTask(taskID); err != nil {
		return nil, err
	}

	current, err := s.store.CurrentStep(taskID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNoCurrentStep
	}
	if stepID != "" && stepID != current.ID {
		return nil, ErrStepMismatch
	}

	simpler, err := s.gen.SimplifyStep(ctx, current.StepText, current.SimplificationLevel)
	if err != nil {
		logger.LogErr(err, "Failed to simplify step", "task_id", taskID, "step_id", current.ID)
		return nil, err
	}

	result, err := s.saveStep(taskID, simpler.Text, simpler.EstimatedSeconds,
		current.StepOrder, current.SimplificationLevel+1, false)
	if err != nil {
		return nil, err
	}

	if err := s.store.CompleteStep(current.ID, nil); err != nil {
		return nil, err
	}

	logger.Info("Step simplified", "task_id", taskID, "level", result.SimplificationLevel)
	return result, nil
}

// Pause parks a task. Its outstanding step is left untouched.
func (s *Service) Pause(taskID string) error {
	unlock := s.locks.Lock(taskID)
	defer unlock()

	if _, err := s.openTask(taskID); err != nil {
		return err
	}
	if err := s.store.SetTaskStatus(taskID, db.StatusPaused); err != nil {
		return err
	}

	logger.Info("Task paused", "task_id", taskID)
	return nil
}

// Resume reactivates a task and returns its current step unchanged
func (s *Service) Resume(taskID string) (*ResumeResult, error) {
	unlock := s.locks.Lock(taskID)
	defer unlock()

	task, err := s.openTask(taskID)
	if err != nil {
		return nil, err
	}

	current, err := s.store.CurrentStep(taskID)
	if err != nil {
		return nil, err
	}

	if err := s.store.SetTaskStatus(taskID, db.StatusActive); err != nil {
		return nil, err
	}

	result := &ResumeResult{
		TaskID:       taskID,
		OriginalGoal: task.OriginalGoal,
		Status:       db.StatusActive,
	}
	if current != nil {
		result.CurrentStep = fromStep(current)
	}

	logger.Info("Task resumed", "task_id", taskID, "has_step", current != nil)
	return result, nil
}

// Finish marks a task completed. Completed tasks accept no further changes.
func (s *Service) Finish(taskID string) error {
	unlock := s.locks.Lock(taskID)
	defer unlock()

	if _, err := s.openTask(taskID); err != nil {
		return err
	}
	if err := s.store.SetTaskStatus(taskID, db.StatusCompleted); err != nil {
		return err
	}

	logger.Info("Task finished", "task_id", taskID)
	return nil
}

// History returns every step of a task, simplification rungs included
func (s *Service) History(taskID string) ([]*db.Step, error) {
	if _, err := s.store.GetTask(taskID); err != nil {
		return nil, err
	}
	return s.store.ListSteps(taskID)
}

// Task returns a task by id
func (s *Service) Task(taskID string) (*db.Task, error) {
	return s.store.GetTask(taskID)
}

// Tasks lists tasks, optionally only those in the given status
func (s *Service) Tasks(status db.TaskStatus) ([]*db.Task, error) {
	return s.store.ListTasks(status)
}

// Insights returns historical energy and timing patterns
func (s *Service) Insights() (*db.Insights, error) {
	return s.store.Insights()
}

// openTask loads a task that can still change
func (s *Service) openTask(taskID string) (*db.Task, error) {
	task, err := s.store.GetTask(taskID)
	if err != nil {
		return nil, err
	}
	if task.Status == db.StatusCompleted {
		return nil, ErrTaskCompleted
	}
	return task, nil
}

func (s *Service) saveStep(taskID, text string, seconds, order, level int, isComplete bool) (*StepResult, error) {
	id, err := s.store.CreateStep(db.NewStep{
		TaskID:              taskID,
		StepText:            text,
		EstimatedSeconds:    seconds,
		StepOrder:           order,
		SimplificationLevel: level,
	})
	if err != nil {
		return nil, err
	}

	return &StepResult{
		TaskID:              taskID,
		StepID:              id,
		StepText:            text,
		EstimatedSeconds:    seconds,
		SimplificationLevel: level,
		StepOrder:           order,
		IsComplete:          isComplete,
	}, nil
}

func fromStep(step *db.Step) *StepResult {
	return &StepResult{
		TaskID:              step.TaskID,
		StepID:              step.ID,
		StepText:            step.StepText,
		EstimatedSeconds:    step.EstimatedSeconds,
		SimplificationLevel: step.SimplificationLevel,
		StepOrder:           step.StepOrder,
	}
}
