package db

import (
	"errors"
	"time"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	ErrStepNotFound = errors.New("step not found")
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	StatusActive    TaskStatus = "active"
	StatusPaused    TaskStatus = "paused"
	StatusCompleted TaskStatus = "completed"
)

// Valid reports whether s is one of the known statuses
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusActive, StatusPaused, StatusCompleted:
		return true
	}
	return false
}

// Task is one user goal being worked through
type Task struct {
	ID           string     `json:"id"`
	OriginalGoal string     `json:"original_goal"`
	Status       TaskStatus `json:"status"`
	EnergyLevel  string     `json:"energy_level,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Step is a single persisted micro-step.
// Simplification rungs share a StepOrder and differ by SimplificationLevel.
type Step struct {
	ID                    string     `json:"id"`
	TaskID                string     `json:"task_id"`
	StepText              string     `json:"step_text"`
	EstimatedSeconds      int        `json:"estimated_seconds"`
	ActualDurationSeconds *int       `json:"actual_duration_seconds,omitempty"`
	StepOrder             int        `json:"step_order"`
	SimplificationLevel   int        `json:"simplification_level"`
	Completed             bool       `json:"completed"`
	CreatedAt             time.Time  `json:"created_at"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
}

// NewStep holds the fields a caller supplies when creating a step
type NewStep struct {
	TaskID              string
	StepText            string
	EstimatedSeconds    int
	StepOrder           int
	SimplificationLevel int
}

// EnergyEfficiency summarizes completed steps for one energy level
type EnergyEfficiency struct {
	Level      string  `json:"level"`
	Efficiency float64 `json:"efficiency"`
	Count      int     `json:"count"`
}

// Insights is the historical summary used to suggest when to start
type Insights struct {
	EfficiencyLog   []EnergyEfficiency `json:"efficiency_log"`
	PeakHours       []string           `json:"peak_hours"`
	BestTimeToStart string             `json:"best_time_to_start"`
}
