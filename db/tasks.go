package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rohanthewiz/serr"
)

// TaskStore handles task and step persistence
type TaskStore struct {
	db  *DB
	now func() time.Time
}

// NewTaskStore creates a new TaskStore instance
func NewTaskStore(db *DB) *TaskStore {
	return &TaskStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}
}

const stepColumns = `id, task_id, step_text, estimated_seconds, actual_duration_seconds,
	step_order, simplification_level, completed, created_at, completed_at`

// CreateTask inserts a new active task and returns its id
func (s *TaskStore) CreateTask(goal, energy string) (string, error) {
	id := uuid.New().String()
	now := s.now()

	_, err := s.db.Exec(`
		INSERT INTO tasks (id, original_goal, status, energy_level, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, goal, string(StatusActive), nullableString(energy), now, now)
	if err != nil {
		return "", serr.Wrap(err, "failed to create task")
	}
	return id, nil
}

// GetTask retrieves a task by id
func (s *TaskStore) GetTask(id string) (*Task, error) {
	row := s.db.QueryRow(`
		SELECT id, original_goal, status, energy_level, created_at, updated_at
		FROM tasks WHERE id = ?
	`, id)

	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, serr.Wrap(err, "failed to get task")
	}
	return task, nil
}

// SetTaskStatus moves a task to the given status
func (s *TaskStore) SetTaskStatus(id string, status TaskStatus) error {
	if !status.Valid() {
		return serr.New(fmt.Sprintf("invalid task status: %s", status))
	}

	result, err := s.db.Exec(
		"UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?",
		string(status), s.now(), id,
	)
	if err != nil {
		return serr.Wrap(err, "failed to update task status")
	}
	return requireRow(result, ErrTaskNotFound)
}

// ListTasks returns tasks newest first, optionally filtered by status
func (s *TaskStore) ListTasks(status TaskStatus) ([]*Task, error) {
	query := `SELECT id, original_goal, status, energy_level, created_at, updated_at FROM tasks`
	var args []interface{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, serr.Wrap(err, "failed to scan task")
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, serr.Wrap(err, "failed to iterate tasks")
	}
	return tasks, nil
}

// CreateStep inserts an incomplete step and returns its id
func (s *TaskStore) CreateStep(step NewStep) (string, error) {
	id := uuid.New().String()

	_, err := s.db.Exec(`
		INSERT INTO steps (id, task_id, step_text, estimated_seconds, step_order,
			simplification_level, completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, step.TaskID, step.StepText, step.EstimatedSeconds, step.StepOrder,
		step.SimplificationLevel, false, s.now())
	if err != nil {
		return "", serr.Wrap(err, "failed to create step")
	}
	return id, nil
}

// GetStep retrieves a step by id
func (s *TaskStore) GetStep(id string) (*Step, error) {
	row := s.db.QueryRow("SELECT "+stepColumns+" FROM steps WHERE id = ?", id)

	step, err := scanStep(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStepNotFound
	}
	if err != nil {
		return nil, serr.Wrap(err, "failed to get step")
	}
	return step, nil
}

// CurrentStep returns the incomplete step with the highest order, most
// simplified first. A nil step with a nil error means the task has none.
func (s *TaskStore) CurrentStep(taskID string) (*Step, error) {
	row := s.db.QueryRow(`
		SELECT `+stepColumns+` FROM steps
		WHERE task_id = ? AND completed = ?
		ORDER BY step_order DESC, simplification_level DESC
		LIMIT 1
	`, taskID, false)

	step, err := scanStep(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, serr.Wrap(err, "failed to get current step")
	}
	return step, nil
}

// CompleteStep marks a step completed now, recording the duration when known
func (s *TaskStore) CompleteStep(id string, durationSeconds *int) error {
	var duration interface{}
	if durationSeconds != nil {
		duration = *durationSeconds
	}

	result, err := s.db.Exec(`
		UPDATE steps SET completed = ?, completed_at = ?, actual_duration_seconds = ?
		WHERE id = ?
	`, true, s.now(), duration, id)
	if err != nil {
		return serr.Wrap(err, "failed to complete step")
	}
	return requireRow(result, ErrStepNotFound)
}

// NextStepOrder returns one past the highest order used by the task, or 0
func (s *TaskStore) NextStepOrder(taskID string) (int, error) {
	var maxOrder sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(step_order) FROM steps WHERE task_id = ?", taskID).Scan(&maxOrder)
	if err != nil {
		return 0, serr.Wrap(err, "failed to get max step order")
	}
	if !maxOrder.Valid {
		return 0, nil
	}
	return int(maxOrder.Int64) + 1, nil
}

// ListSteps returns every step of a task in creation order, simplification rungs included
func (s *TaskStore) ListSteps(taskID string) ([]*Step, error) {
	rows, err := s.db.Query(`
		SELECT `+stepColumns+` FROM steps
		WHERE task_id = ?
		ORDER BY step_order ASC, simplification_level ASC
	`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var steps []*Step
	for rows.Next() {
		step, err := scanStep(rows)
		if err != nil {
			return nil, serr.Wrap(err, "failed to scan step")
		}
		steps = append(steps, step)
	}
	if err := rows.Err(); err != nil {
		return nil, serr.Wrap(err, "failed to iterate steps")
	}
	return steps, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTask(sc scanner) (*Task, error) {
	var task Task
	var status string
	var energy sql.NullString

	err := sc.Scan(&task.ID, &task.OriginalGoal, &status, &energy, &task.CreatedAt, &task.UpdatedAt)
	if err != nil {
		return nil, err
	}
	task.Status = TaskStatus(status)
	task.EnergyLevel = energy.String
	return &task, nil
}

func scanStep(sc scanner) (*Step, error) {
	var step Step
	var duration sql.NullInt64
	var completedAt sql.NullTime

	err := sc.Scan(&step.ID, &step.TaskID, &step.StepText, &step.EstimatedSeconds, &duration,
		&step.StepOrder, &step.SimplificationLevel, &step.Completed, &step.CreatedAt, &completedAt)
	if err != nil {
		return nil, err
	}

	if duration.Valid {
		d := int(duration.Int64)
		step.ActualDurationSeconds = &d
	}
	if completedAt.Valid {
		t := completedAt.Time
		step.CompletedAt = &t
	}
	return &step, nil
}

func requireRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return serr.Wrap(err, "failed to read rows affected")
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
