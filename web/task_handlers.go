package web

import (
	"context"
	"errors"

	"github.com/rohanthewiz/logger"
	"github.com/rohanthewiz/rweb"

	"microwin/db"
	"microwin/platform/shutdown"
	"microwin/tasks"
)

// ErrShuttingDown refuses new work once a stop signal has arrived
var ErrShuttingDown = errors.New("server is shutting down")

// TaskHandlers serves the task API over a tasks.Service
type TaskHandlers struct {
	svc *tasks.Service
}

func (h *TaskHandlers) startTaskHandler(c rweb.Context) error {
	if shutdown.CheckShutdown() {
		return writeError(c, ErrShuttingDown)
	}

	var req TaskStartRequest
	if err := decodeRequest(c.Request().Body(), &req); err != nil {
		return writeError(c, err)
	}

	result, err := h.svc.Start(context.Background(), req.Goal, req.EnergyLevel)
	if err != nil {
		return writeError(c, err)
	}
	return c.WriteJSON(result)
}

func (h *TaskHandlers) nextStepHandler(c rweb.Context) error {
	if shutdown.CheckShutdown() {
		return writeError(c, ErrShuttingDown)
	}

	var req NextStepRequest
	if err := decodeRequest(c.Request().Body(), &req); err != nil {
		return writeError(c, err)
	}

	result, err := h.svc.Next(context.Background(), req.TaskID, req.StepID, req.DurationSeconds)
	if err != nil {
		return writeError(c, err)
	}
	return c.WriteJSON(result)
}

func (h *TaskHandlers) simplifyStepHandler(c rweb.Context) error {
	if shutdown.CheckShutdown() {
		return writeError(c, ErrShuttingDown)
	}

	var req SimplifyRequest
	if err := decodeRequest(c.Request().Body(), &req); err != nil {
		return writeError(c, err)
	}
	if req.Reason != "" {
		logger.Debug("Simplify requested", "task_id", req.TaskID, "reason", req.Reason)
	}

	result, err := h.svc.Simplify(context.Background(), req.TaskID, req.StepID)
	if err != nil {
		return writeError(c, err)
	}
	return c.WriteJSON(result)
}

func (h *TaskHandlers) pauseTaskHandler(c rweb.Context) error {
	var req TaskActionRequest
	if err := decodeRequest(c.Request().Body(), &req); err != nil {
		return writeError(c, err)
	}

	if err := h.svc.Pause(req.TaskID); err != nil {
		return writeError(c, err)
	}
	return c.WriteJSON(map[string]string{
		"status":  string(db.StatusPaused),
		"task_id": req.TaskID,
	})
}

func (h *TaskHandlers) finishTaskHandler(c rweb.Context) error {
	var req TaskActionRequest
	if err := decodeRequest(c.Request().Body(), &req); err != nil {
		return writeError(c, err)
	}

	if err := h.svc.Finish(req.TaskID); err != nil {
		return writeError(c, err)
	}
	return c.WriteJSON(map[string]string{
		"status":  string(db.StatusCompleted),
		"task_id": req.TaskID,
	})
}

func (h *TaskHandlers) resumeTaskHandler(c rweb.Context) error {
	result, err := h.svc.Resume(c.Request().Param("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.WriteJSON(result)
}

func (h *TaskHandlers) listStepsHandler(c rweb.Context) error {
	taskID := c.Request().Param("id")

	steps, err := h.svc.History(taskID)
	if err != nil {
		return writeError(c, err)
	}
	if steps == nil {
		steps = []*db.Step{}
	}
	return c.WriteJSON(map[string]interface{}{
		"task_id": taskID,
		"steps":   steps,
	})
}

func (h *TaskHandlers) listTasksHandler(c rweb.Context) error {
	status := db.TaskStatus(c.Request().QueryParam("status"))
	if status != "" && !status.Valid() {
		return writeError(c, &BadRequestError{Message: "status must be active, paused or completed"})
	}

	list, err := h.svc.Tasks(status)
	if err != nil {
		return writeError(c, err)
	}
	if list == nil {
		list = []*db.Task{}
	}
	return c.WriteJSON(map[string]interface{}{
		"tasks": list,
	})
}

func (h *TaskHandlers) insightsHandler(c rweb.Context) error {
	insights, err := h.svc.Insights()
	if err != nil {
		return writeError(c, err)
	}
	return c.WriteJSON(insights)
}

// writeError logs err and writes it with the status its type maps to
func writeError(c rweb.Context, err error) error {
	code, body := errorBody(err)
	if code >= 500 {
		logger.LogErr(err, "Request failed", "status", code)
	} else {
		logger.Debug("Request rejected", "status", code, "error", err.Error())
	}

	c.Response().SetStatus(code)
	return c.WriteJSON(body)
}
