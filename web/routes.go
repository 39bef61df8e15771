package web

import (
	"github.com/rohanthewiz/rweb"

	"microwin/tasks"
)

// SetupRoutes configures all HTTP routes for the server
func SetupRoutes(s *rweb.Server, svc *tasks.Service) {
	h := &TaskHandlers{svc: svc}

	// Root endpoint - serves the micro-step page
	s.Get("/", h.UIHandler)
	s.Get("/health", healthHandler)

	// Task lifecycle
	s.Post("/api/task/start", h.startTaskHandler)
	s.Post("/api/task/next", h.nextStepHandler)
	s.Post("/api/task/simplify", h.simplifyStepHandler)
	s.Post("/api/task/pause", h.pauseTaskHandler)
	s.Post("/api/task/finish", h.finishTaskHandler)
	s.Get("/api/task/resume/:id", h.resumeTaskHandler)

	// History
	s.Get("/api/task/:id/steps", h.listStepsHandler)
	s.Get("/api/tasks", h.listTasksHandler)
	s.Get("/api/insights", h.insightsHandler)
}

func healthHandler(c rweb.Context) error {
	return c.WriteJSON(map[string]string{
		"status":  "healthy",
		"service": "MicroWin",
	})
}
