package web

import (
	"errors"
	"net/http"

	"microwin/db"
	"microwin/providers"
	"microwin/tasks"
	"microwin/validation"
)

// ErrorResponse is the JSON body of every failed API call
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// statusFor maps a domain error to its HTTP status and a short error label
func statusFor(err error) (int, string) {
	var (
		badReq    *BadRequestError
		backend   *providers.GenerationBackendError
		malformed *validation.MalformedResponseError
		missing   *validation.MissingFieldError
		budget    *validation.TimeBudgetExceededError
		abstract  *validation.AbstractVerbRejectedError
	)

	switch {
	case errors.Is(err, ErrShuttingDown):
		return http.StatusServiceUnavailable, "shutting_down"
	case errors.As(err, &badReq),
		errors.Is(err, tasks.ErrEmptyGoal),
		errors.Is(err, tasks.ErrInvalidEnergy):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, db.ErrTaskNotFound),
		errors.Is(err, db.ErrStepNotFound),
		errors.Is(err, tasks.ErrNoCurrentStep):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, tasks.ErrTaskCompleted),
		errors.Is(err, tasks.ErrStepMismatch):
		return http.StatusConflict, "conflict"
	case errors.As(err, &backend):
		return http.StatusBadGateway, "generation_backend_error"
	case errors.As(err, &malformed):
		return http.StatusUnprocessableEntity, "malformed_response"
	case errors.As(err, &missing):
		return http.StatusUnprocessableEntity, "missing_field"
	case errors.As(err, &budget):
		return http.StatusUnprocessableEntity, "time_budget_exceeded"
	case errors.As(err, &abstract):
		return http.StatusUnprocessableEntity, "abstract_verb_rejected"
	}
	return http.StatusInternalServerError, "internal_error"
}

// errorBody builds the response for err. Internal errors hide their details.
func errorBody(err error) (int, ErrorResponse) {
	code, label := statusFor(err)
	if code == http.StatusInternalServerError || code == http.StatusServiceUnavailable {
		return code, ErrorResponse{Error: label}
	}
	return code, ErrorResponse{Error: label, Details: err.Error()}
}
