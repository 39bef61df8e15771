package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports fields by their json names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// TaskStartRequest starts a new task
type TaskStartRequest struct {
	Goal        string `json:"goal" validate:"required,min=1,max=500"`
	EnergyLevel string `json:"energy_level" validate:"omitempty,oneof=low medium high"`
}

// NextStepRequest marks a step done and asks for the one after it
type NextStepRequest struct {
	TaskID          string `json:"task_id" validate:"required"`
	StepID          string `json:"step_id"`
	DurationSeconds *int   `json:"duration_seconds" validate:"omitempty,min=0"`
}

// SimplifyRequest asks for a smaller version of the current step
type SimplifyRequest struct {
	TaskID string `json:"task_id" validate:"required"`
	StepID string `json:"step_id"`
	Reason string `json:"reason" validate:"max=500"`
}

// TaskActionRequest pauses or finishes a task
type TaskActionRequest struct {
	TaskID string `json:"task_id" validate:"required"`
	StepID string `json:"step_id"`
}

// BadRequestError is returned when a request body cannot be used
type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string {
	return e.Message
}

// decodeRequest unmarshals body into req and runs its validate tags
func decodeRequest(body []byte, req any) error {
	if len(body) == 0 {
		return &BadRequestError{Message: "request body is required"}
	}
	if err := json.Unmarshal(body, req); err != nil {
		return &BadRequestError{Message: "invalid request body: " + err.Error()}
	}

	if err := validate.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			return &BadRequestError{Message: describeFieldErrors(fieldErrs)}
		}
		return &BadRequestError{Message: err.Error()}
	}
	return nil
}

func describeFieldErrors(errs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(errs))
	for _, fe := range errs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min", "max":
			msgs = append(msgs, fmt.Sprintf("%s violates %s=%s", field, fe.Tag(), fe.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of: %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}
