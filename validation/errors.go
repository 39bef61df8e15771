package validation

import (
	"fmt"
)

// Error types returned by Validate. Callers classify them with errors.As.
type (
	// MalformedResponseError means the payload could not be read as a step object
	MalformedResponseError struct {
		Err    error
		Reason string
	}

	// MissingFieldError means a required field is absent or blank
	MissingFieldError struct {
		Field string
	}

	// TimeBudgetExceededError means the step is longer than the active ceiling
	TimeBudgetExceededError struct {
		Ceiling int
		Seconds int
		Mode    Mode
	}

	// AbstractVerbRejectedError means the step text contains a denylisted term
	AbstractVerbRejectedError struct {
		Term string
	}
)

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed response (%s)", e.Reason)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Err
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

func (e *TimeBudgetExceededError) Error() string {
	return fmt.Sprintf("step takes %ds, exceeds %d second limit (%s mode)", e.Seconds, e.Ceiling, e.Mode)
}

func (e *AbstractVerbRejectedError) Error() string {
	return fmt.Sprintf("step contains abstract verb: %s", e.Term)
}
