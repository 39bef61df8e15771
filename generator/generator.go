// Package generator composes prompt building, the completion backend and
// step validation into the three micro-step generation operations.
//
// It fails fast: any error from the backend or the validator is returned
// to the caller exactly as produced. There is no retry and no fallback step.
package generator

import (
	"context"

	"github.com/rohanthewiz/logger"

	"microwin/prompts"
	"microwin/providers"
	"microwin/validation"
)

// Generator produces validated micro-steps
type Generator struct {
	completer providers.Completer
	policy    validation.Policy
	builder   *prompts.Builder
}

// New creates a Generator over any Completer
func New(completer providers.Completer, policy validation.Policy) *Generator {
	return &Generator{
		completer: completer,
		policy:    policy,
		builder:   prompts.NewBuilder(policy),
	}
}

// Policy returns the validation policy in force
func (g *Generator) Policy() validation.Policy {
	return g.policy
}

// InitialStep generates the first step for a goal.
// The result never signals completion.
func (g *Generator) InitialStep(ctx context.Context, goal, energy string) (*validation.Step, error) {
	step, err := g.run(ctx, g.builder.Initial(goal, energy), validation.ModeNormal)
	if err != nil {
		return nil, err
	}
	step.IsComplete = false
	return step, nil
}

// NextStep generates the step that follows previousStep.
// IsComplete is taken from the backend and may end the goal.
func (g *Generator) NextStep(ctx context.Context, goal, previousStep, energy string) (*validation.Step, error) {
	return g.run(ctx, g.builder.Continuation(goal, previousStep, energy), validation.ModeNormal)
}

// SimplifyStep generates a strictly smaller version of currentStep under the
// strict ceiling. Simplification never ends a task.
func (g *Generator) SimplifyStep(ctx context.Context, currentStep string, level int) (*validation.Step, error) {
	step, err := g.run(ctx, g.builder.Simplification(currentStep, level), validation.ModeShorter)
	if err != nil {
		return nil, err
	}
	step.IsComplete = false
	return step, nil
}

func (g *Generator) run(ctx context.Context, prompt prompts.Prompt, mode validation.Mode) (*validation.Step, error) {
	raw, err := g.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	step, err := g.policy.Validate(raw, mode)
	if err != nil {
		logger.Debug("Generated step rejected", "mode", mode.String(), "error", err.Error())
		return nil, err
	}
	return step, nil
}
