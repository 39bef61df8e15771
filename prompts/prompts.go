// Package prompts builds the instruction text sent to the generation backend.
//
// Every builder is pure. The system prompt is backend-facing policy and is
// identical across calls for a given Policy.
package prompts

import (
	"fmt"
	"strings"

	"microwin/validation"
)

// Energy levels a user may report
const (
	EnergyLow    = "low"
	EnergyMedium = "medium"
	EnergyHigh   = "high"
)

// EnergyLevels lists the accepted energy values in display order
var EnergyLevels = []string{EnergyLow, EnergyMedium, EnergyHigh}

// ValidEnergy reports whether s is empty or a known energy level
func ValidEnergy(s string) bool {
	if s == "" {
		return true
	}
	for _, lvl := range EnergyLevels {
		if s == lvl {
			return true
		}
	}
	return false
}

// Prompt is a system instruction plus the per-call user text
type Prompt struct {
	System string
	User   string
}

// Combined joins system and user text for backends with a single prompt field
func (p Prompt) Combined() string {
	return p.System + "\n\n" + p.User
}

// Band is the target duration range for an energy level
type Band struct {
	Min int
	Max int
}

// Builder produces prompts for the three generation modes
type Builder struct {
	policy validation.Policy
	system string
}

// NewBuilder creates a Builder whose guidance tracks the policy's ceilings and denylist
func NewBuilder(policy validation.Policy) *Builder {
	return &Builder{policy: policy, system: systemPrompt(policy)}
}

// SystemPrompt returns the fixed persona instruction
func (b *Builder) SystemPrompt() string {
	return b.system
}

// EnergyBand maps an energy level onto a duration range inside the ceilings.
// Unknown or empty levels get the medium band.
func (b *Builder) EnergyBand(energy string) Band {
	switch energy {
	case EnergyLow:
		return Band{Min: 1, Max: b.policy.ShorterSeconds}
	case EnergyHigh:
		return Band{Min: b.policy.ShorterSeconds, Max: b.policy.MaxSeconds}
	default:
		return Band{Min: 1, Max: b.policy.MaxSeconds}
	}
}

func (b *Builder) energyConstraint(energy string) string {
	band := b.EnergyBand(energy)
	switch energy {
	case EnergyLow:
		return fmt.Sprintf("The user has LOW energy. Generate an ultra-simple, non-intimidating step (%d-%ds). Focus on the smallest possible movement.", band.Min, band.Max)
	case EnergyHigh:
		return fmt.Sprintf("High energy level. Can handle a slightly broader physical action (%d-%ds).", band.Min, band.Max)
	default:
		return fmt.Sprintf("Standard energy level. Generate a concrete physical action (%d-%ds).", band.Min, band.Max)
	}
}

func energyLabel(energy string) string {
	if energy == "" {
		return strings.ToUpper(EnergyMedium)
	}
	return strings.ToUpper(energy)
}

// Initial builds the prompt for the first step of a goal
func (b *Builder) Initial(goal, energy string) Prompt {
	user := fmt.Sprintf(`TASK: %s
ENERGY LEVEL: %s
CONSTRAINT: %s

Generate the FIRST physically executable micro-step to start this task.

EXAMPLES:
- "Touch the handle of your laptop"
- "Pick up the nearest blue item"
- "Open the lid of your water bottle"

Return ONLY valid JSON: {"step": "...", "estimated_seconds": ..., "is_complete": false}`,
		SanitizeGoal(goal), energyLabel(energy), b.energyConstraint(energy))

	return Prompt{System: b.system, User: user}
}

// Continuation builds the prompt for the step following a completed one
func (b *Builder) Continuation(goal, previousStep, energy string) Prompt {
	user := fmt.Sprintf(`ORIGINAL TASK: %s
PREVIOUS STEP COMPLETED: %s
ENERGY LEVEL: %s
CONSTRAINT: %s

Generate the NEXT physically executable micro-step that logically follows the previous one.

If the goal is finished, return is_complete: true.

Return ONLY valid JSON: {"step": "...", "estimated_seconds": ..., "is_complete": boolean}`,
		SanitizeGoal(goal), strings.TrimSpace(previousStep), energyLabel(energy), b.energyConstraint(energy))

	return Prompt{System: b.system, User: user}
}

// Simplification builds the prompt for a strictly smaller version of a step
func (b *Builder) Simplification(currentStep string, level int) Prompt {
	user := fmt.Sprintf(`The user found this step TOO HARD:
"%s"

This is simplification level %d.

Break it into an EVEN SIMPLER physical action. Requirements:
- Must be SMALLER than the original step
- Target <=%d seconds (even faster!)
- Remove ALL decision-making
- Focus on the absolute first micro-movement

EXAMPLES:
Original: "Pick up the first item on the floor"
Simplified: "Walk to the nearest visible item"
Ultra-simplified: "Take one step toward the floor"

Return ONLY valid JSON: {"step": "...", "estimated_seconds": ..., "is_complete": false}`,
		strings.TrimSpace(currentStep), level+1, b.policy.ShorterSeconds)

	return Prompt{System: b.system, User: user}
}

func systemPrompt(policy validation.Policy) string {
	banned := "organize, plan, prepare, think, decide"
	if len(policy.AbstractVerbs) > 0 {
		banned = strings.Join(policy.AbstractVerbs, ", ")
	}

	return fmt.Sprintf(`You are an AI assistant specialized in helping neurodivergent users (ADHD, Autism, Dyslexia) overcome task initiation paralysis.

Your ONLY job is to convert abstract goals into MICRO-WINS - ultra-specific, physically executable actions that:
- Take <=%d seconds to complete
- Require ZERO decision-making
- Use concrete action verbs (pick, grab, open, tap, walk, touch)
- NEVER use abstract verbs (%s)

You must respond ONLY with valid JSON in this exact format:
{"step": "action description", "estimated_seconds": number, "is_complete": boolean}

If the task goal has been fully accomplished by the previous steps, set "is_complete": true and provide a final encouraging message in "step". Otherwise, set "is_complete": false.

CRITICAL RULES:
- Generate ONLY ONE step at a time
- Each step must be immediately actionable
- No choices, no planning, no thinking required
- Focus on the absolute first physical movement`, policy.MaxSeconds, banned)
}
