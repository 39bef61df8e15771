// Package validation decides whether a generated micro-step is acceptable.
//
// The abstract-verb denylist is a hard rule; the concrete-verb allowlist is
// advisory and only produces a warning.
package validation

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"github.com/rohanthewiz/logger"

	"microwin/config"
)

// Mode selects the time ceiling applied to a candidate
type Mode int

const (
	// ModeNormal applies the standard step ceiling
	ModeNormal Mode = iota
	// ModeShorter applies the strict ceiling used for simplifications
	ModeShorter
)

func (m Mode) String() string {
	if m == ModeShorter {
		return "enforce_shorter"
	}
	return "normal"
}

// Policy holds the rules a step is checked against
type Policy struct {
	MaxSeconds     int
	ShorterSeconds int
	AbstractVerbs  []string
	ConcreteVerbs  []string
}

// NewPolicy builds a Policy from the application config
func NewPolicy(cfg config.Config) Policy {
	return Policy{
		MaxSeconds:     cfg.MaxStepSeconds,
		ShorterSeconds: cfg.SimplificationMaxSeconds,
		AbstractVerbs:  cfg.AbstractVerbs,
		ConcreteVerbs:  cfg.ConcreteVerbs,
	}
}

// Ceiling returns the max estimated_seconds allowed in the given mode
func (p Policy) Ceiling(mode Mode) int {
	if mode == ModeShorter {
		return p.ShorterSeconds
	}
	return p.MaxSeconds
}

// Step is a normalized, accepted micro-step
type Step struct {
	Text             string `json:"step_text"`
	EstimatedSeconds int    `json:"estimated_seconds"`
	IsComplete       bool   `json:"is_complete"`
	// Advisory is set when the text does not open with a known concrete verb
	Advisory bool `json:"-"`
}

// candidate mirrors the backend payload. Pointers distinguish absent from zero.
type candidate struct {
	Step             *string      `json:"step"`
	EstimatedSeconds *json.Number `json:"estimated_seconds"`
	IsComplete       *bool        `json:"is_complete"`
}

// Validate parses raw backend output and checks it against the policy
func (p Policy) Validate(raw string, mode Mode) (*Step, error) {
	payload, err := extractJSON(raw)
	if err != nil {
		return nil, err
	}

	var c candidate
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&c); err != nil {
		return nil, &MalformedResponseError{Err: err, Reason: "invalid JSON"}
	}

	if c.Step == nil || strings.TrimSpace(*c.Step) == "" {
		return nil, &MissingFieldError{Field: "step"}
	}
	if c.EstimatedSeconds == nil {
		return nil, &MissingFieldError{Field: "estimated_seconds"}
	}

	seconds, err := wholeSeconds(*c.EstimatedSeconds)
	if err != nil {
		return nil, err
	}

	ceiling := p.Ceiling(mode)
	if seconds > float64(ceiling) {
		return nil, &TimeBudgetExceededError{Ceiling: ceiling, Seconds: clampSeconds(seconds), Mode: mode}
	}

	text := strings.TrimSpace(*c.Step)
	lower := strings.ToLower(text)
	for _, term := range p.AbstractVerbs {
		if term == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			return nil, &AbstractVerbRejectedError{Term: term}
		}
	}

	step := &Step{
		Text:             text,
		EstimatedSeconds: int(seconds),
	}
	if c.IsComplete != nil {
		step.IsComplete = *c.IsComplete
	}

	if !p.startsConcrete(lower) {
		step.Advisory = true
		logger.Warn("Step does not start with a concrete action verb", "step", text)
	}

	return step, nil
}

func (p Policy) startsConcrete(lower string) bool {
	if len(p.ConcreteVerbs) == 0 {
		return true
	}
	for _, verb := range p.ConcreteVerbs {
		if verb != "" && strings.HasPrefix(lower, strings.ToLower(verb)) {
			return true
		}
	}
	return false
}

// wholeSeconds accepts integral, non-negative numbers only (4 and 4.0 are fine).
// Values too large for a float64 come back as +Inf.
func wholeSeconds(n json.Number) (float64, error) {
	f, err := n.Float64()
	if err != nil && !math.IsInf(f, 1) {
		return 0, &MalformedResponseError{Err: err, Reason: "estimated_seconds is not a number"}
	}
	if f < 0 || (!math.IsInf(f, 1) && f != math.Trunc(f)) {
		return 0, &MalformedResponseError{Reason: "estimated_seconds must be a whole, non-negative number"}
	}
	return f, nil
}

func clampSeconds(f float64) int {
	if f > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(f)
}

// extractJSON pulls the step object out of model output that may be
// wrapped in markdown fences or surrounded by chatter
func extractJSON(raw string) ([]byte, error) {
	s := stripMarkdownCodeBlocks(raw)
	if s == "" {
		return nil, &MalformedResponseError{Reason: "empty response"}
	}
	if json.Valid([]byte(s)) {
		if !strings.HasPrefix(s, "{") {
			return nil, &MalformedResponseError{Reason: "response is not a JSON object"}
		}
		return []byte(s), nil
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || start >= end {
		return nil, &MalformedResponseError{Reason: "no JSON object found"}
	}

	extracted := s[start : end+1]
	if !json.Valid([]byte(extracted)) {
		return nil, &MalformedResponseError{Reason: "invalid JSON"}
	}
	return []byte(extracted), nil
}

func stripMarkdownCodeBlocks(s string) string {
	s = strings.TrimSpace(s)
	if cut, found := strings.CutPrefix(s, "```json"); found {
		s = cut
	} else if cut, found := strings.CutPrefix(s, "```"); found {
		s = cut
	}
	if cut, found := strings.CutSuffix(s, "```"); found {
		s = cut
	}
	return strings.TrimSpace(s)
}
