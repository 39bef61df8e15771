package prompts

import "strings"

// SanitizeGoal is the privacy seam every free-text goal passes through
// before it is embedded in a prompt. The current policy only trims
// whitespace; PII redaction belongs here when it is introduced.
func SanitizeGoal(goal string) string {
	return strings.TrimSpace(goal)
}
