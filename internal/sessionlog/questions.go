package sessionlog

import (
	"fmt"
	"strings"
)

// Policy selects the user-question filter variant. The two variants disagree
// on structured (non-string) user content and on how narrowly the
// tool-result-array heuristic matches; both have been observed in the wild,
// so the choice is an explicit, named configuration.
type Policy string

const (
	// PolicyStrict excludes structured content and treats any content
	// starting with "[{" as a serialized tool-result payload.
	PolicyStrict Policy = "strict"

	// PolicyInclusive keeps structured content and only excludes string
	// content that both starts with "[{" and carries tool-result markers.
	PolicyInclusive Policy = "inclusive"
)

// ParsePolicy maps a config value to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyStrict, PolicyInclusive:
		return Policy(s), nil
	case "":
		return PolicyStrict, nil
	default:
		return "", fmt.Errorf("unknown question policy: %q", s)
	}
}

const (
	caveatPrefix        = "Caveat:"
	commandNameTag      = "<command-name>"
	commandMessageTag   = "<command-message>"
	emptyStdoutSentinel = "<local-command-stdout></local-command-stdout>"
)

// UserQuestions filters already-read entries down to genuine user questions.
// Pure: the input slice is never modified.
func UserQuestions(entries []Entry, policy Policy) []Entry {
	var questions []Entry
	for _, e := range entries {
		if isUserQuestion(&e, policy) {
			questions = append(questions, e)
		}
	}
	return questions
}

func isUserQuestion(e *Entry, policy Policy) bool {
	if e.Message == nil || e.Message.Role != "user" {
		return false
	}

	content, isString := e.ContentString()
	if !isString {
		// Structured content: a standalone question under the inclusive
		// variant, not one under strict.
		return policy == PolicyInclusive
	}

	trimmed := strings.TrimSpace(content)

	if strings.HasPrefix(trimmed, "[{") {
		switch policy {
		case PolicyStrict:
			return false
		case PolicyInclusive:
			if strings.Contains(trimmed, "tool_use_id") || strings.Contains(trimmed, "tool_result") {
				return false
			}
		}
	}

	if strings.HasPrefix(trimmed, caveatPrefix) {
		return false
	}
	if strings.Contains(trimmed, commandNameTag) || strings.Contains(trimmed, commandMessageTag) {
		return false
	}
	if strings.HasPrefix(trimmed, emptyStdoutSentinel) {
		return false
	}

	return true
}
