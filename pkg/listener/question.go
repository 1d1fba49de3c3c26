package listener

import (
	"strings"
)

// questionStarters mirrors original_source's QUESTION_STARTERS word list
// (backend/app/services/monitor.py), used as a cheap interrogative-opener
// heuristic ahead of the trailing "?" check.
var questionStarters = []string{
	"who", "what", "where", "when", "why", "how",
	"can", "could", "would", "should",
	"is", "are", "do", "does", "did",
	"have", "has", "will", "won't", "isn't", "aren't",
	"don't", "doesn't", "didn't", "haven't", "hasn't",
	"was", "were", "which", "shall", "may", "might", "tell me",
}

// IsQuestion reports whether text reads as a question: strings shorter than
// minLength are rejected outright, a trailing "?" always qualifies, and
// otherwise the first word must be an interrogative starter (spec.md §4.5,
// §8 property 7 — this function is pure and idempotent given the same
// arguments). minLength is the configured min_question_length knob
// (spec.md §6, default 10) — callers pass cfg.MinQuestionLength rather than
// relying on a baked-in floor here.
func IsQuestion(text string, minLength int) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minLength {
		return false
	}
	if strings.HasSuffix(trimmed, "?") {
		return true
	}

	lower := strings.ToLower(trimmed)
	for _, starter := range questionStarters {
		if lower == starter {
			continue
		}
		if strings.HasPrefix(lower, starter+" ") {
			return true
		}
	}
	return false
}
