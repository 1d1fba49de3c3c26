package listener

import "strings"

// urgentKeywords mirrors original_source's AnalysisService.analyze_text
// (backend/app/services/analysis.py), supplemented into this build as a
// standalone helper; the transcript dispatcher does not call it, so transcript
// frames carry no urgency tag.
var urgentKeywords = []string{"error", "fail", "deadline", "urgent", "meeting"}

// ContainsUrgentKeyword reports whether text mentions any of the keyword set
// original_source used to flag transcripts worth surfacing immediately.
func ContainsUrgentKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range urgentKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
