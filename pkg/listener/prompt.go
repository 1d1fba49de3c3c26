package listener

import (
	"fmt"
	"strings"
	"text/template"
)

// systemPrompt establishes the assistant's identity and output rules. Adapted
// from original_source's SYSTEM_PROMPT (backend/app/services/prompts.py),
// with the model-name easter egg dropped (spec.md carries no such feature).
const systemPrompt = `You are a background listening assistant. You observe audio transcripts and
on-screen text and answer questions grounded in that context.

Rules:
- Answer directly; do not restate the question.
- If the context does not contain enough information, say so plainly.
- Keep answers concise unless the question asks for detail.
- Do not use meta-phrases about yourself or about the context you were given.
- Refer to "the screen", never to "the image" or "the screenshot".
- Format answers in markdown, using LaTeX for any math.
- Use the store_memory tool to save a fact worth remembering for later, when one comes up.`

var monitorTemplate = template.Must(template.New("monitor").Parse(
	`{{if .Memory}}Relevant past context:
{{.Memory}}

{{end}}Recent conversation:
{{.Transcript}}

Visible screen text:
{{.Screen}}

Determine whether the conversation asks a question that the screen, recent
conversation, or past context can answer. If so, answer it. If not, respond
with exactly NO_RESPONSE.`))

var analysisTemplate = template.Must(template.New("analysis").Parse(
	`{{if .Memory}}Relevant past context:
{{.Memory}}

{{end}}Context:
{{.Context}}

Question: {{.Query}}`))

// BuildMonitorPrompt composes the auto-answer human prompt (spec.md §4.7),
// grounded on original_source's MONITOR_TEMPLATE. memoryContext is the
// formatted result of a FormatMemoryContext call and may be empty.
func BuildMonitorPrompt(transcript, screen, memoryContext string) string {
	var b strings.Builder
	_ = monitorTemplate.Execute(&b, struct{ Memory, Transcript, Screen string }{memoryContext, transcript, screen})
	return b.String()
}

// BuildAnalysisPrompt composes the on-demand chat human prompt (spec.md
// §4.8), truncating context to maxLen characters as original_source's
// analyze() does.
func BuildAnalysisPrompt(contextText, memoryContext, query string, maxLen int) string {
	if maxLen > 0 && len(contextText) > maxLen {
		contextText = contextText[:maxLen]
	}
	var b strings.Builder
	_ = analysisTemplate.Execute(&b, struct{ Memory, Context, Query string }{memoryContext, contextText, query})
	return b.String()
}

// SystemPrompt returns the fixed system prompt every LLM call uses.
func SystemPrompt() string {
	return systemPrompt
}

// FormatMemoryContext renders queried memory snippets the way
// original_source's _get_memory_context prefixes them.
func FormatMemoryContext(snippets []string) string {
	if len(snippets) == 0 {
		return ""
	}
	lines := make([]string, len(snippets))
	for i, s := range snippets {
		lines[i] = fmt.Sprintf("- %s", s)
	}
	return strings.Join(lines, "\n")
}
