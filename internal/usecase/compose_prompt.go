package usecase

import (
	"fmt"
	"strings"

	"rag-gateway/internal/domain"
)

// Style selects the structural scaffold requested from the generator.
type Style string

const (
	StyleBase         Style = "base"
	StyleAuditBullets Style = "audit-bullets"
	StyleConcise      Style = "concise"
	StyleQA           Style = "qa"
	StyleVerdict      Style = "verdict"
	StyleCompare      Style = "compare"
	StyleTable        Style = "table"
	StyleJSON         Style = "json"
	StyleProcedure    Style = "procedure"
	StyleExecSummary  Style = "exec-summary"
	StyleCard         Style = "card"
)

// ParseStyle maps a request tag to a known Style. Unknown or empty tags
// resolve to StyleBase rather than failing the request.
func ParseStyle(tag string) Style {
	s := Style(strings.ToLower(strings.TrimSpace(tag)))
	if _, ok := promptRenderers[s]; ok {
		return s
	}
	return StyleBase
}

// Styles lists the registered style tags.
func Styles() []Style {
	out := make([]Style, 0, len(promptRenderers))
	for s := range promptRenderers {
		out = append(out, s)
	}
	return out
}

// promptRenderer is a pure function from question and budgeted citations to
// final prompt text. Renderers never read request state beyond their inputs.
type promptRenderer func(question string, citations []domain.Citation, s PipelineSettings) string

var promptRenderers = map[Style]promptRenderer{
	StyleBase:         renderBase,
	StyleAuditBullets: renderAuditBullets,
	StyleConcise:      renderConcise,
	StyleQA:           renderQA,
	StyleVerdict:      renderVerdict,
	StyleCompare:      renderCompare,
	StyleTable:        renderTable,
	StyleJSON:         renderJSON,
	StyleProcedure:    renderProcedure,
	StyleExecSummary:  renderExecSummary,
	StyleCard:         renderCard,
}

// ComposePrompt renders the question and citations into the prompt for the
// requested style. An unregistered style falls back to the base renderer.
func ComposePrompt(question string, citations []domain.Citation, settings PipelineSettings, style Style) string {
	render, ok := promptRenderers[style]
	if !ok {
		render = renderBase
	}
	return render(question, citations, settings)
}

const noContextPlaceholder = "(no excerpts available)"

// renderContextBlock numbers citations from 1 and attributes each one with
// the best available source field.
func renderContextBlock(citations []domain.Citation) string {
	if len(citations) == 0 {
		return noContextPlaceholder
	}
	blocks := make([]string, 0, len(citations))
	for i, c := range citations {
		block := fmt.Sprintf("[%d] %s", i+1, c.Text)
		if src := sourceRef(c); src != "" {
			block += "\nSource: " + src
		}
		blocks = append(blocks, block)
	}
	return strings.Join(blocks, "\n\n")
}

// sourceRef picks the attribution for a citation: url, then source, then the
// hit id.
func sourceRef(c domain.Citation) string {
	for _, key := range []string{"url", "source"} {
		if v, ok := c.Meta[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return c.ID
}

func renderBase(question string, citations []domain.Citation, s PipelineSettings) string {
	return s.SystemPromptBase +
		"\n# Question\n" + question +
		"\n\n# Excerpts\n" + renderContextBlock(citations) +
		"\n\n# Answer:"
}

func renderAuditBullets(question string, citations []domain.Citation, s PipelineSettings) string {
	return s.SystemPromptStrict +
		"Format the answer as short, verifiable bullet points. Every substantive claim must end with its excerpt marker [n].\n" +
		"\n# Question\n" + question +
		"\n\n# Excerpts (cite as [n])\n" + renderContextBlock(citations) +
		"\n\n# Answer (one [n] per line):"
}

func renderConcise(question string, citations []domain.Citation, s PipelineSettings) string {
	return s.SystemPromptStrict +
		"Answer concisely in 3-6 bullets. Each bullet must end with its excerpt marker [n].\n" +
		"\n# Question\n" + question +
		"\n\n# Excerpts\n" + renderContextBlock(citations) +
		"\n\n# Answer:"
}

func renderQA(question string, citations []domain.Citation, s PipelineSettings) string {
	return s.SystemPromptStrict +
		"Give a DIRECT ANSWER first (1-2 sentences), then DETAILS as bullets with [n] markers.\n" +
		"\n# Question\n" + question +
		"\n\n# Excerpts\n" + renderContextBlock(citations) +
		"\n\n# Direct answer:\n\n# Details:\n- "
}

func renderVerdict(question string, citations []domain.Citation, s PipelineSettings) string {
	return s.SystemPromptStrict +
		"Open with a one-line VERDICT (Yes / No / Partial), then a short justification citing [n].\n" +
		"\n# Question\n" + question +
		"\n\n# Excerpts\n" + renderContextBlock(citations) +
		"\n\n# Answer:\nVerdict: "
}

func renderCompare(question string, citations []domain.Citation, s PipelineSettings) string {
	return s.SystemPromptStrict +
		"Produce a Markdown TABLE comparing the items in the question. Columns: Item | Evidence [n] | Notes.\n" +
		"\n# Question\n" + question +
		"\n\n# Excerpts\n" + renderContextBlock(citations) +
		"\n\n# Answer (Markdown table):\n| Item | Evidence | Notes |\n|---|---|---|\n"
}

func renderTable(question string, citations []domain.Citation, s PipelineSettings) string {
	return s.SystemPromptStrict +
		"Summarize the answer as a Markdown TABLE. Columns: Field | Content | Source [n].\n" +
		"\n# Question\n" + question +
		"\n\n# Excerpts\n" + renderContextBlock(citations) +
		"\n\n# Answer (Markdown table):\n| Field | Content | Source |\n|---|---|---|\n"
}

func renderJSON(question string, citations []domain.Citation, s PipelineSettings) string {
	return s.SystemPromptStrict +
		"Return strictly valid JSON with keys: \"answer\" (string), \"bullets\" (array of strings), \"citations_used\" (array of integers). " +
		"Every bullet must contain an [n] marker. Output nothing outside the JSON object.\n" +
		"\n# Question\n" + question +
		"\n\n# Excerpts\n" + renderContextBlock(citations) +
		"\n\n# Answer (JSON only):"
}

func renderProcedure(question string, citations []domain.Citation, s PipelineSettings) string {
	return s.SystemPromptStrict +
		"Answer as a PROCEDURE of numbered steps (at most 7), each step anchored with its [n] marker.\n" +
		"\n# Question\n" + question +
		"\n\n# Excerpts\n" + renderContextBlock(citations) +
		"\n\n# Answer:\n1) "
}

func renderExecSummary(question string, citations []domain.Citation, s PipelineSettings) string {
	return s.SystemPromptStrict +
		"Produce an EXECUTIVE SUMMARY (3 bullets), then RISKS (up to 3), then OPEN GAPS (up to 2). Anchor everything with [n].\n" +
		"\n# Question\n" + question +
		"\n\n# Excerpts\n" + renderContextBlock(citations) +
		"\n\n# Executive summary:\n- "
}

func renderCard(question string, citations []domain.Citation, s PipelineSettings) string {
	return s.SystemPromptStrict +
		"Format the answer as a technique card with these sections, each claim anchored with [n]:\n" +
		"Tactics / Technique / Platforms / Mitigations / Detections / References.\n" +
		"\n# Question\n" + question +
		"\n\n# Excerpts\n" + renderContextBlock(citations) +
		"\n\n# Answer:\nTactics: "
}
