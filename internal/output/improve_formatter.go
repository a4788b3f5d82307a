package output

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jlucaso1/pr-agent-go/internal/platform"
	"github.com/jlucaso1/pr-agent-go/internal/yamlx"
)

// ParsedSuggestion is one code-improvement suggestion parsed out of the
// Improve tool's AI response. Grounded on orig/output/improve_formatter.rs's
// ParsedSuggestion.
type ParsedSuggestion struct {
	Label              string
	RelevantFile       string
	RelevantLinesStart int32
	RelevantLinesEnd   int32
	ExistingCode       string
	ImprovedCode       string
	OneSentenceSummary string
	SuggestionContent  string
	Score              uint32
}

func yamlStrField(item map[string]interface{}, key, fallback string) string {
	if v, ok := item[key]; ok {
		if s, ok := v.(string); ok {
			return strings.TrimSpace(s)
		}
	}
	return fallback
}

// ParseSuggestions parses code suggestions out of the AI's YAML response,
// sorted by score descending. Grounded on
// orig/output/improve_formatter.rs's parse_suggestions.
func ParseSuggestions(data interface{}) []ParsedSuggestion {
	m, _ := data.(map[string]interface{})

	var seq []interface{}
	if m != nil {
		for _, key := range []string{"code_suggestions", "suggestions", "improve"} {
			if v, ok := m[key]; ok {
				seq, _ = v.([]interface{})
				break
			}
		}
	}
	if seq == nil {
		seq, _ = data.([]interface{})
	}

	suggestions := make([]ParsedSuggestion, 0, len(seq))
	for _, raw := range seq {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		label := yamlStrField(item, "label", "enhancement")
		relevantFile := yamlStrField(item, "relevant_file", "")
		existingCode := yamlStrField(item, "existing_code", "")
		improvedCode := yamlStrField(item, "improved_code", "")
		oneSentenceSummary := yamlStrField(item, "one_sentence_summary", "")
		suggestionContent := yamlStrField(item, "suggestion_content", "")

		linesStart := int32(0)
		if v, ok := yamlx.ValueAsInt64(item["relevant_lines_start"]); ok {
			linesStart = int32(v)
		}
		linesEnd := int32(0)
		if v, ok := yamlx.ValueAsInt64(item["relevant_lines_end"]); ok {
			linesEnd = int32(v)
		}
		score := uint32(5)
		if v, ok := yamlx.ValueAsUint64(item["score"]); ok {
			score = uint32(v)
		}

		if relevantFile == "" || improvedCode == "" {
			continue
		}

		suggestions = append(suggestions, ParsedSuggestion{
			Label:              label,
			RelevantFile:       relevantFile,
			RelevantLinesStart: linesStart,
			RelevantLinesEnd:   linesEnd,
			ExistingCode:       existingCode,
			ImprovedCode:       improvedCode,
			OneSentenceSummary: oneSentenceSummary,
			SuggestionContent:  suggestionContent,
			Score:              score,
		})
	}

	sortSuggestionsByScoreDesc(suggestions)
	return suggestions
}

func sortSuggestionsByScoreDesc(suggestions []ParsedSuggestion) {
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Score > suggestions[j].Score
	})
}

// SuggestionsToCodeSuggestions converts parsed suggestions with valid line
// numbers into platform.CodeSuggestion structs for inline/committable
// publishing. Grounded on
// orig/output/improve_formatter.rs's suggestions_to_code_suggestions.
func SuggestionsToCodeSuggestions(suggestions []ParsedSuggestion) []platform.CodeSuggestion {
	out := make([]platform.CodeSuggestion, 0, len(suggestions))
	for _, s := range suggestions {
		if s.RelevantLinesStart <= 0 || s.RelevantLinesEnd <= 0 {
			continue
		}
		body := fmt.Sprintf("**Suggestion:** %s [%s, importance: %d]", s.SuggestionContent, s.Label, s.Score)
		out = append(out, platform.CodeSuggestion{
			Body:               body,
			RelevantFile:       s.RelevantFile,
			RelevantLinesStart: s.RelevantLinesStart,
			RelevantLinesEnd:   s.RelevantLinesEnd,
			ExistingCode:       s.ExistingCode,
			ImprovedCode:       s.ImprovedCode,
		})
	}
	return out
}

// importanceLabel maps a suggestion score to an importance label using
// configurable thresholds: thHigh is the minimum score for "Critical",
// thMedium for "Important".
func importanceLabel(score uint32, thHigh, thMedium uint32) string {
	switch {
	case score >= thHigh:
		return "Critical"
	case score >= thMedium:
		return "Important"
	default:
		return "Minor"
	}
}

// FormatSuggestionsTable formats suggestions as a summary comment (table
// format), used when commitable_code_suggestions is false. Suggestions with
// no valid line numbers are rendered as a separate "Architecture & Design"
// bullet list of high-level observations. Grounded on
// orig/output/improve_formatter.rs's format_suggestions_table.
func FormatSuggestionsTable(suggestions []ParsedSuggestion, thHigh, thMedium uint32) string {
	var out strings.Builder
	out.WriteString(PersistentCommentMarker("improve"))
	out.WriteString("\n")
	out.WriteString("## PR Code Suggestions ✨\n\n")

	if len(suggestions) == 0 {
		out.WriteString("No code suggestions found for this PR.\n")
		return out.String()
	}

	var codeLevel, highLevel []ParsedSuggestion
	for _, s := range suggestions {
		if s.RelevantLinesStart > 0 && s.RelevantLinesEnd > 0 {
			codeLevel = append(codeLevel, s)
		} else {
			highLevel = append(highLevel, s)
		}
	}

	if len(highLevel) > 0 {
		out.WriteString("### Architecture & Design\n\n")
		for _, s := range highLevel {
			rawSummary := s.OneSentenceSummary
			if rawSummary == "" {
				rawSummary = s.SuggestionContent
			}
			summary := sanitizeTableCell(rawSummary)
			importance := importanceLabel(s.Score, thHigh, thMedium)
			file := sanitizeTableCell(s.RelevantFile)
			fmt.Fprintf(&out, "- **[%s] %s** (`%s`)\n", importance, summary, file)
		}
		out.WriteString("\n")
	}

	if len(codeLevel) > 0 {
		if len(highLevel) > 0 {
			out.WriteString("### Code Suggestions\n\n")
		}

		out.WriteString("| Category | Suggestion | Score |\n")
		out.WriteString("| --- | --- | --- |\n")

		for _, s := range codeLevel {
			importance := importanceLabel(s.Score, thHigh, thMedium)

			rawSummary := s.OneSentenceSummary
			if rawSummary == "" {
				rawSummary = s.SuggestionContent
			}

			summary := rawSummary
			if runeCount := len([]rune(rawSummary)); runeCount > 200 {
				summary = string([]rune(rawSummary)[:200]) + "..."
			}

			summary = sanitizeTableCell(summary)
			label := sanitizeTableCell(s.Label)
			file := sanitizeTableCell(s.RelevantFile)

			var linesStr string
			if s.RelevantLinesStart == s.RelevantLinesEnd {
				linesStr = fmt.Sprintf(" [%d]", s.RelevantLinesStart)
			} else {
				linesStr = fmt.Sprintf(" [%d-%d]", s.RelevantLinesStart, s.RelevantLinesEnd)
			}

			fmt.Fprintf(&out, "| %s | **%s**<br>`%s`%s | %s |\n", label, summary, file, linesStr, importance)
		}
	}

	return out.String()
}

// AppendSelfReviewCheckbox appends a markdown checkbox with an HTML comment
// indicating which actions to take when checked (approve, fold, or both).
// Grounded on orig/output/improve_formatter.rs's append_self_review_checkbox.
func AppendSelfReviewCheckbox(body *strings.Builder, text string, approve, fold bool) {
	body.WriteString("\n\n- [ ]  ")
	body.WriteString(text)
	switch {
	case approve && !fold:
		body.WriteString(" <!-- approve pr self-review -->")
	case fold && !approve:
		body.WriteString(" <!-- fold suggestions self-review -->")
	default:
		body.WriteString(" <!-- approve and fold suggestions self-review -->")
	}
	body.WriteString("\n")
}

// sanitizeTableCell replaces newlines with <br> and escapes pipe characters
// so text is safe to embed inside a markdown table cell.
func sanitizeTableCell(text string) string {
	text = strings.ReplaceAll(text, "\n", "<br>")
	text = strings.ReplaceAll(text, "\r", "")
	text = strings.ReplaceAll(text, "|", "\\|")
	return text
}
