package output

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// LinkGenerator builds a clickable diff-view URL for (file, startLine,
// endLine). endLine is nil when the issue spans a single line.
type LinkGenerator func(file string, startLine int32, endLine *int32) string

// FormatReviewMarkdown converts a parsed review-YAML response (as decoded by
// internal/yamlx) into GitHub markdown. linkGen is optional; pass nil to
// render issue headers without links.
func FormatReviewMarkdown(data interface{}, gfmSupported bool, linkGen LinkGenerator) string {
	var out strings.Builder
	out.Grow(8000)

	fmt.Fprintln(&out, PersistentCommentMarker("review"))
	fmt.Fprintln(&out, "## PR Reviewer Guide 🔍")
	out.WriteString("\n")

	review := mapGet(data, "review")
	if review == nil {
		review = data
	}

	reviewMap, ok := review.(map[string]interface{})
	if !ok {
		out.WriteString("*No structured review data available.*\n")
		return out.String()
	}

	if gfmSupported {
		formatReviewGFM(reviewMap, &out, linkGen)
	} else {
		formatReviewPlain(reviewMap, &out)
	}

	return out.String()
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func formatReviewGFM(review map[string]interface{}, out *strings.Builder, linkGen LinkGenerator) {
	out.WriteString("<table>\n")

	for _, key := range sortedKeys(review) {
		value := review[key]
		if value == nil {
			continue
		}
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}

		switch key {
		case "estimated_effort_to_review_[1-5]", "estimated_effort_to_review":
			formatEffortRow(value, out)
		case "score":
			formatScoreRow(value, out)
		case "relevant_tests":
			formatRelevantTestsRow(value, out)
		case "possible_issues":
			formatSimpleRow("⚡ Possible issues", value, out)
		case "security_concerns":
			formatSecurityRow(value, out)
		case "key_issues_to_review":
			formatKeyIssuesRows(value, out, linkGen)
		case "can_be_split":
			formatSimpleRow("🔀 Can be split", value, out)
		case "ticket_compliance_check":
			formatSimpleRow("🎫 Ticket compliance", value, out)
		case "todo_sections":
			formatTodoSectionsRow(value, out)
		case "todo_summary":
			// internal field, never rendered
		default:
			emoji := SectionEmoji(key)
			label := strings.ReplaceAll(key, "_", " ")
			if emoji != "" {
				label = emoji + " " + label
			}
			formatSimpleRow(label, value, out)
		}
	}

	out.WriteString("</table>\n")
}

func formatEffortRow(value interface{}, out *strings.Builder) {
	effort := ExtractEffortScore(value)
	bar := effortEstimationBar(effort)
	emoji := SectionEmoji("Estimated effort to review [1-5]")
	fmt.Fprintf(out, "<tr><td>%s&nbsp;<strong>Estimated effort to review</strong>: %s</td></tr>\n", emoji, bar)
}

func formatScoreRow(value interface{}, out *strings.Builder) {
	text := YamlValueToString(value)
	emoji := SectionEmoji("Score")
	fmt.Fprintf(out, "<tr><td>%s&nbsp;<strong>Score</strong>: %s</td></tr>\n", emoji, text)
}

func formatRelevantTestsRow(value interface{}, out *strings.Builder) {
	emoji := SectionEmoji("Relevant tests")
	text := YamlValueToString(value)

	if IsValueNo(text) {
		fmt.Fprintf(out, "<tr><td>%s&nbsp;<strong>No relevant tests</strong></td></tr>\n", emoji)
	} else {
		fmt.Fprintf(out, "<tr><td>%s&nbsp;<strong>PR contains tests</strong></td></tr>\n", emoji)
	}
}

func formatTodoSectionsRow(value interface{}, out *strings.Builder) {
	text := YamlValueToString(value)

	if IsValueNo(text) {
		out.WriteString("<tr><td>✅&nbsp;<strong>No TODO sections</strong></td></tr>\n")
	} else {
		emoji := SectionEmoji("Todo sections")
		fmt.Fprintf(out, "<tr><td>%s&nbsp;<strong>TODO sections</strong><br><br>%s</td></tr>\n", emoji, text)
	}
}

func formatSecurityRow(value interface{}, out *strings.Builder) {
	text := YamlValueToString(value)
	emoji := SectionEmoji("Security concerns")

	if IsValueNo(text) {
		fmt.Fprintf(out, "<tr><td>%s&nbsp;<strong>No security concerns identified</strong></td></tr>\n", emoji)
	} else {
		details := CollapsibleSection("Security concerns", text)
		fmt.Fprintf(out, "<tr><td>%s&nbsp;%s</td></tr>\n", emoji, details)
	}
}

func formatKeyIssuesRows(value interface{}, out *strings.Builder, linkGen LinkGenerator) {
	emoji := SectionEmoji("Key issues to review")

	issues, ok := value.([]interface{})
	if !ok {
		text := YamlValueToString(value)
		if IsValueNo(text) {
			fmt.Fprintf(out, "<tr><td>%s&nbsp;<strong>No major issues detected</strong></td></tr>\n", emoji)
		} else if text != "" {
			fmt.Fprintf(out, "<tr><td>%s&nbsp;<strong>Recommended focus areas for review</strong><br>%s</td></tr>\n", emoji, text)
		}
		return
	}

	if len(issues) == 0 {
		fmt.Fprintf(out, "<tr><td>%s&nbsp;<strong>No major issues detected</strong></td></tr>\n", emoji)
		return
	}

	fmt.Fprintf(out, "<tr><td>%s&nbsp;<strong>Recommended focus areas for review</strong><br><br>\n\n", emoji)

	for _, raw := range issues {
		issue, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}

		header := firstNonEmptyString(issue, "issue_header", "header")
		if header == "" {
			header = "Issue"
		}
		if strings.EqualFold(header, "possible bug") {
			header = "Possible Issue"
		}

		body := firstNonEmptyString(issue, "issue_content", "content", "details", "suggestion")
		file := firstNonEmptyString(issue, "relevant_file")

		startLineStr := ""
		if v, ok := issue["start_line"]; ok {
			startLineStr = YamlValueToString(v)
		}
		endLineStr := ""
		if v, ok := issue["end_line"]; ok {
			endLineStr = YamlValueToString(v)
		}
		startLineNum, _ := strconv.Atoi(startLineStr)
		endLineNum, _ := strconv.Atoi(endLineStr)

		var lineDisplay string
		switch {
		case startLineStr != "" && endLineStr != "" && startLineStr != endLineStr:
			lineDisplay = startLineStr + "-" + endLineStr
		case startLineStr != "":
			lineDisplay = startLineStr
		default:
			if v, ok := issue["relevant_line"]; ok {
				lineDisplay = YamlValueToString(v)
			}
		}

		var referenceLink string
		if file != "" && linkGen != nil {
			var endPtr *int32
			if endLineNum > 0 && endLineNum != startLineNum {
				end32 := int32(endLineNum)
				endPtr = &end32
			}
			referenceLink = linkGen(file, int32(startLineNum), endPtr)
		}

		var headerHTML string
		if referenceLink != "" {
			headerHTML = fmt.Sprintf("<a href='%s'><strong>%s</strong></a>", referenceLink, header)
		} else {
			headerHTML = fmt.Sprintf("<strong>%s</strong>", header)
		}

		var fileInfo string
		if file != "" {
			if lineDisplay != "" {
				fileInfo = fmt.Sprintf("<br><code>%s</code> (line %s)", file, lineDisplay)
			} else {
				fileInfo = fmt.Sprintf("<br><code>%s</code>", file)
			}
		}

		var bodyHTML string
		if body != "" {
			bodyHTML = "<br>" + body
		}

		fmt.Fprintf(out, "%s%s%s\n\n", headerHTML, fileInfo, bodyHTML)
	}

	out.WriteString("</td></tr>\n")
}

func formatSimpleRow(label string, value interface{}, out *strings.Builder) {
	text := YamlValueToString(value)
	if text == "" || IsValueNo(text) {
		return
	}
	fmt.Fprintf(out, "<tr><td><strong>%s</strong>: %s</td></tr>\n", label, text)
}

func formatReviewPlain(review map[string]interface{}, out *strings.Builder) {
	for _, key := range sortedKeys(review) {
		emoji := SectionEmoji(key)
		text := YamlValueToString(review[key])
		if text == "" {
			continue
		}

		if emoji == "" {
			fmt.Fprintf(out, "**%s**: %s\n\n", key, text)
		} else {
			fmt.Fprintf(out, "%s **%s**: %s\n\n", emoji, key, text)
		}
	}
}

func effortEstimationBar(effort uint8) string {
	if effort < 1 {
		effort = 1
	}
	if effort > 5 {
		effort = 5
	}
	barEmoji := EffortBar(effort)
	visual := strings.Repeat("🔵", int(effort)) + strings.Repeat("⚪", 5-int(effort))
	return fmt.Sprintf("%s (%s)", barEmoji, visual)
}

// ExtractEffortScore pulls the first digit out of a review's effort value,
// which models hand back in varied forms ("3", 3, "3/5", "3 - because...").
// Defaults to 3 when no digit is found.
func ExtractEffortScore(value interface{}) uint8 {
	text := YamlValueToString(value)
	for _, r := range text {
		if r >= '0' && r <= '9' {
			return uint8(r - '0')
		}
	}
	return 3
}

// IsValueNo reports whether text represents a "no" answer ("no", "none",
// "false", or empty), case- and whitespace-insensitively.
func IsValueNo(text string) bool {
	t := strings.ToLower(strings.TrimSpace(text))
	return t == "" || t == "no" || t == "none" || t == "false"
}

// YamlValueToString renders a decoded YAML value (as produced by
// internal/yamlx, whose values are Go's generic yaml.Unmarshal-into-
// interface{} shapes: string/bool/int/float64/nil/[]interface{}/
// map[string]interface{}) as a trimmed display string.
func YamlValueToString(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10)
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case []interface{}:
		if len(v) == 0 {
			return ""
		}
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = YamlValueToString(item)
		}
		return strings.Join(parts, ", ")
	case map[string]interface{}:
		parts := make([]string, 0, len(v))
		for _, key := range sortedKeys(v) {
			parts = append(parts, fmt.Sprintf("%s: %s", key, YamlValueToString(v[key])))
		}
		return strings.TrimSpace(strings.Join(parts, "\n"))
	default:
		return fmt.Sprintf("%v", v)
	}
}

func mapGet(data interface{}, key string) interface{} {
	m, ok := data.(map[string]interface{})
	if !ok {
		return nil
	}
	return m[key]
}

func firstNonEmptyString(m map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := m[key]; ok {
			if s := strings.TrimSpace(YamlValueToString(v)); s != "" {
				return s
			}
		}
	}
	return ""
}
