package output

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jlucaso1/pr-agent-go/internal/config"
)

// DescribeOutput is a formatted describe result ready for publishing.
type DescribeOutput struct {
	Title  string
	Body   string
	Labels []string
}

// FileStats carries one file's diff line counts plus its diff-view link,
// used to annotate the file walkthrough table.
type FileStats struct {
	NumPlusLines  int32
	NumMinusLines int32
	Link          string
}

// FormatDescribeOutput converts parsed describe YAML into a formatted PR
// title + body + labels. Grounded on orig/output/describe_formatter.rs's
// format_describe_output.
func FormatDescribeOutput(data interface{}, originalTitle, originalBody string, cfg *config.PrDescriptionConfig, fileStats map[string]FileStats) DescribeOutput {
	marker := PersistentCommentMarker("describe")

	m, _ := data.(map[string]interface{})

	aiTitle := originalTitle
	if v, ok := m["title"]; ok {
		if s, ok := v.(string); ok && s != "" {
			aiTitle = s
		}
	}

	title := originalTitle
	if cfg.GenerateAiTitle {
		title = strings.TrimSpace(aiTitle)
	} else {
		title = strings.TrimSpace(originalTitle)
	}

	prType := extractPrType(m)
	description := ""
	if v, ok := m["description"]; ok {
		if s, ok := v.(string); ok {
			description = s
		}
	}

	var body strings.Builder
	body.Grow(4000)

	if cfg.AddOriginalUserDescription && originalBody != "" {
		fmt.Fprintf(&body, "%s\n", originalBody)
		body.WriteString("\n---\n\n")
	}

	fmt.Fprintf(&body, "%s\n", marker)

	if cfg.EnablePrType {
		body.WriteString("### **PR Type**\n")
		if prType != "" {
			fmt.Fprintf(&body, "%s\n\n", prType)
		}
	}

	body.WriteString("\n___\n\n")

	body.WriteString("### **Description**\n")
	if description != "" {
		for _, line := range strings.Split(description, "\n") {
			trimmed := strings.TrimSpace(line)
			switch {
			case trimmed == "":
				body.WriteString("\n")
			case strings.HasPrefix(trimmed, "-") || strings.HasPrefix(trimmed, "*"):
				fmt.Fprintf(&body, "%s\n", trimmed)
			default:
				fmt.Fprintf(&body, "- %s\n", trimmed)
			}
		}
		body.WriteString("\n")
	}

	body.WriteString("\n___\n\n")

	if v, ok := m["changes_diagram"]; ok {
		diagramStr := strings.TrimSpace(YamlValueToString(v))
		if diagramStr != "" {
			body.WriteString("### Diagram Walkthrough\n\n")
			sanitized := sanitizeMermaid(diagramStr)
			if strings.HasPrefix(sanitized, "```") {
				d := sanitized
				if !strings.HasSuffix(d, "```") {
					d += "\n```"
				}
				fmt.Fprintf(&body, "%s\n\n", d)
			} else {
				fmt.Fprintf(&body, "```mermaid\n%s\n```\n\n", sanitized)
			}
		}
	}

	if cfg.EnableSemanticFilesTypes {
		if files, ok := m["pr_files"]; ok {
			var walkthrough strings.Builder
			formatPrFiles(files, &walkthrough, cfg.CollapsibleFileList, cfg.CollapsibleFileListThreshold, fileStats)
			if walkthrough.Len() > 0 {
				body.WriteString("<details> <summary><h3> File Walkthrough</h3></summary>\n\n")
				body.WriteString(walkthrough.String())
				body.WriteString("\n</details>\n\n")
			}
		}
	}

	labels := extractLabels(m, prType)

	return DescribeOutput{Title: title, Body: body.String(), Labels: labels}
}

func extractPrType(m map[string]interface{}) string {
	v, ok := m["type"]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}

func extractLabels(m map[string]interface{}, prType string) []string {
	if seq, ok := m["labels"].([]interface{}); ok {
		labels := make([]string, 0, len(seq))
		for _, item := range seq {
			if s, ok := item.(string); ok {
				labels = append(labels, s)
			}
		}
		if len(labels) > 0 {
			return labels
		}
	}

	var labels []string
	for _, part := range strings.Split(prType, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			labels = append(labels, trimmed)
		}
	}
	return labels
}

type fileEntry struct {
	filename       string
	changesTitle   string
	changesSummary string
	label          string
}

func fileEntryFromYAML(item interface{}) fileEntry {
	m, _ := item.(map[string]interface{})
	filename := strings.ReplaceAll(strings.TrimSpace(YamlValueToString(m["filename"])), "'", "`")
	changesTitle := strings.TrimSpace(YamlValueToString(m["changes_title"]))
	changesSummary := strings.TrimSpace(firstNonEmptyString(m, "changes_summary", "changes_content"))
	label := strings.ToLower(strings.TrimSpace(YamlValueToString(m["label"])))
	return fileEntry{filename: filename, changesTitle: changesTitle, changesSummary: changesSummary, label: label}
}

func (e fileEntry) shortName() string {
	if idx := strings.LastIndex(e.filename, "/"); idx != -1 {
		return e.filename[idx+1:]
	}
	return e.filename
}

// formatPrFiles formats the PR files section as a nested HTML table grouped
// by label, preserving the YAML's file ordering within each label group.
func formatPrFiles(files interface{}, out *strings.Builder, collapsible config.BoolOrString, threshold int, fileStats map[string]FileStats) {
	fileList, ok := files.([]interface{})
	if !ok || len(fileList) == 0 {
		return
	}

	var labelOrder []string
	labelGroups := make(map[string][]fileEntry)
	for _, raw := range fileList {
		entry := fileEntryFromYAML(raw)
		if entry.filename == "" {
			continue
		}
		if _, seen := labelGroups[entry.label]; !seen {
			labelOrder = append(labelOrder, entry.label)
		}
		labelGroups[entry.label] = append(labelGroups[entry.label], entry)
	}

	if len(labelOrder) == 0 {
		return
	}

	numFiles := 0
	for _, label := range labelOrder {
		numFiles += len(labelGroups[label])
	}

	useCollapsible := collapsible.IsTruthy()
	if collapsible.IsString && collapsible.S == "adaptive" {
		useCollapsible = numFiles > threshold
	}

	out.WriteString("<table>")
	out.WriteString(`<thead><tr><th></th><th align="left">Relevant files</th></tr></thead>`)
	out.WriteString("<tbody>")

	for _, label := range labelOrder {
		entries := labelGroups[label]
		capLabel := capitalizeFirstRune(label)
		fmt.Fprintf(out, "<tr><td><strong>%s</strong></td>", capLabel)

		if useCollapsible {
			fmt.Fprintf(out, "<td><details><summary>%d files</summary><table>", len(entries))
		} else {
			out.WriteString("<td><table>")
		}

		for _, entry := range entries {
			writeFileRow(out, entry, fileStats)
		}

		if useCollapsible {
			out.WriteString("</table></details></td></tr>")
		} else {
			out.WriteString("</table></td></tr>")
		}
	}

	out.WriteString("</tr></tbody></table>")
}

func capitalizeFirstRune(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func writeFileRow(out *strings.Builder, entry fileEntry, fileStats map[string]FileStats) {
	shortName := entry.shortName()

	filenamePublish := fmt.Sprintf("<strong>%s</strong>", shortName)
	if entry.changesTitle != "" && entry.changesTitle != "..." {
		filenamePublish = fmt.Sprintf("<strong>%s</strong><dd><code>%s</code></dd>", shortName, entry.changesTitle)
	}

	lookupKey := strings.ToLower(strings.TrimPrefix(entry.filename, "/"))
	var diffPM, deltaNbsp, link string
	if stats, ok := fileStats[lookupKey]; ok {
		pm := fmt.Sprintf("+%d/-%d", stats.NumPlusLines, stats.NumMinusLines)
		if len(pm) > 12 || pm == "+0/-0" {
			pm = "[link]"
		}
		nbspCount := 8 - len(pm)
		if nbspCount < 0 {
			nbspCount = 0
		}
		diffPM = pm
		deltaNbsp = strings.Repeat("&nbsp; ", nbspCount)
		link = stats.Link
	}

	linkCell := ""
	if link != "" && diffPM != "" {
		linkCell = fmt.Sprintf(`<a href="%s">%s</a>%s`, link, diffPM, deltaNbsp)
	}

	if entry.changesSummary == "" {
		fmt.Fprintf(out, "\n<tr>\n  <td>%s</td>\n  <td>%s</td>\n\n</tr>\n", filenamePublish, linkCell)
	} else {
		descBr := insertBrAfterXChars(entry.changesSummary, 70)
		fmt.Fprintf(out, "\n<tr>\n  <td>\n    <details>\n      <summary>%s</summary>\n<hr>\n\n%s\n\n%s\n\n\n    </details>\n\n\n  </td>\n  <td>%s</td>\n\n</tr>\n",
			filenamePublish, entry.filename, descBr, linkCell)
	}
}

// insertBrAfterXChars inserts <br> at word boundaries to keep visual line
// length manageable.
func insertBrAfterXChars(text string, maxChars int) string {
	text = strings.ReplaceAll(text, "\n", "<br>")
	if len(text) <= maxChars {
		return text
	}

	var result strings.Builder
	lineLen := 0
	for i, word := range strings.Split(text, " ") {
		if i > 0 {
			if lineLen+len(word)+1 > maxChars {
				result.WriteString("<br>")
				lineLen = 0
			} else {
				result.WriteString(" ")
				lineLen++
			}
		}
		result.WriteString(word)
		lineLen += len(word)
	}
	return result.String()
}

var (
	mermaidEdgeLabelRe = regexp.MustCompile(`\|([^"|][^|]*)\|`)
	mermaidNodeTextRe  = regexp.MustCompile(`(\w+)\[([^"\]]*[(){}][^\]]*)\]`)
)

const mermaidSpecial = "(){}"

// sanitizeMermaid quotes mermaid edge labels and node text containing
// shape-delimiter characters ((){}), which otherwise break rendering when
// the AI emits e.g. `.min(1)` unquoted. Grounded on
// orig/output/describe_formatter.rs's sanitize_mermaid.
func sanitizeMermaid(text string) string {
	lines := strings.Split(text, "\n")
	fixed := make([]string, len(lines))

	for i, line := range lines {
		cur := line
		if strings.Contains(cur, "|") {
			cur = mermaidEdgeLabelRe.ReplaceAllStringFunc(cur, func(match string) string {
				sub := mermaidEdgeLabelRe.FindStringSubmatch(match)
				label := sub[1]
				if strings.ContainsAny(label, mermaidSpecial) {
					return fmt.Sprintf(`|"%s"| `, strings.TrimSpace(label))
				}
				return match
			})
		}
		cur = mermaidNodeTextRe.ReplaceAllStringFunc(cur, func(match string) string {
			sub := mermaidNodeTextRe.FindStringSubmatch(match)
			return fmt.Sprintf(`%s["%s" ]`, sub[1], strings.TrimSpace(sub[2]))
		})
		fixed[i] = cur
	}

	return strings.Join(fixed, "\n")
}
