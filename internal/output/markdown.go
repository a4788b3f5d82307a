// Package output formats parsed AI-response YAML into the markdown each
// tool publishes back to the PR. Grounded on orig/output/{markdown,
// review_formatter,describe_formatter,improve_formatter}.rs.
package output

import (
	"fmt"
	"strings"
)

// CollapsibleSection builds a GitHub Flavored Markdown <details> block.
func CollapsibleSection(summary, body string) string {
	return fmt.Sprintf("<details><summary>%s</summary>\n\n%s\n\n</details>\n", summary, body)
}

// Bold wraps text in an HTML <strong> tag.
func Bold(text string) string {
	return fmt.Sprintf("<strong>%s</strong>", text)
}

// EmphasizeHeader bolds the "Header:" portion of a "Header: content" string,
// optionally turning the header into a link to referenceLink.
func EmphasizeHeader(text string, onlyMarkdown bool, referenceLink string) string {
	idx := strings.Index(text, ": ")
	if idx < 0 {
		return text
	}
	header := text[:idx+1]
	rest := text[idx+1:]

	switch {
	case onlyMarkdown && referenceLink != "":
		return fmt.Sprintf("[**%s**](%s)\n%s", header, referenceLink, rest)
	case onlyMarkdown:
		return fmt.Sprintf("**%s**\n%s", header, rest)
	case referenceLink != "":
		return fmt.Sprintf("<strong><a href='%s'>%s</a></strong><br>%s", referenceLink, header, rest)
	default:
		return fmt.Sprintf("<strong>%s</strong><br>%s", header, rest)
	}
}

// MarkdownTable builds a pipe-delimited Markdown table from headers and rows.
func MarkdownTable(headers []string, rows [][]string) string {
	var out strings.Builder
	fmt.Fprintf(&out, "| %s |\n", strings.Join(headers, " | "))

	seps := make([]string, len(headers))
	for i := range seps {
		seps[i] = "---"
	}
	fmt.Fprintf(&out, "| %s |\n", strings.Join(seps, " | "))

	for _, row := range rows {
		fmt.Fprintf(&out, "| %s |\n", strings.Join(row, " | "))
	}
	return out.String()
}

// BulletList formats items as a Markdown bulleted list.
func BulletList(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

// HTMLBulletList builds an HTML <ul>/<li> list.
func HTMLBulletList(items []string) string {
	var out strings.Builder
	out.WriteString("<ul>\n")
	for _, item := range items {
		fmt.Fprintf(&out, "<li>%s</li>\n", item)
	}
	out.WriteString("</ul>\n")
	return out.String()
}

// EffortBar maps an effort score (1-5) to its number emoji.
func EffortBar(effort uint8) string {
	if effort > 5 {
		effort = 5
	}
	switch effort {
	case 1:
		return "1️⃣"
	case 2:
		return "2️⃣"
	case 3:
		return "3️⃣"
	case 4:
		return "4️⃣"
	case 5:
		return "5️⃣"
	default:
		return "\U0001F522"
	}
}

// SectionEmoji maps a review/describe section header to its emoji, or "" if
// the section has no dedicated emoji.
func SectionEmoji(section string) string {
	switch section {
	case "Can be split":
		return "\U0001F500"
	case "Key issues to review", "Recommended focus areas for review":
		return "⚡"
	case "Score":
		return "\U0001F3C5"
	case "Relevant tests":
		return "\U0001F9EA"
	case "Focused PR":
		return "✨"
	case "Relevant ticket":
		return "\U0001F3AB"
	case "Security concerns":
		return "\U0001F512"
	case "Todo sections", "Insights from user's answers":
		return "\U0001F4DD"
	case "Code feedback":
		return "\U0001F916"
	case "Estimated effort to review [1-5]":
		return "⏱️"
	case "Contribution time cost estimate":
		return "⏳"
	case "Ticket compliance check":
		return "\U0001F3AB"
	default:
		return ""
	}
}

// CodeBlock wraps code in a fenced Markdown code block.
func CodeBlock(code, language string) string {
	return fmt.Sprintf("```%s\n%s\n```", language, code)
}

// PersistentCommentMarker builds the hidden HTML-comment marker a tool uses
// to find (and edit in place) its own previous comment on a PR.
func PersistentCommentMarker(toolName string) string {
	return fmt.Sprintf("<!-- pr-agent:%s -->", toolName)
}
