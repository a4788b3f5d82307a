// Package diffproc turns a pull request's raw unified-diff patches into the
// token-budgeted, model-ready diff text sent to the LLM: hunk parsing and
// line-numbering, binary/ignore-pattern filtering, context-line extension,
// and greedy token-budget compression. Grounded on
// orig/processing/{diff,filter,patch,compression}.rs.
package diffproc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jlucaso1/pr-agent-go/internal/platform"
)

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@[ ]?(.*)`)

// HunkHeader is a parsed "@@ -start1,size1 +start2,size2 @@ section" line.
type HunkHeader struct {
	Start1        int
	Size1         int
	Start2        int
	Size2         int
	SectionHeader string
}

// ParseHunkHeader parses line as a unified-diff hunk header, returning nil if
// it does not match. A missing ",size" defaults size to 1, per the unified
// diff format.
func ParseHunkHeader(line string) *HunkHeader {
	m := hunkHeaderRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	return &HunkHeader{
		Start1:        atoiOr(m[1], 0),
		Size1:         atoiOrDefault(m[2], 1),
		Start2:        atoiOr(m[3], 0),
		Size2:         atoiOrDefault(m[4], 1),
		SectionHeader: m[5],
	}
}

func atoiOr(s string, fallback int) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

func atoiOrDefault(s string, def int) int {
	if s == "" {
		return def
	}
	return atoiOr(s, def)
}

// ConvertToHunksWithLineNumbers renders a file's unified diff patch into the
// pr-agent wire format: a `## File:` header followed by one `__new hunk__`/
// `__old hunk__` block pair per hunk. Lines in the `__new hunk__` block are
// prefixed with their new-file line number; `__old hunk__` lines carry no
// number.
func ConvertToHunksWithLineNumbers(filename, patch string, editType platform.EditType) string {
	if patch == "" {
		if editType == platform.EditDeleted {
			return fmt.Sprintf("## File '%s' was deleted\n", strings.TrimSpace(filename))
		}
		return fmt.Sprintf("## File: '%s'\n\n(empty patch)\n", strings.TrimSpace(filename))
	}

	var output strings.Builder
	fmt.Fprintf(&output, "## File: '%s'\n", strings.TrimSpace(filename))

	var newContent, oldContent []string
	hasPlus, hasMinus := false, false
	lineNumber := 0

	flush := func() {
		if len(newContent) == 0 && len(oldContent) == 0 {
			return
		}
		if hasPlus || !hasMinus {
			output.WriteString("\n__new hunk__\n")
			for _, l := range newContent {
				output.WriteString(l)
			}
		}
		if hasMinus {
			output.WriteString("\n__old hunk__\n")
			for _, l := range oldContent {
				output.WriteString(l)
			}
		}
	}

	for _, line := range strings.Split(patch, "\n") {
		if header := ParseHunkHeader(line); header != nil {
			flush()
			newContent = nil
			oldContent = nil
			hasPlus, hasMinus = false, false
			lineNumber = header.Start2
			continue
		}

		switch {
		case strings.HasPrefix(line, "+"):
			hasPlus = true
			newContent = append(newContent, fmt.Sprintf("%d %s\n", lineNumber, line))
			lineNumber++
		case strings.HasPrefix(line, "-"):
			hasMinus = true
			oldContent = append(oldContent, line+"\n")
		default:
			newContent = append(newContent, fmt.Sprintf("%d %s\n", lineNumber, line))
			oldContent = append(oldContent, line+"\n")
			lineNumber++
		}
	}

	flush()
	return output.String()
}

// FormatPatchSimple renders a file's patch without per-line numbering, used
// when the caller passes addLineNumbers=false.
func FormatPatchSimple(filename, patch string, editType platform.EditType) string {
	if editType == platform.EditDeleted {
		return fmt.Sprintf("## File '%s' was deleted\n", strings.TrimSpace(filename))
	}
	return fmt.Sprintf("\n\n## File: '%s'\n\n%s\n", strings.TrimSpace(filename), strings.TrimSpace(patch))
}
