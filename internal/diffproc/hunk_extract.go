package diffproc

import (
	"fmt"
	"strings"
)

// ExtractHunkLinesFromPatch scans a unified-diff patch (or a single
// diff_hunk, as GitHub attaches to review-thread comments) for the hunk
// covering [lineStart, lineEnd] on the given side ("RIGHT" for the new file,
// "LEFT" for the old one), returning that hunk's full text alongside just
// the lines falling inside the requested range. Used by the line-scoped Ask
// tool to give the model surrounding context plus the exact lines a reviewer
// selected.
//
// Call-site usage only; no standalone Rust definition was present in the
// retrieved original_source/ pack for this helper (see DESIGN.md) — designed
// from orig/tools/ask_line.rs's usage and this package's own hunk-parsing
// conventions (ParseHunkHeader, ConvertToHunksWithLineNumbers).
func ExtractHunkLinesFromPatch(patch, fileName string, lineStart, lineEnd int, side string) (fullHunk, selectedLines string) {
	if patch == "" {
		return "", ""
	}
	if lineEnd < lineStart {
		lineStart, lineEnd = lineEnd, lineStart
	}
	useLeft := strings.EqualFold(side, "LEFT")

	type hunkLine struct {
		text    string
		lineNum int
		inSide  bool
	}

	var header *HunkHeader
	var lines []hunkLine
	lineNumber := 0

	matchFound := false
	var matchHeader *HunkHeader
	var matchLines []hunkLine

	flush := func() {
		if header == nil || matchFound {
			return
		}
		for _, l := range lines {
			if l.inSide && l.lineNum >= lineStart && l.lineNum <= lineEnd {
				matchFound = true
				matchHeader = header
				matchLines = lines
				return
			}
		}
	}

	for _, raw := range strings.Split(patch, "\n") {
		if h := ParseHunkHeader(raw); h != nil {
			flush()
			if matchFound {
				break
			}
			header = h
			lines = nil
			if useLeft {
				lineNumber = h.Start1
			} else {
				lineNumber = h.Start2
			}
			continue
		}
		if header == nil {
			continue
		}

		switch {
		case strings.HasPrefix(raw, "+"):
			if useLeft {
				lines = append(lines, hunkLine{text: raw, inSide: false})
			} else {
				lines = append(lines, hunkLine{text: raw, lineNum: lineNumber, inSide: true})
				lineNumber++
			}
		case strings.HasPrefix(raw, "-"):
			if useLeft {
				lines = append(lines, hunkLine{text: raw, lineNum: lineNumber, inSide: true})
				lineNumber++
			} else {
				lines = append(lines, hunkLine{text: raw, inSide: false})
			}
		default:
			lines = append(lines, hunkLine{text: raw, lineNum: lineNumber, inSide: true})
			lineNumber++
		}
	}
	if !matchFound {
		flush()
	}

	if !matchFound {
		return "", ""
	}

	var hunkBuf strings.Builder
	if fileName != "" {
		fmt.Fprintf(&hunkBuf, "## File: '%s'\n\n", strings.TrimSpace(fileName))
	}
	fmt.Fprintf(&hunkBuf, "@@ -%d,%d +%d,%d @@ %s\n", matchHeader.Start1, matchHeader.Size1, matchHeader.Start2, matchHeader.Size2, matchHeader.SectionHeader)
	var selectedBuf strings.Builder
	for _, l := range matchLines {
		hunkBuf.WriteString(l.text)
		hunkBuf.WriteString("\n")
		if l.inSide && l.lineNum >= lineStart && l.lineNum <= lineEnd {
			selectedBuf.WriteString(l.text)
			selectedBuf.WriteString("\n")
		}
	}

	return strings.TrimRight(hunkBuf.String(), "\n"), strings.TrimRight(selectedBuf.String(), "\n")
}
