package diffproc

import (
	"fmt"
	"strings"

	"github.com/jlucaso1/pr-agent-go/pkg/mathutil"
)

// ExtendPatch widens each hunk in patch by extraBefore/extraAfter lines of
// surrounding context pulled from originalFile, rewriting hunk headers to
// match. A no-op if patch or originalFile is empty, or if no extra context
// was requested. Ported from orig/processing/patch.rs's extend_patch.
func ExtendPatch(originalFile, patch string, extraBefore, extraAfter int) string {
	if patch == "" || originalFile == "" {
		return patch
	}
	if extraBefore == 0 && extraAfter == 0 {
		return patch
	}

	originalLines := strings.Split(originalFile, "\n")
	totalLines := len(originalLines)

	var output strings.Builder
	var currentHunkLines []string
	var currentHeader *HunkHeader

	flush := func() {
		if currentHeader == nil {
			return
		}
		extendAndWriteHunk(&output, currentHeader, currentHunkLines, originalLines, totalLines, extraBefore, extraAfter)
	}

	for _, line := range strings.Split(patch, "\n") {
		if header := ParseHunkHeader(line); header != nil {
			flush()
			currentHunkLines = nil
			currentHeader = header
			continue
		}
		currentHunkLines = append(currentHunkLines, line)
	}
	flush()

	return output.String()
}

func extendAndWriteHunk(output *strings.Builder, header *HunkHeader, hunkLines, originalLines []string, totalLines, extraBefore, extraAfter int) {
	extStart1 := mathutil.Max(satSub(header.Start1, extraBefore), 1)
	linesAddedBefore := mathutil.Max(header.Start1-extStart1, 0)

	hunkEnd1 := header.Start1 + header.Size1
	extEnd1 := mathutil.Min(hunkEnd1+extraAfter, totalLines+1)
	linesAddedAfter := mathutil.Max(extEnd1-hunkEnd1, 0)

	extSize1 := header.Size1 + linesAddedBefore + linesAddedAfter

	extStart2 := satSub(header.Start2, extraBefore)
	if extStart2 < 1 {
		extStart2 = 1
	}
	extSize2 := header.Size2 + linesAddedBefore + linesAddedAfter

	fmt.Fprintf(output, "@@ -%d,%d +%d,%d @@ %s\n", extStart1, extSize1, extStart2, extSize2, header.SectionHeader)

	for i := 0; i < linesAddedBefore; i++ {
		idx := extStart1 - 1 + i
		if idx < len(originalLines) {
			fmt.Fprintf(output, " %s\n", originalLines[idx])
		}
	}

	for _, line := range hunkLines {
		output.WriteString(line)
		output.WriteString("\n")
	}

	for i := 0; i < linesAddedAfter; i++ {
		idx := hunkEnd1 - 1 + i
		if idx < len(originalLines) {
			fmt.Fprintf(output, " %s\n", originalLines[idx])
		}
	}
}

func satSub(a, b int) int {
	if a < b {
		return 0
	}
	return a - b
}
