package diffproc

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/llm"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
)

// fileEntry is one file's rendered patch text plus its token count, the unit
// the greedy packer sorts and bins.
type fileEntry struct {
	filename string
	patch    string
	tokens   uint32
	editType platform.EditType
}

// CompressedDiffResult is one packed batch of files within a token budget.
type CompressedDiffResult struct {
	Patches         string
	TotalTokens     uint32
	RemainingFiles  []string
	FilesInPatch    []string
}

// PrDiffResult is the final diff text handed to the LLM, with bookkeeping
// about which files made it in.
type PrDiffResult struct {
	Diff           string
	TokenCount     uint32
	FilesInDiff    []string
	RemainingFiles []string
}

// GetPRDiff is the diff-processing pipeline's main entry point: filter
// binary/ignored files, extend each patch with surrounding context, and
// either return the full diff (if it fits under the model's token budget)
// or a single greedily-packed compressed batch plus a trailer listing any
// files that didn't fit. Ported from orig/processing/compression.rs's
// get_pr_diff.
func GetPRDiff(ctx context.Context, files []*platform.FilePatchInfo, model string, addLineNumbers bool) PrDiffResult {
	settings := config.GetSettings(ctx)
	extraBefore := settings.Config.PatchExtraLinesBefore
	extraAfter := settings.Config.PatchExtraLinesAfter

	files = FilterFiles(files, settings)
	if len(files) == 0 {
		return PrDiffResult{}
	}

	fileDict := buildFileDict(files, addLineNumbers, extraBefore, extraAfter)

	// Base/head file contents are only needed during extend_patch above;
	// release them now that every patch has been rendered.
	for _, f := range files {
		f.BaseFile = ""
		f.HeadFile = ""
	}

	maxTokens := llm.GetMaxTokensWithFallback(model, uint32(settings.Config.MaxModelTokens))

	var totalTokens uint32
	for _, e := range fileDict {
		totalTokens += e.tokens
	}

	if totalTokens+llm.OutputBufferTokensSoftThreshold < maxTokens {
		var fullDiff strings.Builder
		filenames := make([]string, 0, len(fileDict))
		for _, e := range fileDict {
			fullDiff.WriteString(e.patch)
			filenames = append(filenames, e.filename)
		}
		return PrDiffResult{
			Diff:        fullDiff.String(),
			TokenCount:  totalTokens,
			FilesInDiff: filenames,
		}
	}

	allFilenames := make([]string, 0, len(fileDict))
	for _, e := range fileDict {
		allFilenames = append(allFilenames, e.filename)
	}
	result := generateFullPatch(fileDict, maxTokens, allFilenames)

	finalDiff := appendRemainingFileLists(result.Patches, result.TotalTokens, maxTokens, files, result.FilesInPatch)
	finalTokens := llm.CountTokens(finalDiff)

	return PrDiffResult{
		Diff:           finalDiff,
		TokenCount:     finalTokens,
		FilesInDiff:    result.FilesInPatch,
		RemainingFiles: result.RemainingFiles,
	}
}

// GetPRDiffMultiplePatches generates up to maxCalls compressed batches,
// each respecting the model's token budget, for PRs too large for a single
// diff round-trip (e.g. the Improve tool's per-batch suggestion calls).
// Ported from orig/processing/compression.rs's get_pr_diff_multiple_patches.
func GetPRDiffMultiplePatches(ctx context.Context, files []*platform.FilePatchInfo, model string, addLineNumbers bool, maxCalls int) []CompressedDiffResult {
	settings := config.GetSettings(ctx)
	extraBefore := settings.Config.PatchExtraLinesBefore
	extraAfter := settings.Config.PatchExtraLinesAfter

	files = FilterFiles(files, settings)
	if len(files) == 0 {
		return nil
	}

	maxTokens := llm.GetMaxTokensWithFallback(model, uint32(settings.Config.MaxModelTokens))
	fileDict := buildFileDict(files, addLineNumbers, extraBefore, extraAfter)

	remaining := make([]string, len(fileDict))
	for i, e := range fileDict {
		remaining[i] = e.filename
	}

	var batches []CompressedDiffResult
	for i := 0; i < maxCalls; i++ {
		if len(remaining) == 0 {
			break
		}
		result := generateFullPatch(fileDict, maxTokens, remaining)
		remaining = result.RemainingFiles
		batches = append(batches, result)
	}
	return batches
}

// buildFileDict renders every file's patch (with line numbers if requested)
// and sorts the resulting entries by descending token count, so the packer
// below prioritizes larger, likely-more-important files first.
func buildFileDict(files []*platform.FilePatchInfo, addLineNumbers bool, extraBefore, extraAfter int) []fileEntry {
	entries := make([]fileEntry, 0, len(files))

	for _, file := range files {
		extended := ExtendPatch(file.BaseFile, file.Patch, extraBefore, extraAfter)

		var patchText string
		if addLineNumbers {
			patchText = ConvertToHunksWithLineNumbers(file.Filename, extended, file.EditType)
		} else {
			patchText = FormatPatchSimple(file.Filename, extended, file.EditType)
		}

		entries = append(entries, fileEntry{
			filename: file.Filename,
			patch:    patchText,
			tokens:   llm.CountTokens(patchText),
			editType: file.EditType,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].tokens > entries[j].tokens })
	return entries
}

// generateFullPatch greedily packs files (in file_dict's sorted order) into
// one batch. A file whose addition would push the running total past the
// soft budget is deferred to RemainingFiles; once the running total already
// exceeds the hard budget, every later file is skipped without being listed
// anywhere.
// Ported from orig/processing/compression.rs's generate_full_patch.
func generateFullPatch(fileDict []fileEntry, maxTokens uint32, remainingFilesPrev []string) CompressedDiffResult {
	remainingSet := make(map[string]struct{}, len(remainingFilesPrev))
	for _, f := range remainingFilesPrev {
		remainingSet[f] = struct{}{}
	}

	var patches strings.Builder
	var totalTokens uint32
	var remainingFiles, filesInPatch []string

	hardBudget := satSubU32(maxTokens, llm.OutputBufferTokensHardThreshold)
	softBudget := satSubU32(maxTokens, llm.OutputBufferTokensSoftThreshold)

	for _, entry := range fileDict {
		if _, ok := remainingSet[entry.filename]; !ok {
			continue
		}

		if totalTokens > hardBudget {
			continue
		}

		if totalTokens+entry.tokens > softBudget {
			remainingFiles = append(remainingFiles, entry.filename)
			continue
		}

		if entry.patch != "" {
			patches.WriteString(entry.patch)
			totalTokens += entry.tokens
			filesInPatch = append(filesInPatch, entry.filename)
		}
	}

	return CompressedDiffResult{
		Patches:        patches.String(),
		TotalTokens:    totalTokens,
		RemainingFiles: remainingFiles,
		FilesInPatch:   filesInPatch,
	}
}

// appendRemainingFileLists, if token budget remains after compression,
// appends "### Additional {added,modified,deleted} files" sections naming
// every file that didn't make it into the diff, grouped by edit type.
// Ported from orig/processing/compression.rs's append_remaining_file_lists.
func appendRemainingFileLists(patches string, currentTokens, maxTokens uint32, allFiles []*platform.FilePatchInfo, filesInPatch []string) string {
	budget := satSubU32(maxTokens, llm.OutputBufferTokensHardThreshold)
	const deltaTokens uint32 = 10

	if budget <= currentTokens+deltaTokens {
		return patches
	}

	remainingBudget := budget - currentTokens
	filesSet := make(map[string]struct{}, len(filesInPatch))
	for _, f := range filesInPatch {
		filesSet[f] = struct{}{}
	}

	var added, modified, deleted []string
	for _, file := range allFiles {
		if _, ok := filesSet[file.Filename]; ok {
			continue
		}
		switch file.EditType {
		case platform.EditAdded:
			added = append(added, file.Filename)
		case platform.EditModified, platform.EditRenamed, platform.EditUnknown:
			modified = append(modified, file.Filename)
		case platform.EditDeleted:
			deleted = append(deleted, file.Filename)
		}
	}

	result := patches

	appendList := func(label string, fileNames []string) {
		if len(fileNames) == 0 || remainingBudget < deltaTokens {
			return
		}
		lines := make([]string, len(fileNames))
		for i, f := range fileNames {
			lines[i] = "- " + f
		}
		listStr := fmt.Sprintf("\n\n### Additional %s files (not included in diff):\n%s", label, strings.Join(lines, "\n"))
		clipped := llm.ClipTokens(listStr, remainingBudget, true)
		if clipped != "" {
			tokens := llm.CountTokens(clipped)
			result += clipped
			remainingBudget = satSubU32(remainingBudget, tokens+2)
		}
	}

	appendList("added", added)
	appendList("modified", modified)
	appendList("deleted", deleted)

	return result
}

func satSubU32(a, b uint32) uint32 {
	if a < b {
		return 0
	}
	return a - b
}
