package diffproc

import (
	"testing"

	"github.com/jlucaso1/pr-agent-go/internal/platform"
	"github.com/stretchr/testify/assert"
)

func makeFile(filename, patch string, editType platform.EditType) *platform.FilePatchInfo {
	f := platform.NewFilePatchInfo("", "", patch, filename)
	f.EditType = editType
	return f
}

func TestBuildFileDictSortsByTokens(t *testing.T) {
	files := []*platform.FilePatchInfo{
		makeFile("small.go", "@@ -1,1 +1,1 @@\n-a\n+b", platform.EditModified),
		makeFile("large.go", "@@ -1,5 +1,5 @@\n-line1\n-line2\n-line3\n-line4\n-line5\n+new1\n+new2\n+new3\n+new4\n+new5", platform.EditModified),
	}

	dict := buildFileDict(files, true, 0, 0)
	assert.Equal(t, "large.go", dict[0].filename)
	assert.Greater(t, dict[0].tokens, dict[1].tokens)
}

func TestGenerateFullPatchRespectsThresholds(t *testing.T) {
	entries := []fileEntry{
		{filename: "file1.go", patch: "patch1", tokens: 500, editType: platform.EditModified},
		{filename: "file2.go", patch: "patch2", tokens: 500, editType: platform.EditModified},
		{filename: "file3.go", patch: "patch3", tokens: 500, editType: platform.EditModified},
	}
	remaining := []string{"file1.go", "file2.go", "file3.go"}

	result := generateFullPatch(entries, 3000, remaining)
	assert.Len(t, result.FilesInPatch, 3)
	assert.Empty(t, result.RemainingFiles)

	result = generateFullPatch(entries, 2500, remaining)
	assert.Len(t, result.FilesInPatch, 2)
	assert.Contains(t, result.RemainingFiles, "file3.go")
}

func TestGenerateFullPatchFitsAll(t *testing.T) {
	entries := []fileEntry{
		{filename: "a.go", patch: "p1", tokens: 100, editType: platform.EditModified},
		{filename: "b.go", patch: "p2", tokens: 100, editType: platform.EditAdded},
	}
	remaining := []string{"a.go", "b.go"}

	result := generateFullPatch(entries, 100_000, remaining)
	assert.Len(t, result.FilesInPatch, 2)
	assert.Empty(t, result.RemainingFiles)
}

func TestAppendRemainingFileListsAddsSections(t *testing.T) {
	files := []*platform.FilePatchInfo{
		makeFile("included.go", "", platform.EditModified),
		makeFile("skipped_add.go", "", platform.EditAdded),
		makeFile("skipped_del.go", "", platform.EditDeleted),
	}

	result := appendRemainingFileLists("existing patch", 100, 100_000, files, []string{"included.go"})

	assert.Contains(t, result, "existing patch")
	assert.Contains(t, result, "skipped_add.go")
	assert.Contains(t, result, "skipped_del.go")
	assert.Contains(t, result, "Additional added files")
	assert.Contains(t, result, "Additional deleted files")
}
