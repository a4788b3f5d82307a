package diffproc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtendPatchAddsContext(t *testing.T) {
	original := "line1\nline2\nline3\nline4\nline5\nline6\nline7\nline8\nline9\nline10"
	patch := "@@ -4,3 +4,3 @@\n context\n-removed\n+added\n"

	result := ExtendPatch(original, patch, 2, 2)
	assert.Contains(t, result, "@@ -2,")
	assert.True(t, strings.Contains(result, "line2") || strings.Contains(result, "line3"))
}

func TestExtendPatchEmpty(t *testing.T) {
	assert.Equal(t, "", ExtendPatch("file", "", 2, 2))
	assert.Equal(t, "patch", ExtendPatch("", "patch", 2, 2))
}

func TestExtendPatchNoExtra(t *testing.T) {
	patch := "@@ -1,3 +1,3 @@\n context\n"
	assert.Equal(t, patch, ExtendPatch("file", patch, 0, 0))
}
