package github

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountPatchLines(t *testing.T) {
	patch := "@@ -1,5 +1,6 @@\n unchanged\n-removed line\n+added line\n+another added\n context\n"
	plus, minus := countPatchLines(patch)
	assert.EqualValues(t, 2, plus)
	assert.EqualValues(t, 1, minus)
}

func TestCountPatchLinesEmpty(t *testing.T) {
	plus, minus := countPatchLines("")
	assert.Zero(t, plus)
	assert.Zero(t, minus)
}

func TestParseNextLink(t *testing.T) {
	header := http.Header{}
	header.Set("link", `<https://api.github.com/repos/owner/repo/pulls/1/files?per_page=100&page=2>; rel="next", <https://api.github.com/repos/owner/repo/pulls/1/files?per_page=100&page=3>; rel="last"`)

	next := parseNextLink(header)
	assert.Equal(t, "https://api.github.com/repos/owner/repo/pulls/1/files?per_page=100&page=2", next)
}

func TestParseNextLinkNoNext(t *testing.T) {
	header := http.Header{}
	header.Set("link", `<https://api.github.com/repos/owner/repo/pulls/1/files?page=1>; rel="first"`)
	assert.Empty(t, parseNextLink(header))
}

func TestParseNextLinkNoHeader(t *testing.T) {
	assert.Empty(t, parseNextLink(http.Header{}))
}

func TestHexSHA256(t *testing.T) {
	assert.Len(t, hexSHA256("some/file.go"), 64)
	assert.Equal(t, hexSHA256("x"), hexSHA256("x"))
	assert.NotEqual(t, hexSHA256("x"), hexSHA256("y"))
}
