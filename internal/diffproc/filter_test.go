package diffproc

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBinary(t *testing.T) {
	assert.True(t, IsBinary("image.png"))
	assert.True(t, IsBinary("archive.tar.gz"))
	assert.True(t, IsBinary("doc.PDF"))
	assert.False(t, IsBinary("main.go"))
	assert.False(t, IsBinary("README.md"))
}

func TestGlobToRegex(t *testing.T) {
	re, err := regexp.Compile(globToRegex("*.go"))
	require.NoError(t, err)
	assert.True(t, re.MatchString("main.go"))
	assert.False(t, re.MatchString("src/main.go"))

	re, err = regexp.Compile(globToRegex("**/*.lock"))
	require.NoError(t, err)
	assert.True(t, re.MatchString("Cargo.lock"))
	assert.True(t, re.MatchString("deep/path/package.lock"))
}

func TestGlobDoubleStarSlash(t *testing.T) {
	re, err := regexp.Compile(globToRegex("**/node_modules/**"))
	require.NoError(t, err)
	assert.True(t, re.MatchString("node_modules/foo/bar.js"))
	assert.True(t, re.MatchString("project/node_modules/foo.js"))
}
