package urlparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitHubWebURL(t *testing.T) {
	p, err := Parse("https://github.com/owner/repo/pull/123")
	require.NoError(t, err)
	assert.Equal(t, ProviderGitHub, p.Provider)
	assert.Equal(t, "owner", p.Owner)
	assert.Equal(t, "repo", p.Repo)
	assert.EqualValues(t, 123, p.Number)
	assert.False(t, p.IsIssue)
}

func TestGitHubIssueURL(t *testing.T) {
	p, err := Parse("https://github.com/owner/repo/issues/42")
	require.NoError(t, err)
	assert.EqualValues(t, 42, p.Number)
	assert.True(t, p.IsIssue)
}

func TestGitHubAPIURL(t *testing.T) {
	p, err := Parse("https://api.github.com/repos/owner/repo/pulls/456")
	require.NoError(t, err)
	assert.Equal(t, ProviderGitHub, p.Provider)
	assert.Equal(t, "owner", p.Owner)
	assert.Equal(t, "repo", p.Repo)
	assert.EqualValues(t, 456, p.Number)
}

func TestGitHubEnterpriseURL(t *testing.T) {
	p, err := Parse("https://github.example.com/api/v3/repos/org/repo/pulls/99")
	require.NoError(t, err)
	assert.Equal(t, ProviderGitHub, p.Provider)
	assert.Equal(t, "org", p.Owner)
	assert.Equal(t, "repo", p.Repo)
	assert.EqualValues(t, 99, p.Number)
}

func TestGitLabURL(t *testing.T) {
	p, err := Parse("https://gitlab.com/group/subgroup/project/-/merge_requests/10")
	require.NoError(t, err)
	assert.Equal(t, ProviderGitLab, p.Provider)
	assert.Equal(t, "group/subgroup", p.Owner)
	assert.Equal(t, "project", p.Repo)
	assert.EqualValues(t, 10, p.Number)
}

func TestGitLabSimpleURL(t *testing.T) {
	p, err := Parse("https://gitlab.com/owner/repo/-/merge_requests/5")
	require.NoError(t, err)
	assert.Equal(t, "owner", p.Owner)
	assert.Equal(t, "repo", p.Repo)
	assert.EqualValues(t, 5, p.Number)
}

func TestBitbucketURL(t *testing.T) {
	p, err := Parse("https://bitbucket.org/workspace/repo/pull-requests/789")
	require.NoError(t, err)
	assert.Equal(t, ProviderBitbucket, p.Provider)
	assert.Equal(t, "workspace", p.Owner)
	assert.Equal(t, "repo", p.Repo)
	assert.EqualValues(t, 789, p.Number)
}

func TestAzureDevOpsURL(t *testing.T) {
	p, err := Parse("https://dev.azure.com/myorg/myproject/_git/myrepo/pullrequest/101")
	require.NoError(t, err)
	assert.Equal(t, ProviderAzureDevOps, p.Provider)
	assert.Equal(t, "myproject", p.Owner)
	assert.Equal(t, "myrepo", p.Repo)
	assert.EqualValues(t, 101, p.Number)
}

func TestGiteaURL(t *testing.T) {
	p, err := Parse("https://gitea.example.com/owner/repo/pulls/33")
	require.NoError(t, err)
	assert.Equal(t, ProviderGitea, p.Provider)
	assert.Equal(t, "owner", p.Owner)
	assert.Equal(t, "repo", p.Repo)
	assert.EqualValues(t, 33, p.Number)
}

func TestInvalidURL(t *testing.T) {
	_, err := Parse("not-a-url")
	assert.Error(t, err)

	_, err = Parse("https://github.com/owner/repo")
	assert.Error(t, err)
}

func TestNumberZeroRejected(t *testing.T) {
	_, err := Parse("https://github.com/owner/repo/pull/0")
	assert.Error(t, err)
}

func TestParsedURLString(t *testing.T) {
	p, err := Parse("https://github.com/owner/repo/pull/123")
	require.NoError(t, err)
	assert.Equal(t, "owner/repo#123", p.String())
}
