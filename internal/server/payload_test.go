package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractPRURLFromPullRequestEvent(t *testing.T) {
	payload := []byte(`{"pull_request":{"html_url":"https://github.com/acme/widgets/pull/7"}}`)
	assert.Equal(t, "https://github.com/acme/widgets/pull/7", extractPRURL(payload))
}

func TestExtractPRURLFromIssuePrefersPullRequestField(t *testing.T) {
	payload := []byte(`{"issue":{"html_url":"https://github.com/acme/widgets/issues/7","pull_request":{"html_url":"https://github.com/acme/widgets/pull/7"}}}`)
	assert.Equal(t, "https://github.com/acme/widgets/pull/7", extractPRURLFromIssue(payload))
}

func TestExtractPRURLFromIssueFallsBackToIssueURL(t *testing.T) {
	payload := []byte(`{"issue":{"html_url":"https://github.com/acme/widgets/issues/7"}}`)
	assert.Equal(t, "https://github.com/acme/widgets/issues/7", extractPRURLFromIssue(payload))
}

func TestIsIssueCommentOnPRTrue(t *testing.T) {
	payload := []byte(`{"issue":{"pull_request":{"html_url":"x"}}}`)
	assert.True(t, isIssueCommentOnPR(payload))
}

func TestIsIssueCommentOnPRFalse(t *testing.T) {
	payload := []byte(`{"issue":{"html_url":"x"}}`)
	assert.False(t, isIssueCommentOnPR(payload))
}
