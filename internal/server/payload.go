package server

import "github.com/tidwall/gjson"

// extractPRURL pulls the PR's web URL out of a pull_request event payload.
func extractPRURL(payload []byte) string {
	return gjson.GetBytes(payload, "pull_request.html_url").String()
}

// extractPRURLFromIssue pulls the PR's web URL out of an issue_comment event
// payload. issue_comment fires for both issues and PRs; when the commented-on
// issue is a PR, GitHub nests a pull_request object with its own html_url
// (distinct from the issue's own html_url), which is what we want. Falls
// back to the issue's own html_url so callers that already filtered for "is
// a PR comment" still get a usable URL. Grounded on orig/server/webhook.rs's
// extract_pr_url_from_issue.
func extractPRURLFromIssue(payload []byte) string {
	if url := gjson.GetBytes(payload, "issue.pull_request.html_url").String(); url != "" {
		return url
	}
	return gjson.GetBytes(payload, "issue.html_url").String()
}

// isIssueCommentOnPR reports whether an issue_comment event's issue object
// is actually a pull request (GitHub models PR comments as issue comments).
func isIssueCommentOnPR(payload []byte) bool {
	return gjson.GetBytes(payload, "issue.pull_request").Exists()
}
