package server

import (
	"fmt"
	"strings"
)

// selfReviewAction is which action(s) a checked self-review checkbox should
// trigger, detected from the HTML comment markers output.AppendSelfReviewCheckbox
// embeds next to the checkbox. Grounded on orig/server/webhook.rs's
// SelfReviewAction and detect_self_review_action.
type selfReviewAction int

const (
	selfReviewNone selfReviewAction = iota
	selfReviewApprove
	selfReviewFold
	selfReviewApproveAndFold
)

var (
	markerApproveAndFold = "<!-- approve and fold suggestions self-review -->"
	markerApprove        = "<!-- approve pr self-review -->"
	markerFold           = "<!-- fold suggestions self-review -->"
)

// detectSelfReviewAction reports which action a comment's self-review
// checkbox marker requests, regardless of whether the box is checked.
func detectSelfReviewAction(body string) selfReviewAction {
	switch {
	case strings.Contains(body, markerApproveAndFold):
		return selfReviewApproveAndFold
	case strings.Contains(body, markerApprove):
		return selfReviewApprove
	case strings.Contains(body, markerFold):
		return selfReviewFold
	default:
		return selfReviewNone
	}
}

// isSelfReviewChecked reports whether the markdown line carrying one of the
// self-review markers is itself a checked checkbox ("- [x]"/"- [X]"). The
// checkbox and the marker must be on the same line, matching how
// output.AppendSelfReviewCheckbox renders them.
func isSelfReviewChecked(body string) bool {
	for _, line := range strings.Split(body, "\n") {
		hasMarker := strings.Contains(line, markerApproveAndFold) ||
			strings.Contains(line, markerApprove) ||
			strings.Contains(line, markerFold)
		if !hasMarker {
			continue
		}
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "- [x]") || strings.HasPrefix(trimmed, "- [X]") {
			return true
		}
	}
	return false
}

// improveCommentMarker is the persistent-comment header tools.PublishAsComment
// writes for the improve tool (`<!-- pr-agent:improve -->`), used here to
// recognize which edited comment is foldable.
const improveCommentMarker = "<!-- pr-agent:improve -->"

// foldCommentBody wraps an improve comment's body in a collapsed
// <details><summary> block, or returns body unchanged if it isn't an
// improve comment or is already folded. Grounded on
// orig/server/webhook.rs's fold_comment_body.
func foldCommentBody(body string) string {
	if !strings.Contains(body, improveCommentMarker) {
		return body
	}
	if strings.Contains(body, "<details>") {
		return body
	}
	return fmt.Sprintf("<details><summary>Code suggestions</summary>\n\n%s\n\n</details>\n", body)
}
