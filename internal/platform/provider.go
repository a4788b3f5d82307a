package platform

import (
	"context"
	"strconv"
	"strings"

	"github.com/jlucaso1/pr-agent-go/internal/prerrors"
)

// GitProvider is the capability surface every hosting-platform integration
// implements. Grounded on orig/git/mod.rs's GitProvider trait; Rust's
// default trait methods (no virtual dispatch needed in Go for the ones that
// don't call back into the interface) become BaseProvider, a struct that
// concrete providers embed and selectively override. The handful of
// defaults that DO call back into the interface (PublishPersistentComment,
// the diff-count fallback for GetNumOfFiles) are free functions instead,
// since Go has no way for an embedded struct to invoke the outer type's
// overridden methods.
type GitProvider interface {
	GetDiffFiles(ctx context.Context) ([]*FilePatchInfo, error)
	GetFiles(ctx context.Context) ([]string, error)
	GetLanguages(ctx context.Context) (map[string]uint64, error)
	GetPRBranch(ctx context.Context) (string, error)
	GetPRBaseBranch(ctx context.Context) (string, error)
	GetUserID(ctx context.Context) (string, error)
	GetPRDescriptionFull(ctx context.Context) (title, body string, err error)
	PublishDescription(ctx context.Context, title, body string) error
	PublishComment(ctx context.Context, text string, isTemporary bool) (*CommentID, error)
	PublishInlineComment(ctx context.Context, body, file, line string, originalSuggestion *string) error
	PublishInlineComments(ctx context.Context, comments []InlineComment) error
	RemoveInitialComment(ctx context.Context) error
	RemoveComment(ctx context.Context, commentID CommentID) error
	PublishCodeSuggestions(ctx context.Context, suggestions []CodeSuggestion) (bool, error)
	PublishLabels(ctx context.Context, labels []string) error
	GetPRLabels(ctx context.Context) ([]string, error)
	AddEyesReaction(ctx context.Context, commentID uint64, disableEyes bool) (*uint64, error)
	RemoveReaction(ctx context.Context, commentID, reactionID uint64) error
	GetCommitMessages(ctx context.Context) (string, error)
	GetRepoSettings(ctx context.Context) (*string, error)
	GetGlobalSettings(ctx context.Context) (*string, error)
	GetIssueComments(ctx context.Context) ([]IssueComment, error)

	GetPRURL() string
	IsSupported(capability string) bool
	GetLatestCommitURL(ctx context.Context) (string, error)
	EditComment(ctx context.Context, commentID CommentID, body string) error
	ReplyToComment(ctx context.Context, commentID uint64, body string) error
	GetReviewThreadComments(ctx context.Context, commentID uint64) ([]IssueComment, error)
	// CreateOrUpdatePRFile prepends contents to filePath on branch (treating
	// a missing file as empty) and commits the result with message, creating
	// the file if it does not exist yet.
	CreateOrUpdatePRFile(ctx context.Context, filePath, branch string, contents []byte, message string) error
	AutoApprove(ctx context.Context) (bool, error)
	GetGitRepoURL() string
	GetLineLink(file string, lineStart int32, lineEnd *int32) string
	GetNumOfFiles(ctx context.Context) (int, error)
	GetPRID() string
	GetBestPractices(ctx context.Context) (string, error)
	GetRepoMetadata(ctx context.Context) (string, error)
	// ListRepoIssues lists up to maxIssues open issues in the repository,
	// most recently updated first, for similar_issue to rank against.
	ListRepoIssues(ctx context.Context, maxIssues int) ([]RepoIssue, error)
}

// BaseProvider supplies orig/git/mod.rs's trivial default method bodies
// (the ones that don't call back into the GitProvider interface). Concrete
// providers embed BaseProvider and shadow whichever methods their platform
// actually supports.
type BaseProvider struct{}

func (BaseProvider) GetPRURL() string                                   { return "" }
func (BaseProvider) IsSupported(string) bool                            { return false }
func (BaseProvider) GetLatestCommitURL(context.Context) (string, error) { return "", nil }
func (BaseProvider) EditComment(context.Context, CommentID, string) error {
	return prerrors.NewUnsupported("edit_comment")
}
func (BaseProvider) ReplyToComment(context.Context, uint64, string) error {
	return prerrors.NewUnsupported("reply_to_comment")
}
func (BaseProvider) GetReviewThreadComments(context.Context, uint64) ([]IssueComment, error) {
	return nil, prerrors.NewUnsupported("get_review_thread_comments")
}
func (BaseProvider) CreateOrUpdatePRFile(context.Context, string, string, []byte, string) error {
	return prerrors.NewUnsupported("create_or_update_pr_file")
}
func (BaseProvider) AutoApprove(context.Context) (bool, error)        { return false, nil }
func (BaseProvider) GetGitRepoURL() string                            { return "" }
func (BaseProvider) GetLineLink(string, int32, *int32) string         { return "" }
func (BaseProvider) GetPRID() string                                  { return "" }
func (BaseProvider) GetBestPractices(context.Context) (string, error) { return "", nil }
func (BaseProvider) GetRepoMetadata(context.Context) (string, error)  { return "", nil }
func (BaseProvider) ListRepoIssues(context.Context, int) ([]RepoIssue, error) {
	return nil, prerrors.NewUnsupported("list_repo_issues")
}

// DefaultNumOfFiles is the fallback GetNumOfFiles body: len(GetDiffFiles()).
// Providers that have a cheaper way to count files (e.g. from the PR API
// response directly) should implement GetNumOfFiles themselves instead of
// calling this.
func DefaultNumOfFiles(ctx context.Context, p GitProvider) (int, error) {
	files, err := p.GetDiffFiles(ctx)
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

// capitalizeFirst upper-cases the first rune of s, leaving the rest as-is.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// PublishPersistentComment finds an existing comment by its initial_header
// marker and edits it in place, or creates a new one if none exists.
// Grounded on orig/git/mod.rs's publish_persistent_comment default method.
func PublishPersistentComment(ctx context.Context, p GitProvider, text, initialHeader, _updateHeader, name string, finalUpdateMessage bool) error {
	comments, err := p.GetIssueComments(ctx)
	if err != nil {
		return err
	}

	for _, comment := range comments {
		if !strings.HasPrefix(comment.Body, initialHeader) {
			continue
		}

		commentURL := comment.URL

		latestCommitURL, _ := p.GetLatestCommitURL(ctx)
		updatedText := text
		if latestCommitURL != "" {
			capName := capitalizeFirst(name)
			updatedHeader := initialHeader + "\n\n#### (" + capName + " updated until commit " + latestCommitURL + ")\n"
			updatedText = strings.Replace(text, initialHeader, updatedHeader, 1)
		}

		commentID := CommentID(strconv.FormatUint(comment.ID, 10))
		if err := p.EditComment(ctx, commentID, updatedText); err != nil {
			return err
		}

		if finalUpdateMessage && commentURL != "" && latestCommitURL != "" {
			notification := "**[Persistent " + name + "](" + commentURL + ")** updated to latest commit " + latestCommitURL
			_, _ = p.PublishComment(ctx, notification, false)
		}

		return nil
	}

	_, err = p.PublishComment(ctx, text, false)
	return err
}
