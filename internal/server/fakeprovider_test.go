package server

import (
	"context"
	"sync"

	"github.com/jlucaso1/pr-agent-go/internal/platform"
)

// fakeProvider is a minimal, in-memory platform.GitProvider for
// internal/server's tests, analogous to internal/tools' mockGitProvider but
// scoped to what webhook dispatch exercises: settings fetch, comment
// publish/edit/reply, and eyes-reaction bookkeeping.
type fakeProvider struct {
	platform.BaseProvider

	mu sync.Mutex

	Title         string
	Branch        string
	DiffFiles     []*platform.FilePatchInfo
	GlobalTOML    *string
	RepoTOML      *string
	GlobalErr     error
	RepoErr       error
	IssueComments []platform.IssueComment

	PublishedComments []string
	EditedComments    map[platform.CommentID]string
	Replies           []string
	AutoApproved      int
	EyesAdded         int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		Title:          "Test PR",
		Branch:         "feature/x",
		EditedComments: make(map[platform.CommentID]string),
	}
}

func (f *fakeProvider) GetDiffFiles(context.Context) ([]*platform.FilePatchInfo, error) {
	return f.DiffFiles, nil
}
func (f *fakeProvider) GetFiles(context.Context) ([]string, error) { return nil, nil }
func (f *fakeProvider) GetLanguages(context.Context) (map[string]uint64, error) {
	return map[string]uint64{}, nil
}
func (f *fakeProvider) GetPRBranch(context.Context) (string, error)     { return f.Branch, nil }
func (f *fakeProvider) GetPRBaseBranch(context.Context) (string, error) { return "main", nil }
func (f *fakeProvider) GetUserID(context.Context) (string, error)       { return "bot", nil }
func (f *fakeProvider) GetPRDescriptionFull(context.Context) (string, string, error) {
	return f.Title, "", nil
}
func (f *fakeProvider) PublishDescription(context.Context, string, string) error { return nil }

func (f *fakeProvider) PublishComment(_ context.Context, text string, _ bool) (*platform.CommentID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PublishedComments = append(f.PublishedComments, text)
	id := platform.CommentID("1")
	return &id, nil
}
func (f *fakeProvider) PublishInlineComment(context.Context, string, string, string, *string) error {
	return nil
}
func (f *fakeProvider) PublishInlineComments(context.Context, []platform.InlineComment) error {
	return nil
}
func (f *fakeProvider) RemoveInitialComment(context.Context) error              { return nil }
func (f *fakeProvider) RemoveComment(context.Context, platform.CommentID) error { return nil }
func (f *fakeProvider) PublishCodeSuggestions(context.Context, []platform.CodeSuggestion) (bool, error) {
	return true, nil
}
func (f *fakeProvider) PublishLabels(context.Context, []string) error { return nil }
func (f *fakeProvider) GetPRLabels(context.Context) ([]string, error) { return nil, nil }
func (f *fakeProvider) AddEyesReaction(context.Context, uint64, bool) (*uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.EyesAdded++
	return nil, nil
}
func (f *fakeProvider) RemoveReaction(context.Context, uint64, uint64) error { return nil }
func (f *fakeProvider) GetCommitMessages(context.Context) (string, error)    { return "", nil }

func (f *fakeProvider) GetRepoSettings(context.Context) (*string, error) {
	if f.RepoErr != nil {
		return nil, f.RepoErr
	}
	return f.RepoTOML, nil
}
func (f *fakeProvider) GetGlobalSettings(context.Context) (*string, error) {
	if f.GlobalErr != nil {
		return nil, f.GlobalErr
	}
	return f.GlobalTOML, nil
}
func (f *fakeProvider) GetIssueComments(context.Context) ([]platform.IssueComment, error) {
	return f.IssueComments, nil
}

func (f *fakeProvider) AutoApprove(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.AutoApproved++
	return true, nil
}

func (f *fakeProvider) GetNumOfFiles(ctx context.Context) (int, error) {
	return platform.DefaultNumOfFiles(ctx, f)
}

func (f *fakeProvider) EditComment(_ context.Context, commentID platform.CommentID, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.EditedComments[commentID] = body
	return nil
}

func (f *fakeProvider) ReplyToComment(_ context.Context, _ uint64, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Replies = append(f.Replies, body)
	return nil
}

var _ platform.GitProvider = (*fakeProvider)(nil)
