package tools

import (
	"context"
	"sync"

	"github.com/jlucaso1/pr-agent-go/internal/platform"
)

// mockCalls records every publish/remove call made against a mockGitProvider,
// for test assertions. Grounded on orig/testing/mock_git.rs's MockCalls.
type mockCalls struct {
	mu              sync.Mutex
	comments        []mockComment
	descriptions    [][2]string
	labels          [][]string
	removedComments []platform.CommentID
	codeSuggestions [][]platform.CodeSuggestion
	inlineComments  [][]platform.InlineComment
	editedComments  []mockComment
	autoApprovals   int
	replies         []mockReply
	prFileWrites    []mockPRFileWrite
}

type mockPRFileWrite struct {
	path     string
	branch   string
	message  string
	contents string
}

type mockReply struct {
	commentID uint64
	body      string
}

type mockComment struct {
	id          platform.CommentID
	body        string
	isTemporary bool
}

func (c *mockCalls) snapshot() *mockCalls {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *c
	cp.mu = sync.Mutex{}
	return &cp
}

// mockGitProvider is a minimal, in-memory platform.GitProvider used by tool
// pipeline tests. Grounded on orig/testing/mock_git.rs's MockGitProvider.
type mockGitProvider struct {
	platform.BaseProvider

	Title                string
	Description          string
	Branch               string
	CommitMessages       string
	DiffFiles            []*platform.FilePatchInfo
	IssueComments        []platform.IssueComment
	ReviewThreadComments []platform.IssueComment
	ReviewThreadErr      error
	RepoSettingsTOML     *string
	GlobalSettingsTOML   *string
	RepoIssues           []platform.RepoIssue

	calls mockCalls

	nextCommentID int
}

func newMockGitProvider() *mockGitProvider {
	return &mockGitProvider{
		Title:          "Test PR title",
		Description:    "Test PR description",
		Branch:         "feature/test",
		CommitMessages: "feat: add test feature",
	}
}

func (m *mockGitProvider) withDiffFiles(files []*platform.FilePatchInfo) *mockGitProvider {
	m.DiffFiles = files
	return m
}

func (m *mockGitProvider) withPRDescription(title, body string) *mockGitProvider {
	m.Title = title
	m.Description = body
	return m
}

func (m *mockGitProvider) withReviewThreadComments(comments []platform.IssueComment) *mockGitProvider {
	m.ReviewThreadComments = comments
	return m
}

func (m *mockGitProvider) GetDiffFiles(context.Context) ([]*platform.FilePatchInfo, error) {
	return m.DiffFiles, nil
}

func (m *mockGitProvider) GetFiles(context.Context) ([]string, error) {
	names := make([]string, len(m.DiffFiles))
	for i, f := range m.DiffFiles {
		names[i] = f.Filename
	}
	return names, nil
}

func (m *mockGitProvider) GetLanguages(context.Context) (map[string]uint64, error) {
	return map[string]uint64{}, nil
}

func (m *mockGitProvider) GetPRBranch(context.Context) (string, error)     { return m.Branch, nil }
func (m *mockGitProvider) GetPRBaseBranch(context.Context) (string, error) { return "main", nil }
func (m *mockGitProvider) GetUserID(context.Context) (string, error)       { return "mock-bot[bot]", nil }

func (m *mockGitProvider) GetPRDescriptionFull(context.Context) (string, string, error) {
	return m.Title, m.Description, nil
}

func (m *mockGitProvider) PublishDescription(_ context.Context, title, body string) error {
	m.calls.mu.Lock()
	defer m.calls.mu.Unlock()
	m.calls.descriptions = append(m.calls.descriptions, [2]string{title, body})
	return nil
}

func (m *mockGitProvider) PublishComment(_ context.Context, text string, isTemporary bool) (*platform.CommentID, error) {
	m.calls.mu.Lock()
	defer m.calls.mu.Unlock()
	m.nextCommentID++
	id := platform.CommentID("mock-comment-1")
	m.calls.comments = append(m.calls.comments, mockComment{id: id, body: text, isTemporary: isTemporary})
	return &id, nil
}

func (m *mockGitProvider) PublishInlineComment(context.Context, string, string, string, *string) error {
	return nil
}

func (m *mockGitProvider) PublishInlineComments(_ context.Context, comments []platform.InlineComment) error {
	m.calls.mu.Lock()
	defer m.calls.mu.Unlock()
	m.calls.inlineComments = append(m.calls.inlineComments, comments)
	return nil
}

func (m *mockGitProvider) RemoveInitialComment(context.Context) error { return nil }

func (m *mockGitProvider) RemoveComment(_ context.Context, commentID platform.CommentID) error {
	m.calls.mu.Lock()
	defer m.calls.mu.Unlock()
	m.calls.removedComments = append(m.calls.removedComments, commentID)
	return nil
}

func (m *mockGitProvider) PublishCodeSuggestions(_ context.Context, suggestions []platform.CodeSuggestion) (bool, error) {
	m.calls.mu.Lock()
	defer m.calls.mu.Unlock()
	m.calls.codeSuggestions = append(m.calls.codeSuggestions, suggestions)
	return true, nil
}

func (m *mockGitProvider) PublishLabels(_ context.Context, labels []string) error {
	m.calls.mu.Lock()
	defer m.calls.mu.Unlock()
	m.calls.labels = append(m.calls.labels, labels)
	return nil
}

func (m *mockGitProvider) GetPRLabels(context.Context) ([]string, error) { return nil, nil }

func (m *mockGitProvider) AddEyesReaction(context.Context, uint64, bool) (*uint64, error) {
	return nil, nil
}

func (m *mockGitProvider) RemoveReaction(context.Context, uint64, uint64) error { return nil }

func (m *mockGitProvider) GetCommitMessages(context.Context) (string, error) {
	return m.CommitMessages, nil
}

func (m *mockGitProvider) GetRepoSettings(context.Context) (*string, error) {
	return m.RepoSettingsTOML, nil
}

func (m *mockGitProvider) GetGlobalSettings(context.Context) (*string, error) {
	return m.GlobalSettingsTOML, nil
}

func (m *mockGitProvider) GetIssueComments(context.Context) ([]platform.IssueComment, error) {
	return m.IssueComments, nil
}

func (m *mockGitProvider) IsSupported(capability string) bool { return capability == "gfm_markdown" }

func (m *mockGitProvider) EditComment(_ context.Context, commentID platform.CommentID, body string) error {
	m.calls.mu.Lock()
	defer m.calls.mu.Unlock()
	m.calls.editedComments = append(m.calls.editedComments, mockComment{id: commentID, body: body})
	return nil
}

func (m *mockGitProvider) AutoApprove(context.Context) (bool, error) {
	m.calls.mu.Lock()
	defer m.calls.mu.Unlock()
	m.calls.autoApprovals++
	return true, nil
}

func (m *mockGitProvider) GetNumOfFiles(ctx context.Context) (int, error) {
	return platform.DefaultNumOfFiles(ctx, m)
}

func (m *mockGitProvider) ReplyToComment(_ context.Context, commentID uint64, body string) error {
	m.calls.mu.Lock()
	defer m.calls.mu.Unlock()
	m.calls.replies = append(m.calls.replies, mockReply{commentID: commentID, body: body})
	return nil
}

func (m *mockGitProvider) GetReviewThreadComments(context.Context, uint64) ([]platform.IssueComment, error) {
	if m.ReviewThreadErr != nil {
		return nil, m.ReviewThreadErr
	}
	return m.ReviewThreadComments, nil
}

func (m *mockGitProvider) CreateOrUpdatePRFile(_ context.Context, filePath, branch string, contents []byte, message string) error {
	m.calls.mu.Lock()
	defer m.calls.mu.Unlock()
	m.calls.prFileWrites = append(m.calls.prFileWrites, mockPRFileWrite{
		path: filePath, branch: branch, message: message, contents: string(contents),
	})
	return nil
}

func (m *mockGitProvider) ListRepoIssues(_ context.Context, maxIssues int) ([]platform.RepoIssue, error) {
	if maxIssues > 0 && maxIssues < len(m.RepoIssues) {
		return m.RepoIssues[:maxIssues], nil
	}
	return m.RepoIssues, nil
}

var _ platform.GitProvider = (*mockGitProvider)(nil)
