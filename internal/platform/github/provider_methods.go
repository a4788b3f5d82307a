package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
	"github.com/jlucaso1/pr-agent-go/internal/prerrors"
	"github.com/jlucaso1/pr-agent-go/pkg/gitutil"
)

var _ platform.GitProvider = (*Provider)(nil)

func (p *Provider) GetDiffFiles(ctx context.Context) ([]*platform.FilePatchInfo, error) {
	prPath := fmt.Sprintf("repos/%s/pulls/%d", p.repoFull, p.parsed.Number)
	prData, err := p.apiGet(ctx, prPath)
	if err != nil {
		return nil, err
	}
	pr := gjson.ParseBytes(prData)
	baseSHA := pr.Get("base.sha").String()
	headSHA := pr.Get("head.sha").String()

	comparePath := fmt.Sprintf("repos/%s/compare/%s...%s", p.repoFull, baseSHA, headSHA)
	compareData, err := p.apiGet(ctx, comparePath)
	if err != nil {
		return nil, err
	}

	files := gjson.ParseBytes(compareData).Get("files").Array()
	diffFiles := make([]*platform.FilePatchInfo, 0, len(files))

	for _, file := range files {
		filename := file.Get("filename").String()
		status := file.Get("status").String()
		if status == "" {
			status = "modified"
		}
		patch := file.Get("patch").String()

		var previousFilename string
		hasPreviousFilename := file.Get("previous_filename").Exists()
		if hasPreviousFilename {
			previousFilename = file.Get("previous_filename").String()
		}

		var editType platform.EditType
		switch status {
		case "added":
			editType = platform.EditAdded
		case "removed":
			editType = platform.EditDeleted
		case "renamed":
			editType = platform.EditRenamed
		case "modified", "changed":
			editType = platform.EditModified
		default:
			editType = platform.EditUnknown
		}

		plusLines, minusLines := countPatchLines(patch)

		var baseFile string
		if editType != platform.EditAdded {
			refName := filename
			if editType == platform.EditRenamed && previousFilename != "" {
				refName = previousFilename
			}
			baseFile, _ = p.getFileContent(ctx, refName, baseSHA)
		}

		var headFile string
		if editType != platform.EditDeleted {
			headFile, _ = p.getFileContent(ctx, filename, headSHA)
		}

		info := platform.NewFilePatchInfo(baseFile, headFile, patch, filename)
		info.EditType = editType
		if hasPreviousFilename {
			info.OldFilename = previousFilename
		}
		info.NumPlusLines = plusLines
		info.NumMinusLines = minusLines

		diffFiles = append(diffFiles, info)
	}

	return diffFiles, nil
}

func (p *Provider) GetFiles(ctx context.Context) ([]string, error) {
	path := fmt.Sprintf("repos/%s/pulls/%d/files?per_page=100", p.repoFull, p.parsed.Number)
	items, err := p.apiGetAllPages(ctx, path)
	if err != nil {
		return nil, err
	}
	files := make([]string, 0, len(items))
	for _, item := range items {
		files = append(files, item.Get("filename").String())
	}
	return files, nil
}

func (p *Provider) GetLanguages(ctx context.Context) (map[string]uint64, error) {
	path := fmt.Sprintf("repos/%s/languages", p.repoFull)
	data, err := p.apiGet(ctx, path)
	if err != nil {
		return nil, err
	}
	result := map[string]uint64{}
	gjson.ParseBytes(data).ForEach(func(key, value gjson.Result) bool {
		result[key.String()] = value.Uint()
		return true
	})
	return result, nil
}

func (p *Provider) GetPRBranch(ctx context.Context) (string, error) {
	path := fmt.Sprintf("repos/%s/pulls/%d", p.repoFull, p.parsed.Number)
	data, err := p.apiGet(ctx, path)
	if err != nil {
		return "", err
	}
	return gjson.ParseBytes(data).Get("head.ref").String(), nil
}

func (p *Provider) GetPRBaseBranch(ctx context.Context) (string, error) {
	path := fmt.Sprintf("repos/%s/pulls/%d", p.repoFull, p.parsed.Number)
	data, err := p.apiGet(ctx, path)
	if err != nil {
		return "", err
	}
	return gjson.ParseBytes(data).Get("base.ref").String(), nil
}

func (p *Provider) GetUserID(ctx context.Context) (string, error) {
	data, err := p.apiGet(ctx, "user")
	if err != nil {
		return "", err
	}
	return gjson.ParseBytes(data).Get("login").String(), nil
}

func (p *Provider) GetPRDescriptionFull(ctx context.Context) (string, string, error) {
	path := fmt.Sprintf("repos/%s/pulls/%d", p.repoFull, p.parsed.Number)
	data, err := p.apiGet(ctx, path)
	if err != nil {
		return "", "", err
	}
	result := gjson.ParseBytes(data)
	return result.Get("title").String(), result.Get("body").String(), nil
}

func (p *Provider) PublishDescription(ctx context.Context, title, body string) error {
	path := fmt.Sprintf("repos/%s/pulls/%d", p.repoFull, p.parsed.Number)
	_, err := p.apiPatch(ctx, path, map[string]any{"title": title, "body": body})
	return err
}

func (p *Provider) PublishComment(ctx context.Context, text string, _isTemporary bool) (*platform.CommentID, error) {
	truncated := text
	if len(truncated) > maxCommentChars {
		end := maxCommentChars
		for end > 0 && !isUTF8Boundary(truncated, end) {
			end--
		}
		truncated = truncated[:end]
	}
	path := fmt.Sprintf("repos/%s/issues/%d/comments", p.repoFull, p.parsed.Number)
	data, err := p.apiPost(ctx, path, map[string]any{"body": truncated})
	if err != nil {
		return nil, err
	}
	id := gjson.ParseBytes(data).Get("id")
	if !id.Exists() {
		return nil, nil
	}
	commentID := platform.CommentID(strconv.FormatInt(id.Int(), 10))
	return &commentID, nil
}

func isUTF8Boundary(s string, idx int) bool {
	if idx <= 0 || idx >= len(s) {
		return true
	}
	return s[idx]&0xC0 != 0x80
}

func (p *Provider) PublishInlineComment(ctx context.Context, body, file, line string, _originalSuggestion *string) error {
	path := fmt.Sprintf("repos/%s/pulls/%d/reviews", p.repoFull, p.parsed.Number)
	comment := map[string]any{
		"body": body,
		"path": file,
		"side": "RIGHT",
	}
	if lineNum, err := strconv.ParseUint(line, 10, 64); err == nil && lineNum > 0 {
		comment["line"] = lineNum
	}
	reviewBody := map[string]any{
		"event":    "COMMENT",
		"comments": []any{comment},
	}
	_, err := p.apiPost(ctx, path, reviewBody)
	return err
}

func (p *Provider) PublishInlineComments(ctx context.Context, comments []platform.InlineComment) error {
	if len(comments) == 0 {
		return nil
	}

	prPath := fmt.Sprintf("repos/%s/pulls/%d", p.repoFull, p.parsed.Number)
	prData, err := p.apiGet(ctx, prPath)
	if err != nil {
		return err
	}
	headSHA := gjson.ParseBytes(prData).Get("head.sha").String()

	reviewComments := make([]any, 0, len(comments))
	for _, c := range comments {
		comment := map[string]any{
			"body": c.Body,
			"path": c.Path,
			"line": c.Line,
			"side": c.Side,
		}
		if c.StartLine != nil {
			comment["start_line"] = *c.StartLine
			comment["start_side"] = c.Side
		}
		reviewComments = append(reviewComments, comment)
	}

	path := fmt.Sprintf("repos/%s/pulls/%d/reviews", p.repoFull, p.parsed.Number)
	reviewBody := map[string]any{
		"commit_id": headSHA,
		"event":     "COMMENT",
		"comments":  reviewComments,
	}

	if _, err := p.apiPost(ctx, path, reviewBody); err != nil {
		log.Printf("bulk review failed, trying individual comments: %v", err)
		for i, c := range comments {
			single := map[string]any{
				"commit_id": headSHA,
				"event":     "COMMENT",
				"comments": []any{map[string]any{
					"body": c.Body,
					"path": c.Path,
					"line": c.Line,
					"side": c.Side,
				}},
			}
			if _, err := p.apiPost(ctx, path, single); err != nil {
				log.Printf("individual comment %d (%s) failed: %v", i, c.Path, err)
			}
		}
		return nil
	}
	return nil
}

func (p *Provider) RemoveInitialComment(context.Context) error { return nil }

func (p *Provider) RemoveComment(ctx context.Context, commentID platform.CommentID) error {
	path := fmt.Sprintf("repos/%s/issues/comments/%s", p.repoFull, string(commentID))
	return p.apiDelete(ctx, path)
}

func (p *Provider) PublishCodeSuggestions(ctx context.Context, suggestions []platform.CodeSuggestion) (bool, error) {
	if len(suggestions) == 0 {
		return false, nil
	}

	prPath := fmt.Sprintf("repos/%s/pulls/%d", p.repoFull, p.parsed.Number)
	prData, err := p.apiGet(ctx, prPath)
	if err != nil {
		return false, err
	}
	headSHA := gjson.ParseBytes(prData).Get("head.sha").String()

	comments := make([]any, 0, len(suggestions))
	for _, s := range suggestions {
		body := fmt.Sprintf("%s\n\n```suggestion\n%s\n```", s.Body, s.ImprovedCode)
		comment := map[string]any{
			"body": body,
			"path": s.RelevantFile,
			"line": s.RelevantLinesEnd,
			"side": "RIGHT",
		}
		if s.RelevantLinesStart != s.RelevantLinesEnd {
			comment["start_line"] = s.RelevantLinesStart
			comment["start_side"] = "RIGHT"
		}
		comments = append(comments, comment)
	}

	path := fmt.Sprintf("repos/%s/pulls/%d/reviews", p.repoFull, p.parsed.Number)
	body := map[string]any{
		"commit_id": headSHA,
		"event":     "COMMENT",
		"comments":  comments,
	}

	if _, err := p.apiPost(ctx, path, body); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) PublishLabels(ctx context.Context, labels []string) error {
	path := fmt.Sprintf("repos/%s/issues/%d/labels", p.repoFull, p.parsed.Number)
	_, err := p.apiPost(ctx, path, map[string]any{"labels": labels})
	return err
}

func (p *Provider) GetPRLabels(ctx context.Context) ([]string, error) {
	path := fmt.Sprintf("repos/%s/issues/%d/labels", p.repoFull, p.parsed.Number)
	data, err := p.apiGet(ctx, path)
	if err != nil {
		return nil, err
	}
	var labels []string
	for _, l := range gjson.ParseBytes(data).Array() {
		labels = append(labels, l.Get("name").String())
	}
	return labels, nil
}

func (p *Provider) AddEyesReaction(ctx context.Context, commentID uint64, disableEyes bool) (*uint64, error) {
	if disableEyes {
		return nil, nil
	}
	path := fmt.Sprintf("repos/%s/issues/comments/%d/reactions", p.repoFull, commentID)
	data, err := p.apiPost(ctx, path, map[string]any{"content": "eyes"})
	if err != nil {
		return nil, err
	}
	id := gjson.ParseBytes(data).Get("id")
	if !id.Exists() {
		return nil, nil
	}
	reactionID := uint64(id.Int())
	return &reactionID, nil
}

func (p *Provider) RemoveReaction(ctx context.Context, commentID, reactionID uint64) error {
	path := fmt.Sprintf("repos/%s/issues/comments/%d/reactions/%d", p.repoFull, commentID, reactionID)
	return p.apiDelete(ctx, path)
}

func (p *Provider) GetCommitMessages(ctx context.Context) (string, error) {
	path := fmt.Sprintf("repos/%s/pulls/%d/commits?per_page=100", p.repoFull, p.parsed.Number)
	items, err := p.apiGetAllPages(ctx, path)
	if err != nil {
		return "", err
	}
	messages := make([]string, 0, len(items))
	for i, c := range items {
		msg := c.Get("commit.message").String()
		if msg == "" {
			continue
		}
		messages = append(messages, fmt.Sprintf("%d. %s", i+1, msg))
	}
	return strings.Join(messages, "\n"), nil
}

func (p *Provider) GetRepoSettings(ctx context.Context) (*string, error) {
	content, err := p.getFileContent(ctx, ".pr_agent.toml", "HEAD")
	if err != nil || content == "" {
		return nil, nil
	}
	return &content, nil
}

func (p *Provider) GetGlobalSettings(ctx context.Context) (*string, error) {
	globalRepo := p.parsed.Owner + "/pr-agent-settings"
	log.Printf("checking for org-level global settings in %s", globalRepo)
	content, err := p.getFileContentFromRepo(ctx, globalRepo, ".pr_agent.toml", "HEAD")
	if err != nil {
		log.Printf("no org-level pr-agent-settings repo found, continuing without global config: %v", err)
		return nil, nil
	}
	if content == "" {
		return nil, nil
	}
	log.Printf("loaded global org-level .pr_agent.toml from %s", globalRepo)
	return &content, nil
}

func (p *Provider) GetIssueComments(ctx context.Context) ([]platform.IssueComment, error) {
	path := fmt.Sprintf("repos/%s/issues/%d/comments?per_page=100", p.repoFull, p.parsed.Number)
	items, err := p.apiGetAllPages(ctx, path)
	if err != nil {
		return nil, err
	}
	comments := make([]platform.IssueComment, 0, len(items))
	for _, c := range items {
		idResult := c.Get("id")
		if !idResult.Exists() {
			continue
		}
		comments = append(comments, platform.IssueComment{
			ID:        uint64(idResult.Int()),
			Body:      c.Get("body").String(),
			User:      c.Get("user.login").String(),
			CreatedAt: c.Get("created_at").String(),
			URL:       c.Get("html_url").String(),
		})
	}
	return comments, nil
}

func (p *Provider) IsSupported(capability string) bool {
	switch capability {
	case "gfm_markdown", "labels", "reactions", "code_suggestions", "inline_comments":
		return true
	default:
		return false
	}
}

func (p *Provider) EditComment(ctx context.Context, commentID platform.CommentID, body string) error {
	path := fmt.Sprintf("repos/%s/issues/comments/%s", p.repoFull, string(commentID))
	_, err := p.apiPatch(ctx, path, map[string]any{"body": body})
	return err
}

func (p *Provider) GetLatestCommitURL(ctx context.Context) (string, error) {
	path := fmt.Sprintf("repos/%s/pulls/%d/commits?per_page=100", p.repoFull, p.parsed.Number)
	items, err := p.apiGetAllPages(ctx, path)
	if err != nil {
		return "", err
	}
	if len(items) == 0 {
		return "", nil
	}
	return items[len(items)-1].Get("html_url").String(), nil
}

func (p *Provider) GetBestPractices(ctx context.Context) (string, error) {
	settings := config.GetSettings(ctx)
	if settings.BestPractices.Content != "" {
		return "", nil
	}

	content, err := p.getFileContent(ctx, "best_practices.md", "HEAD")
	if err != nil || content == "" {
		return "", nil
	}

	lines := strings.Split(content, "\n")
	maxLines := settings.BestPractices.MaxLinesAllowed
	if maxLines > 0 && len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	truncated := strings.Join(lines, "\n")
	log.Printf("loaded best_practices.md from repo (%d lines, max %d)", len(lines), maxLines)
	return truncated, nil
}

func (p *Provider) GetRepoMetadata(ctx context.Context) (string, error) {
	settings := config.GetSettings(ctx)
	if !settings.Config.AddRepoMetadata {
		return "", nil
	}

	var combined strings.Builder
	for _, filename := range settings.Config.AddRepoMetadataFileList {
		content, err := p.getFileContent(ctx, filename, "HEAD")
		if err != nil || content == "" {
			log.Printf("repo metadata file %s not found, skipping", filename)
			continue
		}
		if combined.Len() > 0 {
			combined.WriteString("\n\n")
		}
		combined.WriteString(fmt.Sprintf("## From %s:\n%s", filename, content))
		log.Printf("loaded repo metadata file %s", filename)
	}
	return combined.String(), nil
}

func (p *Provider) AutoApprove(ctx context.Context) (bool, error) {
	path := fmt.Sprintf("repos/%s/pulls/%d/reviews", p.repoFull, p.parsed.Number)
	if _, err := p.apiPost(ctx, path, map[string]any{"event": "APPROVE"}); err != nil {
		log.Printf("failed to auto-approve PR: %v", err)
		return false, err
	}
	log.Printf("PR auto-approved")
	return true, nil
}

func (p *Provider) GetGitRepoURL() string {
	webBase := strings.Replace(p.baseURL, "api.github.com", "github.com", 1)
	webBase = strings.Replace(webBase, "/api/v3", "", 1)
	return fmt.Sprintf("%s/%s", strings.TrimRight(webBase, "/"), p.repoFull)
}

func (p *Provider) GetLineLink(file string, lineStart int32, lineEnd *int32) string {
	webBase := strings.Replace(p.baseURL, "api.github.com", "github.com", 1)
	webBase = strings.Replace(webBase, "/api/v3", "", 1)
	webBase = strings.TrimRight(webBase, "/")

	hash := hexSHA256(file)

	if lineStart == -1 {
		return fmt.Sprintf("%s/%s/pull/%d/files#diff-%s", webBase, p.repoFull, p.parsed.Number, hash)
	}

	base := fmt.Sprintf("%s/%s/pull/%d/files#diff-%sR%d", webBase, p.repoFull, p.parsed.Number, hash, lineStart)
	if lineEnd != nil && *lineEnd != lineStart {
		return fmt.Sprintf("%s-R%d", base, *lineEnd)
	}
	return base
}

func (p *Provider) GetNumOfFiles(ctx context.Context) (int, error) {
	return platform.DefaultNumOfFiles(ctx, p)
}

func (p *Provider) GetPRID() string {
	return strconv.FormatUint(p.parsed.Number, 10)
}

func (p *Provider) GetPRURL() string {
	return p.GetGitRepoURL() + "/pull/" + p.GetPRID()
}

// CreateOrUpdatePRFile implements platform.GitProvider's prepend-and-commit
// contract against the repo Contents API: GET for the existing file's sha
// and content on branch (a 404 means the file doesn't exist yet, not an
// error), then PUT the new content with that sha attached so the commit
// updates rather than conflicts.
func (p *Provider) CreateOrUpdatePRFile(ctx context.Context, filePath, branch string, contents []byte, message string) error {
	apiPath := fmt.Sprintf("repos/%s/contents/%s?ref=%s", p.repoFull, filePath, branch)
	existing, existingSHA, err := p.getFileContentAndSHA(ctx, apiPath)
	if err != nil {
		return err
	}

	newContent := string(contents) + existing
	body := map[string]any{
		"message": message,
		"content": base64.StdEncoding.EncodeToString([]byte(newContent)),
		"branch":  branch,
	}
	if existingSHA != "" {
		body["sha"] = existingSHA
	}

	putPath := fmt.Sprintf("repos/%s/contents/%s", p.repoFull, filePath)
	_, err = p.apiPut(ctx, putPath, body)
	return err
}

// ListRepoIssues lists up to maxIssues open issues (excluding pull
// requests, which GitHub's issues endpoint also returns), most recently
// updated first.
func (p *Provider) ListRepoIssues(ctx context.Context, maxIssues int) ([]platform.RepoIssue, error) {
	if maxIssues <= 0 {
		maxIssues = 500
	}
	perPage := maxIssues
	if perPage > 100 {
		perPage = 100
	}
	path := fmt.Sprintf("repos/%s/issues?state=open&sort=updated&direction=desc&per_page=%d", p.repoFull, perPage)
	data, err := p.apiGet(ctx, path)
	if err != nil {
		return nil, err
	}

	var issues []platform.RepoIssue
	for _, item := range gjson.ParseBytes(data).Array() {
		if item.Get("pull_request").Exists() {
			continue
		}
		issues = append(issues, platform.RepoIssue{
			Number: item.Get("number").Int(),
			Title:  item.Get("title").String(),
			Body:   item.Get("body").String(),
		})
		if len(issues) >= maxIssues {
			break
		}
	}
	return issues, nil
}

// getFileContentAndSHA is getFileContentFromRepo's sibling that also
// returns the blob sha needed to update (rather than create) a file, and
// treats a 404 as "file does not exist" rather than an error.
func (p *Provider) getFileContentAndSHA(ctx context.Context, apiPath string) (content, sha string, err error) {
	data, err := p.apiGet(ctx, apiPath)
	if err != nil {
		if isNotFoundError(err) {
			return "", "", nil
		}
		return "", "", err
	}

	result := gjson.ParseBytes(data)
	sha = result.Get("sha").String()
	if sha != "" && !gitutil.IsHexString(sha) {
		return "", "", prerrors.NewGitProvider("unexpected non-hex blob sha for %s", apiPath)
	}
	encoded := strings.ReplaceAll(result.Get("content").String(), "\n", "")
	if result.Get("encoding").String() != "base64" || encoded == "" {
		return "", sha, nil
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", sha, nil
	}
	return string(decoded), sha, nil
}
