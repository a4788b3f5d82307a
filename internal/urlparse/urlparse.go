// Package urlparse decomposes a pull-request/merge-request/issue URL from
// any of five hosting platform families into a provider-qualified owner,
// repo, and number, using pure string-path splitting rather than a regex
// per provider. Grounded on orig/git/url_parser.rs.
package urlparse

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/jlucaso1/pr-agent-go/internal/prerrors"
)

// Provider identifies which hosting platform family a URL belongs to.
type Provider string

const (
	ProviderGitHub          Provider = "github"
	ProviderGitLab          Provider = "gitlab"
	ProviderBitbucket       Provider = "bitbucket"
	ProviderBitbucketServer Provider = "bitbucket_server"
	ProviderAzureDevOps     Provider = "azure"
	ProviderGitea           Provider = "gitea"
)

// ParsedURL is the decomposed form of a PR/MR/issue URL.
type ParsedURL struct {
	Provider Provider
	Owner    string
	Repo     string
	Number   uint64
	IsIssue  bool
}

// Parse decomposes prURL, dispatching on the URL's host to the matching
// platform family, then falling back to the Gitea/generic layout for any
// unrecognized host.
func Parse(prURL string) (*ParsedURL, error) {
	u, err := url.Parse(prURL)
	if err != nil {
		return nil, prerrors.NewOther("invalid URL: %v", err)
	}
	host := u.Host
	if host == "" {
		return nil, prerrors.NewOther("URL has no host")
	}
	// Strip a port if present so "github.example.com:8443" still matches "github".
	hostOnly := host
	if idx := strings.IndexByte(hostOnly, ':'); idx >= 0 {
		hostOnly = hostOnly[:idx]
	}

	rawPath := u.Path
	cleanedPath := rawPath
	switch {
	case strings.HasPrefix(rawPath, "/api/v3"):
		cleanedPath = strings.TrimPrefix(rawPath, "/api/v3")
	case strings.HasPrefix(rawPath, "/api/v1"):
		cleanedPath = strings.TrimPrefix(rawPath, "/api/v1")
	}

	parts := splitPath(cleanedPath)

	switch {
	case strings.Contains(hostOnly, "github") || hostOnly == "api.github.com":
		return parseGitHub(parts, hostOnly, rawPath)
	case strings.Contains(hostOnly, "gitlab"):
		return parseGitLab(parts)
	case strings.Contains(hostOnly, "bitbucket.org"):
		return parseBitbucket(parts)
	case strings.Contains(hostOnly, "dev.azure.com") || strings.Contains(hostOnly, "visualstudio.com"):
		return parseAzureDevOps(parts)
	default:
		return parseGitea(parts)
	}
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	raw := strings.Split(trimmed, "/")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func validateNumber(n uint64, raw string) (uint64, error) {
	if n == 0 {
		return 0, prerrors.NewOther("invalid PR/MR number: %q (must be >= 1)", raw)
	}
	return n, nil
}

func parseUint(raw string) (uint64, error) {
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, prerrors.NewOther("cannot parse number: %q", raw)
	}
	return n, nil
}

func parseGitHub(parts []string, host, rawPath string) (*ParsedURL, error) {
	if host == "api.github.com" || strings.Contains(rawPath, "/api/v3") {
		if len(parts) < 5 {
			return nil, prerrors.NewOther("invalid GitHub API URL: too few path components")
		}
		owner, repo := parts[1], parts[2]
		isIssue := parts[3] == "issues"
		n, err := parseUint(parts[4])
		if err != nil {
			return nil, err
		}
		n, err = validateNumber(n, parts[4])
		if err != nil {
			return nil, err
		}
		return &ParsedURL{Provider: ProviderGitHub, Owner: owner, Repo: repo, Number: n, IsIssue: isIssue}, nil
	}

	if len(parts) < 4 {
		return nil, prerrors.NewOther("invalid GitHub URL: too few path components")
	}
	owner, repo := parts[0], parts[1]
	if parts[2] != "pull" && parts[2] != "issues" {
		return nil, prerrors.NewOther("expected 'pull' or 'issues' in GitHub URL, got %q", parts[2])
	}
	isIssue := parts[2] == "issues"
	n, err := parseUint(parts[3])
	if err != nil {
		return nil, err
	}
	n, err = validateNumber(n, parts[3])
	if err != nil {
		return nil, err
	}
	return &ParsedURL{Provider: ProviderGitHub, Owner: owner, Repo: repo, Number: n, IsIssue: isIssue}, nil
}

func parseGitLab(parts []string) (*ParsedURL, error) {
	mrIdx, issueIdx := -1, -1
	for i, p := range parts {
		if p == "merge_requests" && mrIdx == -1 {
			mrIdx = i
		}
		if p == "issues" && issueIdx == -1 {
			issueIdx = i
		}
	}

	var idx int
	var isIssue bool
	switch {
	case mrIdx != -1:
		idx, isIssue = mrIdx, false
	case issueIdx != -1:
		idx, isIssue = issueIdx, true
	default:
		return nil, prerrors.NewOther("invalid GitLab URL: missing 'merge_requests' or 'issues'")
	}

	if idx+1 >= len(parts) {
		return nil, prerrors.NewOther("invalid GitLab URL: no MR/issue ID after keyword")
	}
	n, err := parseUint(parts[idx+1])
	if err != nil {
		return nil, err
	}
	n, err = validateNumber(n, parts[idx+1])
	if err != nil {
		return nil, err
	}

	projectParts := append([]string(nil), parts[:idx]...)
	if len(projectParts) > 0 && projectParts[len(projectParts)-1] == "-" {
		projectParts = projectParts[:len(projectParts)-1]
	}
	if len(projectParts) == 0 {
		return nil, prerrors.NewOther("invalid GitLab URL: empty project path")
	}

	repo := projectParts[len(projectParts)-1]
	owner := strings.Join(projectParts[:len(projectParts)-1], "/")

	return &ParsedURL{Provider: ProviderGitLab, Owner: owner, Repo: repo, Number: n, IsIssue: isIssue}, nil
}

func parseBitbucket(parts []string) (*ParsedURL, error) {
	if len(parts) < 4 || parts[2] != "pull-requests" {
		return nil, prerrors.NewOther("invalid Bitbucket URL: expected /{workspace}/{repo}/pull-requests/{pr}")
	}
	n, err := parseUint(parts[3])
	if err != nil {
		return nil, err
	}
	n, err = validateNumber(n, parts[3])
	if err != nil {
		return nil, err
	}
	return &ParsedURL{Provider: ProviderBitbucket, Owner: parts[0], Repo: parts[1], Number: n}, nil
}

func parseAzureDevOps(parts []string) (*ParsedURL, error) {
	n := len(parts)
	if n < 5 {
		return nil, prerrors.NewOther("invalid Azure DevOps URL: too few path components")
	}
	if parts[n-2] != "pullrequest" {
		return nil, prerrors.NewOther("invalid Azure DevOps URL: expected 'pullrequest' keyword")
	}
	owner := parts[n-5]
	repo := parts[n-3]
	num, err := parseUint(parts[n-1])
	if err != nil {
		return nil, err
	}
	num, err = validateNumber(num, parts[n-1])
	if err != nil {
		return nil, err
	}
	return &ParsedURL{Provider: ProviderAzureDevOps, Owner: owner, Repo: repo, Number: num}, nil
}

func parseGitea(parts []string) (*ParsedURL, error) {
	if len(parts) < 4 {
		return nil, prerrors.NewOther("invalid URL: too few path components for any known provider")
	}
	if parts[2] != "pulls" && parts[2] != "issues" {
		return nil, prerrors.NewOther("unrecognized URL format: expected 'pulls' or 'issues', got %q", parts[2])
	}
	isIssue := parts[2] == "issues"
	n, err := parseUint(parts[3])
	if err != nil {
		return nil, err
	}
	n, err = validateNumber(n, parts[3])
	if err != nil {
		return nil, err
	}
	return &ParsedURL{Provider: ProviderGitea, Owner: parts[0], Repo: parts[1], Number: n, IsIssue: isIssue}, nil
}

// String renders "owner/repo#number".
func (p *ParsedURL) String() string {
	return fmt.Sprintf("%s/%s#%d", p.Owner, p.Repo, p.Number)
}
