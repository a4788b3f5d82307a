// Package github implements internal/platform.GitProvider against the
// GitHub REST API over plain net/http, grounded on orig/git/github.rs. It
// is the only reference implementation of GitProvider in this repository
// (other hosting families are listed as Non-goals by spec.md).
package github

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/gjson"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/internal/platform"
	"github.com/jlucaso1/pr-agent-go/internal/prerrors"
	"github.com/jlucaso1/pr-agent-go/internal/urlparse"
	"github.com/jlucaso1/pr-agent-go/pkg/gitutil"
	"github.com/jlucaso1/pr-agent-go/pkg/httputil"
	"github.com/jlucaso1/pr-agent-go/pkg/logger"
	"github.com/jlucaso1/pr-agent-go/pkg/ratelimit"
	"github.com/jlucaso1/pr-agent-go/pkg/repoutil"
	"github.com/jlucaso1/pr-agent-go/pkg/stringutil"
)

// maxCommentChars is GitHub's ~65536-character comment body limit, with
// headroom for the wrapping JSON payload.
const maxCommentChars = 65000

var log = logger.New("platform:github")

// Provider implements platform.GitProvider for github.com and GitHub
// Enterprise, using either a static user token or a GitHub App
// installation token.
type Provider struct {
	platform.BaseProvider

	client   *httputil.Client
	baseURL  string
	token    string
	parsed   *urlparse.ParsedURL
	repoFull string
}

// New builds a Provider from a PR/issue URL, resolving the auth token
// according to settings.github.deployment_type ("user" or "app").
func New(ctx context.Context, prURL string) (*Provider, error) {
	parsed, err := urlparse.Parse(prURL)
	if err != nil {
		return nil, err
	}

	settings := config.GetSettings(ctx)
	timeout := time.Duration(settings.Config.AiTimeout) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := httputil.NewClient(&httputil.ClientOptions{
		Timeout:   timeout,
		UserAgent: "pr-agent-go",
	})

	repoFull := parsed.Owner + "/" + parsed.Repo
	if _, _, err := repoutil.SplitRepoSlug(repoFull); err != nil {
		return nil, prerrors.NewOther("resolved repo slug %q from %q: %v", repoFull, prURL, err)
	}

	var token string
	if settings.Github.DeploymentType == "app" {
		token, err = getAppInstallationToken(ctx, client, settings.Github.BaseURL, settings.Github.AppID, settings.Github.PrivateKey, parsed.Owner)
		if err != nil {
			return nil, err
		}
	} else {
		token = settings.Github.UserToken
	}

	return &Provider{
		client:   client,
		baseURL:  settings.Github.BaseURL,
		token:    token,
		parsed:   parsed,
		repoFull: repoFull,
	}, nil
}

// apiRequest sends an authenticated request to a path relative to baseURL,
// retrying on 429 with exponential backoff honoring Retry-After.
func (p *Provider) apiRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	url := strings.TrimRight(p.baseURL, "/") + "/" + path
	return p.apiRequestURL(ctx, method, url, body)
}

func (p *Provider) apiRequestURL(ctx context.Context, method, url string, body interface{}) (*http.Response, error) {
	settings := config.GetSettings(ctx)
	maxRetries := settings.Github.RatelimitRetries

	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return nil, prerrors.NewOther("marshaling request body: %v", err)
		}
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if err := ratelimit.Wait(ctx, ratelimit.OperationGitHubAPI); err != nil {
			return nil, prerrors.NewHTTP(err)
		}

		var reader io.Reader
		if bodyBytes != nil {
			reader = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, prerrors.NewHTTP(err)
		}
		req.Header.Set("Authorization", "Bearer "+p.token)
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("User-Agent", "pr-agent-go")
		if bodyBytes != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, prerrors.NewHTTP(err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter := parseRetryAfterHeader(resp.Header.Get("retry-after"), uint64(1)<<uint(attempt+1))
			resp.Body.Close()

			if attempt < maxRetries {
				log.Printf("GitHub API rate limited (attempt %d/%d), retrying in %ds: %s", attempt+1, maxRetries, retryAfter, url)
				select {
				case <-ctx.Done():
					return nil, prerrors.NewHTTP(ctx.Err())
				case <-time.After(time.Duration(retryAfter) * time.Second):
				}
				continue
			}
			return nil, prerrors.NewRateLimited(retryAfter)
		}

		return resp, nil
	}

	return nil, prerrors.NewGitProvider("GitHub API rate limit retries exhausted")
}

func parseRetryAfterHeader(v string, fallback uint64) uint64 {
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func checkResponse(resp *http.Response, method string) ([]byte, error) {
	defer resp.Body.Close()
	data, err := httputil.ReadResponseBody(resp)
	if err != nil {
		return nil, prerrors.NewHTTP(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := stringutil.SanitizeErrorMessage(string(data))
		if gitutil.IsAuthError(body) {
			return nil, prerrors.NewGitProvider("GitHub API %s %d: %s (check github.user_token/github.app_id credentials)", method, resp.StatusCode, body)
		}
		return nil, prerrors.NewGitProvider("GitHub API %s %d: %s", method, resp.StatusCode, body)
	}
	return data, nil
}

func (p *Provider) apiGet(ctx context.Context, path string) ([]byte, error) {
	resp, err := p.apiRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return checkResponse(resp, "GET")
}

// apiGetAllPages follows the Link: rel="next" header across a paginated
// JSON-array endpoint, concatenating every page's elements.
func (p *Provider) apiGetAllPages(ctx context.Context, path string) ([]gjson.Result, error) {
	var all []gjson.Result

	resp, err := p.apiRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	nextURL := parseNextLink(resp.Header)
	data, err := checkResponse(resp, "GET")
	if err != nil {
		return nil, err
	}
	all = append(all, gjson.ParseBytes(data).Array()...)

	for nextURL != "" {
		resp, err := p.apiRequestURL(ctx, http.MethodGet, nextURL, nil)
		if err != nil {
			return nil, err
		}
		nextURL = parseNextLink(resp.Header)
		data, err := checkResponse(resp, "GET")
		if err != nil {
			return nil, err
		}
		all = append(all, gjson.ParseBytes(data).Array()...)
	}

	return all, nil
}

func (p *Provider) apiPost(ctx context.Context, path string, body interface{}) ([]byte, error) {
	resp, err := p.apiRequest(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	return checkResponse(resp, "POST")
}

func (p *Provider) apiPatch(ctx context.Context, path string, body interface{}) ([]byte, error) {
	resp, err := p.apiRequest(ctx, http.MethodPatch, path, body)
	if err != nil {
		return nil, err
	}
	return checkResponse(resp, "PATCH")
}

func (p *Provider) apiDelete(ctx context.Context, path string) error {
	resp, err := p.apiRequest(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}
	_, err = checkResponse(resp, "DELETE")
	return err
}

func (p *Provider) apiPut(ctx context.Context, path string, body interface{}) ([]byte, error) {
	resp, err := p.apiRequest(ctx, http.MethodPut, path, body)
	if err != nil {
		return nil, err
	}
	return checkResponse(resp, "PUT")
}

// isNotFoundError reports whether err is the GitProviderError checkResponse
// builds for a 404 response, so a missing file can be treated as "empty"
// rather than a hard failure.
func isNotFoundError(err error) bool {
	var gpErr *prerrors.GitProviderError
	if !errors.As(err, &gpErr) {
		return false
	}
	return strings.Contains(gpErr.Msg, " 404:")
}

func (p *Provider) getFileContent(ctx context.Context, path, gitRef string) (string, error) {
	return p.getFileContentFromRepo(ctx, p.repoFull, path, gitRef)
}

func (p *Provider) getFileContentFromRepo(ctx context.Context, repoFull, path, gitRef string) (string, error) {
	apiPath := fmt.Sprintf("repos/%s/contents/%s?ref=%s", repoFull, path, gitRef)
	data, err := p.apiGet(ctx, apiPath)
	if err != nil {
		return "", err
	}

	result := gjson.ParseBytes(data)
	content := strings.ReplaceAll(result.Get("content").String(), "\n", "")
	encoding := result.Get("encoding").String()

	if encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return "", nil
		}
		return string(decoded), nil
	}
	return content, nil
}

// githubAppClaims are the JWT claims for GitHub App authentication.
type githubAppClaims struct {
	jwt.RegisteredClaims
}

// getAppInstallationToken exchanges a GitHub App's RSA private key for an
// installation access token: sign a short-lived RS256 JWT, list the app's
// installations to find the one matching owner, then mint an installation
// token for it.
func getAppInstallationToken(ctx context.Context, client *httputil.Client, baseURL string, appID uint64, privateKeyPEM, owner string) (string, error) {
	if appID == 0 || privateKeyPEM == "" {
		return "", prerrors.NewOther("GitHub App auth requires app_id and private_key")
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(privateKeyPEM))
	if err != nil {
		return "", prerrors.NewOther("invalid GitHub App private key: failed to parse RSA PEM")
	}

	now := time.Now()
	claims := githubAppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now.Add(-60 * time.Second)),
			ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
			Issuer:    strconv.FormatUint(appID, 10),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signedJWT, err := token.SignedString(key)
	if err != nil {
		return "", prerrors.NewOther("failed to encode JWT: %v", err)
	}

	apiBase := strings.TrimRight(baseURL, "/")

	installationsResp, err := appAuthenticatedRequest(ctx, client, http.MethodGet, apiBase+"/app/installations", signedJWT, nil)
	if err != nil {
		return "", err
	}
	installationsData, err := checkResponse(installationsResp, "GET")
	if err != nil {
		return "", prerrors.NewGitProvider("failed to list GitHub App installations: %v", err)
	}

	ownerLower := strings.ToLower(owner)
	var installationID int64
	for _, inst := range gjson.ParseBytes(installationsData).Array() {
		if strings.ToLower(inst.Get("account.login").String()) == ownerLower {
			installationID = inst.Get("id").Int()
			break
		}
	}
	if installationID == 0 {
		return "", prerrors.NewGitProvider("no GitHub App installation found for owner %q", owner)
	}
	log.Printf("found GitHub App installation %d for owner %s", installationID, owner)

	tokenURL := fmt.Sprintf("%s/app/installations/%d/access_tokens", apiBase, installationID)
	tokenResp, err := appAuthenticatedRequest(ctx, client, http.MethodPost, tokenURL, signedJWT, nil)
	if err != nil {
		return "", err
	}
	tokenData, err := checkResponse(tokenResp, "POST")
	if err != nil {
		return "", prerrors.NewGitProvider("failed to create installation token: %v", err)
	}

	installationToken := gjson.ParseBytes(tokenData).Get("token").String()
	if installationToken == "" {
		return "", prerrors.NewGitProvider("no token in installation response")
	}
	log.Printf("GitHub App installation token obtained successfully")
	return installationToken, nil
}

func appAuthenticatedRequest(ctx context.Context, client *httputil.Client, method, url, jwtToken string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, prerrors.NewOther("marshaling request body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, prerrors.NewHTTP(err)
	}
	req.Header.Set("Authorization", "Bearer "+jwtToken)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "pr-agent-go")
	resp, err := client.Do(req)
	if err != nil {
		return nil, prerrors.NewHTTP(err)
	}
	return resp, nil
}

// parseNextLink extracts the rel="next" URL from a GitHub Link header.
func parseNextLink(header http.Header) string {
	link := header.Get("link")
	if link == "" {
		return ""
	}
	for _, part := range strings.Split(link, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.IndexByte(part, '<')
		end := strings.IndexByte(part, '>')
		if start < 0 || end < 0 || end <= start {
			continue
		}
		return part[start+1 : end]
	}
	return ""
}

// hexSHA256 returns the hex-encoded SHA-256 digest of s, used to build a
// stable per-file anchor for GitHub's files-diff view URLs.
func hexSHA256(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// countPatchLines counts added (+) and removed (-) lines in a unified diff
// patch, ignoring the "+++"/"---" file-header lines.
func countPatchLines(patch string) (plus, minus int32) {
	for _, line := range strings.Split(patch, "\n") {
		switch {
		case strings.HasPrefix(line, "+") && !strings.HasPrefix(line, "+++"):
			plus++
		case strings.HasPrefix(line, "-") && !strings.HasPrefix(line, "---"):
			minus++
		}
	}
	return plus, minus
}
