package server

import (
	"regexp"
	"strings"

	"github.com/jlucaso1/pr-agent-go/internal/config"
)

// shouldIgnorePR reports whether a PR event should be skipped entirely,
// before any command is dispatched: its author is in the ignore list, or
// its title matches one of the ignore-title regexes. An invalid regex in
// the configured list is skipped rather than treated as a match, so one bad
// pattern in settings never blocks every PR. Grounded on
// orig/server/webhook.rs's should_ignore_pr.
func shouldIgnorePR(title, author string, settings *config.Settings) bool {
	for _, ignoredAuthor := range settings.GithubApp.IgnorePrAuthors {
		if strings.EqualFold(strings.TrimSpace(ignoredAuthor), author) {
			return true
		}
	}

	for _, pattern := range settings.GithubApp.IgnorePrTitleRegex {
		if pattern == "" {
			continue
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		if re.MatchString(title) {
			return true
		}
	}

	return false
}
