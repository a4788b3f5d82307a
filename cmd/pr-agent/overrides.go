package main

import (
	"fmt"
	"strings"

	"github.com/jlucaso1/pr-agent-go/internal/config"
)

// parseConfigOverrides turns the trailing "--section.key=value" /
// "--section__key=value" arguments (placed after a "--" separator on the
// command line) into a dotted-key override map. A forbidden key is rejected
// immediately rather than silently dropped, so a typo'd secret override
// fails loudly instead of quietly doing nothing. Grounded on
// orig/cli.rs's parse_config_overrides.
func parseConfigOverrides(rest []string) (map[string]string, error) {
	overrides := make(map[string]string, len(rest))

	for _, arg := range rest {
		stripped := strings.TrimLeft(arg, "-")
		if stripped == "" {
			continue
		}
		stripped = strings.ReplaceAll(stripped, "__", ".")

		key, value, ok := strings.Cut(stripped, "=")
		if !ok {
			// Non-config args (no "=") carry no override here; buildOverrides
			// collects these separately as free-form question text for the
			// ask/ask_question/help_docs commands.
			continue
		}

		norm := strings.ToLower(strings.TrimSpace(key))
		if config.IsForbiddenOverrideKey(norm) {
			return nil, fmt.Errorf("forbidden CLI override: %q", norm)
		}
		overrides[norm] = value
	}

	return overrides, nil
}
