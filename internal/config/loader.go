package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/cli/go-gh/v2/pkg/auth"

	"github.com/jlucaso1/pr-agent-go/internal/prerrors"
)

// envAlias maps a well-known environment variable to the dotted settings key
// it seeds, checked before the generic SECTION__KEY convention below.
// Grounded on orig/config/loader.rs's ENV_ALIASES table.
var envAlias = []struct {
	Env string
	Key string
}{
	{"OPENAI_API_KEY", "openai.key"},
	{"OPENAI_KEY", "openai.key"},
	{"OPENAI_ORG", "openai.org"},
	{"ANTHROPIC_API_KEY", "anthropic.key"},
	{"GITHUB_TOKEN", "github.user_token"},
	{"GITHUB_USER_TOKEN", "github.user_token"},
	{"GITHUB_APP_ID", "github.app_id"},
	{"GITHUB_PRIVATE_KEY", "github.private_key"},
	{"GITHUB_WEBHOOK_SECRET", "github.webhook_secret"},
}

// LoadOptions carries the raw, not-yet-merged content of every settings
// layer above the embedded defaults. Any layer left empty is skipped.
type LoadOptions struct {
	// SecretsTOML is the local, gitignored secrets file (layer 2).
	SecretsTOML string
	// OrgTOML is the organization-wide `{owner}/pr-agent-settings` repo
	// convention's `.pr_agent.toml` content (layer 3).
	OrgTOML string
	// RepoTOML is the target repository's own `.pr_agent.toml` (layer 4).
	RepoTOML string
	// CLIOverrides are `--section.key=value` / `--section__key=value`
	// overrides collected from the CLI flags or a PR comment command
	// (layer 5). Keys are the raw, not-yet-normalized left-hand side.
	CLIOverrides map[string]string
	// Environ is the process environment, as returned by os.Environ; tests
	// pass a fixed slice instead of the real environment (layer 6).
	Environ []string
}

// LoadSettings performs the full six-layer merge described in SPEC_FULL.md
// §3 config-resolution: embedded defaults, secrets, org, repo, CLI overrides,
// environment — each layer decoded to a generic map and deep-merged in
// priority order, then the merged map is re-encoded to TOML text and decoded
// once into a typed Settings. Grounded on orig/config/loader.rs's
// ConfigLoader::load.
func LoadSettings(opts LoadOptions) (*Settings, error) {
	merged, err := decodeTOMLMap(defaultTOML)
	if err != nil {
		return nil, prerrors.NewToml(err)
	}

	for _, layer := range []string{opts.SecretsTOML, opts.OrgTOML, opts.RepoTOML} {
		if strings.TrimSpace(layer) == "" {
			continue
		}
		layerMap, err := decodeTOMLMap(layer)
		if err != nil {
			return nil, prerrors.NewToml(err)
		}
		deepMergeMaps(merged, layerMap)
	}

	for key, raw := range opts.CLIOverrides {
		norm := normalizeOverrideKey(key)
		if IsForbiddenOverrideKey(norm) {
			return nil, prerrors.NewConfig(fmt.Sprintf("override of %q is forbidden", norm), nil)
		}
		value, err := coerceTOMLValue(raw)
		if err != nil {
			return nil, prerrors.NewConfig(fmt.Sprintf("invalid value for override %q", norm), err)
		}
		setDottedKey(merged, norm, value)
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	applyEnvironment(merged, environ)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(merged); err != nil {
		return nil, prerrors.NewToml(err)
	}

	var settings Settings
	if _, err := toml.Decode(buf.String(), &settings); err != nil {
		return nil, prerrors.NewToml(err)
	}

	prompts, err := loadEmbeddedPrompts()
	if err != nil {
		return nil, prerrors.NewIO(err)
	}
	settings.Prompts = prompts

	fallbackLocalGitHubToken(&settings)

	return &settings, nil
}

// fallbackLocalGitHubToken fills in github.user_token from whatever the
// operator's local `gh` CLI has stored (env var or on-disk host config),
// when no token was configured through any of the six settings layers. Only
// applies to "user" deployment mode — app-mode auth goes through the GitHub
// App private key instead. Grounded on orig/git/github_cli.rs's token
// resolution idea, using cli/go-gh/v2's auth package instead of shelling out
// to `gh` itself.
func fallbackLocalGitHubToken(settings *Settings) {
	if settings.Github.UserToken != "" || settings.Github.DeploymentType != "user" {
		return
	}
	if token, _ := auth.TokenForHost("github.com"); token != "" {
		settings.Github.UserToken = token
	}
}

// decodeTOMLMap decodes a TOML document into a generic, arbitrarily nested
// map, the intermediate representation every layer is merged through before
// the final typed decode. This sidesteps needing a separate mapstructure
// dependency: BurntSushi/toml already knows how to decode into map[string]any.
func decodeTOMLMap(doc string) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	if _, err := toml.Decode(doc, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// deepMergeMaps merges src into dst in place: scalar and array values in src
// overwrite dst; nested tables recurse; a table in src overwriting a scalar
// in dst (or vice versa) takes src's shape, matching TOML table-merge
// semantics in orig/config/loader.rs.
func deepMergeMaps(dst, src map[string]interface{}) {
	for k, v := range src {
		if srcTable, ok := v.(map[string]interface{}); ok {
			if dstTable, ok := dst[k].(map[string]interface{}); ok {
				deepMergeMaps(dstTable, srcTable)
				continue
			}
		}
		dst[k] = v
	}
}

// normalizeOverrideKey accepts either `section.key` or `section__key` (the
// shell/double-dash-flag-friendly variant used by `--section__key=value`)
// and returns the canonical dotted form, lowercased.
func normalizeOverrideKey(key string) string {
	key = strings.TrimLeft(key, "-")
	key = strings.ReplaceAll(key, "__", ".")
	return strings.ToLower(strings.TrimSpace(key))
}

// setDottedKey writes value at the dotted path in m, creating intermediate
// tables as needed (e.g. "pr_reviewer.num_max_findings" -> m["pr_reviewer"]["num_max_findings"]).
func setDottedKey(m map[string]interface{}, dotted string, value interface{}) {
	parts := strings.Split(dotted, ".")
	cur := m
	for i, part := range parts {
		if i == len(parts)-1 {
			cur[part] = value
			return
		}
		next, ok := cur[part].(map[string]interface{})
		if !ok {
			next = make(map[string]interface{})
			cur[part] = next
		}
		cur = next
	}
}

// applyEnvironment seeds well-known aliases first, then scans for any
// remaining SECTION__KEY-shaped environment variable and maps it onto the
// matching top-level table if one already exists in m (so an unrelated
// environment variable never fabricates a bogus settings section).
func applyEnvironment(m map[string]interface{}, environ []string) {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			env[kv[:idx]] = kv[idx+1:]
		}
	}

	for _, alias := range envAlias {
		if v, ok := env[alias.Env]; ok && v != "" {
			if coerced, err := coerceTOMLValue(v); err == nil {
				setDottedKey(m, alias.Key, coerced)
			}
		}
	}

	for name, v := range env {
		if v == "" || !strings.Contains(name, "__") {
			continue
		}
		dotted := strings.ToLower(strings.ReplaceAll(name, "__", "."))
		section := strings.SplitN(dotted, ".", 2)[0]
		if _, ok := m[section].(map[string]interface{}); !ok {
			continue
		}
		if coerced, err := coerceTOMLValue(v); err == nil {
			setDottedKey(m, dotted, coerced)
		}
	}
}

// coerceTOMLValue parses a raw CLI/env override string the way a TOML
// scalar, array, or inline table would parse, so `--ignore.glob=['x']` and
// `--ignore.glob=["x"]` and the shell-escaped `--ignore.glob=[\'x\']`
// variant all produce the same []interface{}{"x"}. It first normalizes
// escaped-quote variants, tries to decode the raw text as a TOML value
// directly, and falls back to treating it as a plain string if that fails.
func coerceTOMLValue(raw string) (interface{}, error) {
	normalized := strings.NewReplacer(`\'`, `'`, `\"`, `"`).Replace(raw)

	var holder struct {
		V interface{} `toml:"v"`
	}
	if _, err := toml.Decode("v = "+normalized, &holder); err == nil {
		return holder.V, nil
	}

	var strHolder struct {
		V interface{} `toml:"v"`
	}
	quoted := "v = " + quoteTOMLString(raw)
	if _, err := toml.Decode(quoted, &strHolder); err != nil {
		return nil, err
	}
	return strHolder.V, nil
}

func quoteTOMLString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
