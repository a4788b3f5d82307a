package main

import "os"

// localSecretsCandidates are the filesystem paths checked for a gitignored
// secrets overlay, in precedence order (first one found wins). Mirrors
// orig/config/loader.rs's two Toml::file() merge calls for ".secrets.toml"
// and "settings/.secrets.toml".
var localSecretsCandidates = []string{".secrets.toml", "settings/.secrets.toml"}

// readLocalSecretsTOML returns the content of the first local secrets file
// found on disk, or "" if neither exists. A missing file is not an error —
// most invocations (CI, webhook server) rely on environment variables
// instead.
func readLocalSecretsTOML() string {
	for _, path := range localSecretsCandidates {
		if data, err := os.ReadFile(path); err == nil {
			return string(data)
		}
	}
	return ""
}
