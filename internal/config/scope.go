package config

import (
	"context"
	"sync/atomic"
)

// ambient holds the process-wide Settings snapshot produced at startup by
// cmd/pr-agent. It is read far more often than it is written (once per
// config file reload), so an atomic.Pointer gives lock-free reads without
// the contention a sync.RWMutex would add on the hot request path.
//
// This reinterprets orig/config/loader.rs's tokio::sync::RwLock<Settings>
// with its "poisoned lock" recovery path: Go mutexes cannot be poisoned (a
// panicking goroutine releases the lock cleanly), so there is nothing to
// recover from on the happy path. The one place a panic can still surface
// is a corrupt embedded-defaults fallback build, which recoverDefaultSettings
// guards below.
var ambient atomic.Pointer[Settings]

// Init installs s as the process-wide ambient Settings snapshot, replacing
// any value installed by a previous call (e.g. on SIGHUP config reload).
func Init(s *Settings) {
	ambient.Store(s)
}

// Current returns the process-wide ambient Settings, falling back to the
// embedded defaults (recovered from a panic, if the embedded TOML were ever
// corrupted) when Init has not yet been called — e.g. in a unit test that
// exercises a package depending on config without going through cmd/pr-agent.
func Current() *Settings {
	if s := ambient.Load(); s != nil {
		return s
	}
	return recoverDefaultSettings()
}

func recoverDefaultSettings() (s *Settings) {
	defer func() {
		if r := recover(); r != nil {
			s = &Settings{Prompts: map[string]PromptTemplate{}}
		}
	}()
	ds, err := DefaultSettings()
	if err != nil {
		panic(err)
	}
	return ds
}

type settingsCtxKey struct{}

// WithSettings overlays a scoped Settings snapshot onto ctx for the dynamic
// extent of one webhook dispatch, so two concurrent requests against
// different repositories (each with its own merged repo-level TOML) never
// observe each other's settings. Reinterprets orig/config's
// tokio::task_local! scoping using Go's request-scoped context.Context.
func WithSettings(ctx context.Context, s *Settings) context.Context {
	return context.WithValue(ctx, settingsCtxKey{}, s)
}

// GetSettings returns the Settings scoped to ctx if WithSettings was called
// on it (or an ancestor context), otherwise the process-wide ambient
// Settings from Current.
func GetSettings(ctx context.Context) *Settings {
	if s, ok := ctx.Value(settingsCtxKey{}).(*Settings); ok && s != nil {
		return s
	}
	return Current()
}
