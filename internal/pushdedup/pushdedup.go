// Package pushdedup deduplicates concurrent push-event triggers for the
// same PR API URL, mirroring the behavior of Python's DefaultDictWithTimeout
// combined with an asyncio.Condition: the first push trigger for a URL
// proceeds immediately, a second one waits for the first to finish (when
// backlog is enabled), and any further trigger is discarded outright.
// Grounded on orig/server/push_dedup.rs.
package pushdedup

import (
	"context"
	"sync"
	"time"

	"github.com/jlucaso1/pr-agent-go/internal/config"
	"github.com/jlucaso1/pr-agent-go/pkg/logger"
)

var log = logger.New("server:pushdedup")

// entry is the per-URL bookkeeping record.
type entry struct {
	activeCount uint32
	notify      chan struct{}
	lastAccess  time.Time
}

// Deduplicator tracks in-flight push-triggered tasks per PR API URL.
type Deduplicator struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// New builds an empty Deduplicator. Most callers should use the package-level
// Default instance via AcquirePushSlot instead of constructing their own.
func New() *Deduplicator {
	return &Deduplicator{entries: make(map[string]*entry)}
}

// Default is the process-wide deduplicator instance, analogous to orig's
// PUSH_DEDUP LazyLock<Arc<PushDeduplicator>>.
var Default = New()

// PushGuard is held for the duration of processing a push-triggered task.
// Release must be called exactly once (typically via defer) to decrement
// the active count and notify any waiting task.
type PushGuard struct {
	apiURL string
	dedup  *Deduplicator
	once   sync.Once
}

// Release decrements the slot's active count and wakes one waiter, if any.
func (g *PushGuard) Release() {
	g.once.Do(func() {
		g.dedup.release(g.apiURL)
	})
}

// tryAcquire attempts to reserve a slot for apiURL. The returned guard is
// non-nil unless the task is rejected; waitChan is non-nil only when the
// caller must wait on it before proceeding (the "second task" case).
func (d *Deduplicator) tryAcquire(apiURL string, maxTasks uint32, ttlSecs int) (guard *PushGuard, waitChan <-chan struct{}, rejected bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if ttlSecs >= 0 {
		for url, e := range d.entries {
			if now.Sub(e.lastAccess) >= time.Duration(ttlSecs)*time.Second {
				delete(d.entries, url)
			}
		}
	}

	e, ok := d.entries[apiURL]
	if !ok {
		e = &entry{notify: make(chan struct{}, 1)}
		d.entries[apiURL] = e
	}
	e.lastAccess = now

	if e.activeCount >= maxTasks {
		return nil, nil, true
	}

	current := e.activeCount
	e.activeCount++
	g := &PushGuard{apiURL: apiURL, dedup: d}

	if current == 0 {
		return g, nil, false
	}
	return g, e.notify, false
}

// release decrements apiURL's active count and wakes one waiter.
func (d *Deduplicator) release(apiURL string) {
	d.mu.Lock()
	e, ok := d.entries[apiURL]
	if !ok {
		d.mu.Unlock()
		return
	}
	if e.activeCount > 0 {
		e.activeCount--
	}
	notify := e.notify
	d.mu.Unlock()

	select {
	case notify <- struct{}{}:
	default:
	}
}

// sweep removes every entry whose lastAccess is older than ttlSecs,
// independent of any tryAcquire call. Used by the periodic cron sweep so
// idle URLs don't linger in memory between pushes.
func (d *Deduplicator) sweep(ttlSecs int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	for url, e := range d.entries {
		if now.Sub(e.lastAccess) >= time.Duration(ttlSecs)*time.Second {
			delete(d.entries, url)
		}
	}
}

// AcquirePushSlot tries to acquire a dedup slot for apiURL using the
// ambient settings' push_trigger_pending_tasks_backlog/_ttl. It returns a
// nil guard (and nil error) if the task should be discarded; otherwise the
// caller must `defer guard.Release()` once processing completes.
//
// If a wait is required and ctx is canceled before the first task releases,
// AcquirePushSlot returns ctx.Err() and the guard is released on the
// caller's behalf.
func AcquirePushSlot(ctx context.Context, apiURL string) (*PushGuard, error) {
	settings := config.GetSettings(ctx)

	maxTasks := uint32(1)
	if settings.GithubApp.PushTriggerPendingTasksBacklog {
		maxTasks = 2
	}
	ttlSecs := settings.GithubApp.PushTriggerPendingTasksTTL

	guard, waitChan, rejected := Default.tryAcquire(apiURL, maxTasks, ttlSecs)
	if rejected {
		log.Printf("push dedup: rejected (too many active tasks) for %s", apiURL)
		return nil, nil
	}

	if waitChan == nil {
		log.Printf("push dedup: proceeding (first task) for %s", apiURL)
		return guard, nil
	}

	log.Printf("push dedup: waiting for first task to complete for %s", apiURL)
	select {
	case <-waitChan:
		log.Printf("push dedup: wait finished, proceeding for %s", apiURL)
		return guard, nil
	case <-ctx.Done():
		guard.Release()
		return nil, ctx.Err()
	}
}
