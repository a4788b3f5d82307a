package pushdedup

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/jlucaso1/pr-agent-go/internal/config"
)

// Sweeper periodically clears stale push-dedup entries out of a
// Deduplicator on a cron schedule, supplementing the opportunistic sweep
// that tryAcquire already performs on every call. Without push traffic for
// a URL, tryAcquire never runs again for it, so its entry would otherwise
// linger in memory until the next push for that exact URL.
type Sweeper struct {
	cron *cron.Cron
	d    *Deduplicator
}

// NewSweeper builds a Sweeper over d that runs on schedule (standard
// 5-field cron syntax, e.g. "*/5 * * * *" for every 5 minutes).
func NewSweeper(ctx context.Context, d *Deduplicator, schedule string) (*Sweeper, error) {
	c := cron.New()
	ttlSecs := config.GetSettings(ctx).GithubApp.PushTriggerPendingTasksTTL
	if _, err := c.AddFunc(schedule, func() { d.sweep(ttlSecs) }); err != nil {
		return nil, err
	}
	return &Sweeper{cron: c, d: d}, nil
}

// Start begins running the sweeper's cron schedule in the background.
func (s *Sweeper) Start() { s.cron.Start() }

// Stop halts the schedule, waiting for any in-flight sweep to finish.
func (s *Sweeper) Stop() { <-s.cron.Stop().Done() }
