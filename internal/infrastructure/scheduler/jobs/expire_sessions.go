// Package jobs contains the scheduled jobs of the bot.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/ege-hub/ege-scores-bot/pkg/logger"
)

// Sweeper drops sessions idle for longer than the store's timeout.
// The memory session store implements it.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// ExpireSessionsJob resets stale dialogue sessions. Expired sessions are
// already ignored on read; the sweep only frees their memory.
type ExpireSessionsJob struct {
	store  Sweeper
	logger *slog.Logger

	totalExpired atomic.Int64
}

// NewExpireSessionsJob creates the job.
func NewExpireSessionsJob(store Sweeper, log *slog.Logger) *ExpireSessionsJob {
	if log == nil {
		log = slog.Default()
	}
	return &ExpireSessionsJob{
		store:  store,
		logger: log.With(logger.Component("expire_sessions")),
	}
}

// Name returns the job name.
func (j *ExpireSessionsJob) Name() string { return "expire_sessions" }

// Description returns a human-readable description.
func (j *ExpireSessionsJob) Description() string {
	return "drops dialogue sessions past the idle timeout"
}

// Run sweeps the store once.
func (j *ExpireSessionsJob) Run(ctx context.Context) error {
	n, err := j.store.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep sessions: %w", err)
	}

	if n > 0 {
		j.totalExpired.Add(int64(n))
		j.logger.Info("expired idle sessions", "count", n)
	}
	return nil
}

// TotalExpired returns how many sessions the job has dropped so far.
func (j *ExpireSessionsJob) TotalExpired() int64 {
	return j.totalExpired.Load()
}
