package jobs

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/ege-hub/ege-scores-bot/pkg/logger"
)

// Cleaner forgets per-user limiter state that has been idle long enough.
// middleware.RateLimiter implements it.
type Cleaner interface {
	Cleanup() int
}

// CleanupRateLimiterJob releases idle rate limit buckets so the limiter does
// not keep one entry for every user who ever wrote to the bot.
type CleanupRateLimiterJob struct {
	limiter Cleaner
	logger  *slog.Logger

	totalRemoved atomic.Int64
}

// NewCleanupRateLimiterJob creates the job.
func NewCleanupRateLimiterJob(limiter Cleaner, log *slog.Logger) *CleanupRateLimiterJob {
	if log == nil {
		log = slog.Default()
	}
	return &CleanupRateLimiterJob{
		limiter: limiter,
		logger:  log.With(logger.Component("cleanup_rate_limiter")),
	}
}

// Name returns the job name.
func (j *CleanupRateLimiterJob) Name() string { return "cleanup_rate_limiter" }

// Description returns a human-readable description.
func (j *CleanupRateLimiterJob) Description() string {
	return "drops rate limit buckets of users idle past the TTL"
}

// Run cleans the limiter once.
func (j *CleanupRateLimiterJob) Run(_ context.Context) error {
	if n := j.limiter.Cleanup(); n > 0 {
		j.totalRemoved.Add(int64(n))
		j.logger.Debug("released idle rate limit buckets", "count", n)
	}
	return nil
}

// TotalRemoved returns how many buckets the job has released so far.
func (j *CleanupRateLimiterJob) TotalRemoved() int64 {
	return j.totalRemoved.Load()
}
