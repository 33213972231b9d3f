package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ege-hub/ege-scores-bot/internal/interface/telegram/middleware"
)

func TestCleanupRateLimiterJob_ReleasesIdleBuckets(t *testing.T) {
	ctx := context.Background()
	cfg := middleware.DefaultRateLimitConfig()
	cfg.IdleTTL = time.Millisecond
	limiter := middleware.NewRateLimiter(cfg)

	for id := int64(1); id <= 1000; id++ {
		require.True(t, limiter.Check(ctx, id).Allowed)
	}
	require.Equal(t, 1000, limiter.Len())

	time.Sleep(5 * time.Millisecond)

	job := NewCleanupRateLimiterJob(limiter, nil)
	require.NoError(t, job.Run(ctx))

	assert.Zero(t, limiter.Len())
	assert.Equal(t, int64(1000), job.TotalRemoved())
	assert.Equal(t, "cleanup_rate_limiter", job.Name())
}
