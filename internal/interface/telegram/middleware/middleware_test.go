package middleware

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecoverWithHandler_PassesErrorThrough(t *testing.T) {
	m := NewRecoveryMiddleware(DefaultRecoveryConfig())
	wantErr := errors.New("boom")

	res := m.RecoverWithHandler(context.Background(), 1, "text", func() error { return wantErr })

	assert.False(t, res.Recovered)
	assert.ErrorIs(t, res.Err, wantErr)
	assert.Zero(t, m.PanicCount())
}

func TestRecoverWithHandler_RecoversPanic(t *testing.T) {
	var seen *PanicInfo
	cfg := DefaultRecoveryConfig()
	cfg.OnPanic = func(_ context.Context, info *PanicInfo) { seen = info }
	m := NewRecoveryMiddleware(cfg)

	res := m.RecoverWithHandler(context.Background(), 42, "/start", func() error {
		panic("nil map")
	})

	require.True(t, res.Recovered)
	assert.Equal(t, cfg.UserErrorMessage, res.UserMessage)
	require.NotNil(t, seen)
	assert.Equal(t, int64(42), seen.UserID)
	assert.Equal(t, "/start", seen.Route)
	assert.Contains(t, seen.Error.Error(), "nil map")
	assert.NotEmpty(t, seen.StackTrace)
	assert.Equal(t, int64(1), m.PanicCount())
}

func newTestLimiter(rpm, burst int) (*RateLimiter, *time.Time) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(RateLimitConfig{RequestsPerMinute: rpm, BurstSize: burst, IdleTTL: time.Minute})
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiter_DefaultsFitRegistrationAndScores(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimitConfig())
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	// /start, имя, фамилия, затем два раза /enter_scores, предмет, балл
	for i := 0; i < 9; i++ {
		assert.True(t, rl.Check(ctx, 7).Allowed, "message %d", i)
	}
}

func TestRateLimiter_BurstThenLimited(t *testing.T) {
	rl, now := newTestLimiter(60, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		assert.True(t, rl.Check(ctx, 1).Allowed, "request %d", i)
	}

	res := rl.Check(ctx, 1)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
	assert.Contains(t, res.ResponseMessage, "Слишком много")

	// другой пользователь не затронут
	assert.True(t, rl.Check(ctx, 2).Allowed)

	*now = now.Add(time.Second)
	assert.True(t, rl.Check(ctx, 1).Allowed)
}

func TestRateLimiter_DisabledAndWhitelist(t *testing.T) {
	rl, _ := newTestLimiter(0, 1)
	for i := 0; i < 10; i++ {
		assert.True(t, rl.Check(context.Background(), 1).Allowed)
	}

	wl, _ := newTestLimiter(60, 1)
	wl.config.WhitelistedUsers = map[int64]bool{7: true}
	for i := 0; i < 10; i++ {
		assert.True(t, wl.Check(context.Background(), 7).Allowed)
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl, now := newTestLimiter(60, 1)
	rl.Check(context.Background(), 1)
	rl.Check(context.Background(), 2)
	require.Equal(t, 2, rl.Len())

	*now = now.Add(2 * time.Minute)
	rl.Check(context.Background(), 2)

	assert.Equal(t, 1, rl.Cleanup())
	assert.Equal(t, 1, rl.Len())
}
