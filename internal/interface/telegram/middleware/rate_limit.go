package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ══════════════════════════════════════════════════════════════════════════════
// RATE LIMITER MIDDLEWARE
// Per-user token bucket. Легитимный пользователь может прислать пару сообщений
// подряд, спамер упирается в лимит.
// ══════════════════════════════════════════════════════════════════════════════

// RateLimitConfig holds configuration for the rate limiter.
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained rate per user. Zero disables limiting.
	RequestsPerMinute int

	// BurstSize is the bucket capacity.
	BurstSize int

	// IdleTTL is how long an unused bucket is kept before Cleanup drops it.
	IdleTTL time.Duration

	// WhitelistedUsers are exempt from limiting.
	WhitelistedUsers map[int64]bool

	// OnRateLimited builds the reply for a limited user.
	OnRateLimited func(userID int64, retryAfter time.Duration) string
}

// DefaultBurstSize fits a full registration followed by a couple of score
// entries sent back to back.
const DefaultBurstSize = 12

// DefaultRateLimitConfig returns sensible defaults for rate limiting.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 30,
		BurstSize:         DefaultBurstSize,
		IdleTTL:           10 * time.Minute,
		WhitelistedUsers:  make(map[int64]bool),
		OnRateLimited:     defaultRateLimitedMessage,
	}
}

func defaultRateLimitedMessage(_ int64, retryAfter time.Duration) string {
	seconds := int(retryAfter.Round(time.Second).Seconds())
	if seconds < 1 {
		seconds = 1
	}
	return fmt.Sprintf("⏳ Слишком много сообщений. Подожди %d сек. и попробуй снова.", seconds)
}

// RateLimitResult represents the result of a rate limit check.
type RateLimitResult struct {
	// Allowed indicates if the request is allowed.
	Allowed bool

	// RetryAfter is how long the user should wait before retrying.
	RetryAfter time.Duration

	// ResponseMessage is the message to send if rate limited.
	ResponseMessage string
}

type userBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter keeps one rate.Limiter per user.
type RateLimiter struct {
	config RateLimitConfig
	now    func() time.Time

	mu      sync.Mutex
	buckets map[int64]*userBucket
}

// NewRateLimiter creates a new rate limiter with the given configuration.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.BurstSize <= 0 {
		config.BurstSize = 1
	}
	if config.OnRateLimited == nil {
		config.OnRateLimited = defaultRateLimitedMessage
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = DefaultRateLimitConfig().IdleTTL
	}
	return &RateLimiter{
		config:  config,
		now:     time.Now,
		buckets: make(map[int64]*userBucket),
	}
}

// Check consumes one token for userID.
func (rl *RateLimiter) Check(_ context.Context, userID int64) *RateLimitResult {
	if rl.config.RequestsPerMinute <= 0 || rl.config.WhitelistedUsers[userID] {
		return &RateLimitResult{Allowed: true}
	}

	now := rl.now()
	lim := rl.bucket(userID, now)

	r := lim.ReserveN(now, 1)
	if !r.OK() {
		return rl.limited(userID, time.Minute)
	}
	delay := r.DelayFrom(now)
	if delay == 0 {
		return &RateLimitResult{Allowed: true}
	}
	// токен не тратим, раз запрос отклонён
	r.CancelAt(now)
	return rl.limited(userID, delay)
}

func (rl *RateLimiter) limited(userID int64, retryAfter time.Duration) *RateLimitResult {
	return &RateLimitResult{
		Allowed:         false,
		RetryAfter:      retryAfter,
		ResponseMessage: rl.config.OnRateLimited(userID, retryAfter),
	}
}

func (rl *RateLimiter) bucket(userID int64, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[userID]
	if !ok {
		every := rate.Every(time.Minute / time.Duration(rl.config.RequestsPerMinute))
		b = &userBucket{limiter: rate.NewLimiter(every, rl.config.BurstSize)}
		rl.buckets[userID] = b
	}
	b.lastSeen = now
	return b.limiter
}

// Cleanup drops buckets idle for longer than IdleTTL and returns how many were removed.
func (rl *RateLimiter) Cleanup() int {
	cutoff := rl.now().Add(-rl.config.IdleTTL)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	for id, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked users.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}
