// Package middleware contains Telegram bot middlewares for request processing.
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/ege-hub/ege-scores-bot/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECOVERY MIDDLEWARE
// Catches panics in handlers and converts them to a user-facing error reply.
// ══════════════════════════════════════════════════════════════════════════════

// RecoveryConfig holds configuration for the recovery middleware.
type RecoveryConfig struct {
	// EnableStackTrace captures the stack of the panicking goroutine.
	EnableStackTrace bool

	// OnPanic is called when a panic is recovered.
	OnPanic func(ctx context.Context, info *PanicInfo)

	// UserErrorMessage is the message sent to users when a panic occurs.
	UserErrorMessage string

	// Logger receives panic reports.
	Logger *slog.Logger
}

// DefaultRecoveryConfig returns sensible defaults for recovery middleware.
func DefaultRecoveryConfig() RecoveryConfig {
	return RecoveryConfig{
		EnableStackTrace: true,
		UserErrorMessage: "😔 Что-то пошло не так. Попробуй ещё раз через пару минут.",
	}
}

// PanicInfo contains information about a recovered panic.
type PanicInfo struct {
	// Error is the panic value converted to error.
	Error error

	// StackTrace is the formatted stack trace.
	StackTrace string

	// UserID is the Telegram user ID.
	UserID int64

	// Route is the command or input kind being processed.
	Route string

	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

// RecoveryResult represents the result of running a handler.
type RecoveryResult struct {
	// Recovered indicates if a panic was recovered.
	Recovered bool

	// PanicInfo contains panic details (if recovered).
	PanicInfo *PanicInfo

	// UserMessage is the message to show to the user after a panic.
	UserMessage string

	// Err is the handler's returned error when it did not panic.
	Err error
}

// RecoveryMiddleware recovers from panics raised by handlers.
type RecoveryMiddleware struct {
	config RecoveryConfig
	logger *slog.Logger
	panics atomic.Int64
}

// NewRecoveryMiddleware creates a new recovery middleware.
func NewRecoveryMiddleware(config RecoveryConfig) *RecoveryMiddleware {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.UserErrorMessage == "" {
		config.UserErrorMessage = DefaultRecoveryConfig().UserErrorMessage
	}
	return &RecoveryMiddleware{
		config: config,
		logger: config.Logger,
	}
}

// RecoverWithHandler runs handler and recovers from any panic it raises.
func (m *RecoveryMiddleware) RecoverWithHandler(
	ctx context.Context,
	userID int64,
	route string,
	handler func() error,
) (result *RecoveryResult) {
	defer func() {
		if r := recover(); r != nil {
			result = m.handlePanic(ctx, r, userID, route)
		}
	}()

	return &RecoveryResult{Err: handler()}
}

// PanicCount returns the number of panics recovered so far.
func (m *RecoveryMiddleware) PanicCount() int64 {
	return m.panics.Load()
}

func (m *RecoveryMiddleware) handlePanic(ctx context.Context, value interface{}, userID int64, route string) *RecoveryResult {
	m.panics.Add(1)

	err, ok := value.(error)
	if !ok {
		err = fmt.Errorf("panic: %v", value)
	}

	info := &PanicInfo{
		Error:     err,
		UserID:    userID,
		Route:     route,
		Timestamp: time.Now().UTC(),
	}
	if m.config.EnableStackTrace {
		info.StackTrace = string(debug.Stack())
	}

	logger.FromContextOr(ctx, m.logger).Error("panic recovered",
		logger.UserID(userID),
		slog.String("route", route),
		logger.Err(err),
		slog.String("stack", info.StackTrace),
	)

	if m.config.OnPanic != nil {
		m.config.OnPanic(ctx, info)
	}

	return &RecoveryResult{
		Recovered:   true,
		PanicInfo:   info,
		UserMessage: m.config.UserErrorMessage,
	}
}
