// Package logger configures log/slog for the bot and carries request-scoped
// loggers through context.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Options configures the root logger.
type Options struct {
	// Env selects the handler: "production" writes JSON, anything else text.
	Env string

	// Debug lowers the level to slog.LevelDebug.
	Debug bool

	// Output defaults to os.Stdout.
	Output io.Writer
}

// New builds a logger from opts without installing it as default.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	handlerOpts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}
	if opts.Debug {
		handlerOpts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if strings.EqualFold(opts.Env, "production") {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	return slog.New(handler)
}

// Setup builds a logger and installs it with slog.SetDefault.
func Setup(opts Options) *slog.Logger {
	log := New(opts)
	slog.SetDefault(log)
	return log
}

// ══════════════════════════════════════════════════════════════════════════════
// ATTRIBUTES
// ══════════════════════════════════════════════════════════════════════════════

// Common attribute keys.
const (
	KeyRequestID = "request_id"
	KeyUserID    = "user_id"
	KeyComponent = "component"
	KeyOperation = "operation"
	KeyState     = "state"
)

// UserID creates the user_id attribute.
func UserID(id int64) slog.Attr { return slog.Int64(KeyUserID, id) }

// Component creates the component attribute.
func Component(name string) slog.Attr { return slog.String(KeyComponent, name) }

// Operation creates the operation attribute.
func Operation(name string) slog.Attr { return slog.String(KeyOperation, name) }

// State creates the dialogue state attribute.
func State(s string) slog.Attr { return slog.String(KeyState, s) }

// Duration creates a duration attribute rendered as a string.
func Duration(key string, d time.Duration) slog.Attr { return slog.String(key, d.String()) }

// Err creates an error attribute. A nil error renders as an empty string.
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}

// ══════════════════════════════════════════════════════════════════════════════
// CONTEXT PROPAGATION
// ══════════════════════════════════════════════════════════════════════════════

type ctxKey struct{}

// WithContext returns a new context with the logger attached.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext retrieves the logger from context, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return slog.Default()
}

// FromContextOr retrieves the logger from context, or fallback.
func FromContextOr(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
			return l
		}
	}
	return fallback
}

// WithRequestID attaches a child logger tagged with requestID to ctx.
func WithRequestID(ctx context.Context, base *slog.Logger, requestID string) context.Context {
	if base == nil {
		base = slog.Default()
	}
	return WithContext(ctx, base.With(slog.String(KeyRequestID, requestID)))
}
