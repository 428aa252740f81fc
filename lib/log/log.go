// Package log carries a *slog.Logger through context.
package log

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/aadish0day/mermaid/lib/env"
)

type loggerKey struct{}

func With(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// WithDefault attaches the default stderr logger unless the context already
// carries one.
func WithDefault(ctx context.Context) context.Context {
	if _, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return ctx
	}
	return With(ctx, Default())
}

func Default() *slog.Logger {
	level := slog.LevelInfo
	if env.Debug() {
		level = slog.LevelDebug
	}
	h := NewPrettyHandler(os.Stderr, slog.NewTextHandler(os.Stderr, nil))
	return slog.New(NewLevelHandler(level, h))
}

func From(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return Default()
}

// WithTB routes logs to the test log at debug level.
func WithTB(ctx context.Context, tb testing.TB) context.Context {
	h := slog.NewTextHandler(&tbWriter{tb: tb}, &slog.HandlerOptions{Level: slog.LevelDebug})
	return With(ctx, slog.New(h))
}

func Debug(ctx context.Context, msg string, args ...any) {
	From(ctx).DebugContext(ctx, msg, args...)
}

func Info(ctx context.Context, msg string, args ...any) {
	From(ctx).InfoContext(ctx, msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	From(ctx).WarnContext(ctx, msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	From(ctx).ErrorContext(ctx, msg, args...)
}
