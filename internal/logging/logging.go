package logging

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/uicestone/minimars-server-sub000/internal/config"
)

// New builds the process logger. Console output in dev or when
// LOG_FORMAT=console, JSON otherwise.
func New(cfg *config.Config) zerolog.Logger {
	return NewWithWriter(cfg, os.Stdout)
}

func NewWithWriter(cfg *config.Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	out := w
	if cfg.LogFormat == "console" {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Str("env", cfg.AppEnv).Logger()
}

type ctxKey string

const (
	ctxRequestID ctxKey = "request_id"
	ctxStaffID   ctxKey = "staff_id"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestID, id)
}

func WithStaffID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxStaffID, id)
}

// With attaches request-scoped fields found in ctx.
func With(ctx context.Context, base zerolog.Logger) zerolog.Logger {
	l := base.With()
	if v, ok := ctx.Value(ctxRequestID).(string); ok && v != "" {
		l = l.Str("request_id", v)
	}
	if v, ok := ctx.Value(ctxStaffID).(string); ok && v != "" {
		l = l.Str("staff_id", v)
	}
	return l.Logger()
}

// TraceDuration logs elapsed time at trace level.
// Usage: defer logging.TraceDuration(log, "BookingService.CreatePayment")()
func TraceDuration(log zerolog.Logger, name string) func() {
	start := time.Now()
	return func() {
		log.Trace().Str("method", name).Dur("duration", time.Since(start)).Msg("finish")
	}
}
