// Package logger is the zap setup shared by the binaries. Ledger code logs
// through the package-level helpers, which pick up request id, trace id and the
// caller from the context; binaries install their configured logger with
// SetDefault.
package logger

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	appctx "serviceshop/internal/core/context"
)

// Logger is a sugared zap logger whose level can change at runtime.
type Logger struct {
	*zap.SugaredLogger
	level zap.AtomicLevel
}

// Config selects level, encoding and destination.
type Config struct {
	Level       string // debug, info, warn or error; anything else means info
	Development bool   // coloured console output instead of JSON
	Service     string // "service" field on every line
	OutputPaths []string
}

func New(cfg Config) (*Logger, error) {
	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc.EncoderConfig.TimeKey = "ts"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(lvl)
	if len(cfg.OutputPaths) > 0 {
		zc.OutputPaths = cfg.OutputPaths
	}
	if cfg.Service != "" {
		zc.InitialFields = map[string]any{"service": cfg.Service}
	}
	return build(zc)
}

func build(zc zap.Config) (*Logger, error) {
	z, err := zc.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, err
	}
	return &Logger{SugaredLogger: z.Sugar(), level: zc.Level}, nil
}

// FromZap wraps z. SetLevel has no effect on the result; z's core decides.
func FromZap(z *zap.Logger) *Logger {
	return &Logger{SugaredLogger: z.Sugar(), level: zap.NewAtomicLevel()}
}

func NewNop() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), level: zap.NewAtomicLevel()}
}

// SetLevel changes the level of l and every logger derived from it.
func (l *Logger) SetLevel(level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	l.level.SetLevel(lvl)
	return nil
}

var process atomic.Pointer[Logger]

// Default is the process logger: whatever SetDefault installed, otherwise a
// JSON info logger on stdout.
func Default() *Logger {
	if l := process.Load(); l != nil {
		return l
	}
	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{"stdout"}
	l, err := build(zc)
	if err != nil {
		l = NewNop()
	}
	if process.CompareAndSwap(nil, l) {
		return l
	}
	return process.Load()
}

func SetDefault(l *Logger) { process.Store(l) }

// Sync flushes the process logger. Call it before exit.
func Sync() { _ = Default().Sync() }

// ctxFields returns the request and caller fields carried by ctx.
func ctxFields(ctx context.Context) []any {
	var kv []any
	if meta := appctx.GetRequest(ctx); meta != nil {
		kv = append(kv, "request_id", meta.RequestID, "trace_id", appctx.TraceID(ctx))
	}
	if u := appctx.GetUser(ctx); u != nil {
		kv = append(kv, "user_id", u.UserID, "role", u.Role)
	}
	return kv
}

// WithContext returns l with the request fields of ctx attached.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	kv := ctxFields(ctx)
	if len(kv) == 0 {
		return l
	}
	return l.With(kv...)
}

func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...), level: l.level}
}

func (l *Logger) WithComponent(name string) *Logger {
	return l.With("component", name)
}

type ctxKey struct{}

// WithLogger makes l the logger FromContext returns for ctx.
func WithLogger(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the logger stored in ctx (or the process logger),
// enriched with the request fields of ctx.
func FromContext(ctx context.Context) *Logger {
	l, ok := ctx.Value(ctxKey{}).(*Logger)
	if !ok {
		l = Default()
	}
	return l.WithContext(ctx)
}

func Debug(ctx context.Context, msg string, kv ...any) { FromContext(ctx).Debugw(msg, kv...) }
func Info(ctx context.Context, msg string, kv ...any)  { FromContext(ctx).Infow(msg, kv...) }
func Warn(ctx context.Context, msg string, kv ...any)  { FromContext(ctx).Warnw(msg, kv...) }
func Error(ctx context.Context, msg string, kv ...any) { FromContext(ctx).Errorw(msg, kv...) }

// Fatal logs and exits the process with status 1.
func Fatal(ctx context.Context, msg string, kv ...any) { FromContext(ctx).Fatalw(msg, kv...) }
