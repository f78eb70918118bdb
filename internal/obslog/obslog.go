// Package obslog adapts github.com/charmbracelet/log into the engine's
// logging contract: structured key/value fields, a correlation ID carried
// through context, and a derived-logger pattern for per-component fields.
package obslog

import (
	"context"
	"io"
	"sort"

	cblog "github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Options configures a Logger at construction time.
type Options struct {
	Level         string
	HumanReadable bool
	Writer        io.Writer
	Component     string
}

// Logger is a structured, component-scoped logger.
type Logger struct {
	base *cblog.Logger
}

// New builds a Logger from Options.
func New(opts Options) *Logger {
	writer := opts.Writer
	if writer == nil {
		writer = io.Discard
	}

	logOpts := cblog.Options{ReportTimestamp: true}
	if !opts.HumanReadable {
		logOpts.Formatter = cblog.JSONFormatter
	}

	base := cblog.NewWithOptions(writer, logOpts)
	base.SetLevel(parseLevel(opts.Level))
	if opts.Component != "" {
		base = base.With("component", opts.Component)
	}
	return &Logger{base: base}
}

func parseLevel(level string) cblog.Level {
	lvl, err := cblog.ParseLevel(level)
	if err != nil {
		return cblog.InfoLevel
	}
	return lvl
}

// WithFields returns a derived logger that always attaches the given
// fields, sorted for deterministic output ordering.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	if l == nil || l.base == nil || len(fields) == 0 {
		return l
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := make([]any, 0, len(fields)*2)
	for _, k := range keys {
		args = append(args, k, fields[k])
	}
	return &Logger{base: l.base.With(args...)}
}

// WithContext attaches the context's correlation ID, if any, as a field.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	id := CorrelationID(ctx)
	if id == "" {
		return l
	}
	return l.WithFields(map[string]any{"correlation_id": id})
}

func (l *Logger) Debug(msg string, args ...any) {
	if l == nil || l.base == nil {
		return
	}
	l.base.Debug(msg, args...)
}

func (l *Logger) Info(msg string, args ...any) {
	if l == nil || l.base == nil {
		return
	}
	l.base.Info(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	if l == nil || l.base == nil {
		return
	}
	l.base.Warn(msg, args...)
}

func (l *Logger) Error(err error, msg string, args ...any) {
	if l == nil || l.base == nil {
		return
	}
	if err != nil {
		args = append(args, "error", err)
	}
	l.base.Error(msg, args...)
}

type correlationIDKey struct{}

// WithCorrelationID attaches id to ctx so every log call downstream can be
// traced back to one supervisor-protocol run.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationID extracts the correlation ID attached to ctx, or "" if none.
func CorrelationID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}

// NewCorrelationID generates a fresh correlation ID; the CLI entry point
// calls this once per invocation.
func NewCorrelationID() string {
	return uuid.NewString()
}
