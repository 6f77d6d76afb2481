package logging

import (
	"context"
	"io"
	"log/slog"
)

// Redacted replaces the value of attributes that carry credentials.
const Redacted = "[redacted]"

// secretAttrs are attribute keys whose values must never reach a log:
// share secrets, owner tokens, passwords and bearer tokens.
var secretAttrs = map[string]struct{}{
	"secret_key":    {},
	"owner_token":   {},
	"auth_key":      {},
	"password":      {},
	"token":         {},
	"access_token":  {},
	"file_list_key": {},
}

// SlogLogger is the Logger the CLI and the transfer engines write to.
type SlogLogger struct {
	l *slog.Logger
}

func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{l: l}
}

// NewTextLogger builds the CLI's text logger. Credential attributes are
// replaced with Redacted, including those attached through With.
func NewTextLogger(w io.Writer, level slog.Level) *SlogLogger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: redactSecrets,
	})))
}

// NewNopLogger discards everything.
func NewNopLogger() *SlogLogger {
	return NewSlogLogger(slog.New(discardHandler))
}

func redactSecrets(_ []string, a slog.Attr) slog.Attr {
	if _, ok := secretAttrs[a.Key]; ok {
		return slog.String(a.Key, Redacted)
	}
	return a
}

func (s *SlogLogger) Debug(ctx context.Context, msg string, args ...any) {
	s.l.DebugContext(ctx, msg, args...)
}

func (s *SlogLogger) Info(ctx context.Context, msg string, args ...any) {
	s.l.InfoContext(ctx, msg, args...)
}

func (s *SlogLogger) Warn(ctx context.Context, msg string, args ...any) {
	s.l.WarnContext(ctx, msg, args...)
}

func (s *SlogLogger) Error(ctx context.Context, msg string, args ...any) {
	s.l.ErrorContext(ctx, msg, args...)
}

func (s *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{l: s.l.With(args...)}
}
