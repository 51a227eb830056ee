// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides the structured logger used throughout the
// controller: a slog-backed leveled logger with an optional syslog
// forwarding sink.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Config controls logger construction.
type Config struct {
	Level  slog.Level
	Output io.Writer
	JSON   bool
	Syslog SyslogConfig
}

// DefaultConfig returns sane defaults: info level, JSON lines on stderr,
// syslog forwarding disabled.
func DefaultConfig() Config {
	return Config{
		Level:  slog.LevelInfo,
		Output: os.Stderr,
		JSON:   true,
		Syslog: DefaultSyslogConfig(),
	}
}

// Logger is the leveled, key-value logger used across every component.
// It wraps *slog.Logger so call sites read as plain
// Info(msg, "key", value, ...) pairs, matching the rest of the stack.
type Logger struct {
	base *slog.Logger
	sl   io.Closer
}

// New builds a Logger from cfg. If cfg.Syslog.Enabled, writes are tee'd to
// a syslog writer in addition to Output; a failure to dial syslog does not
// prevent the logger from being created, it is logged once and dropped.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	out := cfg.Output
	var closer io.Closer
	var syslogErr error
	if cfg.Syslog.Enabled {
		if w, err := NewSyslogWriter(cfg.Syslog); err == nil {
			out = io.MultiWriter(cfg.Output, w)
			closer = w
		} else {
			syslogErr = err
		}
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}
	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	l := &Logger{base: slog.New(handler), sl: closer}
	if syslogErr != nil {
		l.Warn("syslog forwarding disabled", "error", syslogErr)
	}
	return l
}

// With returns a derived Logger with the given key-value pairs attached to
// every subsequent record.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{base: l.base.With(kv...), sl: l.sl}
}

func (l *Logger) Debug(msg string, kv ...any) { l.base.Debug(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.base.Info(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.base.Warn(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.base.Error(msg, kv...) }

// Close releases the syslog connection, if one was opened.
func (l *Logger) Close() error {
	if l.sl != nil {
		return l.sl.Close()
	}
	return nil
}
