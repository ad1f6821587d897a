// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package logging provides the structured, leveled logger used across the
// compiler, the reconcile loop, and the CLI. It wraps charmbracelet/log so
// call sites get key/value structured output without depending on the
// underlying library directly.
package logging

import (
	"io"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// Config controls how a Logger is constructed.
type Config struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string
	// Format is "text" or "json". Defaults to "text".
	Format string
	// Output is the destination writer. Defaults to os.Stderr.
	Output io.Writer
	// ReportTimestamp controls whether a timestamp prefixes each line.
	ReportTimestamp bool
}

// DefaultConfig returns the Config used when a daemon doesn't configure
// logging explicitly: info level, text format, timestamps on, to stderr.
func DefaultConfig() Config {
	return Config{
		Level:           "info",
		Format:          "text",
		Output:          os.Stderr,
		ReportTimestamp: true,
	}
}

// Logger is a structured logger bound to an optional component name, added
// as a "component" key to every line it emits.
type Logger struct {
	inner *charmlog.Logger
}

// New builds a Logger from cfg, filling in DefaultConfig's output, level and
// format for any zero field. ReportTimestamp is used as given, so a zero
// Config logs without timestamps.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}

	opts := charmlog.Options{
		ReportTimestamp: cfg.ReportTimestamp,
	}
	if cfg.Format == "json" {
		opts.Formatter = charmlog.JSONFormatter
	}

	l := charmlog.NewWithOptions(cfg.Output, opts)
	l.SetLevel(parseLevel(cfg.Level))

	return &Logger{inner: l}
}

func parseLevel(level string) charmlog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return charmlog.DebugLevel
	case "warn", "warning":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// WithComponent returns a child Logger that tags every line with
// component=name, leaving the receiver untouched.
func (l *Logger) WithComponent(name string) *Logger {
	return &Logger{inner: l.inner.With("component", name)}
}

// With returns a child Logger with the given key/value pairs attached to
// every subsequent line.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{inner: l.inner.With(kv...)}
}

func (l *Logger) Debug(msg string, kv ...any) { l.inner.Debug(msg, kv...) }
func (l *Logger) Info(msg string, kv ...any)  { l.inner.Info(msg, kv...) }
func (l *Logger) Warn(msg string, kv ...any)  { l.inner.Warn(msg, kv...) }
func (l *Logger) Error(msg string, kv ...any) { l.inner.Error(msg, kv...) }

var def = New(DefaultConfig())

// SetDefault replaces the package-level default logger used by the
// convenience functions below.
func SetDefault(l *Logger) {
	if l != nil {
		def = l
	}
}

// Default returns the current package-level default logger.
func Default() *Logger { return def }

func Debug(msg string, kv ...any) { def.Debug(msg, kv...) }
func Info(msg string, kv ...any)  { def.Info(msg, kv...) }
func Warn(msg string, kv ...any)  { def.Warn(msg, kv...) }
func Error(msg string, kv ...any) { def.Error(msg, kv...) }
