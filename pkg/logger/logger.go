// Package logger provides opinionated logging capabilities for the engram system.
//
// Loggers are plain *slog.Logger values so every package depends only on the
// standard structured logging API. The constructor picks the handler: a
// charmbracelet/log handler for human-friendly CLI output, slog's JSON
// handler for services, and slog's text handler otherwise.
package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	source  bool
	writers []io.Writer
}

// Option configures a logger created with New.
type Option func(*config)

// WithDebug sets the log level to Debug when true, Info otherwise.
func WithDebug(debug bool) Option {
	return func(c *config) {
		if debug {
			c.level = slog.LevelDebug
		} else {
			c.level = slog.LevelInfo
		}
	}
}

// WithPretty enables the charmbracelet/log handler for colorized,
// human-friendly CLI output.
func WithPretty(pretty bool) Option {
	return func(c *config) {
		c.pretty = pretty
	}
}

// WithJSON enables slog's JSON handler for structured service logs.
func WithJSON(json bool) Option {
	return func(c *config) {
		c.json = json
	}
}

// WithWriter overrides the output writer. Defaults to os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(c *config) {
		c.writers = []io.Writer{w}
	}
}

// WithWriters sets multiple output writers (combined via io.MultiWriter).
func WithWriters(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}

// WithSource includes source file:line in log output.
func WithSource(source bool) Option {
	return func(c *config) {
		c.source = source
	}
}

// New creates a *slog.Logger configured by the given options.
func New(opts ...Option) *slog.Logger {
	c := &config{
		level:   slog.LevelInfo,
		writers: []io.Writer{os.Stdout},
	}
	for _, opt := range opts {
		opt(c)
	}

	var w io.Writer
	if len(c.writers) == 1 {
		w = c.writers[0]
	} else {
		w = io.MultiWriter(c.writers...)
	}

	if c.pretty {
		handler := charmlog.NewWithOptions(w, charmlog.Options{
			Level:        charmlog.Level(c.level),
			ReportCaller: c.source,
		})
		return slog.New(handler)
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     c.level,
		AddSource: c.source,
	}

	if c.json {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}

	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

// Nop returns a logger that discards every record. Used in tests and as a
// safe default when callers pass a nil logger.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
