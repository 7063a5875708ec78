package logger

import (
	"io"
	"log/slog"
)

// Format selects the slog handler New builds.
type Format int

const (
	// FormatText is slog's key=value text handler.
	FormatText Format = iota

	// FormatPretty is the charmbracelet/log handler used on a terminal.
	FormatPretty

	// FormatJSON is slog's JSON handler, used for --log-file.
	FormatJSON
)

// Option configures a logger created with New.
type Option func(*config)

// WithDebug lowers the level to Debug, which includes per-stage records.
func WithDebug(debug bool) Option {
	return func(c *config) {
		c.level = slog.LevelInfo
		if debug {
			c.level = slog.LevelDebug
		}
	}
}

// WithFormat picks the handler.
func WithFormat(f Format) Option {
	return func(c *config) {
		c.format = f
	}
}

// WithWriter sends records to w. Several writers receive the same bytes.
func WithWriter(w ...io.Writer) Option {
	return func(c *config) {
		c.writers = w
	}
}
