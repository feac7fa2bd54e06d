// Package logs builds the structured loggers used across trajopt.
package logs

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	slogmulti "github.com/samber/slog-multi"
)

var level = new(slog.LevelVar)

// Options configures New. Writer receives human-readable text; File, when
// set, receives the same records as JSON lines.
type Options struct {
	Writer io.Writer
	File   io.Writer
	Level  slog.Level
}

func New(opts Options) *slog.Logger {
	level.Set(opts.Level)
	var handlers []slog.Handler

	if opts.Writer != nil {
		handlers = append(handlers, slog.NewTextHandler(opts.Writer, &slog.HandlerOptions{
			Level: level,
		}))
	}
	if opts.File != nil {
		handlers = append(handlers, slog.NewJSONHandler(opts.File, &slog.HandlerOptions{
			Level: level,
		}))
	}
	if len(handlers) == 0 {
		return Discard()
	}

	return slog.New(slogmulti.Fanout(handlers...))
}

// SetLevel changes the level of every logger built by New.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("logs: unknown level %q", s)
	}
}
