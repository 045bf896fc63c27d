// Package logging builds the process logger: slog with a level and format
// from config, optionally writing to a rotating file instead of stderr.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction.
type Config struct {
	// Level is debug, info, warn or error. Unknown values mean info.
	Level string

	// Format is "json" or "text". Unknown values mean json.
	Format string

	// Dir, when set, routes output to a rotating alpha.log in that
	// directory instead of stderr.
	Dir string

	// Rotation knobs; zero values pick sane defaults.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New builds the root logger.
func New(cfg Config) *slog.Logger {
	var w io.Writer = os.Stderr
	if cfg.Dir != "" {
		maxSize := cfg.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 10
		}
		maxBackups := cfg.MaxBackups
		if maxBackups <= 0 {
			maxBackups = 5
		}
		maxAge := cfg.MaxAgeDays
		if maxAge <= 0 {
			maxAge = 10
		}
		w = &lumberjack.Logger{
			Filename:   filepath.Join(cfg.Dir, "alpha.log"),
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     maxAge,
			Compress:   true,
		}
	}

	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	var h slog.Handler
	if cfg.Format == "text" {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
