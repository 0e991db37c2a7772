package configs

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger defines configuration options for the structured logger. Level is
// one of "debug", "info", "warn" or "error". Format is "text" (default) or
// "json". When File is set, records are also written to a size-rotated
// file.
type Logger struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"text"`

	File       string `env:"FILE"`
	MaxSizeMB  int    `env:"MAX_SIZE_MB" envDefault:"10"`
	MaxBackups int    `env:"MAX_BACKUPS" envDefault:"3"`
	MaxAgeDays int    `env:"MAX_AGE_DAYS" envDefault:"28"`
}

// SlogLevel converts the textual level into a slog.Level. Unknown levels
// default to slog.LevelInfo.
func (c Logger) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "err":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SlogFormat validates and normalises the requested log format. Any value
// other than "json" returns "text".
func (c Logger) SlogFormat() string {
	switch strings.ToLower(c.Format) {
	case "json":
		return "json"
	default:
		return "text"
	}
}

// Writer returns stdout, teed into a rotating file when File is set. The
// returned closer releases the file and is a no-op otherwise.
func (c Logger) Writer() (io.Writer, io.Closer) {
	if c.File == "" {
		return os.Stdout, io.NopCloser(nil)
	}
	file := &lumberjack.Logger{
		Filename:   c.File,
		MaxSize:    c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAge:     c.MaxAgeDays,
		Compress:   true,
	}
	return io.MultiWriter(os.Stdout, file), file
}

// NewSlog builds the application logger.
func (c Logger) NewSlog() (*slog.Logger, io.Closer) {
	w, closer := c.Writer()
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}

	var handler slog.Handler
	switch c.SlogFormat() {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), closer
}
