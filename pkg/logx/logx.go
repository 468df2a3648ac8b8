// Package logx builds the process logger.
package logx

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/lmittmann/tint"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

type Options struct {
	Level   string
	Format  string
	NoColor bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

func (o Options) ParseLevel() (slog.Level, error) {
	var level slog.Level
	if o.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(strings.ToUpper(o.Level))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", o.Level, err)
	}
	return level, nil
}

// New returns a tint text logger, or a JSON logger for FormatJSON. An
// invalid level falls back to info.
func New(o Options) *slog.Logger {
	level, _ := o.ParseLevel()
	out := o.Output
	if out == nil {
		out = os.Stderr
	}

	if o.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: level}))
	}
	return slog.New(tint.NewHandler(out, &tint.Options{
		Level:      level,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    o.NoColor,
	}))
}
