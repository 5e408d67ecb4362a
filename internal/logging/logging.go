// Package logging builds the process logger: a text handler for the
// terminal plus an optional JSON file, fanned out with slog-multi.
package logging

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// Options configures New.
type Options struct {
	// Level is the minimum level. Default: info.
	Level slog.Leveler

	// Writer receives text logs. Default: os.Stderr.
	Writer io.Writer

	// File, when set, receives JSON logs. It is opened for appending.
	File string
}

// Logger is a logger plus the resources it holds.
type Logger struct {
	*slog.Logger
	file *os.File
}

// New creates a logger.
func New(opts Options) (*Logger, error) {
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
	}

	var file *os.File
	if opts.File != "" {
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		file = f
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	}

	return &Logger{
		Logger: slog.New(slogmulti.Fanout(handlers...)),
		file:   file,
	}, nil
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
