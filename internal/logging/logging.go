// Package logging sets up the process-wide structured logger: colorized
// tint output on an interactive terminal when logging to stderr alone,
// plain text otherwise, including whenever output is also tee'd to a
// rotating log file.
package logging

import (
	"io"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"golang.org/x/term"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig configures the rotating on-disk log, grounded on the sync
// tool's need to keep a bounded history of past runs without growing
// unbounded on a machine that syncs daily for years.
type FileConfig struct {
	Path       string // empty disables file logging
	MaxSizeMB  int    // defaults to 10 if zero
	MaxBackups int    // defaults to 1 if zero
}

// New builds a logger at level, writing to stderr and, when file.Path is
// set, additionally to a rotating file. Output is colorized only when stderr
// is a terminal and no file is configured; otherwise it is plain text.
func New(level slog.Level, file FileConfig) *slog.Logger {
	return slog.New(newHandler(level, file))
}

func newHandler(level slog.Level, file FileConfig) slog.Handler {
	var writers []io.Writer
	stderrIsTerminal := isTerminal(os.Stderr)
	writers = append(writers, os.Stderr)

	if file.Path != "" {
		maxSize := file.MaxSizeMB
		if maxSize == 0 {
			maxSize = 10
		}
		maxBackups := file.MaxBackups
		if maxBackups == 0 {
			maxBackups = 1
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   file.Path,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			Compress:   false,
		})
	}

	if !stderrIsTerminal || len(writers) > 1 {
		// Either stderr isn't a tty, or we're also writing to a file: tint's
		// ANSI codes have no business in a log file, so fall back to plain
		// text for the combined writer.
		return slog.NewTextHandler(io.MultiWriter(writers...), &slog.HandlerOptions{Level: level})
	}

	return tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) > 0 || attr.Key != slog.LevelKey {
				return attr
			}
			lvl, ok := attr.Value.Any().(slog.Level)
			if !ok {
				return attr
			}
			switch {
			case lvl >= slog.LevelError:
				return tint.Attr(196, slog.Any(slog.LevelKey, lvl))
			case lvl >= slog.LevelWarn:
				return tint.Attr(208, slog.Any(slog.LevelKey, lvl))
			default:
				return attr
			}
		},
	})
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
