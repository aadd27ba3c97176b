// Package logging provides the program logger used throughout grabarr.
//
// Messages are written to the console in a human readable form and, when a log file is
// configured, to a rotated JSON log file.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"grabarr/internal/domain/consts"
)

// LoggingConfig holds the options for SetupLogging.
type LoggingConfig struct {
	LogFilePath string
	MaxSizeMB   int
	MaxBackups  int
	Console     io.Writer
	Program     string
	Level       int
}

// ProgramLogger wraps a zerolog logger with the leveled helpers used by the program.
type ProgramLogger struct {
	zl      zerolog.Logger
	console io.Writer
	level   atomic.Int32
	closer  io.Closer
	mu      sync.Mutex
}

// SetupLogging builds a ProgramLogger from the config.
func SetupLogging(cfg LoggingConfig) (*ProgramLogger, error) {
	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, TimeFormat: time.TimeOnly}}

	var closer io.Closer
	if cfg.LogFilePath != "" {
		f, err := os.OpenFile(cfg.LogFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, consts.PermsLogFile)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %q: %w", cfg.LogFilePath, err)
		}
		if err := f.Close(); err != nil {
			return nil, fmt.Errorf("failed to close log file %q: %w", cfg.LogFilePath, err)
		}

		rotator := &lumberjack.Logger{
			Filename:   cfg.LogFilePath,
			MaxSize:    max(cfg.MaxSizeMB, 1),
			MaxBackups: cfg.MaxBackups,
		}
		writers = append(writers, rotator)
		closer = rotator
	}

	zl := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().
		Timestamp().
		Str("program", cfg.Program).
		Logger()

	pl := &ProgramLogger{
		zl:      zl,
		console: console,
		closer:  closer,
	}
	pl.SetLevel(cfg.Level)
	return pl, nil
}

// Nop returns a logger that discards everything.
func Nop() *ProgramLogger {
	return &ProgramLogger{zl: zerolog.Nop(), console: io.Discard}
}

// New returns a logger writing console output to w. Mostly useful in tests.
func New(w io.Writer, level int) *ProgramLogger {
	pl := &ProgramLogger{
		zl:      zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}),
		console: w,
	}
	pl.SetLevel(level)
	return pl
}

// SetLevel sets the debug verbosity (0-5).
func (pl *ProgramLogger) SetLevel(l int) {
	pl.level.Store(int32(min(max(l, 0), 5)))
}

// Level returns the debug verbosity.
func (pl *ProgramLogger) Level() int {
	return int(pl.level.Load())
}

// E logs an error.
func (pl *ProgramLogger) E(format string, args ...any) {
	pl.zl.Error().Caller(zerolog.CallerSkipFrameCount + 1).Msg(msg(format, args))
}

// W logs a warning.
func (pl *ProgramLogger) W(format string, args ...any) {
	pl.zl.Warn().Msg(msg(format, args))
}

// I logs an info message.
func (pl *ProgramLogger) I(format string, args ...any) {
	pl.zl.Info().Msg(msg(format, args))
}

// S logs a success message.
func (pl *ProgramLogger) S(format string, args ...any) {
	pl.zl.Info().Bool("success", true).Msg(msg(format, args))
}

// D logs a debug message if l is within the configured verbosity.
func (pl *ProgramLogger) D(l int, format string, args ...any) {
	if l > pl.Level() || pl.Level() == 0 {
		return
	}
	pl.zl.Debug().Int("lvl", l).Caller(zerolog.CallerSkipFrameCount + 1).Msg(msg(format, args))
}

// P prints a plain line to the console without any decoration.
func (pl *ProgramLogger) P(format string, args ...any) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	line := msg(format, args)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	fmt.Fprint(pl.console, line)
}

// Close flushes and closes the log file, if any.
func (pl *ProgramLogger) Close() error {
	if pl.closer == nil {
		return nil
	}
	return pl.closer.Close()
}

func msg(format string, args []any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
