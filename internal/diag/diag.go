// Package diag provides the process diagnostics logger for linelog.
//
// The log engine never reports its own failures through the files it
// manages. Failures to open, rotate or write those files go to a separate
// zerolog logger instead, which writes to stderr or to a size-rotated
// lumberjack file. The same logger carries CLI and server operational
// messages.
//
//	lg, closer, err := diag.New(diag.Config{Level: "info", Format: "console"})
//	if err != nil {
//	    return err
//	}
//	defer closer.Close()
//	lg.Info().Str("addr", addr).Msg("server starting")
package diag

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Iron-Ham/linelog/internal/errors"
	"github.com/Iron-Ham/linelog/internal/metrics"
)

// Config holds diagnostics logger configuration.
type Config struct {
	// Level is the minimum level: trace, debug, info, warn, error, disabled.
	// Default: info
	Level string

	// Format is json or console.
	// Default: json
	Format string

	// File, when set, sends output to a size-rotated file instead of Output.
	File string

	// MaxSizeMB is the size in megabytes at which File is rotated.
	// Default: 10
	MaxSizeMB int

	// MaxBackups is how many rotated copies of File are kept.
	// Default: 3
	MaxBackups int

	// Output is the writer used when File is empty.
	// Default: os.Stderr
	Output io.Writer
}

// DefaultConfig returns the default diagnostics configuration.
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "json",
		MaxSizeMB:  10,
		MaxBackups: 3,
		Output:     os.Stderr,
	}
}

//nolint:gochecknoinits // field names must be set before any logger is built
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.LevelFieldName = "level"
	zerolog.MessageFieldName = "message"
	zerolog.ErrorFieldName = "error"
}

// Logger is the diagnostics logger. It embeds zerolog.Logger so callers use
// the usual event chain, and adds Failure for the store's fallback path.
type Logger struct {
	zerolog.Logger
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds a Logger from cfg. The returned closer releases the log file
// when File is set and is a no-op otherwise.
func New(cfg Config) (*Logger, io.Closer, error) {
	def := DefaultConfig()
	if cfg.Level == "" {
		cfg.Level = def.Level
	}
	if cfg.Format == "" {
		cfg.Format = def.Format
	}
	if cfg.MaxSizeMB <= 0 {
		cfg.MaxSizeMB = def.MaxSizeMB
	}
	if cfg.MaxBackups < 0 {
		cfg.MaxBackups = def.MaxBackups
	}
	if cfg.Output == nil {
		cfg.Output = def.Output
	}

	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}

	var closer io.Closer = nopCloser{}
	output := cfg.Output
	if cfg.File != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		}
		output = lj
		closer = lj
	}

	switch strings.ToLower(cfg.Format) {
	case "json":
	case "console":
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: "15:04:05",
			NoColor:    cfg.File != "",
		}
	default:
		return nil, nil, errors.NewConfigError("diagnostics format must be json or console").
			WithField("diag.format").
			WithValue(cfg.Format)
	}

	zl := zerolog.New(output).Level(level).With().Timestamp().Logger()
	return &Logger{Logger: zl}, closer, nil
}

// Wrap adapts an existing zerolog logger.
func Wrap(zl zerolog.Logger) *Logger {
	return &Logger{Logger: zl}
}

// Nop returns a Logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: zerolog.Nop()}
}

// NewTestLogger returns a JSON logger writing to w at trace level.
func NewTestLogger(w io.Writer) *Logger {
	return &Logger{Logger: zerolog.New(w).Level(zerolog.TraceLevel).With().Timestamp().Logger()}
}

// Failure reports a swallowed file system failure and counts it. It
// satisfies store.FallbackSink.
func (l *Logger) Failure(op, path string, err error) {
	metrics.RecordIOFailure(op)
	l.Error().
		Err(err).
		Str("op", op).
		Str("path", path).
		Bool("retryable", errors.IsRetryable(err)).
		Msg("log store operation failed")
}

// ParseLevel converts a level name to a zerolog level.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "info", "":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "disabled", "none":
		return zerolog.Disabled, nil
	default:
		return zerolog.NoLevel, errors.NewConfigError("unknown diagnostics level").
			WithField("diag.level").
			WithValue(level)
	}
}
