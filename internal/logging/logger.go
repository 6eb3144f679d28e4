// Package logging provides a structured logger for the demo harness and
// CLI, wrapping zerolog the way chaos-utils' reporting package does.
package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Format selects the output encoding for a Logger.
type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

// Config configures a new Logger.
type Config struct {
	Level  string // "debug", "info", "warn", "error"
	Format Format
	Output io.Writer // defaults to os.Stdout
}

// Logger wraps a configured zerolog.Logger with the small, level-named
// convenience API used throughout this repository.
type Logger struct {
	logger zerolog.Logger
}

// New builds a Logger from cfg.
func New(cfg Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("logging: invalid level %q: %w", cfg.Level, err)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var writer io.Writer = out
	if cfg.Format == FormatConsole {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	logger := zerolog.New(writer).Level(level).With().Timestamp().Logger()
	return &Logger{logger: logger}, nil
}

func fields(kv []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		m[key] = kv[i+1]
	}
	return m
}

// Debug logs msg at debug level with the given alternating key/value
// pairs. The delay package itself does not log; only the CLI uses this
// logger.
func (l *Logger) Debug(msg string, kv ...interface{}) {
	l.logger.Debug().Fields(fields(kv)).Msg(msg)
}

// Info logs msg at info level.
func (l *Logger) Info(msg string, kv ...interface{}) {
	l.logger.Info().Fields(fields(kv)).Msg(msg)
}

// Warn logs msg at warn level.
func (l *Logger) Warn(msg string, kv ...interface{}) {
	l.logger.Warn().Fields(fields(kv)).Msg(msg)
}

// Error logs msg at error level.
func (l *Logger) Error(msg string, err error, kv ...interface{}) {
	l.logger.Error().Err(err).Fields(fields(kv)).Msg(msg)
}

// WithField returns a derived Logger with one additional field attached to
// every subsequent log line.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{logger: l.logger.With().Interface(key, value).Logger()}
}
