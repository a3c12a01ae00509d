// Package logging implements the ambient structured log facility
// spec.md treats as an out-of-scope collaborator consumed as an opaque
// sink: four severities (debug, warning, error, access) over structured
// records {level, source_location, text}. Grounded on
// ws/internal/shared/monitoring/logger.go's zerolog setup and its
// LogError/LogPanic/RecoverPanic helpers. zerolog has no built-in
// "access" level, so it is modeled as an Info-level event tagged
// event=access, matching how that file tags special-purpose log lines
// with extra fields rather than inventing new zerolog levels.
package logging

import (
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
)

// Format selects the console output rendering.
type Format int

const (
	FormatJSON Format = iota
	FormatPretty
)

// Level is the configured minimum severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string ("debug"/"warn"/"error", default
// "info") to a Level.
func ParseLevel(s string) Level {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// ParseFormat maps a config string ("console", default "json") to a
// Format.
func ParseFormat(s string) Format {
	if s == "console" {
		return FormatPretty
	}
	return FormatJSON
}

// Logger is the four-severity sink every Subsystem/Thread is handed by
// reference (spec.md §1, §6). It wraps a zerolog.Logger rather than
// exposing one directly, so call sites stay decoupled from zerolog's API
// surface and fields are passed as plain maps, matching
// monitoring/logger.go's LogError(logger, err, msg, fields) shape.
type Logger struct {
	z zerolog.Logger
}

// Config mirrors monitoring/logger.go's LoggerConfig.
type Config struct {
	Level   Level
	Format  Format
	Service string
}

// New builds a Logger per cfg.
func New(cfg Config) Logger {
	var output io.Writer = os.Stdout
	if cfg.Format == FormatPretty {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	var level zerolog.Level
	switch cfg.Level {
	case LevelDebug:
		level = zerolog.DebugLevel
	case LevelInfo:
		level = zerolog.InfoLevel
	case LevelWarn:
		level = zerolog.WarnLevel
	case LevelError:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}

	service := cfg.Service
	if service == "" {
		service = "netcore"
	}
	z := zerolog.New(output).Level(level).With().
		Timestamp().
		Caller().
		Str("service", service).
		Logger()
	return Logger{z: z}
}

// Noop returns a Logger that discards everything, for tests and for
// components constructed before a real logger is wired in.
func Noop() Logger {
	return Logger{z: zerolog.New(io.Discard)}
}

func withFields(e *zerolog.Event, fields map[string]any) *zerolog.Event {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	return e
}

// Debug logs at debug severity.
func (l Logger) Debug(msg string, fields map[string]any) {
	withFields(l.z.Debug(), fields).Msg(msg)
}

// Warn logs at warning severity.
func (l Logger) Warn(msg string, fields map[string]any) {
	withFields(l.z.Warn(), fields).Msg(msg)
}

// Error logs at error severity.
func (l Logger) Error(msg string, fields map[string]any) {
	withFields(l.z.Error(), fields).Msg(msg)
}

// Access logs an access-log record: modeled as Info level tagged
// event=access, since zerolog has no distinct access level.
func (l Logger) Access(msg string, fields map[string]any) {
	withFields(l.z.Info().Str("event", "access"), fields).Msg(msg)
}

// ErrorWithStack logs err with a full stack trace, for unexpected
// failures (mirrors monitoring/logger.go's LogErrorWithStack).
func (l Logger) ErrorWithStack(err error, msg string, fields map[string]any) {
	e := l.z.Error().Err(err).Str("stack_trace", string(debug.Stack()))
	withFields(e, fields).Msg(msg)
}

// RecoverPanic recovers a panic, logs it at error severity with a stack
// trace, and lets the caller's goroutine continue (mirrors
// monitoring/logger.go's RecoverPanic — "ALL goroutine defer blocks"
// use this so one panicking task doesn't take the process down with
// it).
func (l Logger) RecoverPanic(goroutineName string, fields map[string]any) {
	if r := recover(); r != nil {
		e := l.z.Error().
			Str("goroutine", goroutineName).
			Interface("panic_value", r).
			Str("stack_trace", string(debug.Stack()))
		withFields(e, fields).Msg("goroutine panic recovered")
	}
}

// Zerolog exposes the underlying zerolog.Logger for callers that need to
// pass it to a third-party library expecting one directly (e.g. the
// franz-go/nats.go client option hooks in the domain bridges).
func (l Logger) Zerolog() zerolog.Logger {
	return l.z
}
