package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// LogLevel represents the severity of a log message
type LogLevel int

const (
	// LevelDebug is the debug log level
	LevelDebug LogLevel = iota
	// LevelInfo is the info log level
	LevelInfo
	// LevelWarn is the warning log level
	LevelWarn
	// LevelError is the error log level
	LevelError
)

type ctxKey string

const requestIDKey ctxKey = "request_id"

var (
	currentLevel LogLevel
	levelOnce    sync.Once

	base     zerolog.Logger
	baseOnce sync.Once
)

// parseLevel maps the DEBUG and LOG_LEVEL values onto a LogLevel.
func parseLevel(debug, level string) LogLevel {
	switch strings.ToLower(debug) {
	case "1", "true", "yes", "on":
		return LevelDebug
	}

	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// initLevel initializes the log level from environment variables
func initLevel() {
	levelOnce.Do(func() {
		currentLevel = parseLevel(os.Getenv("DEBUG"), os.Getenv("LOG_LEVEL"))
	})
}

func (l LogLevel) zerologLevel() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// newLogger builds the zerolog logger. LOG_FORMAT=console switches to the
// human-readable writer; anything else emits JSON lines.
func newLogger(w io.Writer, format string, level LogLevel) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "2006-01-02 15:04:05"}
	}
	return zerolog.New(w).Level(level.zerologLevel()).With().
		Timestamp().
		Str("service", "tubegate").
		Logger()
}

func logger() *zerolog.Logger {
	baseOnce.Do(func() {
		base = newLogger(os.Stderr, os.Getenv("LOG_FORMAT"), GetLevel())
	})
	return &base
}

// Base returns the process-wide logger.
func Base() zerolog.Logger {
	return *logger()
}

// GetLevel returns the current log level
func GetLevel() LogLevel {
	initLevel()
	return currentLevel
}

// IsDebugEnabled returns true if debug logging is enabled
func IsDebugEnabled() bool {
	return GetLevel() <= LevelDebug
}

// Debug logs a debug message (only if DEBUG=true or LOG_LEVEL=debug)
func Debug(format string, args ...interface{}) {
	logger().Debug().Msgf(format, args...)
}

// Info logs an info message
func Info(format string, args ...interface{}) {
	logger().Info().Msgf(format, args...)
}

// Warn logs a warning message
func Warn(format string, args ...interface{}) {
	logger().Warn().Msgf(format, args...)
}

// Error logs an error message
func Error(format string, args ...interface{}) {
	logger().Error().Msgf(format, args...)
}

// Fatal logs an error message and exits
func Fatal(format string, args ...interface{}) {
	logger().Fatal().Msgf(format, args...)
}

// Printf logs at info level regardless of the configured level.
func Printf(format string, args ...interface{}) {
	logger().Log().Msgf(format, args...)
}

// Println logs its operands at info level regardless of the configured level.
func Println(args ...interface{}) {
	logger().Log().Msg(strings.TrimSuffix(fmt.Sprintln(args...), "\n"))
}

// ContextWithRequestID stores the request id in ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the request id stored in ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// FromContext returns a logger annotated with the request id carried by ctx.
func FromContext(ctx context.Context) *zerolog.Logger {
	l := logger()
	rid := RequestIDFromContext(ctx)
	if rid == "" {
		return l
	}
	child := l.With().Str("request_id", rid).Logger()
	return &child
}

// DebugContext is Debug with the request id carried by ctx.
func DebugContext(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Debug().Msgf(format, args...)
}

// InfoContext is Info with the request id carried by ctx.
func InfoContext(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Info().Msgf(format, args...)
}

// WarnContext is Warn with the request id carried by ctx.
func WarnContext(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Warn().Msgf(format, args...)
}

// ErrorContext is Error with the request id carried by ctx.
func ErrorContext(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Error().Msgf(format, args...)
}

// String returns the string representation of a log level
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("unknown(%d)", l)
	}
}
