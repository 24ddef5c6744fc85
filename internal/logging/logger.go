// Package logging provides centralized logging functionality for the application.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug for detailed troubleshooting information.
	LevelDebug LogLevel = "debug"
	// LevelInfo for general operational information.
	LevelInfo LogLevel = "info"
	// LevelWarn for potentially harmful situations.
	LevelWarn LogLevel = "warn"
	// LevelError for error events that might still allow the application to continue.
	LevelError LogLevel = "error"
)

// LogFormat selects the slog handler.
type LogFormat string

const (
	// FormatText writes key=value lines.
	FormatText LogFormat = "text"
	// FormatJSON writes one JSON object per line.
	FormatJSON LogFormat = "json"
)

var (
	// defaultLogger is the default logger instance.
	defaultLogger *slog.Logger

	// logFile is the currently open LOG_FILE, if any.
	logFile *os.File
)

// init initializes the default logger from LOG_LEVEL and LOG_FORMAT.
func init() {
	logLevelStr := strings.ToLower(os.Getenv("LOG_LEVEL"))
	if logLevelStr == "" {
		logLevelStr = string(LevelInfo)
	}

	SetupLoggerWithFormat(os.Stderr, LogLevel(logLevelStr), LogFormat(strings.ToLower(os.Getenv("LOG_FORMAT"))))
}

// SetupLoggerWithFormat configures the logger with the specified output, level and format.
// Unknown levels fall back to info and unknown formats to text.
func SetupLoggerWithFormat(w io.Writer, level LogLevel, format LogFormat) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	defaultLogger = slog.New(handler)
	slog.SetDefault(defaultLogger)
}

// SetupFromEnvironment reconfigures logging from LOG_LEVEL, LOG_FORMAT and LOG_FILE.
// When LOG_FILE is set, output goes to both w and the file (opened for append).
func SetupFromEnvironment(w io.Writer) error {
	level := LogLevel(strings.ToLower(os.Getenv("LOG_LEVEL")))
	format := LogFormat(strings.ToLower(os.Getenv("LOG_FORMAT")))

	path := os.Getenv("LOG_FILE")
	if path == "" {
		SetupLoggerWithFormat(w, level, format)
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		SetupLoggerWithFormat(w, level, format)
		return fmt.Errorf("failed to open log file: %w", err)
	}

	Close()
	logFile = f
	SetupLoggerWithFormat(io.MultiWriter(w, f), level, format)
	return nil
}

// Close releases the log file opened by SetupFromEnvironment, if any.
func Close() error {
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

func parseLevel(level LogLevel) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs a message at debug level.
func Debug(msg string, args ...any) {
	defaultLogger.Debug(msg, args...)
}

// Info logs a message at info level.
func Info(msg string, args ...any) {
	defaultLogger.Info(msg, args...)
}

// Warn logs a message at warn level.
func Warn(msg string, args ...any) {
	defaultLogger.Warn(msg, args...)
}

// Error logs a message at error level.
func Error(msg string, args ...any) {
	defaultLogger.Error(msg, args...)
}

// With returns a logger carrying the given attributes, e.g. a run id.
func With(args ...any) *slog.Logger {
	return defaultLogger.With(args...)
}

// MaskSensitive masks sensitive data for logging.
func MaskSensitive(value string) string {
	if value == "" {
		return "<not set>"
	}
	if len(value) <= 4 {
		return "<set>"
	}
	return value[:4] + "..." + strings.Repeat("*", 3)
}
