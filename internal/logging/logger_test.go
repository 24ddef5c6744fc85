package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// restoreLogger puts the package logger back after a test swaps it.
func restoreLogger(t *testing.T) {
	t.Helper()
	original := defaultLogger
	t.Cleanup(func() {
		_ = Close()
		defaultLogger = original
		slog.SetDefault(original)
	})
}

func TestSetupLoggerLevels(t *testing.T) {
	restoreLogger(t)

	testCases := []struct {
		name      string
		level     LogLevel
		wantDebug bool
		wantInfo  bool
	}{
		{name: "Debug level", level: LevelDebug, wantDebug: true, wantInfo: true},
		{name: "Info level", level: LevelInfo, wantDebug: false, wantInfo: true},
		{name: "Warn level", level: LevelWarn, wantDebug: false, wantInfo: false},
		{name: "Error level", level: LevelError, wantDebug: false, wantInfo: false},
		{name: "Invalid level defaults to Info", level: LogLevel("invalid"), wantDebug: false, wantInfo: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetupLoggerWithFormat(&buf, tc.level, FormatText)
			require.NotNil(t, defaultLogger)

			Debug("debug message")
			assert.Equal(t, tc.wantDebug, strings.Contains(buf.String(), "debug message"))

			buf.Reset()
			Info("info message")
			assert.Equal(t, tc.wantInfo, strings.Contains(buf.String(), "info message"))
		})
	}
}

func TestLoggingFunctions(t *testing.T) {
	restoreLogger(t)

	var buf bytes.Buffer
	SetupLoggerWithFormat(&buf, LevelDebug, FormatText)

	tests := []struct {
		name    string
		logFunc func(string, ...any)
		level   string
		message string
	}{
		{name: "Debug logging", logFunc: Debug, level: "DEBUG", message: "debug message"},
		{name: "Info logging", logFunc: Info, level: "INFO", message: "info message"},
		{name: "Warn logging", logFunc: Warn, level: "WARN", message: "warn message"},
		{name: "Error logging", logFunc: Error, level: "ERROR", message: "error message"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf.Reset()
			tc.logFunc(tc.message, "issue_number", 42)

			output := buf.String()
			assert.Contains(t, output, "level="+tc.level)
			assert.Contains(t, output, tc.message)
			assert.Contains(t, output, "issue_number=42")
		})
	}
}

func TestJSONFormat(t *testing.T) {
	restoreLogger(t)

	var buf bytes.Buffer
	SetupLoggerWithFormat(&buf, LevelInfo, FormatJSON)

	Info("claimed issue", "issue_number", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "claimed issue", entry["msg"])
	assert.Equal(t, float64(3), entry["issue_number"])
}

func TestWith(t *testing.T) {
	restoreLogger(t)

	var buf bytes.Buffer
	SetupLoggerWithFormat(&buf, LevelInfo, FormatText)

	With("run_id", "abc").Info("run started")
	assert.Contains(t, buf.String(), "run_id=abc")
}

func TestSetupFromEnvironmentWritesLogFile(t *testing.T) {
	restoreLogger(t)

	path := filepath.Join(t.TempDir(), "handoff.log")
	t.Setenv("LOG_FILE", path)
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")

	var buf bytes.Buffer
	require.NoError(t, SetupFromEnvironment(&buf))

	Debug("tee message")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tee message")
	assert.Contains(t, buf.String(), "tee message")
}

func TestSetupFromEnvironmentBadLogFile(t *testing.T) {
	restoreLogger(t)

	t.Setenv("LOG_FILE", filepath.Join(t.TempDir(), "missing", "dir", "handoff.log"))

	var buf bytes.Buffer
	err := SetupFromEnvironment(&buf)
	require.Error(t, err)

	// Logging still works against the primary writer.
	Info("still logging")
	assert.Contains(t, buf.String(), "still logging")
}

func TestMaskSensitive(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Empty string", input: "", expected: "<not set>"},
		{name: "Short string", input: "abc", expected: "<set>"},
		{name: "Exactly 4 characters", input: "abcd", expected: "<set>"},
		{name: "Long string", input: "abcdefghijklm", expected: "abcd...***"},
		{name: "Token-like string", input: "ghp_8fk39Dkf0s", expected: "ghp_...***"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, MaskSensitive(tc.input))
		})
	}
}
