package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		debug    string
		level    string
		expected LogLevel
	}{
		{name: "Debug via LOG_LEVEL", level: "debug", expected: LevelDebug},
		{name: "Info via LOG_LEVEL", level: "info", expected: LevelInfo},
		{name: "Warn via LOG_LEVEL", level: "warn", expected: LevelWarn},
		{name: "Error via LOG_LEVEL", level: "error", expected: LevelError},
		{name: "Case insensitive", level: "DEBUG", expected: LevelDebug},
		{name: "Warning alias", level: "warning", expected: LevelWarn},
		{name: "Unknown defaults to info", level: "verbose", expected: LevelInfo},
		{name: "Empty defaults to info", expected: LevelInfo},
		{name: "DEBUG overrides LOG_LEVEL", debug: "true", level: "error", expected: LevelDebug},
		{name: "DEBUG=0 is ignored", debug: "0", level: "warn", expected: LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseLevel(tt.debug, tt.level)
			if got != tt.expected {
				t.Errorf("parseLevel(%q, %q) = %v, want %v", tt.debug, tt.level, got, tt.expected)
			}
		})
	}
}

func TestLogLevelConstants(t *testing.T) {
	levels := []LogLevel{LevelDebug, LevelInfo, LevelWarn, LevelError}
	for i := 0; i < len(levels)-1; i++ {
		if levels[i] >= levels[i+1] {
			t.Errorf("Log levels should be in ascending order: %v >= %v", levels[i], levels[i+1])
		}
	}
}

func TestNewLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "json", LevelWarn)

	l.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered at warn level, got %q", buf.String())
	}

	l.Warn().Msg("shown")
	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "shown" {
		t.Errorf("message = %v, want shown", entry["message"])
	}
	if entry["service"] != "tubegate" {
		t.Errorf("service = %v, want tubegate", entry["service"])
	}
}

func TestNewLoggerConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newLogger(&buf, "console", LevelDebug)
	l.Info().Msg("hello console")

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Errorf("console format should not emit JSON, got %q", out)
	}
	if !strings.Contains(out, "hello console") {
		t.Errorf("expected message in output, got %q", out)
	}
}

func TestRequestIDContext(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Errorf("expected empty request id, got %q", got)
	}

	ctx := ContextWithRequestID(context.Background(), "abc-123")
	if got := RequestIDFromContext(ctx); got != "abc-123" {
		t.Errorf("RequestIDFromContext = %q, want abc-123", got)
	}

	if FromContext(ctx) == nil {
		t.Error("FromContext returned nil logger")
	}
	if FromContext(context.Background()) == nil {
		t.Error("FromContext returned nil logger for bare context")
	}
}

// captureBase points the package logger at a buffer for the test.
func captureBase(t *testing.T, level LogLevel) *bytes.Buffer {
	t.Helper()
	logger()
	saved := base
	var buf bytes.Buffer
	base = newLogger(&buf, "json", level)
	t.Cleanup(func() { base = saved })
	return &buf
}

func TestContextFunctionsCarryRequestID(t *testing.T) {
	buf := captureBase(t, LevelDebug)
	ctx := ContextWithRequestID(context.Background(), "req-42")

	tests := []struct {
		name  string
		fn    func()
		level string
	}{
		{"DebugContext", func() { DebugContext(ctx, "sent %d bytes", 10) }, "debug"},
		{"InfoContext", func() { InfoContext(ctx, "sent %d bytes", 10) }, "info"},
		{"WarnContext", func() { WarnContext(ctx, "sent %d bytes", 10) }, "warn"},
		{"ErrorContext", func() { ErrorContext(ctx, "sent %d bytes", 10) }, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.fn()

			var entry map[string]interface{}
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("expected JSON line, got %q: %v", buf.String(), err)
			}
			if entry["message"] != "sent 10 bytes" {
				t.Errorf("message = %v, want formatted text", entry["message"])
			}
			if entry["request_id"] != "req-42" {
				t.Errorf("request_id = %v, want req-42", entry["request_id"])
			}
			if entry["level"] != tt.level {
				t.Errorf("level = %v, want %s", entry["level"], tt.level)
			}
		})
	}
}

func TestContextFunctionsWithoutRequestID(t *testing.T) {
	buf := captureBase(t, LevelInfo)

	InfoContext(context.Background(), "plain")

	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("bare context should not add request_id: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "plain") {
		t.Errorf("message missing: %q", buf.String())
	}
}

// TestLoggingFunctions tests that logging functions don't panic
func TestLoggingFunctions(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
	}{
		{name: "Debug", fn: func() { Debug("test message") }},
		{name: "Info", fn: func() { Info("test message") }},
		{name: "Warn", fn: func() { Warn("test message") }},
		{name: "Error", fn: func() { Error("test message") }},
		{name: "Debug with args", fn: func() { Debug("test %s %d", "message", 123) }},
		{name: "Info with args", fn: func() { Info("test %s %d", "message", 123) }},
		{name: "Printf", fn: func() { Printf("test %s", "message") }},
		{name: "Println", fn: func() { Println("test", "message", 123) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Function panicked: %v", r)
				}
			}()
			tt.fn()
		})
	}
}

func TestLogLevelString(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{LogLevel(99), "unknown(99)"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			got := tt.level.String()
			if got != tt.expected {
				t.Errorf("LogLevel.String() = %q, want %q", got, tt.expected)
			}
		})
	}
}
