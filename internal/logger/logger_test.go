package logger

import (
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		level  string
		format string
	}{
		{"debug level", "debug", "console"},
		{"info level", "info", "console"},
		{"warn level", "warn", "console"},
		{"error level", "error", "console"},
		{"json format", "info", "json"},
		{"lowercase level", "debug", "console"},
		{"uppercase level", "DEBUG", "console"},
		{"unknown level defaults to info", "verbose", "console"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(tt.level, tt.format)
			if log == nil {
				t.Fatal("expected non-nil logger")
			}
		})
	}
}

func TestLoggerMethods(t *testing.T) {
	log := New("debug", "json")

	// These should not panic
	log.Info("test info message", "key", "value")
	log.Debug("test debug message", "key", "value")
	log.Warn("test warn message", "key", "value")
	log.Error("test error message", "key", "value")
}

func TestLoggerOddFieldCount(t *testing.T) {
	log := New("info", "json")

	// Trailing key without a value is dropped, not a panic
	log.Info("message", "key1", "value1", "dangling")
}

func TestLoggerNonStringKey(t *testing.T) {
	log := New("info", "json")

	// Non-string keys are stringified
	log.Info("message", 42, "value")
}

func TestNop(t *testing.T) {
	log := Nop()
	if log == nil {
		t.Fatal("expected non-nil logger")
	}
	log.Info("discarded")
	log.Error("discarded", "key", "value")
}
