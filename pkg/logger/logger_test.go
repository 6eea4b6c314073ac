package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
)

// TestNewLogger tests creating a new logger instance
func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid text logger",
			config: Config{Level: "info", Format: "text", Output: "stdout", Component: "test"},
		},
		{
			name:   "valid json logger",
			config: Config{Level: "debug", Format: "json", Output: "stderr", Component: "test"},
		},
		{
			name:   "console logger",
			config: Config{Level: "warn", Format: "console", Output: "stderr", Component: "test"},
		},
		{
			name:   "invalid log level falls back to info",
			config: Config{Level: "invalid", Format: "text", Output: "stdout", Component: "test"},
		},
		{
			name:   "empty values use defaults",
			config: Config{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestNewLogger_FileOutput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "exhandler.log")

	logger, err := New(Config{Level: "info", Format: "text", Output: path})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	logger.Info("hello")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"bogus": slog.LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

// TestJSONFields verifies default attributes on JSON output
func TestJSONFields(t *testing.T) {
	var buf bytes.Buffer

	logger, err := New(Config{Level: "debug", Format: "json", Component: "store", Writer: &buf})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Debug("test message", "key", "value")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if entry["service"] != "exhandler" {
		t.Errorf("service = %v, want exhandler", entry["service"])
	}
	if entry["component"] != "store" {
		t.Errorf("component = %v, want store", entry["component"])
	}
	if entry["key"] != "value" {
		t.Errorf("key = %v, want value", entry["key"])
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Config{Level: "warn", Format: "text", Writer: &buf})

	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", buf.String())
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Errorf("warn should be logged, got %q", buf.String())
	}
}

func TestWithComponent(t *testing.T) {
	logger, _ := New(Config{Level: "info", Format: "text", Component: "base", Writer: &bytes.Buffer{}})

	newLogger := logger.WithComponent("worker")
	if newLogger == logger {
		t.Error("WithComponent() returned same instance")
	}
	if newLogger.Component() != "worker" {
		t.Errorf("Component() = %q, want worker", newLogger.Component())
	}
}

func TestErrorEvent(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := New(Config{Level: "info", Format: "json", Writer: &buf})

	logger.ErrorEvent(context.Background(), "save failed", errors.New("disk full"),
		slog.String("key", "ErrorLog"),
	)

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Output is not valid JSON: %v", err)
	}
	if entry["error"] != "disk full" {
		t.Errorf("error = %v, want disk full", entry["error"])
	}
	if entry["error_type"] != "*errors.errorString" {
		t.Errorf("error_type = %v", entry["error_type"])
	}
	if entry["level"] != "ERROR" {
		t.Errorf("level = %v, want ERROR", entry["level"])
	}
}

func TestGlobal_Fallback(t *testing.T) {
	if Global() == nil {
		t.Fatal("Global() should never return nil")
	}

	var buf bytes.Buffer
	l, _ := New(Config{Format: "text", Writer: &buf})
	SetGlobal(l)
	defer SetGlobal(nil)

	Info("via global")
	if !strings.Contains(buf.String(), "via global") {
		t.Errorf("global logger not used, got %q", buf.String())
	}
}

func TestDiscard(t *testing.T) {
	Discard().Error("dropped")
}
