package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := parseLogLevel(tt.input)
			if got != tt.expected {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestPackageFunctionsWithoutInit(t *testing.T) {
	saved := DefaultLoggingService
	DefaultLoggingService = nil
	defer func() { DefaultLoggingService = saved }()

	// Must not panic before InitLogger
	Info("info before init")
	Warn("warn before init")
	Error("error before init")
	Debug("debug before init")

	if Logger() == nil {
		t.Error("Expected fallback logger")
	}
	if err := Close(); err != nil {
		t.Errorf("Close without init returned %v", err)
	}
}

func TestInitLoggerWritesJSONFile(t *testing.T) {
	saved := DefaultLoggingService
	savedDefault := slog.Default()
	defer func() {
		DefaultLoggingService = saved
		slog.SetDefault(savedDefault)
	}()

	dir := t.TempDir()
	InitLogger(Options{Dir: dir, Level: "info", RetentionWeeks: 1, MaxFileSize: 1024 * 1024})

	Info("publication finished", "records", 66)
	Debug("filtered out at info level")

	if err := Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	matches, err := filepath.Glob(filepath.Join(dir, logFilePrefix+"*.log"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("Expected one log file, got %v (err %v)", matches, err)
	}

	content, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), `"msg":"publication finished"`) {
		t.Errorf("Expected JSON record in log file, got %s", content)
	}
	if !strings.Contains(string(content), `"records":66`) {
		t.Errorf("Expected records attribute in log file, got %s", content)
	}
	if strings.Contains(string(content), "filtered out") {
		t.Error("Debug record written at info level")
	}
}
