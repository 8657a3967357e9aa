package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestInitCreatesLogFile(t *testing.T) {
	dir := t.TempDir()
	prev := Logger
	defer func() { Logger = prev }()

	if err := Init(Config{ConfigDir: dir}); err != nil {
		t.Fatalf("failed to init logger: %v", err)
	}

	Warn("sync failed", "habit", "h1")

	data, err := os.ReadFile(filepath.Join(dir, "logs", "madhabits.log"))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "sync failed") {
		t.Errorf("log file does not contain message, got %q", string(data))
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	prev := Logger
	defer func() { Logger = prev }()

	Logger = New(&buf, log.WarnLevel, false)
	Debug("hidden")
	Info("hidden too")
	Error("visible", "error", "boom")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected debug/info to be filtered, got %q", out)
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, "madhabits") {
		t.Errorf("expected prefixed error line, got %q", out)
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	prev := Logger
	defer func() { Logger = prev }()
	Logger = nil

	Debug("a")
	Info("b")
	Warn("c")
	Error("d")
}
