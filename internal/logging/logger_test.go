package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir string, cfg loggingConfig) {
	t.Helper()
	cfgDir := filepath.Join(dir, ".clauseguard")
	if err := os.MkdirAll(cfgDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	data, err := json.Marshal(configFile{Logging: cfg})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := os.WriteFile(filepath.Join(cfgDir, "config.json"), data, 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func resetLogging() {
	CloseAll()
	configMu.Lock()
	config = loggingConfig{}
	logLevel = LevelInfo
	configMu.Unlock()
	logsDir = ""
	workspace = ""
}

func TestInitializeWithoutConfig(t *testing.T) {
	defer resetLogging()
	dir := t.TempDir()

	if err := Initialize(dir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if IsDebugMode() {
		t.Error("Expected debug mode off when no config exists")
	}

	// No logs directory should be created in production mode
	if _, err := os.Stat(filepath.Join(dir, ".clauseguard", "logs")); !os.IsNotExist(err) {
		t.Error("Expected no logs directory without debug mode")
	}
}

func TestInitializeDebugMode(t *testing.T) {
	defer resetLogging()
	dir := t.TempDir()
	writeConfig(t, dir, loggingConfig{DebugMode: true, Level: "debug"})

	if err := Initialize(dir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if !IsDebugMode() {
		t.Error("Expected debug mode on")
	}

	API("test api message %d", 42)
	CloseAll()

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, ".clauseguard", "logs", date+"_api.log")
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Expected api log file: %v", err)
	}
	if !strings.Contains(string(data), "test api message 42") {
		t.Errorf("Log file missing message, got: %s", data)
	}
}

func TestCategoryDisabled(t *testing.T) {
	defer resetLogging()
	dir := t.TempDir()
	writeConfig(t, dir, loggingConfig{
		DebugMode:  true,
		Level:      "debug",
		Categories: map[string]bool{"store": false},
	})

	if err := Initialize(dir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if IsCategoryEnabled(CategoryStore) {
		t.Error("Expected store category disabled")
	}
	if !IsCategoryEnabled(CategoryAPI) {
		t.Error("Expected api category enabled by default")
	}

	Store("should not appear")
	CloseAll()

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, ".clauseguard", "logs", date+"_store.log")
	if _, err := os.Stat(logPath); !os.IsNotExist(err) {
		t.Error("Expected no store log file for disabled category")
	}
}

func TestLogLevelFiltering(t *testing.T) {
	defer resetLogging()
	dir := t.TempDir()
	writeConfig(t, dir, loggingConfig{DebugMode: true, Level: "warn"})

	if err := Initialize(dir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	l := Get(CategoryBatch)
	l.Debug("debug line")
	l.Info("info line")
	l.Warn("warn line")
	l.Error("error line")
	CloseAll()

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, ".clauseguard", "logs", date+"_batch.log")
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	content := string(data)
	if strings.Contains(content, "debug line") || strings.Contains(content, "info line") {
		t.Error("Expected debug/info filtered out at warn level")
	}
	if !strings.Contains(content, "warn line") || !strings.Contains(content, "error line") {
		t.Error("Expected warn/error lines present")
	}
}

func TestJSONFormat(t *testing.T) {
	defer resetLogging()
	dir := t.TempDir()
	writeConfig(t, dir, loggingConfig{DebugMode: true, Level: "info", JSONFormat: true})

	if err := Initialize(dir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	Retrieval("ranked %d documents", 7)
	CloseAll()

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, ".clauseguard", "logs", date+"_retrieval.log")
	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	idx := strings.Index(string(data), "{")
	if idx < 0 {
		t.Fatalf("Expected JSON object in log line, got: %s", data)
	}
	var entry structuredEntry
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(data)[idx:])), &entry); err != nil {
		t.Fatalf("Expected valid JSON entry: %v", err)
	}
	if entry.Category != "retrieval" || entry.Level != "info" {
		t.Errorf("Unexpected entry: %+v", entry)
	}
	if entry.Message != "ranked 7 documents" {
		t.Errorf("Expected formatted message, got %q", entry.Message)
	}
}

func TestTimerStop(t *testing.T) {
	defer resetLogging()
	dir := t.TempDir()
	writeConfig(t, dir, loggingConfig{DebugMode: true, Level: "debug"})

	if err := Initialize(dir); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	timer := StartTimer(CategoryAPI, "test-op")
	time.Sleep(5 * time.Millisecond)
	elapsed := timer.Stop()
	if elapsed < 5*time.Millisecond {
		t.Errorf("Expected elapsed >= 5ms, got %v", elapsed)
	}
}

func TestNoopLoggerWhenUninitialized(t *testing.T) {
	defer resetLogging()
	// Without Initialize, all logging should be silent no-ops.
	l := Get(CategoryAPI)
	l.Info("goes nowhere")
	l.Error("also nowhere")
}
