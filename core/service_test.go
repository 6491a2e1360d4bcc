package core

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pierceboggan/byok-foundry-local/config"
)

func writeServiceConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := body + "\nlog_file_path: " + filepath.Join(dir, "byok.log") + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestNewBridgeServiceWiresComponents(t *testing.T) {
	path := writeServiceConfig(t, "port: 9123\nlog_level: error")

	service, err := NewBridgeService(ServiceConfig{ConfigPath: path})
	if err != nil {
		t.Fatalf("NewBridgeService() error = %v", err)
	}
	defer service.Close()

	if service.Client() == nil || service.Registry() == nil || service.Relay() == nil {
		t.Fatal("Service components not wired")
	}
	if service.Config() == nil || service.Logger() == nil {
		t.Fatal("Service support components not wired")
	}

	settings, err := service.Config().Load()
	if err != nil {
		t.Fatalf("Config().Load() error = %v", err)
	}
	if settings.Port != 9123 {
		t.Errorf("Settings not read from file, port = %d", settings.Port)
	}
}

func TestNewBridgeServiceRejectsInvalidConfig(t *testing.T) {
	path := writeServiceConfig(t, "port: 123456\nlog_level: error")

	_, err := NewBridgeService(ServiceConfig{ConfigPath: path})
	var confErr *config.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("Expected ConfigurationError, got %v", err)
	}
	if confErr.Field != "port" {
		t.Errorf("ConfigurationError field = %q, want %q", confErr.Field, "port")
	}
}

func TestNewBridgeServiceLogLevelOverride(t *testing.T) {
	path := writeServiceConfig(t, "log_level: banana")

	// An invalid configured level fails, construction-time override does not
	// consult the file's level.
	if _, err := NewBridgeService(ServiceConfig{ConfigPath: path}); err == nil {
		t.Fatal("Expected invalid log level to be rejected")
	}

	path = writeServiceConfig(t, "log_level: info")
	service, err := NewBridgeService(ServiceConfig{ConfigPath: path, LogLevel: "error"})
	if err != nil {
		t.Fatalf("NewBridgeService() error = %v", err)
	}
	defer service.Close()
}

func TestBridgeServiceCloseCancelsContext(t *testing.T) {
	path := writeServiceConfig(t, "log_level: error")

	service, err := NewBridgeService(ServiceConfig{ConfigPath: path})
	if err != nil {
		t.Fatalf("NewBridgeService() error = %v", err)
	}

	ctx := service.Context()
	if ctx.Err() != nil {
		t.Fatal("Context cancelled before Close")
	}
	if err := service.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if ctx.Err() == nil {
		t.Error("Close() should cancel the service context")
	}
}
