package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	p, err := NewProvider(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	s, err := p.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if s.Endpoint != "http://localhost" {
		t.Errorf("Expected default endpoint, got %q", s.Endpoint)
	}
	if s.Port != 5273 {
		t.Errorf("Expected default port 5273, got %d", s.Port)
	}
	if s.TimeoutMS != 30000 {
		t.Errorf("Expected default timeout 30000, got %d", s.TimeoutMS)
	}
	if s.MaxRetries != 3 {
		t.Errorf("Expected default max retries 3, got %d", s.MaxRetries)
	}
	if s.BaseURL() != "http://localhost:5273" {
		t.Errorf("Unexpected base URL: %s", s.BaseURL())
	}
}

func TestLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	content := "endpoint: http://127.0.0.1\nport: 8080\ntimeout_ms: 5000\nmax_retries: 1\ndefault_model: phi-4-mini\n"
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	p, err := NewProvider(configPath)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	s, err := p.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.BaseURL() != "http://127.0.0.1:8080" {
		t.Errorf("Unexpected base URL: %s", s.BaseURL())
	}
	if s.DefaultModelID != "phi-4-mini" {
		t.Errorf("Expected default model phi-4-mini, got %q", s.DefaultModelID)
	}
	if s.MaxRetries != 1 {
		t.Errorf("Expected max retries 1, got %d", s.MaxRetries)
	}
}

func TestValidate(t *testing.T) {
	valid := Settings{
		Endpoint:   "http://localhost",
		Port:       5273,
		TimeoutMS:  30000,
		MaxRetries: 3,
		LogLevel:   "info",
	}

	tests := []struct {
		name      string
		mutate    func(*Settings)
		wantField string
	}{
		{
			name:   "Valid settings pass",
			mutate: func(s *Settings) {},
		},
		{
			name:      "Bad endpoint URL",
			mutate:    func(s *Settings) { s.Endpoint = "localhost" },
			wantField: "endpoint",
		},
		{
			name:      "Non-http scheme",
			mutate:    func(s *Settings) { s.Endpoint = "ftp://localhost" },
			wantField: "endpoint",
		},
		{
			name:      "Port out of range",
			mutate:    func(s *Settings) { s.Port = 0 },
			wantField: "port",
		},
		{
			name:      "Timeout below minimum",
			mutate:    func(s *Settings) { s.TimeoutMS = 500 },
			wantField: "timeout_ms",
		},
		{
			name:      "Retries above cap",
			mutate:    func(s *Settings) { s.MaxRetries = 11 },
			wantField: "max_retries",
		},
		{
			name:      "Negative retries",
			mutate:    func(s *Settings) { s.MaxRetries = -1 },
			wantField: "max_retries",
		},
		{
			name:      "Unknown log level",
			mutate:    func(s *Settings) { s.LogLevel = "loud" },
			wantField: "log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			err := s.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, expected nil", err)
				}
				return
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() error = %v, expected *ConfigurationError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("Expected error on field %q, got %q", tt.wantField, cfgErr.Field)
			}
		})
	}
}

func TestSaveDefaultModel(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")

	p, err := NewProvider(configPath)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}

	if err := p.SaveDefaultModel("qwen2.5-7b"); err != nil {
		t.Fatalf("SaveDefaultModel() error = %v", err)
	}

	// A fresh provider over the same file sees the persisted choice
	p2, err := NewProvider(configPath)
	if err != nil {
		t.Fatalf("NewProvider() error = %v", err)
	}
	s, err := p2.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.DefaultModelID != "qwen2.5-7b" {
		t.Errorf("Expected persisted default model, got %q", s.DefaultModelID)
	}
}
