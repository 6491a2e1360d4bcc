package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Settings is an immutable snapshot of the bridge configuration. The
// underlying store may change between reads; every Load returns current
// values.
type Settings struct {
	Endpoint       string `mapstructure:"endpoint"`
	Port           int    `mapstructure:"port"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutMS      int    `mapstructure:"timeout_ms"`
	MaxRetries     int    `mapstructure:"max_retries"`
	DefaultModelID string `mapstructure:"default_model"`
	AutoStart      bool   `mapstructure:"auto_start"`
	LogLevel       string `mapstructure:"log_level"`
	LogFilePath    string `mapstructure:"log_file_path"`
}

// ConfigurationError reports invalid settings. It is never retried; the
// remedy is fixing the configuration file.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

const (
	defaultEndpoint  = "http://localhost"
	defaultPort      = 5273
	defaultTimeoutMS = 30000
	defaultRetries   = 3
	defaultLogLevel  = "info"

	minTimeoutMS = 1000
	maxRetryCap  = 10
)

// Timeout returns the per-attempt request timeout.
func (s Settings) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// BaseURL composes the daemon base URL from endpoint and port.
func (s Settings) BaseURL() string {
	return fmt.Sprintf("%s:%d", s.Endpoint, s.Port)
}

// Validate checks the snapshot against the allowed ranges.
func (s Settings) Validate() error {
	u, err := url.Parse(s.Endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigurationError{Field: "endpoint", Reason: fmt.Sprintf("%q is not an http(s) URL", s.Endpoint)}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return &ConfigurationError{Field: "endpoint", Reason: fmt.Sprintf("unsupported scheme %q", u.Scheme)}
	}
	if s.Port < 1 || s.Port > 65535 {
		return &ConfigurationError{Field: "port", Reason: fmt.Sprintf("%d is out of range 1-65535", s.Port)}
	}
	if s.TimeoutMS < minTimeoutMS {
		return &ConfigurationError{Field: "timeout_ms", Reason: fmt.Sprintf("%d is below the %dms minimum", s.TimeoutMS, minTimeoutMS)}
	}
	if s.MaxRetries < 0 || s.MaxRetries > maxRetryCap {
		return &ConfigurationError{Field: "max_retries", Reason: fmt.Sprintf("%d is out of range 0-%d", s.MaxRetries, maxRetryCap)}
	}
	switch s.LogLevel {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ConfigurationError{Field: "log_level", Reason: fmt.Sprintf("unknown level %q", s.LogLevel)}
	}
	return nil
}

// Provider reads validated settings snapshots from the viper-backed store.
type Provider struct {
	v  *viper.Viper
	mu sync.Mutex

	configPath string
	watching   bool
	onChange   []func(Settings)
}

// NewProvider builds a provider rooted at the given config file path. An
// empty path uses ~/.config/byok/config.yaml. A missing file is not an
// error; defaults apply until one is written.
func NewProvider(configPath string) (*Provider, error) {
	if configPath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configPath = filepath.Join(homeDir, ".config", "byok", "config.yaml")
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("BYOK")
	v.AutomaticEnv()

	v.SetDefault("endpoint", defaultEndpoint)
	v.SetDefault("port", defaultPort)
	v.SetDefault("api_key", "")
	v.SetDefault("timeout_ms", defaultTimeoutMS)
	v.SetDefault("max_retries", defaultRetries)
	v.SetDefault("default_model", "")
	v.SetDefault("auto_start", false)
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("log_file_path", "")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); !ok {
			if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
				return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
			}
		}
	}

	return &Provider{v: v, configPath: configPath}, nil
}

// Load returns the current validated snapshot.
func (p *Provider) Load() (Settings, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var s Settings
	if err := p.v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("failed to decode settings: %w", err)
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Watch registers a callback invoked with a fresh snapshot whenever the
// config file changes on disk. Snapshots that fail validation are dropped.
func (p *Provider) Watch(fn func(Settings)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.onChange = append(p.onChange, fn)
	if p.watching {
		return
	}
	p.watching = true

	p.v.OnConfigChange(func(e fsnotify.Event) {
		s, err := p.Load()
		if err != nil {
			return
		}
		p.mu.Lock()
		callbacks := make([]func(Settings), len(p.onChange))
		copy(callbacks, p.onChange)
		p.mu.Unlock()
		for _, cb := range callbacks {
			cb(s)
		}
	})
	p.v.WatchConfig()
}

// SaveDefaultModel persists the chosen default model id to the config file.
func (p *Provider) SaveDefaultModel(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.v.Set("default_model", id)
	if err := os.MkdirAll(filepath.Dir(p.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := p.v.WriteConfigAs(p.configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
