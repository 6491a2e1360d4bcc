package core

import (
	"context"
	"fmt"

	"github.com/pierceboggan/byok-foundry-local/config"
)

// BridgeService wires the configuration provider, transport client, model
// registry and chat relay together. Everything is constructed once here and
// passed explicitly; there are no lazily-initialized globals.
type BridgeService struct {
	provider   *config.Provider
	logger     *Logger
	client     *DaemonClient
	registry   *ModelRegistry
	relay      *ChatRelay
	ctx        context.Context
	cancelFunc context.CancelFunc
}

// ServiceConfig holds construction-time overrides for the bridge service
type ServiceConfig struct {
	ConfigPath string
	LogLevel   string
	Context    context.Context
}

// NewBridgeService creates a new instance of the bridge service
func NewBridgeService(cfg ServiceConfig) (*BridgeService, error) {
	provider, err := config.NewProvider(cfg.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create config provider: %w", err)
	}

	settings, err := provider.Load()
	if err != nil {
		return nil, err
	}

	logLevel := settings.LogLevel
	if cfg.LogLevel != "" {
		logLevel = cfg.LogLevel
	}
	logger, err := NewLogger(logLevel, settings.LogFilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialise logger: %w", err)
	}

	ctx := cfg.Context
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)

	client := NewDaemonClient(provider, logger)
	registry := NewModelRegistry(client, provider, logger)
	relay := NewChatRelay(registry, client, logger)

	service := &BridgeService{
		provider:   provider,
		logger:     logger,
		client:     client,
		registry:   registry,
		relay:      relay,
		ctx:        ctx,
		cancelFunc: cancel,
	}

	// Changes written to the config file take effect on the next read; log
	// the edit so operators can see it landed.
	provider.Watch(func(s config.Settings) {
		logger.Infof("Configuration reloaded: daemon at %s", s.BaseURL())
	})

	logger.Infof("Bridge service initialised for daemon at %s", settings.BaseURL())
	return service, nil
}

// Close gracefully shuts down the service
func (s *BridgeService) Close() error {
	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	if s.registry != nil {
		s.registry.Close()
	}
	s.logger.Infof("Bridge service shut down")
	return nil
}

// Config returns the configuration provider
func (s *BridgeService) Config() *config.Provider {
	return s.provider
}

// Client returns the transport client
func (s *BridgeService) Client() *DaemonClient {
	return s.client
}

// Registry returns the model registry
func (s *BridgeService) Registry() *ModelRegistry {
	return s.registry
}

// Relay returns the chat relay
func (s *BridgeService) Relay() *ChatRelay {
	return s.relay
}

// Logger returns the service logger
func (s *BridgeService) Logger() *Logger {
	return s.logger
}

// Context returns the service context
func (s *BridgeService) Context() context.Context {
	return s.ctx
}
