package core

import (
	"github.com/pierceboggan/byok-foundry-local/logging"
)

// Logger wraps the file logging facility for the core services
type Logger struct {
	level    string
	filePath string
}

// NewLogger creates a new logger instance
func NewLogger(level, filePath string) (*Logger, error) {
	if err := logging.Init(level, filePath); err != nil {
		return nil, err
	}

	return &Logger{
		level:    level,
		filePath: filePath,
	}, nil
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	logging.DebugLogger.Debug().Msgf(format, args...)
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	logging.InfoLogger.Info().Msgf(format, args...)
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	logging.WarnLogger.Warn().Msgf(format, args...)
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	logging.ErrorLogger.Error().Msgf(format, args...)
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() string {
	return l.level
}

// GetFilePath returns the log file path
func (l *Logger) GetFilePath() string {
	return l.filePath
}
