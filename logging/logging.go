package logging

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	DebugLogger zerolog.Logger
	InfoLogger  zerolog.Logger
	WarnLogger  zerolog.Logger
	ErrorLogger zerolog.Logger
)

// Init configures file logging for the bridge. An empty logFilePath falls
// back to ~/.config/byok/byok.log.
func Init(logLevel string, logFilePath string) error {
	if logFilePath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		logFilePath = filepath.Join(homeDir, ".config", "byok", "byok.log")
	}

	// Expand the ~ to the user's home directory
	if strings.HasPrefix(logFilePath, "~") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		logFilePath = filepath.Join(homeDir, logFilePath[1:])
	}

	// Create the directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0755); err != nil {
		return err
	}

	// Configure log rotation with lumberjack
	rotate := &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    2,  // megabytes
		MaxBackups: 3,  // number of files
		MaxAge:     60, // days
		Compress:   false,
	}

	// "warning" is accepted as an alias for zerolog's "warn"
	if logLevel == "warning" {
		logLevel = "warn"
	}
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)

	fileWriter := zerolog.MultiLevelWriter(rotate)

	log.Logger = zerolog.New(fileWriter).With().Timestamp().Logger()
	DebugLogger = log.Logger.Level(zerolog.DebugLevel)
	InfoLogger = log.Logger.Level(zerolog.InfoLevel)
	WarnLogger = log.Logger.Level(zerolog.WarnLevel)
	ErrorLogger = log.Logger.Level(zerolog.ErrorLevel)

	if logLevel == "debug" {
		DebugLogger.Printf("Logging to: %s\n", logFilePath)
	}

	return nil
}
