// Package logging wraps slog with a console plus rotating file setup and
// package-level helpers usable before initialization.
package logging

import (
	"log/slog"
	"os"
)

// Options configures InitLogger
type Options struct {
	Dir            string
	Level          string
	RetentionWeeks int
	MaxFileSize    int64
}

type LoggingService struct {
	Logger   *slog.Logger
	rotating *RotatingLogger
}

var DefaultLoggingService *LoggingService

// InitLogger initializes the global logger instance and makes it the slog default
func InitLogger(opts Options) {
	logger, rotating := SetupLogger(opts)
	DefaultLoggingService = &LoggingService{
		Logger:   logger,
		rotating: rotating,
	}
	slog.SetDefault(logger)
}

// Close flushes and closes the log file, if any
func Close() error {
	if DefaultLoggingService == nil || DefaultLoggingService.rotating == nil {
		return nil
	}
	return DefaultLoggingService.rotating.Close()
}

// Logger returns the initialized logger or a console fallback
func Logger() *slog.Logger {
	if DefaultLoggingService == nil || DefaultLoggingService.Logger == nil {
		return fallback
	}
	return DefaultLoggingService.Logger
}

var fallback = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
	Level: slog.LevelInfo,
}))

// Package-level functions for direct access

func Info(msg string, args ...any) {
	Logger().Info(msg, args...)
}

func Error(msg string, args ...any) {
	Logger().Error(msg, args...)
}

func Warn(msg string, args ...any) {
	Logger().Warn(msg, args...)
}

func Debug(msg string, args ...any) {
	Logger().Debug(msg, args...)
}
