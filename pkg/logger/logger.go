// Package logger provides the process-wide structured logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	globalLogger = zerolog.Nop()
	logFile      *os.File
	mu           sync.Mutex
)

// Config controls where log lines go.
type Config struct {
	FilePath string // Append JSON lines to this file (optional)
	Console  bool   // Also write human-readable lines to stderr
	Level    zerolog.Level
}

// Init initializes the global logger. Calling it again replaces the previous
// sinks and closes the previous log file.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}

	var writers []io.Writer
	if cfg.FilePath != "" {
		f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to create log file: %w", err)
		}
		logFile = f
		writers = append(writers, f)
	}
	if cfg.Console {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05.000"})
	}

	if len(writers) == 0 {
		globalLogger = zerolog.Nop()
		return nil
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	globalLogger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(cfg.Level).
		With().Timestamp().Logger()
	return nil
}

// Close closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	globalLogger = zerolog.Nop()
}

// Module returns a child logger tagged with the module name.
func Module(name string) zerolog.Logger {
	mu.Lock()
	defer mu.Unlock()
	return globalLogger.With().Str("module", name).Logger()
}

// Debug starts a debug event for the module.
func Debug(module string) *zerolog.Event {
	l := Module(module)
	return l.Debug()
}

// Info starts an info event for the module.
func Info(module string) *zerolog.Event {
	l := Module(module)
	return l.Info()
}

// Warn starts a warning event for the module.
func Warn(module string) *zerolog.Event {
	l := Module(module)
	return l.Warn()
}

// Error starts an error event for the module.
func Error(module string) *zerolog.Event {
	l := Module(module)
	return l.Error()
}

// GetWriter returns the underlying log file, or io.Discard when logging to
// a file is off. adb stderr is teed here.
func GetWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		return logFile
	}
	return io.Discard
}
