package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	log     = zerolog.Nop()
	logFile *os.File

	hookMu sync.RWMutex
	hook   func(level zerolog.Level, msg string)
)

func consoleWriter(w io.Writer) zerolog.ConsoleWriter {
	output := zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	output.FormatLevel = func(i interface{}) string {
		return fmt.Sprintf("[%s]", i)
	}
	output.FormatMessage = func(i interface{}) string {
		return fmt.Sprintf("%s", i)
	}
	return output
}

func setLevel() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if _, exists := os.LookupEnv("DEBUG"); exists {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

func Init() {
	log = zerolog.New(consoleWriter(os.Stderr)).With().Timestamp().Logger()
	setLevel()
}

// InitFileOnly initializes the logger to write only to a file (for TUI mode)
func InitFileOnly(logDir string) (string, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create logs directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(logDir, fmt.Sprintf("tezos-dapp_%s.log", timestamp))

	var err error
	logFile, err = os.Create(logPath)
	if err != nil {
		return "", fmt.Errorf("failed to create log file: %w", err)
	}

	// JSON lines are easier to grep than the console format
	log = zerolog.New(logFile).With().Timestamp().Logger()
	setLevel()

	Info("Logger initialized in file-only mode: %s", logPath)
	return logPath, nil
}

// Close closes the log file if it's open and returns to console logging
func Close() {
	if logFile != nil {
		logFile.Close()
		logFile = nil
		log = zerolog.New(consoleWriter(os.Stderr)).With().Timestamp().Logger()
	}
}

// SetOutput sets the output destination for the logger
func SetOutput(w io.Writer) {
	log = zerolog.New(consoleWriter(w)).With().Timestamp().Logger()
}

// SetHook registers fn to receive every message at or above the global level.
// Passing nil removes the hook.
func SetHook(fn func(level zerolog.Level, msg string)) {
	hookMu.Lock()
	hook = fn
	hookMu.Unlock()
}

func emit(level zerolog.Level, msg string, args ...interface{}) {
	text := fmt.Sprintf(msg, args...)
	log.WithLevel(level).Msg(text)

	if level < zerolog.GlobalLevel() {
		return
	}
	hookMu.RLock()
	fn := hook
	hookMu.RUnlock()
	if fn != nil {
		fn(level, text)
	}
}

// Debug logs a debug message
func Debug(msg string, args ...interface{}) {
	emit(zerolog.DebugLevel, msg, args...)
}

// Info logs an info message
func Info(msg string, args ...interface{}) {
	emit(zerolog.InfoLevel, msg, args...)
}

// Warn logs a warning message
func Warn(msg string, args ...interface{}) {
	emit(zerolog.WarnLevel, msg, args...)
}

// Error logs an error message
func Error(msg string, args ...interface{}) {
	emit(zerolog.ErrorLevel, msg, args...)
}

// Fatal logs a fatal message and exits the program
func Fatal(msg string, args ...interface{}) {
	log.Fatal().Msgf(msg, args...)
}
