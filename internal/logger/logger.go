package logger

import (
	"io"
	"log"
	"os"
	"sync"
)

// Logger provides leveled logging functionality
type Logger struct {
	mu      sync.RWMutex
	verbose bool
	info    *log.Logger
	warn    *log.Logger
	debug   *log.Logger
	error   *log.Logger
}

var defaultLogger *Logger

func init() {
	defaultLogger = New(false, os.Stderr)
}

// New creates a new logger instance
func New(verbose bool, output io.Writer) *Logger {
	flags := log.Ldate | log.Ltime
	return &Logger{
		verbose: verbose,
		info:    log.New(output, "[INFO]  ", flags),
		warn:    log.New(output, "[WARN]  ", flags),
		debug:   log.New(output, "[DEBUG] ", flags),
		error:   log.New(output, "[ERROR] ", flags),
	}
}

// SetDefault sets the default logger instance
func SetDefault(logger *Logger) {
	defaultLogger = logger
}

// Default returns the default logger instance
func Default() *Logger {
	return defaultLogger
}

// SetVerbose enables or disables verbose logging
func (l *Logger) SetVerbose(verbose bool) {
	l.mu.Lock()
	l.verbose = verbose
	l.mu.Unlock()
}

// IsVerbose returns whether verbose logging is enabled
func (l *Logger) IsVerbose() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.verbose
}

// ErrorLog returns a standard library logger writing through the error
// level, for components such as http.Server that want a *log.Logger
func (l *Logger) ErrorLog() *log.Logger {
	return l.error
}

// Info logs an informational message (always shown)
func (l *Logger) Info(format string, args ...any) {
	l.info.Printf(format, args...)
}

// Warn logs a warning (always shown)
func (l *Logger) Warn(format string, args ...any) {
	l.warn.Printf(format, args...)
}

// Debug logs a debug message (only shown if verbose is enabled)
func (l *Logger) Debug(format string, args ...any) {
	if l.IsVerbose() {
		l.debug.Printf(format, args...)
	}
}

// Error logs an error message (always shown)
func (l *Logger) Error(format string, args ...any) {
	l.error.Printf(format, args...)
}

// Package-level functions that use the default logger

// SetVerbose enables or disables verbose logging on the default logger
func SetVerbose(verbose bool) {
	defaultLogger.SetVerbose(verbose)
}

// IsVerbose returns whether verbose logging is enabled on the default logger
func IsVerbose() bool {
	return defaultLogger.IsVerbose()
}

// Info logs an informational message using the default logger
func Info(format string, args ...any) {
	defaultLogger.Info(format, args...)
}

// Warn logs a warning using the default logger
func Warn(format string, args ...any) {
	defaultLogger.Warn(format, args...)
}

// Debug logs a debug message using the default logger (only shown if verbose is enabled)
func Debug(format string, args ...any) {
	defaultLogger.Debug(format, args...)
}

// Error logs an error message using the default logger
func Error(format string, args ...any) {
	defaultLogger.Error(format, args...)
}
