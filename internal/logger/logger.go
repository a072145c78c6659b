// Package logger owns the process-wide structured logger.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/mattn/go-isatty"
	"gopkg.in/natefinch/lumberjack.v2"
)

const appName = "cadence"

var (
	mu     sync.RWMutex
	global = log.NewWithOptions(os.Stderr, log.Options{Level: log.WarnLevel, Prefix: appName})
)

// Config holds logger configuration
type Config struct {
	// Dir is the directory that receives the rotating log file.
	Dir     string
	Debug   bool
	Verbose bool
}

// Init replaces the global logger with one writing to a rotating file under
// cfg.Dir. Output is echoed to stderr when Verbose is set and stderr is a
// terminal, or when Debug is set.
func Init(cfg Config) (io.Closer, error) {
	logDir := filepath.Join(cfg.Dir, "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	fileWriter := &lumberjack.Logger{
		Filename:   filepath.Join(logDir, appName+".log"),
		MaxSize:    10, // megabytes
		MaxBackups: 3,
		MaxAge:     28, // days
		Compress:   true,
	}

	level := log.InfoLevel
	if cfg.Debug {
		level = log.DebugLevel
	}

	var writer io.Writer = fileWriter
	if cfg.Debug || (cfg.Verbose && isatty.IsTerminal(os.Stderr.Fd())) {
		writer = io.MultiWriter(os.Stderr, fileWriter)
	}

	Set(log.NewWithOptions(writer, log.Options{
		ReportCaller:    cfg.Debug,
		ReportTimestamp: true,
		Level:           level,
		Prefix:          appName,
	}))
	return fileWriter, nil
}

// Set installs l as the global logger.
func Set(l *log.Logger) {
	mu.Lock()
	defer mu.Unlock()
	global = l
}

// Default returns the global logger.
func Default() *log.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// With returns a sub-logger tagged with a component prefix.
func With(component string) *log.Logger {
	return Default().WithPrefix(appName + "/" + component)
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *log.Logger {
	return log.New(io.Discard)
}

// Debug logs a debug message
func Debug(msg string, keyvals ...interface{}) { Default().Debug(msg, keyvals...) }

// Info logs an info message
func Info(msg string, keyvals ...interface{}) { Default().Info(msg, keyvals...) }

// Warn logs a warning message
func Warn(msg string, keyvals ...interface{}) { Default().Warn(msg, keyvals...) }

// Error logs an error message
func Error(msg string, keyvals ...interface{}) { Default().Error(msg, keyvals...) }
