package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"slowdown-service/pkg/config"
)

// Logger wraps a logrus instance configured from the service configuration.
type Logger struct {
	entry *logrus.Logger
	file  *os.File
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// NewLogger builds a logger from the log section of the configuration.
func NewLogger(cfg *config.Config) *Logger {
	l := logrus.New()

	level := logrus.InfoLevel
	if cfg != nil {
		if parsed, err := logrus.ParseLevel(strings.ToLower(cfg.Log.Level)); err == nil {
			level = parsed
		}
	}
	l.SetLevel(level)

	if cfg != nil && strings.EqualFold(cfg.Log.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05.000"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05.000",
		})
	}

	logger := &Logger{entry: l}

	var out io.Writer = os.Stdout
	if cfg != nil && strings.EqualFold(cfg.Log.Output, "file") && cfg.Log.Filename != "" {
		if f, err := os.OpenFile(cfg.Log.Filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			out = io.MultiWriter(os.Stdout, f)
			logger.file = f
		}
	}
	l.SetOutput(out)

	return logger
}

// SetGlobalLogger installs the logger used by the package-level helpers.
func SetGlobalLogger(l *Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// Close flushes and closes the log file if one is open.
func (l *Logger) Close() {
	if l.file != nil {
		_ = l.file.Close()
	}
}

func get() *logrus.Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	if globalLogger != nil {
		return globalLogger.entry
	}
	return logrus.StandardLogger()
}

// Debug logs a message with optional structured fields.
func Debug(msg string, fields ...map[string]interface{}) {
	if len(fields) > 0 {
		get().WithFields(logrus.Fields(fields[0])).Debug(msg)
		return
	}
	get().Debug(msg)
}

func Debugf(format string, args ...interface{}) {
	get().Debugf(format, args...)
}

func Infof(format string, args ...interface{}) {
	get().Infof(format, args...)
}

func Warnf(format string, args ...interface{}) {
	get().Warnf(format, args...)
}

func Errorf(format string, args ...interface{}) {
	get().Errorf(format, args...)
}

// Fatal logs the message and exits the process.
func Fatal(msg string) {
	get().Fatal(msg)
}
