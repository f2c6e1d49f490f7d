package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	unilogger "github.com/neuronlabs/uni-logger"
)

const (
	// LDEBUG is the logger DEBUG level.
	LDEBUG = unilogger.DEBUG
	// LINFO is the logger INFO level.
	LINFO = unilogger.INFO
	// LWARNING is the logger WARNING level.
	LWARNING = unilogger.WARNING
	// LERROR is the logger ERROR level.
	LERROR = unilogger.ERROR
	// LUNKNOWN is the unspecified logger level.
	LUNKNOWN = unilogger.UNKNOWN
)

var (
	logger       unilogger.LeveledLogger
	currentLevel = LWARNING
)

// Default sets a BasicLogger writing to os.Stderr.
func Default() {
	New(os.Stderr, "enigma ", log.Ltime)
}

// New creates a unilogger.BasicLogger writing to out and installs it.
func New(out io.Writer, prefix string, flags int) {
	basic := unilogger.NewBasicLogger(out, prefix, flags)
	basic.SetOutputDepth(4)
	SetLogger(basic)
}

// SetLogger installs l as the current logger and applies the current level.
func SetLogger(l unilogger.LeveledLogger) {
	logger = l
	if setter, ok := l.(unilogger.LevelSetter); ok {
		setter.SetLevel(currentLevel)
	}
}

// Logger returns the installed logger, nil if none.
func Logger() unilogger.LeveledLogger {
	return logger
}

// Level returns the current level.
func Level() unilogger.Level {
	return currentLevel
}

// SetLevel changes the level of the installed logger.
func SetLevel(level unilogger.Level) error {
	if level == LUNKNOWN {
		return fmt.Errorf("log: unknown level")
	}
	currentLevel = level
	if logger == nil {
		return nil
	}
	setter, ok := logger.(unilogger.LevelSetter)
	if !ok {
		return fmt.Errorf("log: logger does not implement LevelSetter")
	}
	setter.SetLevel(level)
	return nil
}

// ParseLevel maps a config string to a level. Unrecognised names map to
// LUNKNOWN.
func ParseLevel(name string) unilogger.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LDEBUG
	case "info":
		return LINFO
	case "warning", "warn":
		return LWARNING
	case "error":
		return LERROR
	default:
		return LUNKNOWN
	}
}

// Debugf writes a formatted debug message.
func Debugf(format string, args ...interface{}) {
	if logger != nil {
		logger.Debugf(format, args...)
	}
}

// Infof writes a formatted info message.
func Infof(format string, args ...interface{}) {
	if logger != nil {
		logger.Infof(format, args...)
	}
}

// Warningf writes a formatted warning message.
func Warningf(format string, args ...interface{}) {
	if logger != nil {
		logger.Warningf(format, args...)
	}
}

// Errorf writes a formatted error message.
func Errorf(format string, args ...interface{}) {
	if logger != nil {
		logger.Errorf(format, args...)
	}
}
