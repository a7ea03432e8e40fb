package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

const (
	levelDebug = iota
	levelInfo
	levelWarn
	levelError
)

var mu sync.RWMutex

var (
	verbose     = false
	disableLogs = false
	colors      = true
	timestamps  = false
)

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

var (
	colorPrefixes = map[int]string{
		levelDebug: "\033[37m[DBG]\033[0m", // White
		levelInfo:  "\033[36m[INF]\033[0m", // Cyan
		levelWarn:  "\033[33m[WRN]\033[0m", // Yellow
		levelError: "\033[31m[ERR]\033[0m", // Red
	}
	plainPrefixes = map[int]string{
		levelDebug: "[DBG]",
		levelInfo:  "[INF]",
		levelWarn:  "[WRN]",
		levelError: "[ERR]",
	}
)

// SetVerbose sets the logging verbosity. If true, debug messages are displayed.
func SetVerbose(v bool) {
	mu.Lock()
	verbose = v
	mu.Unlock()
}

// IsVerbose returns true if verbose logging is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// DisableLogs disables all logging.
func DisableLogs() {
	mu.Lock()
	disableLogs = true
	mu.Unlock()
}

// SetColors toggles ANSI colours in level prefixes.
func SetColors(enabled bool) {
	mu.Lock()
	colors = enabled
	mu.Unlock()
}

// SetTimestamps prepends an RFC3339 timestamp to every line.
func SetTimestamps(enabled bool) {
	mu.Lock()
	timestamps = enabled
	mu.Unlock()
}

// SetOutput redirects regular and error output. Nil keeps the current writer.
func SetOutput(out, errOut io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	if out != nil {
		stdout = out
	}
	if errOut != nil {
		stderr = errOut
	}
}

// Debugf logs a debug message if verbose is true.
func Debugf(format string, args ...interface{}) {
	logMessage(levelDebug, "", format, args...)
}

// Infof logs an info message.
func Infof(format string, args ...interface{}) {
	logMessage(levelInfo, "", format, args...)
}

// Warnf logs a warning message.
func Warnf(format string, args ...interface{}) {
	logMessage(levelWarn, "", format, args...)
}

// Errorf logs an error message.
func Errorf(format string, args ...interface{}) {
	logMessage(levelError, "", format, args...)
}

// Fatalf logs an error message and exits the program.
func Fatalf(format string, args ...interface{}) {
	logMessage(levelError, "", format, args...)
	os.Exit(1)
}

// Logger prefixes every message with a component name.
type Logger struct {
	component string
}

// Named returns a logger whose lines are tagged with component.
func Named(component string) *Logger {
	return &Logger{component: component}
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	logMessage(levelDebug, l.component, format, args...)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	logMessage(levelInfo, l.component, format, args...)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	logMessage(levelWarn, l.component, format, args...)
}

func (l *Logger) Errorf(format string, args ...interface{}) {
	logMessage(levelError, l.component, format, args...)
}

// logMessage formats and writes a log message with the specified log level.
func logMessage(level int, component, format string, args ...interface{}) {
	mu.RLock()
	defer mu.RUnlock()

	if disableLogs || (level == levelDebug && !verbose) {
		return
	}

	prefix := plainPrefixes[level]
	if colors {
		prefix = colorPrefixes[level]
	}
	if timestamps {
		prefix = time.Now().Format(time.RFC3339) + " " + prefix
	}
	if component != "" {
		prefix += " [" + component + "]"
	}
	output := prefix + " " + fmt.Sprintf(format, args...) + "\n"

	if level == levelError {
		_, _ = io.WriteString(stderr, output)
	} else {
		_, _ = io.WriteString(stdout, output)
	}
}
