// Package logging provides leveled, module-scoped logging for the profiler.
//
// A Logger wraps one logrus logger and owns a process-wide output lock.
// Every log line is written while holding that lock, so a caller that needs
// to print a multi-line block (such as the profiling report) can take the
// lock, write to Stream directly and be sure no log line lands in between.
//
//	log := logging.New(logging.Config{Level: logging.LevelInfo})
//	entry := log.Module("EventProfiler")
//	entry.Infof("activated with %d algorithms", n)
//
//	log.Lock()
//	fmt.Fprintln(log.Stream(), "#### report ####")
//	log.Unlock()
//
// Each module Entry filters by its own level, so one component can run at
// debug while the rest of the process stays at info.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Level is a log severity. Higher values are more verbose.
type Level = logrus.Level

const (
	LevelError = logrus.ErrorLevel
	LevelWarn  = logrus.WarnLevel
	LevelInfo  = logrus.InfoLevel
	LevelDebug = logrus.DebugLevel
	LevelTrace = logrus.TraceLevel
)

// ParseLevel converts a level name to a Level
func ParseLevel(name string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("invalid log level: %q", name)
	}
}

// Config configures a Logger
type Config struct {
	Level     Level            // Default level for new modules, info when zero
	Output    io.Writer        // Destination, stdout when nil
	Formatter logrus.Formatter // Line format, plain text without timestamps when nil
}

// Logger is the shared log sink
type Logger struct {
	base   *logrus.Logger
	out    io.Writer
	mu     *sync.Mutex
	levelM sync.RWMutex
	level  Level
}

// New creates a logger
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	formatter := cfg.Formatter
	if formatter == nil {
		formatter = &logrus.TextFormatter{
			DisableTimestamp: true,
			DisableColors:    true,
			DisableQuote:     true,
		}
	}

	level := cfg.Level
	if level == 0 {
		level = LevelInfo
	}

	l := &Logger{
		out:   out,
		mu:    &sync.Mutex{},
		level: level,
	}

	base := logrus.New()
	base.SetOutput(&lockedWriter{mu: l.mu, w: out})
	base.SetFormatter(formatter)
	// Modules filter on their own level.
	base.SetLevel(logrus.TraceLevel)
	l.base = base

	return l
}

// Discard returns a logger that drops everything
func Discard() *Logger {
	return New(Config{Level: LevelError, Output: io.Discard})
}

// Lock acquires the output lock. Log lines block until Unlock.
func (l *Logger) Lock() {
	l.mu.Lock()
}

// Unlock releases the output lock
func (l *Logger) Unlock() {
	l.mu.Unlock()
}

// Stream returns the raw output. Write to it only while holding the lock.
func (l *Logger) Stream() io.Writer {
	return l.out
}

// Level returns the default level for new modules
func (l *Logger) Level() Level {
	l.levelM.RLock()
	defer l.levelM.RUnlock()
	return l.level
}

// SetLevel changes the default level for modules created afterwards
func (l *Logger) SetLevel(level Level) {
	l.levelM.Lock()
	l.level = level
	l.levelM.Unlock()
}

// Module returns an entry tagged with module, at the logger's default level
func (l *Logger) Module(module string) *Entry {
	return &Entry{
		entry: l.base.WithField("module", module),
		level: l.Level(),
	}
}

// Entry logs for one module with its own level threshold
type Entry struct {
	entry *logrus.Entry
	level Level
}

// Level returns the entry's threshold
func (e *Entry) Level() Level {
	return e.level
}

// SetLevel changes the entry's threshold
func (e *Entry) SetLevel(level Level) {
	e.level = level
}

// Enabled reports whether messages at level would be written
func (e *Entry) Enabled(level Level) bool {
	return e.level >= level
}

// WithField returns a derived entry with an extra field and the same level
func (e *Entry) WithField(key string, value interface{}) *Entry {
	return &Entry{entry: e.entry.WithField(key, value), level: e.level}
}

// WithFields returns a derived entry with extra fields and the same level
func (e *Entry) WithFields(fields map[string]interface{}) *Entry {
	return &Entry{entry: e.entry.WithFields(logrus.Fields(fields)), level: e.level}
}

// Logf logs at level if enabled
func (e *Entry) Logf(level Level, format string, args ...interface{}) {
	if !e.Enabled(level) {
		return
	}
	e.entry.Logf(level, format, args...)
}

// Tracef logs at trace level
func (e *Entry) Tracef(format string, args ...interface{}) { e.Logf(LevelTrace, format, args...) }

// Debugf logs at debug level
func (e *Entry) Debugf(format string, args ...interface{}) { e.Logf(LevelDebug, format, args...) }

// Infof logs at info level
func (e *Entry) Infof(format string, args ...interface{}) { e.Logf(LevelInfo, format, args...) }

// Warnf logs at warn level
func (e *Entry) Warnf(format string, args ...interface{}) { e.Logf(LevelWarn, format, args...) }

// Errorf logs at error level
func (e *Entry) Errorf(format string, args ...interface{}) { e.Logf(LevelError, format, args...) }

// lockedWriter serializes writes against the logger's output lock
type lockedWriter struct {
	mu *sync.Mutex
	w  io.Writer
}

func (lw *lockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}
