// Package log provides structured logging for tokenwatt.
// It wraps tea.LogToFile with structured fields (level, category, timestamp)
// and is enabled via the --debug flag or the TOKENWATT_DEBUG env var.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/zjrosen/tokenwatt/internal/pubsub"
)

// Level represents log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string ("debug", "info", "warn", "error") to a Level.
// Unknown values fall back to LevelDebug.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelDebug
	}
}

// Category groups related log messages.
type Category string

const (
	CatCapture   Category = "capture"   // Episode state machine and event loop
	CatDelta     Category = "delta"     // Inserted text extraction
	CatTokenizer Category = "tokenizer" // Token counting
	CatEstimate  Category = "estimate"  // Energy and emissions estimation
	CatSink      Category = "sink"      // Text log appends
	CatLedger    Category = "ledger"    // SQLite episode ledger
	CatWatcher   Category = "watcher"   // File watcher events
	CatConfig    Category = "config"    // Configuration loading/saving
	CatAPI       Category = "api"       // HTTP bridge and streams
	CatCache     Category = "cache"     // cache operations
	CatTrace     Category = "trace"     // OpenTelemetry setup
	CatUI        Category = "ui"        // Dashboard and status line
)

// Logger provides structured logging.
type Logger struct {
	mu       sync.Mutex
	closer   io.Closer
	writer   io.Writer
	enabled  bool
	minLevel Level
	broker   *pubsub.Broker[string] // log lines for the dashboard
}

var (
	mu            sync.RWMutex
	defaultLogger *Logger
)

func install(l *Logger) func() {
	mu.Lock()
	prev := defaultLogger
	defaultLogger = l
	mu.Unlock()

	if prev != nil {
		prev.close()
	}
	return func() {
		mu.Lock()
		if defaultLogger == l {
			defaultLogger = nil
		}
		mu.Unlock()
		l.close()
	}
}

func current() *Logger {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLogger
}

// Init opens (or creates) the log file at path in append mode and installs
// it as the global logger. Returns a cleanup function that closes the file.
func Init(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec // G304: path is user-controlled debug log path
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	return install(newLogger(f, f)), nil
}

// InitWithTeaLog uses tea.LogToFile for initialization. Used when a bubbletea
// program owns the terminal.
func InitWithTeaLog(path string, prefix string) (func(), error) {
	f, err := tea.LogToFile(path, prefix)
	if err != nil {
		return nil, err
	}
	return install(newLogger(f, f)), nil
}

// InitWriter installs a logger writing to w. The writer is not closed by cleanup.
func InitWriter(w io.Writer) func() {
	return install(newLogger(w, nil))
}

func newLogger(w io.Writer, c io.Closer) *Logger {
	return &Logger{
		closer:   c,
		writer:   w,
		enabled:  true,
		minLevel: LevelDebug,
		broker:   pubsub.NewBroker[string](),
	}
}

func (l *Logger) close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.broker != nil {
		l.broker.Close()
	}
	if l.closer != nil {
		_ = l.closer.Close()
		l.closer = nil
	}
	l.writer = nil
}

// SetEnabled toggles logging on/off.
func SetEnabled(enabled bool) {
	if l := current(); l != nil {
		l.mu.Lock()
		l.enabled = enabled
		l.mu.Unlock()
	}
}

// SetMinLevel sets the minimum log level.
func SetMinLevel(level Level) {
	if l := current(); l != nil {
		l.mu.Lock()
		l.minLevel = level
		l.mu.Unlock()
	}
}

// Debug logs at debug level.
func Debug(cat Category, msg string, fields ...any) {
	write(LevelDebug, cat, msg, fields...)
}

// Info logs at info level.
func Info(cat Category, msg string, fields ...any) {
	write(LevelInfo, cat, msg, fields...)
}

// Warn logs at warning level.
func Warn(cat Category, msg string, fields ...any) {
	write(LevelWarn, cat, msg, fields...)
}

// Error logs at error level.
func Error(cat Category, msg string, fields ...any) {
	write(LevelError, cat, msg, fields...)
}

// ErrorErr logs an error with the error value.
func ErrorErr(cat Category, msg string, err error, fields ...any) {
	if err != nil {
		fields = append(fields, "error", err.Error())
	} else {
		fields = append(fields, "error", "<nil>")
	}
	write(LevelError, cat, msg, fields...)
}

// format renders one entry:
// 2025-12-06T10:45:00 [WARN] [sink] message key=value key2=value2
func format(ts time.Time, level Level, cat Category, msg string, fields []any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] [%s] %s", ts.Format("2006-01-02T15:04:05"), level, cat, msg)
	for i := 0; i+1 < len(fields); i += 2 {
		fmt.Fprintf(&b, " %v=%v", fields[i], fields[i+1])
	}
	// Orphan key with no value
	if len(fields)%2 != 0 {
		fmt.Fprintf(&b, " %v=<missing>", fields[len(fields)-1])
	}
	b.WriteByte('\n')
	return b.String()
}

func write(level Level, cat Category, msg string, fields ...any) {
	l := current()
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled || level < l.minLevel || l.writer == nil {
		return
	}

	entry := format(time.Now(), level, cat, msg, fields)
	_, _ = io.WriteString(l.writer, entry)

	if l.broker != nil {
		l.broker.Publish(pubsub.CreatedEvent, strings.TrimSuffix(entry, "\n"))
	}
}

// LogEvent is a pubsub event containing a log entry.
type LogEvent = pubsub.Event[string]

// LogListener wraps a continuous listener for log events.
type LogListener = pubsub.ContinuousListener[string]

// NewListener creates a new log event listener.
// Returns nil when no logger is installed. The listener is cleaned up when ctx is cancelled.
func NewListener(ctx context.Context) *LogListener {
	l := current()
	if l == nil || l.broker == nil {
		return nil
	}
	return pubsub.NewContinuousListener(ctx, l.broker)
}
