package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// isoMillis matches JavaScript's Date.toISOString.
const isoMillis = "2006-01-02T15:04:05.000Z"

var rule = strings.Repeat("-", 40)

// TextFile is the human-readable append-only session log.
type TextFile struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewTextFile returns a TextFile writing to path. Parent directories are
// created on first write.
func NewTextFile(path string) *TextFile {
	return &TextFile{path: path, now: time.Now}
}

// Name implements Named.
func (f *TextFile) Name() string { return "text log" }

// Path returns the log file path.
func (f *TextFile) Path() string { return f.path }

// Append writes one accepted-suggestion block.
func (f *TextFile) Append(_ context.Context, rec Record) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "\n--- Suggestion accepted (%s) ---\n", stamp(rec.Timestamp))
	fmt.Fprintf(&sb, "File: %s\n", rec.FileName)
	fmt.Fprintf(&sb, "Tokens: %d\n", rec.TokenCount)
	fmt.Fprintf(&sb, "Energy: %g J (total %g J, %g g CO2e)\n",
		rec.EnergyJoules, rec.TotalEnergyJoules, rec.TotalEmissionsGrams)
	fmt.Fprintf(&sb, "Suggestion:\n%s\n", rec.InsertedText)
	sb.WriteString(rule + "\n")
	return f.write(sb.String())
}

// Started writes the session-start marker.
func (f *TextFile) Started() error {
	return f.write(fmt.Sprintf("\n--- Session started (%s) ---\n%s\n", stamp(f.now()), rule))
}

// Note writes a single test entry line.
func (f *TextFile) Note(msg string) error {
	return f.write(fmt.Sprintf("%s at %s\n", msg, stamp(f.now())))
}

func (f *TextFile) write(s string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	fh, err := os.OpenFile(f.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	if _, err := fh.WriteString(s); err != nil {
		_ = fh.Close()
		return fmt.Errorf("writing log file: %w", err)
	}
	return fh.Close()
}

func stamp(t time.Time) string {
	return t.UTC().Format(isoMillis)
}
