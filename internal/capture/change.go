// Package capture delimits suggestion episodes in a live editing session.
//
// A Machine classifies incoming edits, buffers the document text seen before
// the first significant edit and after the latest one, and flushes the pair
// once a debounce window passes without further significant edits. A Loop
// owns a Machine and serialises edits and timer callbacks onto one goroutine.
package capture

import (
	"strings"
	"unicode/utf8"
)

// Change is a single content change inside an edit notification.
type Change struct {
	// Text is the inserted text (empty for pure deletions).
	Text string `json:"text"`
	// StartLine and EndLine delimit the replaced range in the prior document.
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// SpansMultipleLines reports whether the inserted text has more than one line.
func (c Change) SpansMultipleLines() bool {
	return strings.Contains(c.Text, "\n")
}

// CrossesLines reports whether the replaced range starts and ends on different lines.
func (c Change) CrossesLines() bool {
	return c.StartLine != c.EndLine
}

// Edit is one edit notification from the host: the changes it carries and the
// full document text after they were applied.
type Edit struct {
	Document string
	Changes  []Change
	Text     string
}

// Classifier decides whether a change looks like an inserted suggestion rather
// than ordinary typing.
type Classifier struct {
	// MinInsertLength is the trimmed length (in runes) a single-line
	// insertion must exceed to count as significant.
	MinInsertLength int
	// InclusiveMin accepts insertions whose trimmed length equals MinInsertLength.
	InclusiveMin bool
}

// DefaultClassifier matches the "length > 3" heuristic.
func DefaultClassifier() Classifier {
	return Classifier{MinInsertLength: 3}
}

// Significant reports whether c is a significant change.
func (k Classifier) Significant(c Change) bool {
	if c.SpansMultipleLines() || c.CrossesLines() {
		return true
	}
	n := utf8.RuneCountInString(strings.TrimSpace(c.Text))
	if k.InclusiveMin {
		return n >= k.MinInsertLength
	}
	return n > k.MinInsertLength
}

// SignificantEdit reports whether any change in e is significant.
func (k Classifier) SignificantEdit(e Edit) bool {
	for _, c := range e.Changes {
		if k.Significant(c) {
			return true
		}
	}
	return false
}
