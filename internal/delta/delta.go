// Package delta isolates the text inserted during a capture episode.
package delta

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/zjrosen/tokenwatt/internal/log"
)

// ErrUnknownStrategy is returned by New for an unrecognised strategy name.
var ErrUnknownStrategy = errors.New("unknown delta strategy")

// Strategy names an extraction algorithm.
type Strategy string

const (
	// StrategyPositional drops the first len(base) runes of final.
	StrategyPositional Strategy = "positional"
	// StrategyCharDiff concatenates the insertions of a character diff.
	StrategyCharDiff Strategy = "chardiff"
)

// DefaultStrategy is used when no strategy is configured.
const DefaultStrategy = StrategyCharDiff

// Extractor returns the text present in final that was not present in base.
type Extractor interface {
	Extract(base, final string) string
}

// Options configures New.
type Options struct {
	// DiffTimeout bounds the character diff. Zero means no limit.
	DiffTimeout time.Duration
}

// New returns the extractor for strategy. An empty strategy selects DefaultStrategy.
func New(strategy Strategy, opts Options) (Extractor, error) {
	switch Strategy(strings.ToLower(string(strategy))) {
	case "", StrategyCharDiff:
		return CharDiff{Timeout: opts.DiffTimeout}, nil
	case StrategyPositional:
		return Positional{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

// Positional assumes the episode only appended text, so the insertion is
// whatever follows the first runeLen(base) runes of final. Insertions in the
// middle of the document shift unrelated text into the result.
type Positional struct{}

// Extract implements Extractor.
func (Positional) Extract(base, final string) string {
	if base == final {
		return ""
	}
	n := utf8.RuneCountInString(base)
	fr := []rune(final)
	if len(fr) <= n {
		return ""
	}
	return string(fr[n:])
}

// CharDiff computes a character diff and joins every inserted run in the
// order it appears in final. Deleted text is ignored.
type CharDiff struct {
	Timeout time.Duration
}

// Extract implements Extractor.
func (c CharDiff) Extract(base, final string) string {
	if base == final {
		return ""
	}

	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = c.Timeout
	diffs := dmp.DiffMain(base, final, false)

	var sb strings.Builder
	inserts := 0
	for _, d := range diffs {
		if d.Type == diffmatchpatch.DiffInsert {
			sb.WriteString(d.Text)
			inserts++
		}
	}
	log.Debug(log.CatDelta, "Character diff", "diffs", len(diffs), "inserts", inserts, "chars", sb.Len())
	return sb.String()
}
