// Package tokenizer counts tokens in inserted text.
package tokenizer

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownScheme is returned by New for an unrecognised counting scheme.
var ErrUnknownScheme = errors.New("unknown tokenizer scheme")

// Counter returns the number of tokens in text. Empty text counts as zero
// and the same text always yields the same count.
type Counter interface {
	Count(text string) (int, error)
}

// CounterFunc adapts a function to the Counter interface.
type CounterFunc func(text string) (int, error)

// Count calls f(text).
func (f CounterFunc) Count(text string) (int, error) {
	return f(text)
}

// Scheme names a counting implementation.
type Scheme string

const (
	SchemeTiktoken  Scheme = "tiktoken"
	SchemeHeuristic Scheme = "heuristic"
)

const DefaultModel = "gpt-3.5-turbo"

// Config selects and configures a Counter.
type Config struct {
	Scheme Scheme
	// Model selects the vocabulary by model name. Ignored when Encoding is set.
	Model string
	// Encoding selects the vocabulary directly, e.g. "cl100k_base".
	Encoding string
	// CacheTTL memoises counts per text for this long. Zero disables the cache.
	CacheTTL time.Duration
}

// New builds the Counter described by cfg.
func New(cfg Config) (Counter, error) {
	var (
		c   Counter
		err error
	)
	switch Scheme(strings.ToLower(string(cfg.Scheme))) {
	case "", SchemeTiktoken:
		c, err = NewTiktoken(cfg.Model, cfg.Encoding)
		if err != nil {
			return nil, err
		}
	case SchemeHeuristic:
		c = Heuristic{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScheme, cfg.Scheme)
	}

	if cfg.CacheTTL > 0 {
		c = NewCached(c, cfg.CacheTTL)
	}
	return c, nil
}
