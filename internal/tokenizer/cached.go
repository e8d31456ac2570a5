package tokenizer

import (
	"context"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/zjrosen/tokenwatt/internal/cachemanager"
)

type textKey string

// Cached memoises another Counter's results keyed by a hash of the text.
type Cached struct {
	cache *cachemanager.ReadThroughCache[textKey, int, string]
	ttl   time.Duration
}

// NewCached wraps next with a cache whose entries live for ttl.
func NewCached(next Counter, ttl time.Duration) *Cached {
	mgr := cachemanager.NewInMemoryCacheManager[textKey, int]("token-counts", ttl, 2*ttl)
	return &Cached{
		cache: cachemanager.NewReadThroughCache[textKey, int, string](mgr,
			func(_ context.Context, text string) (int, error) {
				return next.Count(text)
			},
			false,
		),
		ttl: ttl,
	}
}

// Count implements Counter.
func (c *Cached) Count(text string) (int, error) {
	if text == "" {
		return 0, nil
	}
	return c.cache.GetWithRefresh(context.Background(), keyFor(text), text, c.ttl)
}

func keyFor(text string) textKey {
	return textKey(strconv.FormatUint(xxhash.Sum64String(text), 16) + ":" + strconv.Itoa(len(text)))
}
