package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/tokenwatt/internal/infrastructure/sqlite"
	"github.com/zjrosen/tokenwatt/internal/usage"
)

// Builder accumulates episodes and inserts them in order, filling in the
// running totals the way the flush pipeline would.
type Builder struct {
	t             *testing.T
	db            *sqlite.DB
	episodes      []sqlite.EpisodeModel
	gridIntensity float64
}

// NewBuilder creates a builder for the given ledger.
func NewBuilder(t *testing.T, db *sqlite.DB) *Builder {
	t.Helper()
	return &Builder{t: t, db: db, gridIntensity: usage.DefaultConfig().GridIntensity}
}

// WithEpisode adds an episode with optional configuration.
func (b *Builder) WithEpisode(id string, opts ...EpisodeOption) *Builder {
	ep := defaultEpisode(id, len(b.episodes))
	for _, opt := range opts {
		opt(&ep)
	}
	b.episodes = append(b.episodes, ep)
	return b
}

// WithEpisodes adds n default episodes for file.
func (b *Builder) WithEpisodes(n int, file string) *Builder {
	for i := 0; i < n; i++ {
		b.WithEpisode(fmt.Sprintf("%s-%d", file, len(b.episodes)), WithFile(file))
	}
	return b
}

// Build inserts all accumulated episodes and returns them as stored.
func (b *Builder) Build() []sqlite.EpisodeModel {
	b.t.Helper()
	repo := b.db.Episodes()
	var total float64
	for i := range b.episodes {
		ep := &b.episodes[i]
		total += ep.EnergyJoules
		ep.TotalEnergyJoules = total
		ep.TotalEmissionsGrams = total / usage.JoulesPerKWh * b.gridIntensity
		require.NoError(b.t, repo.Insert(context.Background(), *ep))
	}
	return b.episodes
}
