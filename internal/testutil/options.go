package testutil

import (
	"time"

	"github.com/zjrosen/tokenwatt/internal/infrastructure/sqlite"
)

// baseTime anchors episodes that do not set their own timestamp.
var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// EpisodeOption configures an episode row.
type EpisodeOption func(*sqlite.EpisodeModel)

// WithSession sets the session ID.
func WithSession(id string) EpisodeOption {
	return func(m *sqlite.EpisodeModel) { m.SessionID = id }
}

// WithFile sets the file name.
func WithFile(name string) EpisodeOption {
	return func(m *sqlite.EpisodeModel) { m.FileName = name }
}

// WithText sets the inserted text.
func WithText(text string) EpisodeOption {
	return func(m *sqlite.EpisodeModel) { m.InsertedText = text }
}

// WithTokens sets the token count and derives energy at 0.3 J per token.
func WithTokens(n int) EpisodeOption {
	return func(m *sqlite.EpisodeModel) {
		m.TokenCount = n
		m.EnergyJoules = float64(n) * 0.3
	}
}

// WithEnergy overrides the episode energy.
func WithEnergy(joules float64) EpisodeOption {
	return func(m *sqlite.EpisodeModel) { m.EnergyJoules = joules }
}

// At sets the recorded time.
func At(t time.Time) EpisodeOption {
	return func(m *sqlite.EpisodeModel) { m.RecordedAt = t }
}

func defaultEpisode(id string, index int) sqlite.EpisodeModel {
	return sqlite.EpisodeModel{
		ID:           id,
		SessionID:    "test-session",
		RecordedAt:   baseTime.Add(time.Duration(index) * time.Second),
		FileName:     "main.go",
		InsertedText: "inserted " + id,
		TokenCount:   10,
		EnergyJoules: 3,
	}
}
