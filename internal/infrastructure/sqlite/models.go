package sqlite

import "time"

// EpisodeModel is one row of the episodes table.
type EpisodeModel struct {
	ID                  string
	SessionID           string
	RecordedAt          time.Time
	FileName            string
	InsertedText        string
	TokenCount          int
	EnergyJoules        float64
	TotalEnergyJoules   float64
	TotalEmissionsGrams float64
}

// Summary aggregates every recorded episode.
type Summary struct {
	Episodes     int
	Sessions     int
	Tokens       int64
	EnergyJoules float64
	First        time.Time
	Last         time.Time
}

// FileTotal aggregates the episodes recorded against one file.
type FileTotal struct {
	FileName     string
	Episodes     int
	Tokens       int64
	EnergyJoules float64
	Last         time.Time
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
