package sink

import (
	"context"

	"github.com/zjrosen/tokenwatt/internal/infrastructure/sqlite"
)

// Ledger records episodes in the SQLite ledger, tagged with the process
// session that produced them.
type Ledger struct {
	db        *sqlite.DB
	sessionID string
}

// OpenLedger opens or creates the ledger at path.
func OpenLedger(path, sessionID string) (*Ledger, error) {
	db, err := sqlite.NewDB(path)
	if err != nil {
		return nil, err
	}
	return &Ledger{db: db, sessionID: sessionID}, nil
}

// Name implements Named.
func (l *Ledger) Name() string { return "ledger" }

// Append implements Sink.
func (l *Ledger) Append(ctx context.Context, rec Record) error {
	return l.db.Episodes().Insert(ctx, sqlite.EpisodeModel{
		ID:                  rec.ID,
		SessionID:           l.sessionID,
		RecordedAt:          rec.Timestamp,
		FileName:            rec.FileName,
		InsertedText:        rec.InsertedText,
		TokenCount:          rec.TokenCount,
		EnergyJoules:        rec.EnergyJoules,
		TotalEnergyJoules:   rec.TotalEnergyJoules,
		TotalEmissionsGrams: rec.TotalEmissionsGrams,
	})
}

// Summary aggregates every recorded episode.
func (l *Ledger) Summary(ctx context.Context) (sqlite.Summary, error) {
	return l.db.Episodes().Summary(ctx)
}

// ByFile returns per-file totals, highest energy first.
func (l *Ledger) ByFile(ctx context.Context, limit int) ([]sqlite.FileTotal, error) {
	return l.db.Episodes().ByFile(ctx, limit)
}

// Recent returns the newest records first.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Record, error) {
	rows, err := l.db.Episodes().Recent(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, m := range rows {
		out = append(out, Record{
			ID:                  m.ID,
			Timestamp:           m.RecordedAt,
			FileName:            m.FileName,
			InsertedText:        m.InsertedText,
			TokenCount:          m.TokenCount,
			EnergyJoules:        m.EnergyJoules,
			TotalEnergyJoules:   m.TotalEnergyJoules,
			TotalEmissionsGrams: m.TotalEmissionsGrams,
		})
	}
	return out, nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
