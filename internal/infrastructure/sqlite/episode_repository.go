package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

const episodeColumns = `id, session_id, recorded_at, file_name, inserted_text, token_count,
	energy_joules, total_energy_joules, total_emissions_grams`

// EpisodeRepository reads and writes the episodes table.
type EpisodeRepository struct {
	db *sql.DB
}

// Insert stores one episode.
func (r *EpisodeRepository) Insert(ctx context.Context, m EpisodeModel) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO episodes (`+episodeColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.SessionID, m.RecordedAt.UnixMilli(), m.FileName, m.InsertedText, m.TokenCount,
		m.EnergyJoules, m.TotalEnergyJoules, m.TotalEmissionsGrams,
	)
	if err != nil {
		return fmt.Errorf("failed to insert episode: %w", err)
	}
	return nil
}

// Summary aggregates all episodes. An empty table yields a zero Summary.
func (r *EpisodeRepository) Summary(ctx context.Context) (Summary, error) {
	var (
		s           Summary
		first, last sql.NullInt64
	)
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*), COUNT(DISTINCT session_id),
		COALESCE(SUM(token_count), 0), COALESCE(SUM(energy_joules), 0),
		MIN(recorded_at), MAX(recorded_at) FROM episodes`,
	).Scan(&s.Episodes, &s.Sessions, &s.Tokens, &s.EnergyJoules, &first, &last)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to summarise episodes: %w", err)
	}
	if first.Valid {
		s.First = fromMillis(first.Int64)
	}
	if last.Valid {
		s.Last = fromMillis(last.Int64)
	}
	return s, nil
}

// ByFile returns per-file totals, highest energy first.
func (r *EpisodeRepository) ByFile(ctx context.Context, limit int) ([]FileTotal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT file_name, COUNT(*), SUM(token_count), SUM(energy_joules),
		MAX(recorded_at) FROM episodes GROUP BY file_name
		ORDER BY SUM(energy_joules) DESC, file_name LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query file totals: %w", err)
	}
	defer rows.Close()

	var out []FileTotal
	for rows.Next() {
		var (
			ft   FileTotal
			last int64
		)
		if err := rows.Scan(&ft.FileName, &ft.Episodes, &ft.Tokens, &ft.EnergyJoules, &last); err != nil {
			return nil, fmt.Errorf("failed to scan file total: %w", err)
		}
		ft.Last = fromMillis(last)
		out = append(out, ft)
	}
	return out, rows.Err()
}

// Recent returns the newest episodes first.
func (r *EpisodeRepository) Recent(ctx context.Context, limit int) ([]EpisodeModel, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+episodeColumns+` FROM episodes ORDER BY recorded_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent episodes: %w", err)
	}
	defer rows.Close()

	var out []EpisodeModel
	for rows.Next() {
		var (
			m  EpisodeModel
			at int64
		)
		if err := rows.Scan(&m.ID, &m.SessionID, &at, &m.FileName, &m.InsertedText, &m.TokenCount,
			&m.EnergyJoules, &m.TotalEnergyJoules, &m.TotalEmissionsGrams); err != nil {
			return nil, fmt.Errorf("failed to scan episode: %w", err)
		}
		m.RecordedAt = fromMillis(at)
		out = append(out, m)
	}
	return out, rows.Err()
}
