package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/abrezinsky/sportsmeet/internal/models"
)

// ==================== Match Methods ====================

const matchColumns = `id, event_id, home_color_id, away_color_id, home_score, away_score, status, scheduled_at`

func scanMatch(row rowScanner) (*models.Match, error) {
	var m models.Match
	var home, away sql.NullInt64
	var status string
	if err := row.Scan(&m.ID, &m.EventID, &m.HomeColorID, &m.AwayColorID, &home, &away, &status, &m.ScheduledAt); err != nil {
		return nil, err
	}
	m.HomeScore = intPtr(home)
	m.AwayScore = intPtr(away)
	m.Status = models.MatchStatus(status)
	return &m, nil
}

// CreateMatch inserts a scheduled match
func (r *Repository) CreateMatch(ctx context.Context, m models.Match) (int64, error) {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO matches (event_id, home_color_id, away_color_id, status, scheduled_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.EventID, m.HomeColorID, m.AwayColorID, string(models.MatchScheduled), m.ScheduledAt.UTC(), now)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetMatch retrieves a match by ID
func (r *Repository) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	m, err := scanMatch(r.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return m, err
}

// ListMatches returns matches ordered by schedule; eventID nil lists all events
func (r *Repository) ListMatches(ctx context.Context, eventID *int) ([]models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches`
	var args []any
	if eventID != nil {
		query += ` WHERE event_id = ?`
		args = append(args, *eventID)
	}
	query += ` ORDER BY scheduled_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []models.Match{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, *m)
	}
	return matches, rows.Err()
}

// UpdateMatchStatus moves a match from one status to another. It is a compare-and-set:
// ErrStaleState is returned when the stored status is no longer from.
func (r *Repository) UpdateMatchStatus(ctx context.Context, id int, from, to models.MatchStatus) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE matches SET status = ?, updated_at = ? WHERE id = ? AND status = ?
	`, string(to), time.Now().UTC(), id, string(from))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrStaleState
	}
	return nil
}

// UpdateMatchScore sets both score fields without touching the status
func (r *Repository) UpdateMatchScore(ctx context.Context, id int, homeScore, awayScore *int) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE matches SET home_score = ?, away_score = ?, updated_at = ? WHERE id = ?
	`, nullInt(homeScore), nullInt(awayScore), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// MatchOutcome is a match status and score write that carries ledger entries with it.
// From == To leaves the status as it is.
type MatchOutcome struct {
	MatchID   int
	From      models.MatchStatus
	To        models.MatchStatus
	HomeScore int
	AwayScore int
	Entries   []models.ResultEntry
}

// AppliedResult is one ledger entry written by ApplyMatchOutcome
type AppliedResult struct {
	Stored   *models.ResultEntry
	Previous *models.ResultEntry
}

// ApplyMatchOutcome writes the match status and score and applies every entry to the
// ledger in one transaction. The status write is a compare-and-set on From: a stale
// match returns ErrStaleState, and no entry or color total is kept on any error.
func (r *Repository) ApplyMatchOutcome(ctx context.Context, o MatchOutcome) ([]AppliedResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE matches SET status = ?, home_score = ?, away_score = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, string(o.To), o.HomeScore, o.AwayScore, time.Now().UTC(), o.MatchID, string(o.From))
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, ErrStaleState
	}

	applied := make([]AppliedResult, 0, len(o.Entries))
	for _, e := range o.Entries {
		stored, previous, err := applyResult(ctx, tx, e)
		if err != nil {
			return nil, err
		}
		applied = append(applied, AppliedResult{Stored: stored, Previous: previous})
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return applied, nil
}

// MatchRecords tallies played/wins/draws/losses per color over completed, scored matches
func (r *Repository) MatchRecords(ctx context.Context) ([]models.MatchRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT color_id,
			COUNT(*),
			SUM(CASE WHEN scored > conceded THEN 1 ELSE 0 END),
			SUM(CASE WHEN scored = conceded THEN 1 ELSE 0 END),
			SUM(CASE WHEN scored < conceded THEN 1 ELSE 0 END)
		FROM (
			SELECT home_color_id AS color_id, home_score AS scored, away_score AS conceded
			FROM matches
			WHERE status = 'completed' AND home_score IS NOT NULL AND away_score IS NOT NULL
			UNION ALL
			SELECT away_color_id, away_score, home_score
			FROM matches
			WHERE status = 'completed' AND home_score IS NOT NULL AND away_score IS NOT NULL
		)
		GROUP BY color_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.MatchRecord
	for rows.Next() {
		var rec models.MatchRecord
		if err := rows.Scan(&rec.ColorID, &rec.Played, &rec.Wins, &rec.Draws, &rec.Losses); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
