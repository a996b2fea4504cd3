package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/abrezinsky/sportsmeet/internal/models"
)

// ==================== Scoring Rule Methods ====================

// LookupPoints returns the points for rank, preferring the event's own rule over the global one.
// found is false when neither scope has a rule for rank.
func (r *Repository) LookupPoints(ctx context.Context, eventID, rank int) (points int, found bool, err error) {
	err = r.db.QueryRowContext(ctx, `
		SELECT points FROM scoring_rules
		WHERE rank = ? AND event_id IN (?, ?)
		ORDER BY event_id DESC
		LIMIT 1
	`, rank, eventID, globalScope).Scan(&points)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return points, true, nil
}

// ListScoringRules returns the rules of one scope ordered by rank
func (r *Repository) ListScoringRules(ctx context.Context, eventID *int) ([]models.ScoringRule, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT event_id, rank, points FROM scoring_rules WHERE event_id = ? ORDER BY rank
	`, scopeID(eventID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rules := []models.ScoringRule{}
	for rows.Next() {
		var rule models.ScoringRule
		var scope int
		if err := rows.Scan(&scope, &rule.Rank, &rule.Points); err != nil {
			return nil, err
		}
		rule.EventID = scopePtr(scope)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// ReplaceScoringRules atomically swaps the rule set of one scope
func (r *Repository) ReplaceScoringRules(ctx context.Context, eventID *int, rules []models.ScoringRule) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	scope := scopeID(eventID)
	if _, err := tx.ExecContext(ctx, `DELETE FROM scoring_rules WHERE event_id = ?`, scope); err != nil {
		return err
	}
	for _, rule := range rules {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scoring_rules (event_id, rank, points) VALUES (?, ?, ?)
		`, scope, rule.Rank, rule.Points); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ==================== Result Ledger Methods ====================

const resultColumns = `id, event_id, color_id, athlete_id, rank, points, recorded_by, recorded_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResult(row rowScanner) (*models.ResultEntry, error) {
	var e models.ResultEntry
	var athleteID sql.NullInt64
	if err := row.Scan(&e.ID, &e.EventID, &e.ColorID, &athleteID, &e.Rank, &e.Points, &e.RecordedBy, &e.RecordedAt); err != nil {
		return nil, err
	}
	e.AthleteID = intPtr(athleteID)
	return &e, nil
}

// ApplyResult records entry for its (event, color) key and moves the color total by the
// points difference, all in one transaction. When a row already exists for the key it is
// corrected in place and keeps its ID; previous is the row as it was before the write.
func (r *Repository) ApplyResult(ctx context.Context, entry models.ResultEntry) (stored, previous *models.ResultEntry, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	stored, previous, err = applyResult(ctx, tx, entry)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return stored, previous, nil
}

// applyResult upserts entry and adjusts its color total inside tx
func applyResult(ctx context.Context, tx *sql.Tx, entry models.ResultEntry) (stored, previous *models.ResultEntry, err error) {
	previous, err = scanResult(tx.QueryRowContext(ctx, `
		SELECT `+resultColumns+` FROM result_entries WHERE event_id = ? AND color_id = ?
	`, entry.EventID, entry.ColorID))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		previous = nil
	case err != nil:
		return nil, nil, err
	}

	delta := entry.Points
	if previous == nil {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO result_entries (`+resultColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, entry.ID, entry.EventID, entry.ColorID, nullInt(entry.AthleteID), entry.Rank, entry.Points, entry.RecordedBy, entry.RecordedAt.UTC())
	} else {
		entry.ID = previous.ID
		delta = entry.Points - previous.Points
		_, err = tx.ExecContext(ctx, `
			UPDATE result_entries
			SET athlete_id = ?, rank = ?, points = ?, recorded_by = ?, recorded_at = ?
			WHERE id = ?
		`, nullInt(entry.AthleteID), entry.Rank, entry.Points, entry.RecordedBy, entry.RecordedAt.UTC(), entry.ID)
	}
	if err != nil {
		return nil, nil, err
	}

	if err := adjustColorTotal(ctx, tx, entry.ColorID, delta); err != nil {
		return nil, nil, err
	}
	return &entry, previous, nil
}

// RemoveResult deletes the entry for (event, color) and subtracts its points from the color
func (r *Repository) RemoveResult(ctx context.Context, eventID, colorID int) (*models.ResultEntry, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	removed, err := scanResult(tx.QueryRowContext(ctx, `
		SELECT `+resultColumns+` FROM result_entries WHERE event_id = ? AND color_id = ?
	`, eventID, colorID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM result_entries WHERE id = ?`, removed.ID); err != nil {
		return nil, err
	}
	if err := adjustColorTotal(ctx, tx, colorID, -removed.Points); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return removed, nil
}

// adjustColorTotal is a single-row atomic increment; it never reads the total back
func adjustColorTotal(ctx context.Context, tx *sql.Tx, colorID, delta int) error {
	if delta == 0 {
		return nil
	}
	res, err := tx.ExecContext(ctx, `UPDATE colors SET total_score = total_score + ? WHERE id = ?`, delta, colorID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("color %d: %w", colorID, ErrNotFound)
	}
	return nil
}

// GetResult retrieves the entry for (event, color)
func (r *Repository) GetResult(ctx context.Context, eventID, colorID int) (*models.ResultEntry, error) {
	entry, err := scanResult(r.db.QueryRowContext(ctx, `
		SELECT `+resultColumns+` FROM result_entries WHERE event_id = ? AND color_id = ?
	`, eventID, colorID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return entry, err
}

// ListResults returns an event's entries ordered by rank
func (r *Repository) ListResults(ctx context.Context, eventID int) ([]models.ResultEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+resultColumns+` FROM result_entries WHERE event_id = ? ORDER BY rank, color_id
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.ResultEntry{}
	for rows.Next() {
		entry, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, rows.Err()
}

// MedalCounts tallies rank 1/2/3 entries per color
func (r *Repository) MedalCounts(ctx context.Context) ([]models.MedalCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT color_id,
			SUM(CASE WHEN rank = 1 THEN 1 ELSE 0 END),
			SUM(CASE WHEN rank = 2 THEN 1 ELSE 0 END),
			SUM(CASE WHEN rank = 3 THEN 1 ELSE 0 END)
		FROM result_entries
		GROUP BY color_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []models.MedalCount
	for rows.Next() {
		var m models.MedalCount
		if err := rows.Scan(&m.ColorID, &m.Gold, &m.Silver, &m.Bronze); err != nil {
			return nil, err
		}
		counts = append(counts, m)
	}
	return counts, rows.Err()
}

// ColorBreakdown lists the per-event entries of one color
func (r *Repository) ColorBreakdown(ctx context.Context, colorID int) ([]models.BreakdownRow, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.name, s.name, re.rank, re.points
		FROM result_entries re
		JOIN events e ON e.id = re.event_id
		JOIN sports s ON s.id = e.sport_id
		WHERE re.color_id = ?
		ORDER BY s.name, e.name, e.id
	`, colorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	breakdown := []models.BreakdownRow{}
	for rows.Next() {
		var b models.BreakdownRow
		if err := rows.Scan(&b.EventID, &b.EventName, &b.SportName, &b.Rank, &b.Points); err != nil {
			return nil, err
		}
		breakdown = append(breakdown, b)
	}
	return breakdown, rows.Err()
}

// RepairColorTotals resets every color total that disagrees with SUM(points) of its
// entries and reports what it changed
func (r *Repository) RepairColorTotals(ctx context.Context) ([]models.ColorDrift, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT c.id, c.total_score, COALESCE(SUM(re.points), 0) AS expected
		FROM colors c
		LEFT JOIN result_entries re ON re.color_id = c.id
		GROUP BY c.id
		HAVING c.total_score <> expected
		ORDER BY c.id
	`)
	if err != nil {
		return nil, err
	}
	var drift []models.ColorDrift
	for rows.Next() {
		var d models.ColorDrift
		if err := rows.Scan(&d.ColorID, &d.Stored, &d.Expected); err != nil {
			rows.Close()
			return nil, err
		}
		drift = append(drift, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, d := range drift {
		if _, err := tx.ExecContext(ctx, `UPDATE colors SET total_score = ? WHERE id = ?`, d.Expected, d.ColorID); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return drift, nil
}
