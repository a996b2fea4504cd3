package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/abrezinsky/sportsmeet/internal/models"
)

// maxOrdinalAttempts bounds retries when a concurrent writer takes the same ordinal
const maxOrdinalAttempts = 5

// ==================== Vote Setting Methods ====================

// GetVoteSetting returns the stored settings row for one scope (nil = global default)
func (r *Repository) GetVoteSetting(ctx context.Context, eventID *int) (*models.VoteSetting, error) {
	var s models.VoteSetting
	var scope int
	var start, end sql.NullTime
	err := r.db.QueryRowContext(ctx, `
		SELECT event_id, voting_enabled, voting_start, voting_end, max_votes_per_user, show_realtime_results
		FROM vote_settings WHERE event_id = ?
	`, scopeID(eventID)).Scan(&scope, &s.VotingEnabled, &start, &end, &s.MaxVotesPerUser, &s.ShowRealtimeResults)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.EventID = scopePtr(scope)
	s.VotingStart = timePtr(start)
	s.VotingEnd = timePtr(end)
	return &s, nil
}

// UpsertVoteSetting writes the settings row for s.EventID's scope
func (r *Repository) UpsertVoteSetting(ctx context.Context, s models.VoteSetting) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO vote_settings (event_id, voting_enabled, voting_start, voting_end, max_votes_per_user, show_realtime_results)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(event_id) DO UPDATE SET
			voting_enabled = excluded.voting_enabled,
			voting_start = excluded.voting_start,
			voting_end = excluded.voting_end,
			max_votes_per_user = excluded.max_votes_per_user,
			show_realtime_results = excluded.show_realtime_results
	`, scopeID(s.EventID), s.VotingEnabled, nullTime(s.VotingStart), nullTime(s.VotingEnd), s.MaxVotesPerUser, s.ShowRealtimeResults)
	return err
}

// ==================== Ballot Methods ====================

// InsertBallotWithinQuota appends b only while the voter holds fewer than maxVotes ballots
// for b.EventID. The count and the insert are one statement, and UNIQUE(event_id,
// voter_key, ordinal) rejects a second writer that computed the same ordinal, so the
// quota cannot be exceeded even by concurrent callers. inserted is false when the quota
// is already used up; on success the returned ballot carries its ordinal.
func (r *Repository) InsertBallotWithinQuota(ctx context.Context, b models.Ballot, maxVotes int) (*models.Ballot, bool, error) {
	for attempt := 0; attempt < maxOrdinalAttempts; attempt++ {
		res, err := r.db.ExecContext(ctx, `
			INSERT INTO ballots (id, athlete_id, event_id, voter_key, ordinal, voted_at)
			SELECT ?, ?, ?, ?, n + 1, ?
			FROM (SELECT COUNT(*) AS n FROM ballots WHERE event_id = ? AND voter_key = ?)
			WHERE n < ?
		`, b.ID, b.AthleteID, b.EventID, b.VoterKey, b.VotedAt.UTC(), b.EventID, b.VoterKey, maxVotes)
		if isUniqueViolation(err) {
			continue
		}
		if err != nil {
			return nil, false, err
		}

		n, err := res.RowsAffected()
		if err != nil {
			return nil, false, err
		}
		if n == 0 {
			return nil, false, nil
		}

		if err := r.db.QueryRowContext(ctx, `SELECT ordinal FROM ballots WHERE id = ?`, b.ID).Scan(&b.Ordinal); err != nil {
			return nil, false, err
		}
		return &b, true, nil
	}
	return nil, false, ErrBallotContention
}

// CountVoterBallots counts the ballots a voter holds in one event
func (r *Repository) CountVoterBallots(ctx context.Context, eventID int, voterKey string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ballots WHERE event_id = ? AND voter_key = ?
	`, eventID, voterKey).Scan(&n)
	return n, err
}

// CountBallots counts the ballots cast for an athlete in one event
func (r *Repository) CountBallots(ctx context.Context, athleteID, eventID int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM ballots WHERE athlete_id = ? AND event_id = ?
	`, athleteID, eventID).Scan(&n)
	return n, err
}

// ==================== Vote Summary Methods ====================

// IncrementVoteSummary adds one vote to (athlete, event), creating the row on first vote
func (r *Repository) IncrementVoteSummary(ctx context.Context, athleteID, eventID int) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO vote_summaries (athlete_id, event_id, total_votes) VALUES (?, ?, 1)
		ON CONFLICT(athlete_id, event_id) DO UPDATE SET total_votes = total_votes + 1
	`, athleteID, eventID)
	return err
}

// GetVoteCount returns the summary count for (athlete, event), zero when absent
func (r *Repository) GetVoteCount(ctx context.Context, athleteID, eventID int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT total_votes FROM vote_summaries WHERE athlete_id = ? AND event_id = ?
	`, athleteID, eventID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

// ListVoteSummaries returns an event's summaries, most votes first
func (r *Repository) ListVoteSummaries(ctx context.Context, eventID int) ([]models.VoteSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT vs.athlete_id, COALESCE(a.name, ''), vs.event_id, vs.total_votes
		FROM vote_summaries vs
		LEFT JOIN athletes a ON a.id = vs.athlete_id
		WHERE vs.event_id = ? AND vs.total_votes > 0
		ORDER BY vs.total_votes DESC, vs.athlete_id ASC
	`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []models.VoteSummary{}
	for rows.Next() {
		var s models.VoteSummary
		if err := rows.Scan(&s.AthleteID, &s.AthleteName, &s.EventID, &s.TotalVotes); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// PopularityLeaders sums each athlete's votes across all events
func (r *Repository) PopularityLeaders(ctx context.Context, limit int) ([]models.PopularityEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.name, a.color_id, SUM(vs.total_votes) AS total
		FROM vote_summaries vs
		JOIN athletes a ON a.id = vs.athlete_id
		GROUP BY a.id
		HAVING total > 0
		ORDER BY total DESC, a.id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.PopularityEntry{}
	for rows.Next() {
		var e models.PopularityEntry
		var colorID sql.NullInt64
		if err := rows.Scan(&e.AthleteID, &e.AthleteName, &colorID, &e.TotalVotes); err != nil {
			return nil, err
		}
		e.ColorID = intPtr(colorID)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecomputeVoteSummaries rebuilds every summary from a grouped count over the ballot log
// and reports the rows whose stored count was wrong. It fully overwrites the table inside
// one transaction, so running it repeatedly or concurrently converges on the same state.
func (r *Repository) RecomputeVoteSummaries(ctx context.Context) ([]models.SummaryDrift, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT athlete_id, event_id, stored, expected FROM (
			SELECT b.athlete_id, b.event_id, COALESCE(vs.total_votes, 0) AS stored, COUNT(*) AS expected
			FROM ballots b
			LEFT JOIN vote_summaries vs ON vs.athlete_id = b.athlete_id AND vs.event_id = b.event_id
			GROUP BY b.athlete_id, b.event_id
			UNION ALL
			SELECT vs.athlete_id, vs.event_id, vs.total_votes AS stored, 0 AS expected
			FROM vote_summaries vs
			WHERE NOT EXISTS (
				SELECT 1 FROM ballots b WHERE b.athlete_id = vs.athlete_id AND b.event_id = vs.event_id
			)
		)
		WHERE stored <> expected
		ORDER BY event_id, athlete_id
	`)
	if err != nil {
		return nil, err
	}
	var drift []models.SummaryDrift
	for rows.Next() {
		var d models.SummaryDrift
		if err := rows.Scan(&d.AthleteID, &d.EventID, &d.Stored, &d.Expected); err != nil {
			rows.Close()
			return nil, err
		}
		drift = append(drift, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM vote_summaries`); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO vote_summaries (athlete_id, event_id, total_votes)
		SELECT athlete_id, event_id, COUNT(*) FROM ballots GROUP BY athlete_id, event_id
	`); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return drift, nil
}
