package repository

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// globalScope is the event_id used for rows that apply to every event
const globalScope = 0

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// SQLite works best with a single connection; it also serializes every
	// statement and transaction issued through this repository.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection (for transactions)
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS colors (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			hex_code TEXT NOT NULL DEFAULT '',
			total_score INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS sports (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sport_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			is_team_event BOOLEAN NOT NULL DEFAULT 1,
			is_final BOOLEAN NOT NULL DEFAULT 0,
			FOREIGN KEY (sport_id) REFERENCES sports(id)
		)`,
		`CREATE TABLE IF NOT EXISTS athletes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			color_id INTEGER,
			FOREIGN KEY (color_id) REFERENCES colors(id) ON DELETE SET NULL
		)`,
		// event_id 0 holds the global rule set
		`CREATE TABLE IF NOT EXISTS scoring_rules (
			event_id INTEGER NOT NULL DEFAULT 0,
			rank INTEGER NOT NULL CHECK (rank > 0),
			points INTEGER NOT NULL CHECK (points >= 0),
			PRIMARY KEY (event_id, rank)
		)`,
		`CREATE TABLE IF NOT EXISTS result_entries (
			id TEXT PRIMARY KEY,
			event_id INTEGER NOT NULL,
			color_id INTEGER NOT NULL,
			athlete_id INTEGER,
			rank INTEGER NOT NULL CHECK (rank > 0),
			points INTEGER NOT NULL CHECK (points >= 0),
			recorded_by TEXT NOT NULL DEFAULT '',
			recorded_at DATETIME NOT NULL,
			FOREIGN KEY (event_id) REFERENCES events(id),
			FOREIGN KEY (color_id) REFERENCES colors(id),
			FOREIGN KEY (athlete_id) REFERENCES athletes(id),
			UNIQUE (event_id, color_id)
		)`,
		// event_id 0 holds the global default
		`CREATE TABLE IF NOT EXISTS vote_settings (
			event_id INTEGER PRIMARY KEY,
			voting_enabled BOOLEAN NOT NULL DEFAULT 0,
			voting_start DATETIME,
			voting_end DATETIME,
			max_votes_per_user INTEGER NOT NULL DEFAULT 1 CHECK (max_votes_per_user > 0),
			show_realtime_results BOOLEAN NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS ballots (
			id TEXT PRIMARY KEY,
			athlete_id INTEGER NOT NULL,
			event_id INTEGER NOT NULL,
			voter_key TEXT NOT NULL,
			ordinal INTEGER NOT NULL CHECK (ordinal > 0),
			voted_at DATETIME NOT NULL,
			FOREIGN KEY (athlete_id) REFERENCES athletes(id),
			FOREIGN KEY (event_id) REFERENCES events(id),
			UNIQUE (event_id, voter_key, ordinal)
		)`,
		`CREATE TABLE IF NOT EXISTS vote_summaries (
			athlete_id INTEGER NOT NULL,
			event_id INTEGER NOT NULL,
			total_votes INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (athlete_id, event_id)
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			event_id INTEGER NOT NULL,
			home_color_id INTEGER NOT NULL,
			away_color_id INTEGER NOT NULL,
			home_score INTEGER,
			away_score INTEGER,
			status TEXT NOT NULL DEFAULT 'scheduled',
			scheduled_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			FOREIGN KEY (event_id) REFERENCES events(id),
			FOREIGN KEY (home_color_id) REFERENCES colors(id),
			FOREIGN KEY (away_color_id) REFERENCES colors(id),
			CHECK (home_color_id <> away_color_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_color ON result_entries(color_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ballots_subject ON ballots(event_id, athlete_id)`,
		`CREATE INDEX IF NOT EXISTS idx_summaries_event ON vote_summaries(event_id, total_votes)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_event ON matches(event_id)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}

// scopeID converts an optional event id to its stored scope key
func scopeID(eventID *int) int {
	if eventID == nil {
		return globalScope
	}
	return *eventID
}

// scopePtr converts a stored scope key back to an optional event id
func scopePtr(id int) *int {
	if id == globalScope {
		return nil
	}
	v := id
	return &v
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: v.UTC(), Valid: true}
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time
	return &t
}
