package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/abrezinsky/sportsmeet/internal/models"
)

// ==================== Color Methods ====================

// CreateColor inserts a team color with a zero total
func (r *Repository) CreateColor(ctx context.Context, name, hexCode string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `INSERT INTO colors (name, hex_code) VALUES (?, ?)`, name, hexCode)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetColor retrieves a color by ID
func (r *Repository) GetColor(ctx context.Context, id int) (*models.Color, error) {
	var c models.Color
	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, hex_code, total_score FROM colors WHERE id = ?
	`, id).Scan(&c.ID, &c.Name, &c.HexCode, &c.TotalScore)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListColors returns all colors ordered by ID
func (r *Repository) ListColors(ctx context.Context) ([]models.Color, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, hex_code, total_score FROM colors ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var colors []models.Color
	for rows.Next() {
		var c models.Color
		if err := rows.Scan(&c.ID, &c.Name, &c.HexCode, &c.TotalScore); err != nil {
			return nil, err
		}
		colors = append(colors, c)
	}
	return colors, rows.Err()
}

// ==================== Sport & Event Methods ====================

// CreateSport inserts a sport
func (r *Repository) CreateSport(ctx context.Context, name string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `INSERT INTO sports (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// ListSports returns all sports ordered by ID
func (r *Repository) ListSports(ctx context.Context) ([]models.Sport, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM sports ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sports []models.Sport
	for rows.Next() {
		var s models.Sport
		if err := rows.Scan(&s.ID, &s.Name); err != nil {
			return nil, err
		}
		sports = append(sports, s)
	}
	return sports, rows.Err()
}

// CreateEvent inserts an event under a sport
func (r *Repository) CreateEvent(ctx context.Context, sportID int, name string, isTeamEvent, isFinal bool) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO events (sport_id, name, is_team_event, is_final) VALUES (?, ?, ?, ?)
	`, sportID, name, isTeamEvent, isFinal)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetEvent retrieves an event with its sport name
func (r *Repository) GetEvent(ctx context.Context, id int) (*models.Event, error) {
	var e models.Event
	err := r.db.QueryRowContext(ctx, `
		SELECT e.id, e.sport_id, s.name, e.name, e.is_team_event, e.is_final
		FROM events e
		JOIN sports s ON s.id = e.sport_id
		WHERE e.id = ?
	`, id).Scan(&e.ID, &e.SportID, &e.SportName, &e.Name, &e.IsTeamEvent, &e.IsFinal)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// ListEvents returns all events ordered by ID
func (r *Repository) ListEvents(ctx context.Context) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.id, e.sport_id, s.name, e.name, e.is_team_event, e.is_final
		FROM events e
		JOIN sports s ON s.id = e.sport_id
		ORDER BY e.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		if err := rows.Scan(&e.ID, &e.SportID, &e.SportName, &e.Name, &e.IsTeamEvent, &e.IsFinal); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// ==================== Athlete Methods ====================

// CreateAthlete inserts an athlete, optionally attached to a color
func (r *Repository) CreateAthlete(ctx context.Context, name string, colorID *int) (int64, error) {
	result, err := r.db.ExecContext(ctx, `INSERT INTO athletes (name, color_id) VALUES (?, ?)`, name, nullInt(colorID))
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetAthlete retrieves an athlete by ID
func (r *Repository) GetAthlete(ctx context.Context, id int) (*models.Athlete, error) {
	var a models.Athlete
	var colorID sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT id, name, color_id FROM athletes WHERE id = ?`, id).
		Scan(&a.ID, &a.Name, &colorID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.ColorID = intPtr(colorID)
	return &a, nil
}

// ListAthletes returns all athletes ordered by ID
func (r *Repository) ListAthletes(ctx context.Context) ([]models.Athlete, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, color_id FROM athletes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var athletes []models.Athlete
	for rows.Next() {
		var a models.Athlete
		var colorID sql.NullInt64
		if err := rows.Scan(&a.ID, &a.Name, &colorID); err != nil {
			return nil, err
		}
		a.ColorID = intPtr(colorID)
		athletes = append(athletes, a)
	}
	return athletes, rows.Err()
}
