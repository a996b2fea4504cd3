package models

import "time"

// Color is a competing team identified by its team color
type Color struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	HexCode    string `json:"hex_code"`
	TotalScore int    `json:"total_score"`
}

// Sport groups related events (e.g. Athletics, Football)
type Sport struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Event is a single contest inside a sport
type Event struct {
	ID          int    `json:"id"`
	SportID     int    `json:"sport_id"`
	SportName   string `json:"sport_name,omitempty"`
	Name        string `json:"name"`
	IsTeamEvent bool   `json:"is_team_event"`
	IsFinal     bool   `json:"is_final"`
}

// Athlete is a vote subject and optional result holder
type Athlete struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	ColorID *int   `json:"color_id,omitempty"`
}

// ScoringRule maps a finishing rank to points. EventID nil means the global rule set.
type ScoringRule struct {
	EventID *int `json:"event_id"`
	Rank    int  `json:"rank"`
	Points  int  `json:"points"`
}

// ResultEntry is one color's finishing rank in one event
type ResultEntry struct {
	ID         string    `json:"id"`
	EventID    int       `json:"event_id"`
	ColorID    int       `json:"color_id"`
	AthleteID  *int      `json:"athlete_id,omitempty"`
	Rank       int       `json:"rank"`
	Points     int       `json:"points"`
	RecordedBy string    `json:"recorded_by"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ColorDrift describes a color whose stored total disagreed with its ledger
type ColorDrift struct {
	ColorID  int `json:"color_id"`
	Stored   int `json:"stored"`
	Expected int `json:"expected"`
}

// VoteSetting configures the vote gate. EventID nil is the global default.
type VoteSetting struct {
	EventID             *int       `json:"event_id"`
	VotingEnabled       bool       `json:"voting_enabled"`
	VotingStart         *time.Time `json:"voting_start,omitempty"`
	VotingEnd           *time.Time `json:"voting_end,omitempty"`
	MaxVotesPerUser     int        `json:"max_votes_per_user"`
	ShowRealtimeResults bool       `json:"show_realtime_results"`
}

// Ballot is one accepted vote. Ordinal is the voter's 1-based ballot number within the event.
type Ballot struct {
	ID        string    `json:"id"`
	AthleteID int       `json:"athlete_id"`
	EventID   int       `json:"event_id"`
	VoterKey  string    `json:"-"`
	Ordinal   int       `json:"ordinal"`
	VotedAt   time.Time `json:"voted_at"`
}

// VoteSummary is the derived vote count for one (athlete, event)
type VoteSummary struct {
	AthleteID   int    `json:"athlete_id"`
	AthleteName string `json:"athlete_name,omitempty"`
	EventID     int    `json:"event_id"`
	TotalVotes  int    `json:"total_votes"`
}

// SummaryDrift describes a vote summary that disagreed with the ballot log
type SummaryDrift struct {
	AthleteID int `json:"athlete_id"`
	EventID   int `json:"event_id"`
	Stored    int `json:"stored"`
	Expected  int `json:"expected"`
}

// PopularityEntry is an athlete's vote total across all events
type PopularityEntry struct {
	AthleteID   int    `json:"athlete_id"`
	AthleteName string `json:"athlete_name"`
	ColorID     *int   `json:"color_id,omitempty"`
	TotalVotes  int    `json:"total_votes"`
}

// MatchStatus is the lifecycle state of a head-to-head match
type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchOngoing   MatchStatus = "ongoing"
	MatchCompleted MatchStatus = "completed"
	MatchCancelled MatchStatus = "cancelled"
)

// Valid reports whether s is a known status
func (s MatchStatus) Valid() bool {
	switch s {
	case MatchScheduled, MatchOngoing, MatchCompleted, MatchCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition may follow s
func (s MatchStatus) Terminal() bool {
	return s == MatchCompleted || s == MatchCancelled
}

// Match is a head-to-head contest between two colors
type Match struct {
	ID          int         `json:"id"`
	EventID     int         `json:"event_id"`
	HomeColorID int         `json:"home_color_id"`
	AwayColorID int         `json:"away_color_id"`
	HomeScore   *int        `json:"home_score"`
	AwayScore   *int        `json:"away_score"`
	Status      MatchStatus `json:"status"`
	ScheduledAt time.Time   `json:"scheduled_at"`
}

// MedalCount holds gold/silver/bronze tallies for a color
type MedalCount struct {
	ColorID int `json:"color_id"`
	Gold    int `json:"gold"`
	Silver  int `json:"silver"`
	Bronze  int `json:"bronze"`
}

// MatchRecord holds completed-match statistics for a color
type MatchRecord struct {
	ColorID int `json:"color_id"`
	Played  int `json:"played"`
	Wins    int `json:"wins"`
	Draws   int `json:"draws"`
	Losses  int `json:"losses"`
}

// Standing is one row of the public leaderboard
type Standing struct {
	Rank       int    `json:"rank"`
	ColorID    int    `json:"color_id"`
	Name       string `json:"name"`
	HexCode    string `json:"hex_code"`
	TotalScore int    `json:"total_score"`
	Gold       int    `json:"gold"`
	Silver     int    `json:"silver"`
	Bronze     int    `json:"bronze"`
	Played     int    `json:"played"`
	Wins       int    `json:"wins"`
	Draws      int    `json:"draws"`
	Losses     int    `json:"losses"`
}

// BreakdownRow is one event's contribution to a color's total
type BreakdownRow struct {
	EventID   int    `json:"event_id"`
	EventName string `json:"event_name"`
	SportName string `json:"sport_name"`
	Rank      int    `json:"rank"`
	Points    int    `json:"points"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
