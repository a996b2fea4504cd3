package handlers

import "time"

// LoginRequest is the organizer login body
type LoginRequest struct {
	Password string `json:"password"`
}

// ResultRequest records or corrects one placement
type ResultRequest struct {
	EventID    int    `json:"event_id"`
	ColorID    int    `json:"color_id"`
	AthleteID  *int   `json:"athlete_id"`
	Rank       int    `json:"rank"`
	RecordedBy string `json:"recorded_by"`
}

// RescoreRequest re-applies the current rules to an event
type RescoreRequest struct {
	RecordedBy string `json:"recorded_by"`
}

// ScoringRulesRequest replaces the rule set for one scope
type ScoringRulesRequest struct {
	Rules []ScoringRuleInput `json:"rules"`
}

// ScoringRuleInput is one rank to points mapping
type ScoringRuleInput struct {
	Rank   int `json:"rank"`
	Points int `json:"points"`
}

// VoteSettingsRequest replaces the vote settings for one scope
type VoteSettingsRequest struct {
	VotingEnabled       bool       `json:"voting_enabled"`
	VotingStart         *time.Time `json:"voting_start"`
	VotingEnd           *time.Time `json:"voting_end"`
	MaxVotesPerUser     int        `json:"max_votes_per_user"`
	ShowRealtimeResults bool       `json:"show_realtime_results"`
}

// VotingStatusRequest represents a request to set voting open/closed
type VotingStatusRequest struct {
	EventID *int `json:"event_id"`
	Open    bool `json:"open"`
}

// VotingTimerRequest represents a request to start a voting timer
type VotingTimerRequest struct {
	EventID *int `json:"event_id"`
	Minutes int  `json:"minutes"`
}

// VoteSubmitRequest represents a request to submit a vote
type VoteSubmitRequest struct {
	AthleteID int `json:"athlete_id"`
	EventID   int `json:"event_id"`
}

// MatchCreateRequest schedules a match between two colors
type MatchCreateRequest struct {
	EventID     int       `json:"event_id"`
	HomeColorID int       `json:"home_color_id"`
	AwayColorID int       `json:"away_color_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// MatchStatusRequest moves a match to a new status
type MatchStatusRequest struct {
	Status string `json:"status"`
}

// MatchScoreRequest sets a match score. A nil side is left unset.
type MatchScoreRequest struct {
	HomeScore *int `json:"home_score"`
	AwayScore *int `json:"away_score"`
}
