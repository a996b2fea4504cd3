package handlers

import (
	"time"

	"github.com/abrezinsky/sportsmeet/internal/models"
)

// HealthResponse is the liveness probe body
type HealthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
}

// VoteResponse is the body of an accepted ballot
type VoteResponse struct {
	Accepted bool          `json:"accepted"`
	Ballot   *models.Ballot `json:"ballot"`
}

// EligibilityResponse tells a voter whether a ballot would currently be accepted
type EligibilityResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// VoteSummaryResponse lists per-athlete totals for an event
type VoteSummaryResponse struct {
	EventID    int                  `json:"event_id"`
	TotalVotes int                  `json:"total_votes"`
	Summaries  []models.VoteSummary `json:"summaries"`
}

// VotingStatusResponse is the response for voting status changes
type VotingStatusResponse struct {
	EventID *int `json:"event_id"`
	Open    bool `json:"open"`
}

// VotingTimerResponse is the response for setting a voting timer
type VotingTimerResponse struct {
	EventID   *int   `json:"event_id"`
	CloseTime string `json:"close_time"`
	Minutes   int    `json:"minutes"`
}

// ScoringRulesResponse lists the rules of one scope
type ScoringRulesResponse struct {
	EventID *int                 `json:"event_id"`
	Rules   []models.ScoringRule `json:"rules"`
}

// ReconcileResponse reports what a repair pass changed
type ReconcileResponse struct {
	StartedAt    time.Time             `json:"started_at"`
	DurationMS   int64                 `json:"duration_ms"`
	Repaired     int                   `json:"repaired"`
	SummaryDrift []models.SummaryDrift `json:"summary_drift"`
	ColorDrift   []models.ColorDrift   `json:"color_drift"`
}
