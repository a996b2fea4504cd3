package services

import (
	"context"

	"github.com/abrezinsky/sportsmeet/internal/models"
)

// ScoringServicer defines the interface for scoring rule and result ledger operations
type ScoringServicer interface {
	ResolvePoints(ctx context.Context, eventID, rank int) (int, error)
	ListScoringRules(ctx context.Context, eventID *int) ([]models.ScoringRule, error)
	PutScoringRules(ctx context.Context, eventID *int, rules []models.ScoringRule) error
	RecordResult(ctx context.Context, in ResultInput) (*models.ResultEntry, error)
	RemoveResult(ctx context.Context, eventID, colorID int) (*models.ResultEntry, error)
	ListEventResults(ctx context.Context, eventID int) ([]models.ResultEntry, error)
	RescoreEvent(ctx context.Context, eventID int, recordedBy string) (*RescoreReport, error)
	RepairColorTotals(ctx context.Context) ([]models.ColorDrift, error)
}

// VotingServicer defines the interface for ballot and vote summary operations
type VotingServicer interface {
	Authorize(ctx context.Context, eventID int, voterKey string) (*VoteOutcome, error)
	CastVote(ctx context.Context, athleteID, eventID int, voterKey string) (*VoteOutcome, error)
	GetVoteSummary(ctx context.Context, eventID int) ([]models.VoteSummary, error)
	RecomputeSummaries(ctx context.Context) ([]models.SummaryDrift, error)
	GetPopularityLeaders(ctx context.Context, limit int) ([]models.PopularityEntry, error)
	GetAwardWinner(ctx context.Context, eventID int) (*AwardWinner, error)
}

// SettingsServicer defines the interface for vote setting operations
type SettingsServicer interface {
	GetVoteSettings(ctx context.Context, eventID *int) (*models.VoteSetting, error)
	EffectiveVoteSettings(ctx context.Context, eventID int) (*models.VoteSetting, error)
	PutVoteSettings(ctx context.Context, setting models.VoteSetting) error
	OpenVoting(ctx context.Context, eventID *int) error
	CloseVoting(ctx context.Context, eventID *int) error
	StartVotingTimer(ctx context.Context, eventID *int, minutes int) (string, error)
	SetBroadcaster(b Broadcaster)
}

// StandingsServicer defines the interface for leaderboard operations
type StandingsServicer interface {
	ComputeStandings(ctx context.Context) ([]models.Standing, error)
	GetColorBreakdown(ctx context.Context, colorID int) ([]models.BreakdownRow, error)
	ExportStandingsXLSX(ctx context.Context) ([]byte, error)
}

// MatchServicer defines the interface for match lifecycle operations
type MatchServicer interface {
	CreateMatch(ctx context.Context, in MatchInput) (*models.Match, error)
	GetMatch(ctx context.Context, id int) (*models.Match, error)
	ListMatches(ctx context.Context, eventID *int) ([]models.Match, error)
	TransitionMatch(ctx context.Context, id int, to models.MatchStatus) (*models.Match, error)
	UpdateMatchScore(ctx context.Context, id int, homeScore, awayScore *int) (*models.Match, error)
}

// Reconciler defines the interface for the integrity repair pass
type Reconciler interface {
	Run(ctx context.Context) (*ReconcileReport, error)
}

// Ensure concrete types implement interfaces
var (
	_ ScoringServicer      = (*ScoringService)(nil)
	_ VotingServicer       = (*VotingService)(nil)
	_ SettingsServicer     = (*SettingsService)(nil)
	_ StandingsServicer    = (*StandingsService)(nil)
	_ MatchServicer        = (*MatchService)(nil)
	_ Reconciler           = (*ReconcileService)(nil)
	_ ResultRecorder       = (*ScoringService)(nil)
	_ SummaryRecomputer    = (*VotingService)(nil)
	_ ColorTotalRepairer   = (*ScoringService)(nil)
	_ VoteSettingsResolver = (*SettingsService)(nil)
)
