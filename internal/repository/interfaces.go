package repository

import (
	"context"

	"github.com/abrezinsky/sportsmeet/internal/models"
)

// ColorRepository defines color data operations
type ColorRepository interface {
	CreateColor(ctx context.Context, name, hexCode string) (int64, error)
	GetColor(ctx context.Context, id int) (*models.Color, error)
	ListColors(ctx context.Context) ([]models.Color, error)
}

// EventRepository defines sport, event and athlete data operations
type EventRepository interface {
	CreateSport(ctx context.Context, name string) (int64, error)
	ListSports(ctx context.Context) ([]models.Sport, error)
	CreateEvent(ctx context.Context, sportID int, name string, isTeamEvent, isFinal bool) (int64, error)
	GetEvent(ctx context.Context, id int) (*models.Event, error)
	ListEvents(ctx context.Context) ([]models.Event, error)
	CreateAthlete(ctx context.Context, name string, colorID *int) (int64, error)
	GetAthlete(ctx context.Context, id int) (*models.Athlete, error)
	ListAthletes(ctx context.Context) ([]models.Athlete, error)
}

// ScoringRuleRepository defines scoring rule data operations
type ScoringRuleRepository interface {
	LookupPoints(ctx context.Context, eventID, rank int) (int, bool, error)
	ListScoringRules(ctx context.Context, eventID *int) ([]models.ScoringRule, error)
	ReplaceScoringRules(ctx context.Context, eventID *int, rules []models.ScoringRule) error
}

// ResultRepository defines result ledger data operations
type ResultRepository interface {
	ApplyResult(ctx context.Context, entry models.ResultEntry) (stored, previous *models.ResultEntry, err error)
	RemoveResult(ctx context.Context, eventID, colorID int) (*models.ResultEntry, error)
	GetResult(ctx context.Context, eventID, colorID int) (*models.ResultEntry, error)
	ListResults(ctx context.Context, eventID int) ([]models.ResultEntry, error)
	MedalCounts(ctx context.Context) ([]models.MedalCount, error)
	ColorBreakdown(ctx context.Context, colorID int) ([]models.BreakdownRow, error)
	RepairColorTotals(ctx context.Context) ([]models.ColorDrift, error)
}

// VoteSettingRepository defines vote setting data operations
type VoteSettingRepository interface {
	GetVoteSetting(ctx context.Context, eventID *int) (*models.VoteSetting, error)
	UpsertVoteSetting(ctx context.Context, s models.VoteSetting) error
}

// BallotRepository defines ballot log and vote summary data operations
type BallotRepository interface {
	InsertBallotWithinQuota(ctx context.Context, b models.Ballot, maxVotes int) (*models.Ballot, bool, error)
	CountVoterBallots(ctx context.Context, eventID int, voterKey string) (int, error)
	CountBallots(ctx context.Context, athleteID, eventID int) (int, error)
	IncrementVoteSummary(ctx context.Context, athleteID, eventID int) error
	GetVoteCount(ctx context.Context, athleteID, eventID int) (int, error)
	ListVoteSummaries(ctx context.Context, eventID int) ([]models.VoteSummary, error)
	PopularityLeaders(ctx context.Context, limit int) ([]models.PopularityEntry, error)
	RecomputeVoteSummaries(ctx context.Context) ([]models.SummaryDrift, error)
}

// MatchRepository defines match data operations
type MatchRepository interface {
	CreateMatch(ctx context.Context, m models.Match) (int64, error)
	GetMatch(ctx context.Context, id int) (*models.Match, error)
	ListMatches(ctx context.Context, eventID *int) ([]models.Match, error)
	UpdateMatchStatus(ctx context.Context, id int, from, to models.MatchStatus) error
	UpdateMatchScore(ctx context.Context, id int, homeScore, awayScore *int) error
	ApplyMatchOutcome(ctx context.Context, o MatchOutcome) ([]AppliedResult, error)
	MatchRecords(ctx context.Context) ([]models.MatchRecord, error)
}

// FullRepository combines all repository interfaces
type FullRepository interface {
	ColorRepository
	EventRepository
	ScoringRuleRepository
	ResultRepository
	VoteSettingRepository
	BallotRepository
	MatchRepository
	Ping(ctx context.Context) error
	Close() error
}

// Ensure Repository implements FullRepository
var _ FullRepository = (*Repository)(nil)
