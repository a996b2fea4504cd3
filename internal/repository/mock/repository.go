package mock

import (
	"context"

	"github.com/abrezinsky/sportsmeet/internal/models"
	"github.com/abrezinsky/sportsmeet/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.IncrementVoteSummaryError = errors.New("database error")
//	svc := services.NewVotingService(log, mockRepo, settingsSvc)
//	outcome, err := svc.CastVote(ctx, athleteID, eventID, "user:1")
//	// the ballot is stored, the summary is left for reconciliation
type Repository struct {
	repository.FullRepository

	// ===== Reference Errors =====
	GetColorError   error
	ListColorsError error
	GetEventError   error
	GetAthleteError error

	// ===== Scoring Errors =====
	LookupPointsError        error
	ReplaceScoringRulesError error
	ApplyResultError         error
	RemoveResultError        error
	ListResultsError         error
	MedalCountsError         error
	ColorBreakdownError      error
	RepairColorTotalsError   error

	// ===== Voting Errors =====
	GetVoteSettingError         error
	UpsertVoteSettingError      error
	InsertBallotError           error
	IncrementVoteSummaryError   error
	ListVoteSummariesError      error
	PopularityLeadersError      error
	RecomputeVoteSummariesError error

	// ===== Match Errors =====
	GetMatchError          error
	UpdateMatchStatusError error
	UpdateMatchScoreError  error
	ApplyMatchOutcomeError error
	MatchRecordsError      error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

// ===== Reference Methods =====

func (m *Repository) GetColor(ctx context.Context, id int) (*models.Color, error) {
	if m.GetColorError != nil {
		return nil, m.GetColorError
	}
	return m.FullRepository.GetColor(ctx, id)
}

func (m *Repository) ListColors(ctx context.Context) ([]models.Color, error) {
	if m.ListColorsError != nil {
		return nil, m.ListColorsError
	}
	return m.FullRepository.ListColors(ctx)
}

func (m *Repository) GetEvent(ctx context.Context, id int) (*models.Event, error) {
	if m.GetEventError != nil {
		return nil, m.GetEventError
	}
	return m.FullRepository.GetEvent(ctx, id)
}

func (m *Repository) GetAthlete(ctx context.Context, id int) (*models.Athlete, error) {
	if m.GetAthleteError != nil {
		return nil, m.GetAthleteError
	}
	return m.FullRepository.GetAthlete(ctx, id)
}

// ===== Scoring Methods =====

func (m *Repository) LookupPoints(ctx context.Context, eventID, rank int) (int, bool, error) {
	if m.LookupPointsError != nil {
		return 0, false, m.LookupPointsError
	}
	return m.FullRepository.LookupPoints(ctx, eventID, rank)
}

func (m *Repository) ReplaceScoringRules(ctx context.Context, eventID *int, rules []models.ScoringRule) error {
	if m.ReplaceScoringRulesError != nil {
		return m.ReplaceScoringRulesError
	}
	return m.FullRepository.ReplaceScoringRules(ctx, eventID, rules)
}

func (m *Repository) ApplyResult(ctx context.Context, entry models.ResultEntry) (*models.ResultEntry, *models.ResultEntry, error) {
	if m.ApplyResultError != nil {
		return nil, nil, m.ApplyResultError
	}
	return m.FullRepository.ApplyResult(ctx, entry)
}

func (m *Repository) RemoveResult(ctx context.Context, eventID, colorID int) (*models.ResultEntry, error) {
	if m.RemoveResultError != nil {
		return nil, m.RemoveResultError
	}
	return m.FullRepository.RemoveResult(ctx, eventID, colorID)
}

func (m *Repository) ListResults(ctx context.Context, eventID int) ([]models.ResultEntry, error) {
	if m.ListResultsError != nil {
		return nil, m.ListResultsError
	}
	return m.FullRepository.ListResults(ctx, eventID)
}

func (m *Repository) MedalCounts(ctx context.Context) ([]models.MedalCount, error) {
	if m.MedalCountsError != nil {
		return nil, m.MedalCountsError
	}
	return m.FullRepository.MedalCounts(ctx)
}

func (m *Repository) ColorBreakdown(ctx context.Context, colorID int) ([]models.BreakdownRow, error) {
	if m.ColorBreakdownError != nil {
		return nil, m.ColorBreakdownError
	}
	return m.FullRepository.ColorBreakdown(ctx, colorID)
}

func (m *Repository) RepairColorTotals(ctx context.Context) ([]models.ColorDrift, error) {
	if m.RepairColorTotalsError != nil {
		return nil, m.RepairColorTotalsError
	}
	return m.FullRepository.RepairColorTotals(ctx)
}

// ===== Voting Methods =====

func (m *Repository) GetVoteSetting(ctx context.Context, eventID *int) (*models.VoteSetting, error) {
	if m.GetVoteSettingError != nil {
		return nil, m.GetVoteSettingError
	}
	return m.FullRepository.GetVoteSetting(ctx, eventID)
}

func (m *Repository) UpsertVoteSetting(ctx context.Context, s models.VoteSetting) error {
	if m.UpsertVoteSettingError != nil {
		return m.UpsertVoteSettingError
	}
	return m.FullRepository.UpsertVoteSetting(ctx, s)
}

func (m *Repository) InsertBallotWithinQuota(ctx context.Context, b models.Ballot, maxVotes int) (*models.Ballot, bool, error) {
	if m.InsertBallotError != nil {
		return nil, false, m.InsertBallotError
	}
	return m.FullRepository.InsertBallotWithinQuota(ctx, b, maxVotes)
}

func (m *Repository) IncrementVoteSummary(ctx context.Context, athleteID, eventID int) error {
	if m.IncrementVoteSummaryError != nil {
		return m.IncrementVoteSummaryError
	}
	return m.FullRepository.IncrementVoteSummary(ctx, athleteID, eventID)
}

func (m *Repository) ListVoteSummaries(ctx context.Context, eventID int) ([]models.VoteSummary, error) {
	if m.ListVoteSummariesError != nil {
		return nil, m.ListVoteSummariesError
	}
	return m.FullRepository.ListVoteSummaries(ctx, eventID)
}

func (m *Repository) PopularityLeaders(ctx context.Context, limit int) ([]models.PopularityEntry, error) {
	if m.PopularityLeadersError != nil {
		return nil, m.PopularityLeadersError
	}
	return m.FullRepository.PopularityLeaders(ctx, limit)
}

func (m *Repository) RecomputeVoteSummaries(ctx context.Context) ([]models.SummaryDrift, error) {
	if m.RecomputeVoteSummariesError != nil {
		return nil, m.RecomputeVoteSummariesError
	}
	return m.FullRepository.RecomputeVoteSummaries(ctx)
}

// ===== Match Methods =====

func (m *Repository) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	if m.GetMatchError != nil {
		return nil, m.GetMatchError
	}
	return m.FullRepository.GetMatch(ctx, id)
}

func (m *Repository) UpdateMatchStatus(ctx context.Context, id int, from, to models.MatchStatus) error {
	if m.UpdateMatchStatusError != nil {
		return m.UpdateMatchStatusError
	}
	return m.FullRepository.UpdateMatchStatus(ctx, id, from, to)
}

func (m *Repository) UpdateMatchScore(ctx context.Context, id int, homeScore, awayScore *int) error {
	if m.UpdateMatchScoreError != nil {
		return m.UpdateMatchScoreError
	}
	return m.FullRepository.UpdateMatchScore(ctx, id, homeScore, awayScore)
}

// ApplyMatchOutcome also fails with the status or score error, since it writes both
func (m *Repository) ApplyMatchOutcome(ctx context.Context, o repository.MatchOutcome) ([]repository.AppliedResult, error) {
	if m.ApplyMatchOutcomeError != nil {
		return nil, m.ApplyMatchOutcomeError
	}
	if o.From != o.To && m.UpdateMatchStatusError != nil {
		return nil, m.UpdateMatchStatusError
	}
	if m.UpdateMatchScoreError != nil {
		return nil, m.UpdateMatchScoreError
	}
	return m.FullRepository.ApplyMatchOutcome(ctx, o)
}

func (m *Repository) MatchRecords(ctx context.Context) ([]models.MatchRecord, error) {
	if m.MatchRecordsError != nil {
		return nil, m.MatchRecordsError
	}
	return m.FullRepository.MatchRecords(ctx)
}
