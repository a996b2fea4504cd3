package services

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/abrezinsky/sportsmeet/internal/logger"
	"github.com/abrezinsky/sportsmeet/internal/models"
	"github.com/abrezinsky/sportsmeet/internal/repository"
)

const (
	defaultPopularityLimit = 10
	maxPopularityLimit     = 100
)

// VotingServiceRepository defines the repository methods needed by VotingService
type VotingServiceRepository interface {
	repository.BallotRepository
	GetEvent(ctx context.Context, id int) (*models.Event, error)
	GetAthlete(ctx context.Context, id int) (*models.Athlete, error)
}

// VoteSettingsResolver resolves the setting the vote gate applies to an event
type VoteSettingsResolver interface {
	EffectiveVoteSettings(ctx context.Context, eventID int) (*models.VoteSetting, error)
}

// VotingService runs the vote gate, appends ballots and maintains vote summaries
type VotingService struct {
	log         logger.Logger
	repo        VotingServiceRepository
	settings    VoteSettingsResolver
	metrics     MetricsRecorder
	broadcaster Broadcaster
	now         func() time.Time
}

// NewVotingService creates a new VotingService
func NewVotingService(log logger.Logger, repo VotingServiceRepository, settings VoteSettingsResolver) *VotingService {
	return &VotingService{
		log:         log,
		repo:        repo,
		settings:    settings,
		metrics:     nopMetrics{},
		broadcaster: nopBroadcaster{},
		now:         time.Now,
	}
}

// SetMetrics sets the recorder for vote counters
func (s *VotingService) SetMetrics(m MetricsRecorder) {
	s.metrics = m
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *VotingService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetClock replaces the time source used by the vote gate
func (s *VotingService) SetClock(now func() time.Time) {
	s.now = now
}

// AwardWinner is the top vote-getter of an event. Winner is nil when nobody received a
// vote or when the top count is shared; Tied then lists every athlete on that count.
type AwardWinner struct {
	EventID int                  `json:"event_id"`
	Votes   int                  `json:"votes"`
	Winner  *models.VoteSummary  `json:"winner,omitempty"`
	Tied    []models.VoteSummary `json:"tied,omitempty"`
}

// Authorize runs the vote gate for a voter without casting. The quota step here is a
// read; CastVote enforces it again at insert time.
func (s *VotingService) Authorize(ctx context.Context, eventID int, voterKey string) (*VoteOutcome, error) {
	if strings.TrimSpace(voterKey) == "" {
		return nil, ErrMissingVoterKey
	}
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}

	setting, err := s.settings.EffectiveVoteSettings(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if reason := windowDenial(setting, s.now()); reason != "" {
		return denied(reason), nil
	}

	used, err := s.repo.CountVoterBallots(ctx, eventID, voterKey)
	if err != nil {
		return nil, err
	}
	if used >= setting.MaxVotesPerUser {
		return denied(DenyQuotaExceeded), nil
	}
	return &VoteOutcome{Accepted: true}, nil
}

// CastVote passes a ballot through the vote gate and, when allowed, appends it and
// increments the (athlete, event) summary. The quota is enforced by the insert itself,
// so concurrent ballots from one voter can never exceed it.
func (s *VotingService) CastVote(ctx context.Context, athleteID, eventID int, voterKey string) (outcome *VoteOutcome, err error) {
	ctx, span := startSpan(ctx, "VotingService.CastVote",
		attribute.Int("event_id", eventID),
		attribute.Int("athlete_id", athleteID),
	)
	defer func() {
		if outcome != nil {
			span.SetAttributes(attribute.Bool("accepted", outcome.Accepted), attribute.String("reason", string(outcome.Reason)))
		}
		endSpan(span, err)
	}()

	if strings.TrimSpace(voterKey) == "" {
		return nil, ErrMissingVoterKey
	}
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetAthlete(ctx, athleteID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownAthlete
		}
		return nil, err
	}

	setting, err := s.settings.EffectiveVoteSettings(ctx, eventID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if reason := windowDenial(setting, now); reason != "" {
		return s.deny(eventID, voterKey, reason), nil
	}

	ballot, inserted, err := s.repo.InsertBallotWithinQuota(ctx, models.Ballot{
		ID:        uuid.NewString(),
		AthleteID: athleteID,
		EventID:   eventID,
		VoterKey:  voterKey,
		VotedAt:   now,
	}, setting.MaxVotesPerUser)
	if err != nil {
		if stderrors.Is(err, repository.ErrBallotContention) {
			return nil, ErrBallotContention
		}
		return nil, err
	}
	if !inserted {
		return s.deny(eventID, voterKey, DenyQuotaExceeded), nil
	}

	// The ballot is the source of truth; a failed increment is repaired by reconciliation.
	if err := s.repo.IncrementVoteSummary(ctx, athleteID, eventID); err != nil {
		s.log.Warn("Vote summary increment failed", "athlete_id", athleteID, "event_id", eventID, "error", err)
	}

	s.metrics.VoteCast("accepted")
	s.log.Info("Vote accepted",
		"athlete_id", athleteID,
		"event_id", eventID,
		"voter_key", voterKey,
		"ordinal", ballot.Ordinal,
	)
	s.broadcaster.BroadcastVotesUpdated(eventID)
	return &VoteOutcome{Accepted: true, Ballot: ballot}, nil
}

func (s *VotingService) deny(eventID int, voterKey string, reason DenyReason) *VoteOutcome {
	s.metrics.VoteCast(string(reason))
	s.log.Debug("Vote denied", "event_id", eventID, "voter_key", voterKey, "reason", string(reason))
	return denied(reason)
}

// GetVoteSummary returns the vote totals of an event, highest first
func (s *VotingService) GetVoteSummary(ctx context.Context, eventID int) ([]models.VoteSummary, error) {
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.repo.ListVoteSummaries(ctx, eventID)
}

// RecomputeSummaries rebuilds every vote summary from the ballot log and returns the
// rows that had drifted. Running it again with no new ballots returns no drift.
func (s *VotingService) RecomputeSummaries(ctx context.Context) (drift []models.SummaryDrift, err error) {
	ctx, span := startSpan(ctx, "VotingService.RecomputeSummaries")
	defer func() { endSpan(span, err) }()

	drift, err = s.repo.RecomputeVoteSummaries(ctx)
	if err != nil {
		return nil, err
	}
	events := make(map[int]bool)
	for _, d := range drift {
		s.log.Warn("Vote summary drift repaired", "athlete_id", d.AthleteID, "event_id", d.EventID, "stored", d.Stored, "expected", d.Expected)
		events[d.EventID] = true
	}
	s.metrics.ReconcileRepaired("vote_summaries", len(drift))
	for eventID := range events {
		s.broadcaster.BroadcastVotesUpdated(eventID)
	}
	return drift, nil
}

// GetPopularityLeaders returns athletes by total votes across all events
func (s *VotingService) GetPopularityLeaders(ctx context.Context, limit int) ([]models.PopularityEntry, error) {
	if limit <= 0 {
		limit = defaultPopularityLimit
	}
	if limit > maxPopularityLimit {
		limit = maxPopularityLimit
	}
	return s.repo.PopularityLeaders(ctx, limit)
}

// GetAwardWinner picks the top vote-getter of an event, reporting ties instead of
// choosing between them
func (s *VotingService) GetAwardWinner(ctx context.Context, eventID int) (*AwardWinner, error) {
	summaries, err := s.GetVoteSummary(ctx, eventID)
	if err != nil {
		return nil, err
	}

	award := &AwardWinner{EventID: eventID}
	if len(summaries) == 0 {
		return award, nil
	}

	award.Votes = summaries[0].TotalVotes
	for _, sum := range summaries {
		if sum.TotalVotes != award.Votes {
			break
		}
		award.Tied = append(award.Tied, sum)
	}
	if len(award.Tied) == 1 {
		winner := award.Tied[0]
		award.Winner = &winner
		award.Tied = nil
	}
	return award, nil
}

func (s *VotingService) requireEvent(ctx context.Context, eventID int) error {
	if _, err := s.repo.GetEvent(ctx, eventID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return ErrUnknownEvent
		}
		return err
	}
	return nil
}
