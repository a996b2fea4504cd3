package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/abrezinsky/sportsmeet/internal/keylock"
	"github.com/abrezinsky/sportsmeet/internal/logger"
	"github.com/abrezinsky/sportsmeet/internal/models"
	"github.com/abrezinsky/sportsmeet/internal/repository"
)

// MatchServiceRepository defines the repository methods needed by MatchService
type MatchServiceRepository interface {
	repository.MatchRepository
	GetEvent(ctx context.Context, id int) (*models.Event, error)
	GetColor(ctx context.Context, id int) (*models.Color, error)
}

// ResultRecorder writes match outcomes through the result ledger
type ResultRecorder interface {
	RecordMatchOutcome(ctx context.Context, outcome repository.MatchOutcome, placings []ResultInput) ([]models.ResultEntry, error)
}

// transitions lists the statuses each status may move to
var transitions = map[models.MatchStatus][]models.MatchStatus{
	models.MatchScheduled: {models.MatchOngoing, models.MatchCancelled},
	models.MatchOngoing:   {models.MatchCompleted, models.MatchCancelled},
}

// CanTransition reports whether a match in from may move to to
func CanTransition(from, to models.MatchStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// MatchInput is a request to schedule a match
type MatchInput struct {
	EventID     int       `json:"event_id"`
	HomeColorID int       `json:"home_color_id"`
	AwayColorID int       `json:"away_color_id"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

// MatchService governs the match lifecycle. Outcomes of finals are recorded as result
// entries, so the ledger stays the single writer of color totals.
type MatchService struct {
	log     logger.Logger
	repo    MatchServiceRepository
	results ResultRecorder
	locks   keylock.Map
}

// NewMatchService creates a new MatchService
func NewMatchService(log logger.Logger, repo MatchServiceRepository, results ResultRecorder) *MatchService {
	return &MatchService{log: log, repo: repo, results: results}
}

// CreateMatch schedules a match between two colors of an event
func (s *MatchService) CreateMatch(ctx context.Context, in MatchInput) (*models.Match, error) {
	if in.HomeColorID == in.AwayColorID {
		return nil, ErrSameColors
	}
	if _, err := s.repo.GetEvent(ctx, in.EventID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownEvent
		}
		return nil, err
	}
	for _, colorID := range []int{in.HomeColorID, in.AwayColorID} {
		if _, err := s.repo.GetColor(ctx, colorID); err != nil {
			if stderrors.Is(err, repository.ErrNotFound) {
				return nil, ErrUnknownColor
			}
			return nil, err
		}
	}

	scheduledAt := in.ScheduledAt
	if scheduledAt.IsZero() {
		scheduledAt = time.Now()
	}
	id, err := s.repo.CreateMatch(ctx, models.Match{
		EventID:     in.EventID,
		HomeColorID: in.HomeColorID,
		AwayColorID: in.AwayColorID,
		Status:      models.MatchScheduled,
		ScheduledAt: scheduledAt.UTC(),
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Match scheduled", "match_id", id, "event_id", in.EventID, "home", in.HomeColorID, "away", in.AwayColorID)
	return s.GetMatch(ctx, int(id))
}

// GetMatch retrieves a match by ID
func (s *MatchService) GetMatch(ctx context.Context, id int) (*models.Match, error) {
	m, err := s.repo.GetMatch(ctx, id)
	if stderrors.Is(err, repository.ErrNotFound) {
		return nil, ErrUnknownMatch
	}
	return m, err
}

// ListMatches returns the matches of one event, or all matches when eventID is nil
func (s *MatchService) ListMatches(ctx context.Context, eventID *int) ([]models.Match, error) {
	return s.repo.ListMatches(ctx, eventID)
}

// TransitionMatch moves a match to a new status. Completing requires both scores; when
// the match's event is a final, the winner and loser are recorded at ranks 1 and 2 in
// the same write as the status change, and a draw is rejected.
func (s *MatchService) TransitionMatch(ctx context.Context, id int, to models.MatchStatus) (match *models.Match, err error) {
	ctx, span := startSpan(ctx, "MatchService.TransitionMatch",
		attribute.Int("match_id", id),
		attribute.String("to", string(to)),
	)
	defer func() { endSpan(span, err) }()

	if !to.Valid() {
		return nil, ErrInvalidStatus
	}

	unlock := s.locks.Lock(matchKey(id))
	defer unlock()

	m, err := s.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(m.Status, to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, m.Status, to)
	}

	final := false
	if to == models.MatchCompleted {
		if m.HomeScore == nil || m.AwayScore == nil {
			return nil, ErrScoresRequired
		}
		if final, err = s.isFinal(ctx, m.EventID); err != nil {
			return nil, err
		}
	}

	if final {
		err = s.commitFinal(ctx, m, to, *m.HomeScore, *m.AwayScore)
	} else {
		err = s.repo.UpdateMatchStatus(ctx, id, m.Status, to)
	}
	if err != nil {
		if stderrors.Is(err, repository.ErrStaleState) {
			return nil, ErrStaleMatch
		}
		return nil, err
	}
	s.log.Info("Match status changed", "match_id", id, "from", string(m.Status), "to", string(to))
	return s.GetMatch(ctx, id)
}

// UpdateMatchScore sets the score fields without changing status. On a completed final
// the ledger moves to the new outcome in the same write as the score.
func (s *MatchService) UpdateMatchScore(ctx context.Context, id int, homeScore, awayScore *int) (*models.Match, error) {
	if (homeScore != nil && *homeScore < 0) || (awayScore != nil && *awayScore < 0) {
		return nil, ErrInvalidScore
	}

	unlock := s.locks.Lock(matchKey(id))
	defer unlock()

	m, err := s.GetMatch(ctx, id)
	if err != nil {
		return nil, err
	}

	final := false
	if m.Status == models.MatchCompleted {
		if homeScore == nil || awayScore == nil {
			return nil, ErrScoresRequired
		}
		if final, err = s.isFinal(ctx, m.EventID); err != nil {
			return nil, err
		}
	}

	if final {
		err = s.commitFinal(ctx, m, m.Status, *homeScore, *awayScore)
	} else {
		err = s.repo.UpdateMatchScore(ctx, id, homeScore, awayScore)
	}
	if err != nil {
		switch {
		case stderrors.Is(err, repository.ErrNotFound):
			return nil, ErrUnknownMatch
		case stderrors.Is(err, repository.ErrStaleState):
			return nil, ErrStaleMatch
		}
		return nil, err
	}

	s.log.Info("Match score updated", "match_id", id, "home_score", derefInt(homeScore), "away_score", derefInt(awayScore))
	return s.GetMatch(ctx, id)
}

// commitFinal writes a final's status and score along with ranks 1 and 2 for its winner
// and loser. A draw is rejected before anything is written.
func (s *MatchService) commitFinal(ctx context.Context, m *models.Match, to models.MatchStatus, home, away int) error {
	if home == away {
		return ErrFinalDraw
	}

	winner, loser := m.HomeColorID, m.AwayColorID
	if away > home {
		winner, loser = loser, winner
	}
	recordedBy := fmt.Sprintf("match:%d", m.ID)
	_, err := s.results.RecordMatchOutcome(ctx, repository.MatchOutcome{
		MatchID:   m.ID,
		From:      m.Status,
		To:        to,
		HomeScore: home,
		AwayScore: away,
	}, []ResultInput{
		{EventID: m.EventID, ColorID: winner, Rank: 1, RecordedBy: recordedBy},
		{EventID: m.EventID, ColorID: loser, Rank: 2, RecordedBy: recordedBy},
	})
	return err
}

func (s *MatchService) isFinal(ctx context.Context, eventID int) (bool, error) {
	event, err := s.repo.GetEvent(ctx, eventID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return false, ErrUnknownEvent
		}
		return false, err
	}
	return event.IsFinal, nil
}

func matchKey(id int) string {
	return fmt.Sprintf("match:%d", id)
}

func derefInt(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}
