package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/abrezinsky/sportsmeet/internal/keylock"
	"github.com/abrezinsky/sportsmeet/internal/logger"
	"github.com/abrezinsky/sportsmeet/internal/models"
	"github.com/abrezinsky/sportsmeet/internal/repository"
)

// ScoringServiceRepository defines the repository methods needed by ScoringService
type ScoringServiceRepository interface {
	repository.ScoringRuleRepository
	repository.ResultRepository
	GetColor(ctx context.Context, id int) (*models.Color, error)
	GetEvent(ctx context.Context, id int) (*models.Event, error)
	GetAthlete(ctx context.Context, id int) (*models.Athlete, error)
	ApplyMatchOutcome(ctx context.Context, o repository.MatchOutcome) ([]repository.AppliedResult, error)
}

// ScoringService owns the scoring rule table and the result ledger. It is the only
// writer of color totals.
type ScoringService struct {
	log         logger.Logger
	repo        ScoringServiceRepository
	locks       keylock.Map
	metrics     MetricsRecorder
	broadcaster Broadcaster
	now         func() time.Time
}

// NewScoringService creates a new ScoringService
func NewScoringService(log logger.Logger, repo ScoringServiceRepository) *ScoringService {
	return &ScoringService{
		log:         log,
		repo:        repo,
		metrics:     nopMetrics{},
		broadcaster: nopBroadcaster{},
		now:         time.Now,
	}
}

// SetMetrics sets the recorder for ledger counters
func (s *ScoringService) SetMetrics(m MetricsRecorder) {
	s.metrics = m
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *ScoringService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetClock replaces the time source used for recordedAt
func (s *ScoringService) SetClock(now func() time.Time) {
	s.now = now
}

// ResultInput is a request to record one color's finishing rank in one event
type ResultInput struct {
	EventID    int    `json:"event_id"`
	ColorID    int    `json:"color_id"`
	AthleteID  *int   `json:"athlete_id,omitempty"`
	Rank       int    `json:"rank"`
	RecordedBy string `json:"recorded_by,omitempty"`
}

// RescoreReport summarizes a bulk re-score of one event
type RescoreReport struct {
	EventID  int `json:"event_id"`
	Entries  int `json:"entries"`
	Rescored int `json:"rescored"`
	Delta    int `json:"delta"`
}

// ResolvePoints returns the points for rank in eventID: the event rule if one exists,
// else the global rule, else zero.
func (s *ScoringService) ResolvePoints(ctx context.Context, eventID, rank int) (int, error) {
	if rank <= 0 {
		return 0, ErrInvalidRank
	}
	points, found, err := s.repo.LookupPoints(ctx, eventID, rank)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, nil
	}
	return points, nil
}

// ListScoringRules returns the rules of one scope (nil = global)
func (s *ScoringService) ListScoringRules(ctx context.Context, eventID *int) ([]models.ScoringRule, error) {
	if eventID != nil {
		if err := s.requireEvent(ctx, *eventID); err != nil {
			return nil, err
		}
	}
	return s.repo.ListScoringRules(ctx, eventID)
}

// PutScoringRules replaces every rule of one scope. Existing result entries keep the
// points they were recorded with; use RescoreEvent to apply new rules to them.
func (s *ScoringService) PutScoringRules(ctx context.Context, eventID *int, rules []models.ScoringRule) error {
	if eventID != nil {
		if err := s.requireEvent(ctx, *eventID); err != nil {
			return err
		}
	}

	seen := make(map[int]bool, len(rules))
	scoped := make([]models.ScoringRule, 0, len(rules))
	for _, r := range rules {
		if r.Rank <= 0 {
			return ErrInvalidRank
		}
		if r.Points < 0 {
			return ErrInvalidPoints
		}
		if seen[r.Rank] {
			return ErrDuplicateRank
		}
		seen[r.Rank] = true
		scoped = append(scoped, models.ScoringRule{EventID: eventID, Rank: r.Rank, Points: r.Points})
	}

	if err := s.repo.ReplaceScoringRules(ctx, eventID, scoped); err != nil {
		return err
	}
	s.log.Info("Scoring rules replaced", "scope", scopeLabel(eventID), "rules", len(scoped))
	return nil
}

// RecordResult writes the rank of a color in an event. A second call for the same
// (event, color) is a correction: the stored entry is replaced and the color total
// moves by the points difference only.
func (s *ScoringService) RecordResult(ctx context.Context, in ResultInput) (entry *models.ResultEntry, err error) {
	ctx, span := startSpan(ctx, "ScoringService.RecordResult",
		attribute.Int("event_id", in.EventID),
		attribute.Int("color_id", in.ColorID),
		attribute.Int("rank", in.Rank),
	)
	defer func() { endSpan(span, err) }()

	if in.Rank <= 0 {
		return nil, ErrInvalidRank
	}
	if err := s.requireEvent(ctx, in.EventID); err != nil {
		return nil, err
	}
	if err := s.requireColor(ctx, in.ColorID); err != nil {
		return nil, err
	}
	if in.AthleteID != nil {
		if _, err := s.repo.GetAthlete(ctx, *in.AthleteID); err != nil {
			if stderrors.Is(err, repository.ErrNotFound) {
				return nil, ErrUnknownAthlete
			}
			return nil, err
		}
	}

	recordedBy := strings.TrimSpace(in.RecordedBy)
	if recordedBy == "" {
		recordedBy = "organizer"
	}

	unlock := s.locks.Lock(resultKey(in.EventID, in.ColorID))
	defer unlock()

	points, err := s.ResolvePoints(ctx, in.EventID, in.Rank)
	if err != nil {
		return nil, err
	}

	stored, previous, err := s.repo.ApplyResult(ctx, models.ResultEntry{
		ID:         uuid.NewString(),
		EventID:    in.EventID,
		ColorID:    in.ColorID,
		AthleteID:  in.AthleteID,
		Rank:       in.Rank,
		Points:     points,
		RecordedBy: recordedBy,
		RecordedAt: s.now().UTC(),
	})
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownColor
		}
		return nil, err
	}

	kind, delta := "insert", stored.Points
	if previous != nil {
		kind, delta = "correction", stored.Points-previous.Points
	}
	s.metrics.ResultRecorded(kind)
	s.log.Info("Result recorded",
		"kind", kind,
		"event_id", stored.EventID,
		"color_id", stored.ColorID,
		"rank", stored.Rank,
		"points", stored.Points,
		"delta", delta,
		"recorded_by", stored.RecordedBy,
	)
	s.broadcaster.BroadcastStandingsUpdated(stored.EventID)
	return stored, nil
}

// RemoveResult deletes the entry for (event, color) and subtracts its points
func (s *ScoringService) RemoveResult(ctx context.Context, eventID, colorID int) (*models.ResultEntry, error) {
	unlock := s.locks.Lock(resultKey(eventID, colorID))
	defer unlock()

	removed, err := s.repo.RemoveResult(ctx, eventID, colorID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}

	s.metrics.ResultRecorded("removal")
	s.log.Info("Result removed", "event_id", eventID, "color_id", colorID, "delta", -removed.Points)
	s.broadcaster.BroadcastStandingsUpdated(eventID)
	return removed, nil
}

// RecordMatchOutcome writes a match's status and score together with the placings it
// decides. Either the match write and every entry land, or none of them do.
func (s *ScoringService) RecordMatchOutcome(ctx context.Context, outcome repository.MatchOutcome, placings []ResultInput) (entries []models.ResultEntry, err error) {
	ctx, span := startSpan(ctx, "ScoringService.RecordMatchOutcome",
		attribute.Int("match_id", outcome.MatchID),
		attribute.Int("placings", len(placings)),
	)
	defer func() { endSpan(span, err) }()

	keys := make([]string, 0, len(placings))
	for _, p := range placings {
		if p.Rank <= 0 {
			return nil, ErrInvalidRank
		}
		keys = append(keys, resultKey(p.EventID, p.ColorID))
	}

	unlock := s.locks.LockAll(keys...)
	defer unlock()

	now := s.now().UTC()
	outcome.Entries = make([]models.ResultEntry, 0, len(placings))
	for _, p := range placings {
		points, err := s.ResolvePoints(ctx, p.EventID, p.Rank)
		if err != nil {
			return nil, err
		}
		outcome.Entries = append(outcome.Entries, models.ResultEntry{
			ID:         uuid.NewString(),
			EventID:    p.EventID,
			ColorID:    p.ColorID,
			AthleteID:  p.AthleteID,
			Rank:       p.Rank,
			Points:     points,
			RecordedBy: p.RecordedBy,
			RecordedAt: now,
		})
	}

	applied, err := s.repo.ApplyMatchOutcome(ctx, outcome)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownColor
		}
		return nil, err
	}

	updated := map[int]bool{}
	for _, a := range applied {
		kind, delta := "insert", a.Stored.Points
		if a.Previous != nil {
			kind, delta = "correction", a.Stored.Points-a.Previous.Points
		}
		s.metrics.ResultRecorded(kind)
		s.log.Info("Result recorded",
			"kind", kind,
			"event_id", a.Stored.EventID,
			"color_id", a.Stored.ColorID,
			"rank", a.Stored.Rank,
			"points", a.Stored.Points,
			"delta", delta,
			"recorded_by", a.Stored.RecordedBy,
		)
		entries = append(entries, *a.Stored)
		updated[a.Stored.EventID] = true
	}
	for eventID := range updated {
		s.broadcaster.BroadcastStandingsUpdated(eventID)
	}
	return entries, nil
}

// ListEventResults returns the ledger rows of one event ordered by rank
func (s *ScoringService) ListEventResults(ctx context.Context, eventID int) ([]models.ResultEntry, error) {
	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.repo.ListResults(ctx, eventID)
}

// RescoreEvent re-resolves the points of every entry in eventID under the current
// rules. Each changed entry goes through the same per-key correction path as
// RecordResult.
func (s *ScoringService) RescoreEvent(ctx context.Context, eventID int, recordedBy string) (report *RescoreReport, err error) {
	ctx, span := startSpan(ctx, "ScoringService.RescoreEvent", attribute.Int("event_id", eventID))
	defer func() { endSpan(span, err) }()

	if err := s.requireEvent(ctx, eventID); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListResults(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if recordedBy == "" {
		recordedBy = "rescore"
	}

	report = &RescoreReport{EventID: eventID, Entries: len(entries)}
	for _, e := range entries {
		delta, err := s.rescoreEntry(ctx, e.EventID, e.ColorID, recordedBy)
		if err != nil {
			return report, fmt.Errorf("rescore color %d: %w", e.ColorID, err)
		}
		if delta != 0 {
			report.Rescored++
			report.Delta += delta
		}
	}

	if report.Rescored > 0 {
		s.broadcaster.BroadcastStandingsUpdated(eventID)
	}
	s.log.Info("Event rescored", "event_id", eventID, "entries", report.Entries, "rescored", report.Rescored, "delta", report.Delta)
	return report, nil
}

// rescoreEntry re-reads the entry under its key lock so a concurrent correction is
// never overwritten with a stale rank
func (s *ScoringService) rescoreEntry(ctx context.Context, eventID, colorID int, recordedBy string) (int, error) {
	unlock := s.locks.Lock(resultKey(eventID, colorID))
	defer unlock()

	current, err := s.repo.GetResult(ctx, eventID, colorID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	points, err := s.ResolvePoints(ctx, eventID, current.Rank)
	if err != nil {
		return 0, err
	}
	if points == current.Points {
		return 0, nil
	}

	next := *current
	next.Points = points
	next.RecordedBy = recordedBy
	next.RecordedAt = s.now().UTC()
	if _, _, err := s.repo.ApplyResult(ctx, next); err != nil {
		return 0, err
	}
	s.metrics.ResultRecorded("rescore")
	return points - current.Points, nil
}

// RepairColorTotals resets every color total that disagrees with its ledger
func (s *ScoringService) RepairColorTotals(ctx context.Context) (drift []models.ColorDrift, err error) {
	ctx, span := startSpan(ctx, "ScoringService.RepairColorTotals")
	defer func() { endSpan(span, err) }()

	drift, err = s.repo.RepairColorTotals(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range drift {
		s.log.Warn("Color total drift repaired", "color_id", d.ColorID, "stored", d.Stored, "expected", d.Expected)
	}
	s.metrics.ReconcileRepaired("color_totals", len(drift))
	if len(drift) > 0 {
		s.broadcaster.BroadcastStandingsUpdated(0)
	}
	return drift, nil
}

func (s *ScoringService) requireEvent(ctx context.Context, eventID int) error {
	if _, err := s.repo.GetEvent(ctx, eventID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return ErrUnknownEvent
		}
		return err
	}
	return nil
}

func (s *ScoringService) requireColor(ctx context.Context, colorID int) error {
	if _, err := s.repo.GetColor(ctx, colorID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return ErrUnknownColor
		}
		return err
	}
	return nil
}

func resultKey(eventID, colorID int) string {
	return fmt.Sprintf("result:%d:%d", eventID, colorID)
}

func scopeLabel(eventID *int) string {
	if eventID == nil {
		return "global"
	}
	return fmt.Sprintf("event:%d", *eventID)
}
