package services

import (
	"cmp"
	"context"
	stderrors "errors"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/abrezinsky/sportsmeet/internal/logger"
	"github.com/abrezinsky/sportsmeet/internal/models"
	"github.com/abrezinsky/sportsmeet/internal/repository"
)

// StandingsServiceRepository defines the repository methods needed by StandingsService
type StandingsServiceRepository interface {
	repository.ColorRepository
	MedalCounts(ctx context.Context) ([]models.MedalCount, error)
	ColorBreakdown(ctx context.Context, colorID int) ([]models.BreakdownRow, error)
	MatchRecords(ctx context.Context) ([]models.MatchRecord, error)
}

// StandingsService computes the leaderboard fresh from colors and the result ledger
type StandingsService struct {
	log     logger.Logger
	repo    StandingsServiceRepository
	metrics MetricsRecorder
}

// NewStandingsService creates a new StandingsService
func NewStandingsService(log logger.Logger, repo StandingsServiceRepository) *StandingsService {
	return &StandingsService{log: log, repo: repo, metrics: nopMetrics{}}
}

// SetMetrics sets the recorder for standings timing
func (s *StandingsService) SetMetrics(m MetricsRecorder) {
	s.metrics = m
}

// ComputeStandings returns every color ranked 1..N. Equal totals never share a rank:
// ties fall through gold, silver and bronze counts (descending), then name and id
// (ascending), so repeated calls return the same order.
func (s *StandingsService) ComputeStandings(ctx context.Context) (standings []models.Standing, err error) {
	ctx, span := startSpan(ctx, "StandingsService.ComputeStandings")
	defer func() { endSpan(span, err) }()

	start := time.Now()
	defer func() { s.metrics.ObserveStandings(time.Since(start)) }()

	colors, err := s.repo.ListColors(ctx)
	if err != nil {
		return nil, err
	}
	medals, err := s.repo.MedalCounts(ctx)
	if err != nil {
		return nil, err
	}
	records, err := s.repo.MatchRecords(ctx)
	if err != nil {
		return nil, err
	}

	medalsByColor := make(map[int]models.MedalCount, len(medals))
	for _, m := range medals {
		medalsByColor[m.ColorID] = m
	}
	recordsByColor := make(map[int]models.MatchRecord, len(records))
	for _, r := range records {
		recordsByColor[r.ColorID] = r
	}

	standings = make([]models.Standing, 0, len(colors))
	for _, c := range colors {
		m := medalsByColor[c.ID]
		r := recordsByColor[c.ID]
		standings = append(standings, models.Standing{
			ColorID:    c.ID,
			Name:       c.Name,
			HexCode:    c.HexCode,
			TotalScore: c.TotalScore,
			Gold:       m.Gold,
			Silver:     m.Silver,
			Bronze:     m.Bronze,
			Played:     r.Played,
			Wins:       r.Wins,
			Draws:      r.Draws,
			Losses:     r.Losses,
		})
	}

	RankStandings(standings)
	span.SetAttributes(attribute.Int("colors", len(standings)))
	return standings, nil
}

// RankStandings sorts standings in leaderboard order and assigns ranks 1..N
func RankStandings(standings []models.Standing) {
	slices.SortFunc(standings, func(a, b models.Standing) int {
		if c := cmp.Compare(b.TotalScore, a.TotalScore); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Gold, a.Gold); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Silver, a.Silver); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Bronze, a.Bronze); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ColorID, b.ColorID)
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
}

// GetColorBreakdown lists each event's contribution to one color's total
func (s *StandingsService) GetColorBreakdown(ctx context.Context, colorID int) ([]models.BreakdownRow, error) {
	if _, err := s.repo.GetColor(ctx, colorID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownColor
		}
		return nil, err
	}
	return s.repo.ColorBreakdown(ctx, colorID)
}
