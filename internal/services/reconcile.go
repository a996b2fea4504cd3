package services

import (
	"context"
	"time"

	"github.com/abrezinsky/sportsmeet/internal/logger"
	"github.com/abrezinsky/sportsmeet/internal/models"
)

// SummaryRecomputer rebuilds vote summaries from the ballot log
type SummaryRecomputer interface {
	RecomputeSummaries(ctx context.Context) ([]models.SummaryDrift, error)
}

// ColorTotalRepairer rebuilds color totals from the result ledger
type ColorTotalRepairer interface {
	RepairColorTotals(ctx context.Context) ([]models.ColorDrift, error)
}

// ReconcileReport lists what one reconciliation pass repaired
type ReconcileReport struct {
	StartedAt    time.Time             `json:"started_at"`
	Duration     time.Duration         `json:"duration"`
	SummaryDrift []models.SummaryDrift `json:"summary_drift"`
	ColorDrift   []models.ColorDrift   `json:"color_drift"`
}

// Repaired is the total number of rows corrected
func (r *ReconcileReport) Repaired() int {
	return len(r.SummaryDrift) + len(r.ColorDrift)
}

// ReconcileService recomputes both derived aggregates from their source logs. Each
// step fully overwrites its aggregate in one transaction, so passes may overlap.
type ReconcileService struct {
	log     logger.Logger
	votes   SummaryRecomputer
	scoring ColorTotalRepairer
}

// NewReconcileService creates a new ReconcileService
func NewReconcileService(log logger.Logger, votes SummaryRecomputer, scoring ColorTotalRepairer) *ReconcileService {
	return &ReconcileService{log: log, votes: votes, scoring: scoring}
}

// Run executes one reconciliation pass
func (s *ReconcileService) Run(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{StartedAt: time.Now().UTC()}

	summaryDrift, err := s.votes.RecomputeSummaries(ctx)
	if err != nil {
		return nil, err
	}
	report.SummaryDrift = summaryDrift

	colorDrift, err := s.scoring.RepairColorTotals(ctx)
	if err != nil {
		return nil, err
	}
	report.ColorDrift = colorDrift

	report.Duration = time.Since(report.StartedAt)
	if report.Repaired() > 0 {
		s.log.Warn("Reconciliation repaired drift",
			"vote_summaries", len(report.SummaryDrift),
			"color_totals", len(report.ColorDrift),
			"duration", report.Duration,
		)
	} else {
		s.log.Debug("Reconciliation found no drift", "duration", report.Duration)
	}
	return report, nil
}
