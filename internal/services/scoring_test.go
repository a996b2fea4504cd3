package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/abrezinsky/sportsmeet/internal/errors"
	"github.com/abrezinsky/sportsmeet/internal/models"
	"github.com/abrezinsky/sportsmeet/internal/repository/mock"
	"github.com/abrezinsky/sportsmeet/internal/services"
	"github.com/abrezinsky/sportsmeet/internal/testutil"
)

func TestResolvePoints_EventRuleOverridesGlobal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.scoring.PutScoringRules(ctx, &f.meet.Sprint, []models.ScoringRule{{Rank: 2, Points: 9}}))

	tests := []struct {
		name    string
		eventID int
		rank    int
		want    int
	}{
		{"event override", f.meet.Sprint, 2, 9},
		{"falls back to global", f.meet.Sprint, 1, 10},
		{"other event uses global", f.meet.LongJump, 2, 8},
		{"no rule scores zero", f.meet.Sprint, 7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.scoring.ResolvePoints(ctx, tt.eventID, tt.rank)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := f.scoring.ResolvePoints(ctx, f.meet.Sprint, 0)
	assert.ErrorIs(t, err, services.ErrInvalidRank)
}

func TestRecordResult_CorrectionScenario(t *testing.T) {
	f := newFixture(t)
	eventA, eventB := f.meet.Sprint, f.meet.LongJump

	f.record(t, eventA, f.meet.Red, 1)
	assert.Equal(t, 10, f.colorTotal(t, f.meet.Red))

	f.record(t, eventB, f.meet.Red, 1)
	assert.Equal(t, 20, f.colorTotal(t, f.meet.Red))

	f.record(t, eventA, f.meet.Red, 3)
	assert.Equal(t, 16, f.colorTotal(t, f.meet.Red))

	results, err := f.scoring.ListEventResults(context.Background(), eventA)
	require.NoError(t, err)
	require.Len(t, results, 1, "a correction must replace, not append")
	assert.Equal(t, 3, results[0].Rank)
	assert.Equal(t, 6, results[0].Points)
}

func TestRecordResult_CorrectionDoesNotDoubleCount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.scoring.RecordResult(ctx, services.ResultInput{EventID: f.meet.Sprint, ColorID: f.meet.Blue, Rank: 1})
	require.NoError(t, err)
	second, err := f.scoring.RecordResult(ctx, services.ResultInput{EventID: f.meet.Sprint, ColorID: f.meet.Blue, Rank: 2})
	require.NoError(t, err)

	assert.Equal(t, 8, f.colorTotal(t, f.meet.Blue))
	assert.Equal(t, first.ID, second.ID, "a correction keeps the entry id")
	assert.Equal(t, 1, f.metrics.results["insert"])
	assert.Equal(t, 1, f.metrics.results["correction"])
	assert.Equal(t, 2, f.bus.standingsCount())
}

func TestRecordResult_RejectsBadInputWithoutSideEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		in      services.ResultInput
		wantErr error
		kind    apperrors.Kind
	}{
		{"zero rank", services.ResultInput{EventID: f.meet.Sprint, ColorID: f.meet.Red, Rank: 0}, services.ErrInvalidRank, apperrors.ErrValidation},
		{"negative rank", services.ResultInput{EventID: f.meet.Sprint, ColorID: f.meet.Red, Rank: -2}, services.ErrInvalidRank, apperrors.ErrValidation},
		{"unknown event", services.ResultInput{EventID: 999, ColorID: f.meet.Red, Rank: 1}, services.ErrUnknownEvent, apperrors.ErrNotFound},
		{"unknown color", services.ResultInput{EventID: f.meet.Sprint, ColorID: 999, Rank: 1}, services.ErrUnknownColor, apperrors.ErrNotFound},
		{"unknown athlete", services.ResultInput{EventID: f.meet.Sprint, ColorID: f.meet.Red, AthleteID: intp(999), Rank: 1}, services.ErrUnknownAthlete, apperrors.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.scoring.RecordResult(ctx, tt.in)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
		})
	}

	assert.Equal(t, 0, f.colorTotal(t, f.meet.Red))
	results, err := f.scoring.ListEventResults(ctx, f.meet.Sprint)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRecordResult_WithAthlete(t *testing.T) {
	f := newFixture(t)

	entry, err := f.scoring.RecordResult(context.Background(), services.ResultInput{
		EventID:    f.meet.Sprint,
		ColorID:    f.meet.Red,
		AthleteID:  &f.meet.AthleteX,
		Rank:       2,
		RecordedBy: "  judge-3 ",
	})
	require.NoError(t, err)

	require.NotNil(t, entry.AthleteID)
	assert.Equal(t, f.meet.AthleteX, *entry.AthleteID)
	assert.Equal(t, "judge-3", entry.RecordedBy)
	assert.Equal(t, baseTime, entry.RecordedAt)
	assert.NotEmpty(t, entry.ID)
}

func TestRecordResult_PointsAreSnapshots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.record(t, f.meet.Sprint, f.meet.Red, 1)
	f.record(t, f.meet.Sprint, f.meet.Blue, 2)

	require.NoError(t, f.scoring.PutScoringRules(ctx, nil, []models.ScoringRule{{Rank: 1, Points: 25}, {Rank: 2, Points: 18}}))
	assert.Equal(t, 10, f.colorTotal(t, f.meet.Red), "editing rules must not touch recorded entries")
	assert.Equal(t, 8, f.colorTotal(t, f.meet.Blue))

	report, err := f.scoring.RescoreEvent(ctx, f.meet.Sprint, "")
	require.NoError(t, err)
	assert.Equal(t, &services.RescoreReport{EventID: f.meet.Sprint, Entries: 2, Rescored: 2, Delta: 25}, report)
	assert.Equal(t, 25, f.colorTotal(t, f.meet.Red))
	assert.Equal(t, 18, f.colorTotal(t, f.meet.Blue))

	again, err := f.scoring.RescoreEvent(ctx, f.meet.Sprint, "")
	require.NoError(t, err)
	assert.Zero(t, again.Rescored, "rescoring twice is a no-op")
}

func TestRescoreEvent_UnknownEvent(t *testing.T) {
	f := newFixture(t)

	_, err := f.scoring.RescoreEvent(context.Background(), 404, "")
	assert.ErrorIs(t, err, services.ErrUnknownEvent)
}

func TestRemoveResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.record(t, f.meet.Sprint, f.meet.Green, 1)
	f.record(t, f.meet.LongJump, f.meet.Green, 3)

	removed, err := f.scoring.RemoveResult(ctx, f.meet.Sprint, f.meet.Green)
	require.NoError(t, err)
	assert.Equal(t, 10, removed.Points)
	assert.Equal(t, 6, f.colorTotal(t, f.meet.Green))
	assert.Equal(t, 1, f.metrics.results["removal"])

	_, err = f.scoring.RemoveResult(ctx, f.meet.Sprint, f.meet.Green)
	assert.ErrorIs(t, err, services.ErrResultNotFound)
}

func TestPutScoringRules_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		eventID *int
		rules   []models.ScoringRule
		wantErr error
	}{
		{"zero rank", nil, []models.ScoringRule{{Rank: 0, Points: 5}}, services.ErrInvalidRank},
		{"negative points", nil, []models.ScoringRule{{Rank: 1, Points: -1}}, services.ErrInvalidPoints},
		{"duplicate rank", nil, []models.ScoringRule{{Rank: 1, Points: 5}, {Rank: 1, Points: 3}}, services.ErrDuplicateRank},
		{"unknown event", intp(404), []models.ScoringRule{{Rank: 1, Points: 5}}, services.ErrUnknownEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.scoring.PutScoringRules(ctx, tt.eventID, tt.rules)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	rules, err := f.scoring.ListScoringRules(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, rules, len(testutil.DefaultRules), "rejected writes leave the rules untouched")
}

func TestPutScoringRules_EmptyClearsScope(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.scoring.PutScoringRules(ctx, &f.meet.Sprint, []models.ScoringRule{{Rank: 1, Points: 50}}))
	require.NoError(t, f.scoring.PutScoringRules(ctx, &f.meet.Sprint, nil))

	points, err := f.scoring.ResolvePoints(ctx, f.meet.Sprint, 1)
	require.NoError(t, err)
	assert.Equal(t, 10, points)
}

func TestRecordResult_ApplyFailureLeavesTotalUnchanged(t *testing.T) {
	real := testutil.NewTestRepository(t)
	mockRepo := mock.NewRepository(real)
	f := newFixtureWithRepo(t, real, mockRepo)

	mockRepo.ApplyResultError = errors.New("disk full")
	_, err := f.scoring.RecordResult(context.Background(), services.ResultInput{EventID: f.meet.Sprint, ColorID: f.meet.Red, Rank: 1})

	require.Error(t, err)
	assert.Equal(t, 0, f.colorTotal(t, f.meet.Red))
	assert.Equal(t, 0, f.bus.standingsCount())
}

func TestRecordResult_ConcurrentDifferentColors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	colors := []int{f.meet.Red, f.meet.Blue, f.meet.Green, f.meet.Yellow}
	events := []int{f.meet.Sprint, f.meet.LongJump, f.meet.RelayFinal}

	var wg sync.WaitGroup
	errs := make(chan error, len(colors)*len(events)*3)
	for i, colorID := range colors {
		for _, eventID := range events {
			for round := 0; round < 3; round++ {
				wg.Add(1)
				go func(eventID, colorID, rank int) {
					defer wg.Done()
					_, err := f.scoring.RecordResult(ctx, services.ResultInput{EventID: eventID, ColorID: colorID, Rank: rank})
					if err != nil {
						errs <- err
					}
				}(eventID, colorID, (i+round)%4+1)
			}
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent RecordResult failed: %v", err)
	}

	drift, err := f.scoring.RepairColorTotals(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift, "totals must equal the ledger after concurrent writes")
}

func TestRecordResult_ConcurrentSameKeyAppliesEachDeltaOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 24; i++ {
		wg.Add(1)
		go func(rank int) {
			defer wg.Done()
			_, err := f.scoring.RecordResult(ctx, services.ResultInput{EventID: f.meet.Sprint, ColorID: f.meet.Red, Rank: rank})
			assert.NoError(t, err)
		}(i%5 + 1)
	}
	wg.Wait()

	results, err := f.scoring.ListEventResults(ctx, f.meet.Sprint)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, results[0].Points, f.colorTotal(t, f.meet.Red), "total must equal the last writer's points")
}

func TestRecordResult_RandomSequencesConserveScore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	faker := gofakeit.New(42)

	colors := []int{f.meet.Red, f.meet.Blue, f.meet.Green, f.meet.Yellow}
	events := []int{f.meet.Sprint, f.meet.LongJump, f.meet.RelayFinal}

	for step := 0; step < 200; step++ {
		eventID := events[faker.IntRange(0, len(events)-1)]
		colorID := colors[faker.IntRange(0, len(colors)-1)]

		if faker.IntRange(0, 9) == 0 {
			_, err := f.scoring.RemoveResult(ctx, eventID, colorID)
			if err != nil && !errors.Is(err, services.ErrResultNotFound) {
				t.Fatalf("step %d: RemoveResult failed: %v", step, err)
			}
			continue
		}
		f.record(t, eventID, colorID, faker.IntRange(1, 6))
	}

	for _, colorID := range colors {
		breakdown, err := f.standings.GetColorBreakdown(ctx, colorID)
		require.NoError(t, err)
		sum := 0
		for _, row := range breakdown {
			sum += row.Points
		}
		assert.Equal(t, sum, f.colorTotal(t, colorID), "color %d", colorID)
	}
}

func TestRepairColorTotals_FixesDrift(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.record(t, f.meet.Sprint, f.meet.Red, 1)
	_, err := f.repo.DB().Exec(`UPDATE colors SET total_score = 99 WHERE id = ?`, f.meet.Red)
	require.NoError(t, err)

	drift, err := f.scoring.RepairColorTotals(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.ColorDrift{{ColorID: f.meet.Red, Stored: 99, Expected: 10}}, drift)
	assert.Equal(t, 10, f.colorTotal(t, f.meet.Red))
	assert.Equal(t, 1, f.metrics.repairs["color_totals"])

	drift, err = f.scoring.RepairColorTotals(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift)
}
