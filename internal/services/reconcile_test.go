package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abrezinsky/sportsmeet/internal/repository/mock"
	"github.com/abrezinsky/sportsmeet/internal/testutil"
)

func TestReconcile_RepairsBothAggregates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.OpenVoting(t, f.repo, nil, 2)

	f.record(t, f.meet.Sprint, f.meet.Red, 1)
	_, err := f.voting.CastVote(ctx, f.meet.AthleteX, f.meet.Sprint, "u1")
	require.NoError(t, err)

	// Simulate a crash between the ledger write and the derived update.
	_, err = f.repo.DB().Exec(`UPDATE colors SET total_score = 0`)
	require.NoError(t, err)
	_, err = f.repo.DB().Exec(`DELETE FROM vote_summaries`)
	require.NoError(t, err)

	report, err := f.reconcile.Run(ctx)
	require.NoError(t, err)
	assert.Len(t, report.ColorDrift, 1)
	assert.Len(t, report.SummaryDrift, 1)
	assert.Equal(t, 2, report.Repaired())

	assert.Equal(t, 10, f.colorTotal(t, f.meet.Red))
	count, err := f.repo.GetVoteCount(ctx, f.meet.AthleteX, f.meet.Sprint)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	clean, err := f.reconcile.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, clean.Repaired(), "a second pass finds nothing")
}

func TestReconcile_StopsOnError(t *testing.T) {
	real := testutil.NewTestRepository(t)
	mockRepo := mock.NewRepository(real)
	f := newFixtureWithRepo(t, real, mockRepo)

	mockRepo.RecomputeVoteSummariesError = errors.New("database error")
	_, err := f.reconcile.Run(context.Background())
	assert.Error(t, err)

	mockRepo.RecomputeVoteSummariesError = nil
	mockRepo.RepairColorTotalsError = errors.New("database error")
	_, err = f.reconcile.Run(context.Background())
	assert.Error(t, err)
}
