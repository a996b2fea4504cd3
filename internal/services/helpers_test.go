package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/abrezinsky/sportsmeet/internal/logger"
	"github.com/abrezinsky/sportsmeet/internal/repository"
	"github.com/abrezinsky/sportsmeet/internal/services"
	"github.com/abrezinsky/sportsmeet/internal/testutil"
)

var baseTime = time.Date(2026, 5, 14, 9, 0, 0, 0, time.UTC)

type votingStatus struct {
	EventID   *int
	Open      bool
	CloseTime string
}

// recordingBroadcaster captures every push the services make
type recordingBroadcaster struct {
	mu        sync.Mutex
	statuses  []votingStatus
	standings []int
	votes     []int
}

func (b *recordingBroadcaster) BroadcastVotingStatus(eventID *int, open bool, closeTime string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = append(b.statuses, votingStatus{EventID: eventID, Open: open, CloseTime: closeTime})
}

func (b *recordingBroadcaster) BroadcastStandingsUpdated(eventID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.standings = append(b.standings, eventID)
}

func (b *recordingBroadcaster) BroadcastVotesUpdated(eventID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.votes = append(b.votes, eventID)
}

func (b *recordingBroadcaster) standingsCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.standings)
}

func (b *recordingBroadcaster) votesCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.votes)
}

func (b *recordingBroadcaster) lastStatus() (votingStatus, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.statuses) == 0 {
		return votingStatus{}, false
	}
	return b.statuses[len(b.statuses)-1], true
}

// recordingMetrics counts by label
type recordingMetrics struct {
	mu        sync.Mutex
	results   map[string]int
	votes     map[string]int
	repairs   map[string]int
	standings int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{
		results: map[string]int{},
		votes:   map[string]int{},
		repairs: map[string]int{},
	}
}

func (m *recordingMetrics) ResultRecorded(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[kind]++
}

func (m *recordingMetrics) VoteCast(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.votes[outcome]++
}

func (m *recordingMetrics) ReconcileRepaired(aggregate string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.repairs[aggregate] += n
}

func (m *recordingMetrics) ObserveStandings(time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.standings++
}

func (m *recordingMetrics) vote(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.votes[outcome]
}

// fixture wires every service against one seeded in-memory database
type fixture struct {
	repo      *repository.Repository
	meet      testutil.Meet
	clock     *testutil.Clock
	bus       *recordingBroadcaster
	metrics   *recordingMetrics
	scoring   *services.ScoringService
	settings  *services.SettingsService
	voting    *services.VotingService
	standings *services.StandingsService
	matches   *services.MatchService
	reconcile *services.ReconcileService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := testutil.NewTestRepository(t)
	return newFixtureWithRepo(t, repo, repo)
}

// newFixtureWithRepo seeds real and builds the services on svcRepo, which may be an
// error-injecting wrapper around real
func newFixtureWithRepo(t *testing.T, real *repository.Repository, svcRepo repository.FullRepository) *fixture {
	t.Helper()

	log := logger.NewNop()
	f := &fixture{
		repo:    real,
		meet:    testutil.SeedMeet(t, real),
		clock:   testutil.NewClock(baseTime),
		bus:     &recordingBroadcaster{},
		metrics: newRecordingMetrics(),
	}

	f.scoring = services.NewScoringService(log, svcRepo)
	f.scoring.SetClock(f.clock.Now)
	f.scoring.SetMetrics(f.metrics)
	f.scoring.SetBroadcaster(f.bus)

	f.settings = services.NewSettingsService(log, svcRepo)
	f.settings.SetClock(f.clock.Now)
	f.settings.SetBroadcaster(f.bus)

	f.voting = services.NewVotingService(log, svcRepo, f.settings)
	f.voting.SetClock(f.clock.Now)
	f.voting.SetMetrics(f.metrics)
	f.voting.SetBroadcaster(f.bus)

	f.standings = services.NewStandingsService(log, svcRepo)
	f.standings.SetMetrics(f.metrics)

	f.matches = services.NewMatchService(log, svcRepo, f.scoring)
	f.reconcile = services.NewReconcileService(log, f.voting, f.scoring)
	return f
}

func (f *fixture) colorTotal(t *testing.T, colorID int) int {
	t.Helper()
	c, err := f.repo.GetColor(context.Background(), colorID)
	if err != nil {
		t.Fatalf("GetColor(%d) failed: %v", colorID, err)
	}
	return c.TotalScore
}

func (f *fixture) record(t *testing.T, eventID, colorID, rank int) {
	t.Helper()
	_, err := f.scoring.RecordResult(context.Background(), services.ResultInput{EventID: eventID, ColorID: colorID, Rank: rank})
	if err != nil {
		t.Fatalf("RecordResult(event=%d, color=%d, rank=%d) failed: %v", eventID, colorID, rank, err)
	}
}

func intp(v int) *int {
	return &v
}

func timep(t time.Time) *time.Time {
	return &t
}
