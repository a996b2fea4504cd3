package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/abrezinsky/sportsmeet/internal/models"
	"github.com/abrezinsky/sportsmeet/internal/repository"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// Meet holds the IDs created by SeedMeet
type Meet struct {
	Red, Blue, Green, Yellow int
	Athletics                int
	Sprint, LongJump         int
	RelayFinal               int
	AthleteX, AthleteY       int
}

// DefaultRules is the global rank-to-points table used by SeedMeet
var DefaultRules = []models.ScoringRule{
	{Rank: 1, Points: 10},
	{Rank: 2, Points: 8},
	{Rank: 3, Points: 6},
	{Rank: 4, Points: 4},
}

// SeedMeet creates four colors, one sport with three events (the relay is a final),
// two athletes and the default global scoring rules.
func SeedMeet(t *testing.T, repo *repository.Repository) Meet {
	t.Helper()
	ctx := context.Background()

	var m Meet
	m.Red = mustID(t, "color", func() (int64, error) { return repo.CreateColor(ctx, "Red", "#e11d48") })
	m.Blue = mustID(t, "color", func() (int64, error) { return repo.CreateColor(ctx, "Blue", "#2563eb") })
	m.Green = mustID(t, "color", func() (int64, error) { return repo.CreateColor(ctx, "Green", "#16a34a") })
	m.Yellow = mustID(t, "color", func() (int64, error) { return repo.CreateColor(ctx, "Yellow", "#facc15") })

	m.Athletics = mustID(t, "sport", func() (int64, error) { return repo.CreateSport(ctx, "Athletics") })
	m.Sprint = mustID(t, "event", func() (int64, error) { return repo.CreateEvent(ctx, m.Athletics, "100m Sprint", false, false) })
	m.LongJump = mustID(t, "event", func() (int64, error) { return repo.CreateEvent(ctx, m.Athletics, "Long Jump", false, false) })
	m.RelayFinal = mustID(t, "event", func() (int64, error) { return repo.CreateEvent(ctx, m.Athletics, "4x100m Relay Final", true, true) })

	m.AthleteX = mustID(t, "athlete", func() (int64, error) { return repo.CreateAthlete(ctx, "Xavier", &m.Red) })
	m.AthleteY = mustID(t, "athlete", func() (int64, error) { return repo.CreateAthlete(ctx, "Yuki", &m.Blue) })

	if err := repo.ReplaceScoringRules(ctx, nil, DefaultRules); err != nil {
		t.Fatalf("failed to seed scoring rules: %v", err)
	}

	return m
}

// SeedAthletes creates n athletes with fake names attached to colorID
func SeedAthletes(t *testing.T, repo *repository.Repository, faker *gofakeit.Faker, colorID, n int) []int {
	t.Helper()
	ctx := context.Background()

	ids := make([]int, 0, n)
	for i := 0; i < n; i++ {
		name := faker.Name()
		ids = append(ids, mustID(t, "athlete", func() (int64, error) { return repo.CreateAthlete(ctx, name, &colorID) }))
	}
	return ids
}

// OpenVoting stores an enabled vote setting for eventID (nil = global) with the given quota
func OpenVoting(t *testing.T, repo *repository.Repository, eventID *int, maxVotes int) {
	t.Helper()
	err := repo.UpsertVoteSetting(context.Background(), models.VoteSetting{
		EventID:         eventID,
		VotingEnabled:   true,
		MaxVotesPerUser: maxVotes,
	})
	if err != nil {
		t.Fatalf("failed to open voting: %v", err)
	}
}

func mustID(t *testing.T, what string, create func() (int64, error)) int {
	t.Helper()
	id, err := create()
	if err != nil {
		t.Fatalf("failed to create %s: %v", what, err)
	}
	return int(id)
}

// Clock is a settable time source for window tests
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock fixed at t
func NewClock(t time.Time) *Clock {
	return &Clock{now: t}
}

// Now returns the current fake time
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

// Advance moves the clock forward by d
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
