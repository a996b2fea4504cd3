package services

import (
	"context"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/abrezinsky/sportsmeet/internal/logger"
	"github.com/abrezinsky/sportsmeet/internal/models"
)

// MeetFile is the YAML layout accepted by the seed command
type MeetFile struct {
	Colors   []SeedColor   `yaml:"colors"`
	Sports   []SeedSport   `yaml:"sports"`
	Athletes []SeedAthlete `yaml:"athletes"`
	Scoring  []SeedRule    `yaml:"scoring"`
	Voting   *SeedVoting   `yaml:"voting"`
}

// SeedColor is one team
type SeedColor struct {
	Name string `yaml:"name"`
	Hex  string `yaml:"hex"`
}

// SeedSport groups events
type SeedSport struct {
	Name   string      `yaml:"name"`
	Events []SeedEvent `yaml:"events"`
}

// SeedEvent is one contest; Scoring overrides the global rules for it
type SeedEvent struct {
	Name    string     `yaml:"name"`
	Team    bool       `yaml:"team"`
	Final   bool       `yaml:"final"`
	Scoring []SeedRule `yaml:"scoring"`
}

// SeedAthlete references its color by name
type SeedAthlete struct {
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
}

// SeedRule is one rank-to-points row
type SeedRule struct {
	Rank   int `yaml:"rank"`
	Points int `yaml:"points"`
}

// SeedVoting is the global vote setting
type SeedVoting struct {
	Enabled             bool `yaml:"enabled"`
	MaxVotesPerUser     int  `yaml:"max_votes_per_user"`
	ShowRealtimeResults bool `yaml:"show_realtime_results"`
}

// SeedReport counts what Seed created
type SeedReport struct {
	Colors   int `json:"colors"`
	Sports   int `json:"sports"`
	Events   int `json:"events"`
	Athletes int `json:"athletes"`
	Rules    int `json:"rules"`
}

// SeedServiceRepository defines the repository methods needed by SeedService
type SeedServiceRepository interface {
	CreateColor(ctx context.Context, name, hexCode string) (int64, error)
	CreateSport(ctx context.Context, name string) (int64, error)
	CreateEvent(ctx context.Context, sportID int, name string, isTeamEvent, isFinal bool) (int64, error)
	CreateAthlete(ctx context.Context, name string, colorID *int) (int64, error)
	ReplaceScoringRules(ctx context.Context, eventID *int, rules []models.ScoringRule) error
	UpsertVoteSetting(ctx context.Context, s models.VoteSetting) error
}

// SeedService loads reference data for a meet
type SeedService struct {
	log  logger.Logger
	repo SeedServiceRepository
}

// NewSeedService creates a new SeedService
func NewSeedService(log logger.Logger, repo SeedServiceRepository) *SeedService {
	return &SeedService{log: log, repo: repo}
}

// ParseMeetFile decodes a meet definition
func ParseMeetFile(r io.Reader) (*MeetFile, error) {
	var meet MeetFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&meet); err != nil {
		return nil, fmt.Errorf("failed to decode meet file: %w", err)
	}
	return &meet, nil
}

// Seed creates every color, sport, event, athlete and rule in meet
func (s *SeedService) Seed(ctx context.Context, meet *MeetFile) (*SeedReport, error) {
	report := &SeedReport{}

	colorIDs := make(map[string]int, len(meet.Colors))
	for _, c := range meet.Colors {
		id, err := s.repo.CreateColor(ctx, c.Name, c.Hex)
		if err != nil {
			return report, fmt.Errorf("color %q: %w", c.Name, err)
		}
		colorIDs[strings.ToLower(c.Name)] = int(id)
		report.Colors++
	}

	if len(meet.Scoring) > 0 {
		if err := s.repo.ReplaceScoringRules(ctx, nil, toRules(nil, meet.Scoring)); err != nil {
			return report, fmt.Errorf("global scoring: %w", err)
		}
		report.Rules += len(meet.Scoring)
	}

	for _, sp := range meet.Sports {
		sportID, err := s.repo.CreateSport(ctx, sp.Name)
		if err != nil {
			return report, fmt.Errorf("sport %q: %w", sp.Name, err)
		}
		report.Sports++

		for _, ev := range sp.Events {
			eventID, err := s.repo.CreateEvent(ctx, int(sportID), ev.Name, ev.Team, ev.Final)
			if err != nil {
				return report, fmt.Errorf("event %q: %w", ev.Name, err)
			}
			report.Events++

			if len(ev.Scoring) > 0 {
				id := int(eventID)
				if err := s.repo.ReplaceScoringRules(ctx, &id, toRules(&id, ev.Scoring)); err != nil {
					return report, fmt.Errorf("scoring for %q: %w", ev.Name, err)
				}
				report.Rules += len(ev.Scoring)
			}
		}
	}

	for _, a := range meet.Athletes {
		var colorID *int
		if a.Color != "" {
			id, ok := colorIDs[strings.ToLower(a.Color)]
			if !ok {
				return report, fmt.Errorf("athlete %q: unknown color %q", a.Name, a.Color)
			}
			colorID = &id
		}
		if _, err := s.repo.CreateAthlete(ctx, a.Name, colorID); err != nil {
			return report, fmt.Errorf("athlete %q: %w", a.Name, err)
		}
		report.Athletes++
	}

	if meet.Voting != nil {
		maxVotes := meet.Voting.MaxVotesPerUser
		if maxVotes < 1 {
			maxVotes = DefaultMaxVotesPerUser
		}
		if err := s.repo.UpsertVoteSetting(ctx, models.VoteSetting{
			VotingEnabled:       meet.Voting.Enabled,
			MaxVotesPerUser:     maxVotes,
			ShowRealtimeResults: meet.Voting.ShowRealtimeResults,
		}); err != nil {
			return report, fmt.Errorf("vote settings: %w", err)
		}
	}

	s.log.Info("Meet seeded",
		"colors", report.Colors,
		"sports", report.Sports,
		"events", report.Events,
		"athletes", report.Athletes,
		"rules", report.Rules,
	)
	return report, nil
}

func toRules(eventID *int, rows []SeedRule) []models.ScoringRule {
	rules := make([]models.ScoringRule, 0, len(rows))
	for _, r := range rows {
		rules = append(rules, models.ScoringRule{EventID: eventID, Rank: r.Rank, Points: r.Points})
	}
	return rules
}
