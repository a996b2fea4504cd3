package services

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/abrezinsky/sportsmeet/internal/logger"
	"github.com/abrezinsky/sportsmeet/internal/models"
	"github.com/abrezinsky/sportsmeet/internal/repository"
)

// DefaultMaxVotesPerUser applies when no setting row exists
const DefaultMaxVotesPerUser = 1

// SettingsServiceRepository defines the repository methods needed by SettingsService
type SettingsServiceRepository interface {
	repository.VoteSettingRepository
	GetEvent(ctx context.Context, id int) (*models.Event, error)
}

// SettingsService handles vote setting business logic
type SettingsService struct {
	log         logger.Logger
	repo        SettingsServiceRepository
	broadcaster Broadcaster
	now         func() time.Time
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(log logger.Logger, repo SettingsServiceRepository) *SettingsService {
	return &SettingsService{
		log:         log,
		repo:        repo,
		broadcaster: nopBroadcaster{},
		now:         time.Now,
	}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *SettingsService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetClock replaces the time source used by the voting timer
func (s *SettingsService) SetClock(now func() time.Time) {
	s.now = now
}

// ClosedVoteSetting is the hardcoded fallback used when neither the event nor the
// global scope has a stored setting
func ClosedVoteSetting(eventID *int) *models.VoteSetting {
	return &models.VoteSetting{
		EventID:         eventID,
		VotingEnabled:   false,
		MaxVotesPerUser: DefaultMaxVotesPerUser,
	}
}

// GetVoteSettings returns the stored setting of one scope, or the closed default when
// that scope has none
func (s *SettingsService) GetVoteSettings(ctx context.Context, eventID *int) (*models.VoteSetting, error) {
	if eventID != nil {
		if err := s.requireEvent(ctx, *eventID); err != nil {
			return nil, err
		}
	}
	setting, err := s.repo.GetVoteSetting(ctx, eventID)
	if stderrors.Is(err, repository.ErrNotFound) {
		return ClosedVoteSetting(eventID), nil
	}
	return setting, err
}

// EffectiveVoteSettings resolves the setting the vote gate applies to eventID: the
// event row if present, else the global row, else the closed default
func (s *SettingsService) EffectiveVoteSettings(ctx context.Context, eventID int) (*models.VoteSetting, error) {
	setting, err := s.repo.GetVoteSetting(ctx, &eventID)
	if err == nil {
		return setting, nil
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	setting, err = s.repo.GetVoteSetting(ctx, nil)
	if err == nil {
		return setting, nil
	}
	if !stderrors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	return ClosedVoteSetting(nil), nil
}

// PutVoteSettings stores the setting for setting.EventID (nil = global default)
func (s *SettingsService) PutVoteSettings(ctx context.Context, setting models.VoteSetting) error {
	if setting.MaxVotesPerUser < 1 {
		return ErrInvalidMaxVotes
	}
	if setting.VotingStart != nil && setting.VotingEnd != nil && setting.VotingEnd.Before(*setting.VotingStart) {
		return ErrInvalidWindow
	}
	if setting.EventID != nil {
		if err := s.requireEvent(ctx, *setting.EventID); err != nil {
			return err
		}
	}

	if err := s.repo.UpsertVoteSetting(ctx, setting); err != nil {
		return err
	}
	s.log.Info("Vote settings updated",
		"scope", scopeLabel(setting.EventID),
		"enabled", setting.VotingEnabled,
		"max_votes", setting.MaxVotesPerUser,
	)
	s.broadcastStatus(setting)
	return nil
}

// OpenVoting enables voting for a scope and clears any window, so it stays open until
// closed again
func (s *SettingsService) OpenVoting(ctx context.Context, eventID *int) error {
	setting, err := s.GetVoteSettings(ctx, eventID)
	if err != nil {
		return err
	}
	setting.EventID = eventID
	setting.VotingEnabled = true
	setting.VotingStart = nil
	setting.VotingEnd = nil
	return s.PutVoteSettings(ctx, *setting)
}

// CloseVoting disables voting for a scope and clears the timer
func (s *SettingsService) CloseVoting(ctx context.Context, eventID *int) error {
	setting, err := s.GetVoteSettings(ctx, eventID)
	if err != nil {
		return err
	}
	setting.EventID = eventID
	setting.VotingEnabled = false
	setting.VotingEnd = nil
	return s.PutVoteSettings(ctx, *setting)
}

// StartVotingTimer opens voting for a scope from now until now+minutes and returns the
// close time in RFC3339
func (s *SettingsService) StartVotingTimer(ctx context.Context, eventID *int, minutes int) (string, error) {
	if minutes <= 0 || minutes > 60 {
		return "", ErrInvalidTimerMinutes
	}

	setting, err := s.GetVoteSettings(ctx, eventID)
	if err != nil {
		return "", err
	}

	start := s.now().UTC().Truncate(time.Second)
	end := start.Add(time.Duration(minutes) * time.Minute)
	setting.EventID = eventID
	setting.VotingEnabled = true
	setting.VotingStart = &start
	setting.VotingEnd = &end

	if err := s.PutVoteSettings(ctx, *setting); err != nil {
		return "", err
	}
	return end.Format(time.RFC3339), nil
}

// IsOpen reports whether setting admits ballots at t (quota aside)
func IsOpen(setting *models.VoteSetting, t time.Time) bool {
	return windowDenial(setting, t) == ""
}

func (s *SettingsService) broadcastStatus(setting models.VoteSetting) {
	closeTime := ""
	if setting.VotingEnd != nil {
		closeTime = setting.VotingEnd.UTC().Format(time.RFC3339)
	}
	s.broadcaster.BroadcastVotingStatus(setting.EventID, IsOpen(&setting, s.now()), closeTime)
}

func (s *SettingsService) requireEvent(ctx context.Context, eventID int) error {
	if _, err := s.repo.GetEvent(ctx, eventID); err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return ErrUnknownEvent
		}
		return err
	}
	return nil
}
