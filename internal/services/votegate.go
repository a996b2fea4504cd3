package services

import (
	"time"

	"github.com/abrezinsky/sportsmeet/internal/models"
)

// DenyReason explains why the vote gate refused a ballot
type DenyReason string

const (
	DenyVotingDisabled DenyReason = "voting_disabled"
	DenyNotYetOpen     DenyReason = "not_yet_open"
	DenyClosed         DenyReason = "closed"
	DenyQuotaExceeded  DenyReason = "quota_exceeded"
)

// Message is the user-facing text for the reason
func (r DenyReason) Message() string {
	switch r {
	case DenyVotingDisabled:
		return "Voting is not enabled for this event"
	case DenyNotYetOpen:
		return "Voting has not opened yet"
	case DenyClosed:
		return "Voting has closed"
	case DenyQuotaExceeded:
		return "You have used all of your votes for this event"
	}
	return string(r)
}

// VoteOutcome is the result of a ballot submission. Denials are outcomes, not errors.
type VoteOutcome struct {
	Accepted bool           `json:"accepted"`
	Reason   DenyReason     `json:"reason,omitempty"`
	Ballot   *models.Ballot `json:"ballot,omitempty"`
}

func denied(reason DenyReason) *VoteOutcome {
	return &VoteOutcome{Reason: reason}
}

// windowDenial applies the enable flag and the voting window. Boundaries are inclusive:
// a ballot exactly at votingStart or votingEnd is inside the window.
func windowDenial(setting *models.VoteSetting, now time.Time) DenyReason {
	if setting == nil || !setting.VotingEnabled {
		return DenyVotingDisabled
	}
	if setting.VotingStart != nil && now.Before(*setting.VotingStart) {
		return DenyNotYetOpen
	}
	if setting.VotingEnd != nil && now.After(*setting.VotingEnd) {
		return DenyClosed
	}
	return ""
}
