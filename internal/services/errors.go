package services

import (
	"github.com/abrezinsky/sportsmeet/internal/errors"
)

// Service errors
var (
	ErrInvalidRank         = errors.Validation("rank must be a positive integer")
	ErrInvalidPoints       = errors.Validation("points must not be negative")
	ErrDuplicateRank       = errors.Validation("each rank may appear only once")
	ErrUnknownEvent        = errors.NotFound("event not found")
	ErrUnknownColor        = errors.NotFound("color not found")
	ErrUnknownAthlete      = errors.NotFound("athlete not found")
	ErrUnknownMatch        = errors.NotFound("match not found")
	ErrResultNotFound      = errors.NotFound("no result recorded for this event and color")
	ErrInvalidTransition   = errors.Conflict("match status transition not allowed")
	ErrStaleMatch          = errors.Conflict("match was changed by another request")
	ErrScoresRequired      = errors.Validation("both scores are required to complete a match")
	ErrInvalidScore        = errors.Validation("scores must not be negative")
	ErrFinalDraw           = errors.Validation("a final cannot end in a draw")
	ErrSameColors          = errors.Validation("a match needs two different colors")
	ErrInvalidStatus       = errors.InvalidInput("unknown match status")
	ErrInvalidTimerMinutes = errors.Validation("minutes must be between 1 and 60")
	ErrInvalidMaxVotes     = errors.Validation("max votes per user must be at least 1")
	ErrInvalidWindow       = errors.Validation("voting end must not be before voting start")
	ErrMissingVoterKey     = errors.InvalidInput("voter key is required")
	ErrBallotContention    = errors.Conflict("too many concurrent ballots, try again")
)
