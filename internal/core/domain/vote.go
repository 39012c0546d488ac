package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vote is a voter's live choice for a poll. At most one exists per (PollID, VoterID).
type Vote struct {
	ID       uuid.UUID `json:"id"`
	PollID   uuid.UUID `json:"poll_id"`
	OptionID uuid.UUID `json:"option_id"`
	VoterID  uuid.UUID `json:"voter_id"`
	CastAt   time.Time `json:"cast_at"`
}

type VoteOutcome string

const (
	VoteCreated VoteOutcome = "CREATED"
	VoteUpdated VoteOutcome = "UPDATED"
	VoteRemoved VoteOutcome = "REMOVED"
)

// Message is the user-facing confirmation for the outcome.
func (o VoteOutcome) Message() string {
	switch o {
	case VoteCreated:
		return "Vote cast successfully!"
	case VoteUpdated:
		return "Vote updated successfully!"
	case VoteRemoved:
		return "Vote removed successfully!"
	}
	return ""
}
