package domain

import (
	"time"

	"github.com/google/uuid"
)

type PollStatus string

const (
	PollStatusOpen   PollStatus = "OPEN"
	PollStatusClosed PollStatus = "CLOSED"
)

type PollPrivacy string

const (
	PollPrivacyPublic  PollPrivacy = "PUBLIC"
	PollPrivacyPrivate PollPrivacy = "PRIVATE"
)

// ParsePrivacy accepts PUBLIC or PRIVATE in any case. Empty means PUBLIC.
func ParsePrivacy(s string) (PollPrivacy, error) {
	switch PollPrivacy(upper(s)) {
	case "", PollPrivacyPublic:
		return PollPrivacyPublic, nil
	case PollPrivacyPrivate:
		return PollPrivacyPrivate, nil
	}
	return "", Invalid("privacy must be PUBLIC or PRIVATE")
}

const (
	MinPollOptions    = 2
	MaxPollOptions    = 10
	MaxQuestionLength = 1000
	MaxOptionLength   = 255
)

type Poll struct {
	ID          uuid.UUID   `json:"id"`
	CreatorID   uuid.UUID   `json:"creator_id"`
	CreatorName string      `json:"creator_name"`
	Question    string      `json:"question"`
	Privacy     PollPrivacy `json:"privacy"`
	Status      PollStatus  `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	Options     []Option    `json:"options"`
}

func (p *Poll) IsOpen() bool {
	return p.Status == PollStatusOpen
}

// Option belongs to exactly one poll. VoteCount is maintained by the vote engine only.
type Option struct {
	ID        uuid.UUID `json:"id"`
	PollID    uuid.UUID `json:"poll_id"`
	Text      string    `json:"text"`
	VoteCount int64     `json:"vote_count"`
	Position  int       `json:"-"`
}
