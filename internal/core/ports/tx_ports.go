package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
)

// Transactor runs fn inside one atomic unit of work. If fn returns an error, or ctx is
// cancelled before commit, nothing fn did is visible to anyone. Adapters report store
// contention as an error wrapping domain.ErrTransient.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of mutations the vote engine and the poll lifecycle need inside a unit of work.
type Tx interface {
	// LockPoll loads the poll without options. forUpdate takes an exclusive lock, otherwise the
	// lock is shared so concurrent votes on the same poll do not block each other.
	LockPoll(ctx context.Context, pollID uuid.UUID, forUpdate bool) (*domain.Poll, error)
	GetOption(ctx context.Context, optionID uuid.UUID) (*domain.Option, error)

	// LockVote returns the live vote of voterID in pollID, locked for the rest of the unit of
	// work, or nil when there is none.
	LockVote(ctx context.Context, pollID, voterID uuid.UUID) (*domain.Vote, error)
	// InsertVote reports false when a live vote for the same (poll, voter) already exists.
	InsertVote(ctx context.Context, vote *domain.Vote) (bool, error)
	UpdateVoteOption(ctx context.Context, voteID, optionID uuid.UUID, castAt time.Time) error
	DeleteVote(ctx context.Context, voteID uuid.UUID) error
	LockVotesByVoter(ctx context.Context, voterID uuid.UUID) ([]domain.Vote, error)

	// AdjustVoteCounts applies relative deltas to option counters, never letting one drop below zero.
	AdjustVoteCounts(ctx context.Context, deltas map[uuid.UUID]int64) error

	SetPollStatus(ctx context.Context, pollID uuid.UUID, status domain.PollStatus) error
	// DeletePollCascade removes the poll's votes, then its options, then the poll.
	DeletePollCascade(ctx context.Context, pollID uuid.UUID) error
	PollIDsByCreator(ctx context.Context, creatorID uuid.UUID) ([]uuid.UUID, error)

	DeleteUser(ctx context.Context, userID uuid.UUID) error
}
