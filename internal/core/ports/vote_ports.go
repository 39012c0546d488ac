package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
)

type VoteRepository interface {
	HasVoted(ctx context.Context, pollID, voterID uuid.UUID) (bool, error)
	GetVote(ctx context.Context, pollID, voterID uuid.UUID) (*domain.Vote, error)
	ListByVoter(ctx context.Context, voterID uuid.UUID) ([]domain.Vote, error)
	CountByVoter(ctx context.Context, voterID uuid.UUID) (int64, error)
}

type VoteInput struct {
	PollID   uuid.UUID
	OptionID uuid.UUID
	Voter    domain.Identity
}

type VoteService interface {
	CastVote(ctx context.Context, input VoteInput) (domain.VoteOutcome, error)
	RemoveVote(ctx context.Context, pollID uuid.UUID, voter domain.Identity) (domain.VoteOutcome, error)
	MyVote(ctx context.Context, pollID uuid.UUID, voter domain.Identity) (*domain.Vote, error)
}
