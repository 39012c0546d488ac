package memory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
)

type voteRepository struct {
	s *Store
}

func NewVoteRepository(store *Store) ports.VoteRepository {
	return &voteRepository{s: store}
}

func (r *voteRepository) HasVoted(ctx context.Context, pollID, voterID uuid.UUID) (bool, error) {
	vote, err := r.GetVote(ctx, pollID, voterID)
	return vote != nil, err
}

func (r *voteRepository) GetVote(_ context.Context, pollID, voterID uuid.UUID) (*domain.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, v := range r.s.st.votes {
		if v.PollID == pollID && v.VoterID == voterID {
			return &v, nil
		}
	}
	return nil, nil
}

func (r *voteRepository) ListByVoter(_ context.Context, voterID uuid.UUID) ([]domain.Vote, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var votes []domain.Vote
	for _, v := range r.s.st.votes {
		if v.VoterID == voterID {
			votes = append(votes, v)
		}
	}
	sort.Slice(votes, func(i, j int) bool {
		return votes[i].CastAt.After(votes[j].CastAt)
	})
	return votes, nil
}

func (r *voteRepository) CountByVoter(ctx context.Context, voterID uuid.UUID) (int64, error) {
	votes, err := r.ListByVoter(ctx, voterID)
	return int64(len(votes)), err
}
