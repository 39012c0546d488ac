package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
)

type memTx struct {
	st *state
}

func (t *memTx) LockPoll(_ context.Context, pollID uuid.UUID, _ bool) (*domain.Poll, error) {
	poll, ok := t.st.polls[pollID]
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	return &poll, nil
}

func (t *memTx) GetOption(_ context.Context, optionID uuid.UUID) (*domain.Option, error) {
	opt, ok := t.st.options[optionID]
	if !ok {
		return nil, domain.ErrOptionNotFound
	}
	return &opt, nil
}

func (t *memTx) LockVote(_ context.Context, pollID, voterID uuid.UUID) (*domain.Vote, error) {
	for _, v := range t.st.votes {
		if v.PollID == pollID && v.VoterID == voterID {
			return &v, nil
		}
	}
	return nil, nil
}

func (t *memTx) InsertVote(ctx context.Context, vote *domain.Vote) (bool, error) {
	if _, ok := t.st.users[vote.VoterID]; !ok {
		return false, domain.ErrUserNotFound
	}
	existing, _ := t.LockVote(ctx, vote.PollID, vote.VoterID)
	if existing != nil {
		return false, nil
	}
	t.st.votes[vote.ID] = *vote
	return true, nil
}

func (t *memTx) UpdateVoteOption(_ context.Context, voteID, optionID uuid.UUID, castAt time.Time) error {
	v, ok := t.st.votes[voteID]
	if !ok {
		return domain.ErrVoteNotFound
	}
	v.OptionID = optionID
	v.CastAt = castAt
	t.st.votes[voteID] = v
	return nil
}

func (t *memTx) DeleteVote(_ context.Context, voteID uuid.UUID) error {
	delete(t.st.votes, voteID)
	return nil
}

func (t *memTx) LockVotesByVoter(_ context.Context, voterID uuid.UUID) ([]domain.Vote, error) {
	var out []domain.Vote
	for _, v := range t.st.votes {
		if v.VoterID == voterID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (t *memTx) AdjustVoteCounts(_ context.Context, deltas map[uuid.UUID]int64) error {
	for id, delta := range deltas {
		opt, ok := t.st.options[id]
		if !ok {
			return domain.ErrOptionNotFound
		}
		opt.VoteCount = max(opt.VoteCount+delta, 0)
		t.st.options[id] = opt
	}
	return nil
}

func (t *memTx) SetPollStatus(_ context.Context, pollID uuid.UUID, status domain.PollStatus) error {
	poll, ok := t.st.polls[pollID]
	if !ok {
		return domain.ErrPollNotFound
	}
	poll.Status = status
	t.st.polls[pollID] = poll
	return nil
}

func (t *memTx) DeletePollCascade(_ context.Context, pollID uuid.UUID) error {
	for id, v := range t.st.votes {
		if v.PollID == pollID {
			delete(t.st.votes, id)
		}
	}
	for id, opt := range t.st.options {
		if opt.PollID == pollID {
			delete(t.st.options, id)
		}
	}
	delete(t.st.polls, pollID)
	return nil
}

func (t *memTx) PollIDsByCreator(_ context.Context, creatorID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for id, poll := range t.st.polls {
		if poll.CreatorID == creatorID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (t *memTx) DeleteUser(_ context.Context, userID uuid.UUID) error {
	if _, ok := t.st.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	for id, token := range t.st.tokens {
		if token.UserID == userID {
			delete(t.st.tokens, id)
		}
	}
	delete(t.st.users, userID)
	return nil
}
