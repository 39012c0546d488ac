package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
	"github.com/pollsystem/api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteService_CastVote(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	creator := env.newUser(t, domain.RoleCreator)
	voter := env.newUser(t, domain.RoleVoter)
	poll := env.newPoll(t, creator)
	a, b := poll.Options[0].ID, poll.Options[1].ID

	t.Run("first vote creates", func(t *testing.T) {
		outcome, err := env.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: a, Voter: voter})
		require.NoError(t, err)
		assert.Equal(t, domain.VoteCreated, outcome)
		assert.Equal(t, "Vote cast successfully!", outcome.Message())
		assert.Equal(t, int64(1), env.counts(t, poll.ID)[a])
	})

	t.Run("same option is idempotent", func(t *testing.T) {
		before, err := env.votes.GetVote(ctx, poll.ID, voter.UserID)
		require.NoError(t, err)

		outcome, err := env.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: a, Voter: voter})
		require.NoError(t, err)
		assert.Equal(t, domain.VoteUpdated, outcome)

		counts := env.counts(t, poll.ID)
		assert.Equal(t, int64(1), counts[a])
		assert.Equal(t, int64(0), counts[b])

		after, err := env.votes.GetVote(ctx, poll.ID, voter.UserID)
		require.NoError(t, err)
		assert.Equal(t, before.CastAt, after.CastAt)
	})

	t.Run("different option moves the vote", func(t *testing.T) {
		outcome, err := env.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: b, Voter: voter})
		require.NoError(t, err)
		assert.Equal(t, domain.VoteUpdated, outcome)
		assert.Equal(t, "Vote updated successfully!", outcome.Message())

		counts := env.counts(t, poll.ID)
		assert.Equal(t, int64(0), counts[a])
		assert.Equal(t, int64(1), counts[b])

		vote, err := env.votes.GetVote(ctx, poll.ID, voter.UserID)
		require.NoError(t, err)
		assert.Equal(t, b, vote.OptionID)
	})
}

func TestVoteService_CastVote_Preconditions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	creator := env.newUser(t, domain.RoleCreator)
	voter := env.newUser(t, domain.RoleVoter)
	poll := env.newPoll(t, creator)
	other := env.newPoll(t, creator)

	tests := []struct {
		name    string
		input   ports.VoteInput
		wantErr error
	}{
		{
			name:    "unknown poll",
			input:   ports.VoteInput{PollID: uuid.New(), OptionID: poll.Options[0].ID, Voter: voter},
			wantErr: domain.ErrPollNotFound,
		},
		{
			name:    "unknown option",
			input:   ports.VoteInput{PollID: poll.ID, OptionID: uuid.New(), Voter: voter},
			wantErr: domain.ErrOptionNotFound,
		},
		{
			name:    "option from another poll",
			input:   ports.VoteInput{PollID: poll.ID, OptionID: other.Options[0].ID, Voter: voter},
			wantErr: domain.ErrOptionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.voteSvc.CastVote(ctx, tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	for _, c := range env.counts(t, poll.ID) {
		assert.Zero(t, c)
	}
	for _, c := range env.counts(t, other.ID) {
		assert.Zero(t, c)
	}
}

func TestVoteService_ClosedPoll(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	creator := env.newUser(t, domain.RoleCreator)
	voter := env.newUser(t, domain.RoleVoter)
	poll := env.newPoll(t, creator)
	opt := poll.Options[0].ID

	_, err := env.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: opt, Voter: voter})
	require.NoError(t, err)

	_, err = env.pollSvc.Close(ctx, poll.ID, creator)
	require.NoError(t, err)

	_, err = env.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: poll.Options[1].ID, Voter: voter})
	assert.ErrorIs(t, err, domain.ErrPollClosed)

	// the closed check runs before the option lookup
	_, err = env.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: uuid.New(), Voter: voter})
	assert.ErrorIs(t, err, domain.ErrPollClosed)

	_, err = env.voteSvc.RemoveVote(ctx, poll.ID, voter)
	assert.ErrorIs(t, err, domain.ErrPollClosed)

	assert.Equal(t, int64(1), env.counts(t, poll.ID)[opt])
}

func TestVoteService_RemoveVote(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	creator := env.newUser(t, domain.RoleCreator)
	voter := env.newUser(t, domain.RoleVoter)
	poll := env.newPoll(t, creator)
	opt := poll.Options[2].ID

	_, err := env.voteSvc.RemoveVote(ctx, poll.ID, voter)
	assert.ErrorIs(t, err, domain.ErrVoteNotFound)

	_, err = env.voteSvc.RemoveVote(ctx, uuid.New(), voter)
	assert.ErrorIs(t, err, domain.ErrPollNotFound)

	_, err = env.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: opt, Voter: voter})
	require.NoError(t, err)

	outcome, err := env.voteSvc.RemoveVote(ctx, poll.ID, voter)
	require.NoError(t, err)
	assert.Equal(t, domain.VoteRemoved, outcome)
	assert.Equal(t, "Vote removed successfully!", outcome.Message())
	assert.Zero(t, env.counts(t, poll.ID)[opt])

	voted, err := env.votes.HasVoted(ctx, poll.ID, voter.UserID)
	require.NoError(t, err)
	assert.False(t, voted)

	_, err = env.voteSvc.RemoveVote(ctx, poll.ID, voter)
	assert.ErrorIs(t, err, domain.ErrVoteNotFound)
}

func TestVoteService_MyVote(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	creator := env.newUser(t, domain.RoleCreator)
	voter := env.newUser(t, domain.RoleVoter)
	poll := env.newPoll(t, creator)

	_, err := env.voteSvc.MyVote(ctx, poll.ID, voter)
	assert.ErrorIs(t, err, domain.ErrVoteNotFound)

	_, err = env.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: poll.Options[1].ID, Voter: voter})
	require.NoError(t, err)

	vote, err := env.voteSvc.MyVote(ctx, poll.ID, voter)
	require.NoError(t, err)
	assert.Equal(t, poll.Options[1].ID, vote.OptionID)
	assert.Equal(t, voter.UserID, vote.VoterID)
}

func TestVoteService_TwoVoterSequence(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	creator := env.newUser(t, domain.RoleCreator)
	first := env.newUser(t, domain.RoleVoter)
	second := env.newUser(t, domain.RoleVoter)
	poll := env.newPoll(t, creator, "A", "B", "C")

	cast := func(voter domain.Identity, option int) func() (domain.VoteOutcome, error) {
		return func() (domain.VoteOutcome, error) {
			return env.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: poll.Options[option].ID, Voter: voter})
		}
	}
	remove := func(voter domain.Identity) func() (domain.VoteOutcome, error) {
		return func() (domain.VoteOutcome, error) {
			return env.voteSvc.RemoveVote(ctx, poll.ID, voter)
		}
	}

	steps := []struct {
		name        string
		action      func() (domain.VoteOutcome, error)
		outcome     domain.VoteOutcome
		counts      [3]int64
		percentages [3]float64
		total       int64
	}{
		{"first votes A", cast(first, 0), domain.VoteCreated, [3]int64{1, 0, 0}, [3]float64{100, 0, 0}, 1},
		{"second votes B", cast(second, 1), domain.VoteCreated, [3]int64{1, 1, 0}, [3]float64{50, 50, 0}, 2},
		{"first repeats A", cast(first, 0), domain.VoteUpdated, [3]int64{1, 1, 0}, [3]float64{50, 50, 0}, 2},
		{"first switches to C", cast(first, 2), domain.VoteUpdated, [3]int64{0, 1, 1}, [3]float64{0, 50, 50}, 2},
		{"second switches to C", cast(second, 2), domain.VoteUpdated, [3]int64{0, 0, 2}, [3]float64{0, 0, 100}, 2},
		{"second removes", remove(second), domain.VoteRemoved, [3]int64{0, 0, 1}, [3]float64{0, 0, 100}, 1},
		{"first removes", remove(first), domain.VoteRemoved, [3]int64{0, 0, 0}, [3]float64{0, 0, 0}, 0},
	}

	for _, step := range steps {
		outcome, err := step.action()
		require.NoError(t, err, step.name)
		assert.Equal(t, step.outcome, outcome, step.name)

		view, err := env.pollSvc.Get(ctx, poll.ID, nil)
		require.NoError(t, err, step.name)
		assert.Equal(t, step.total, view.TotalVotes, step.name)
		for i, opt := range view.Options {
			assert.Equal(t, step.counts[i], opt.VoteCount, "%s: option %s", step.name, opt.Text)
			assert.InDelta(t, step.percentages[i], opt.Percentage, 0.0001, "%s: option %s", step.name, opt.Text)
		}
	}
}

func TestVoteService_DeletedVoter(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	admin := newAdminService(env)
	root := env.newUser(t, domain.RoleAdmin)
	creator := env.newUser(t, domain.RoleCreator)
	voter := env.newUser(t, domain.RoleVoter)
	poll := env.newPoll(t, creator)

	require.NoError(t, admin.DeleteUser(ctx, voter.UserID, root))

	_, err := env.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: poll.Options[0].ID, Voter: voter})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	for id, count := range env.counts(t, poll.ID) {
		assert.Zero(t, count, "option %s", id)
	}
	voted, err := env.votes.HasVoted(ctx, poll.ID, voter.UserID)
	require.NoError(t, err)
	assert.False(t, voted)
}

func TestVoteService_ConcurrentVoters(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	creator := env.newUser(t, domain.RoleCreator)
	poll := env.newPoll(t, creator)
	opt := poll.Options[0].ID

	const numVoters = 50
	voters := make([]domain.Identity, numVoters)
	for i := range voters {
		voters[i] = env.newUser(t, domain.RoleVoter)
	}

	var created atomic.Int32
	var wg sync.WaitGroup
	for _, v := range voters {
		wg.Add(1)
		go func(voter domain.Identity) {
			defer wg.Done()
			outcome, err := env.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: opt, Voter: voter})
			if err == nil && outcome == domain.VoteCreated {
				created.Add(1)
			}
		}(v)
	}
	wg.Wait()

	assert.Equal(t, int32(numVoters), created.Load())
	assert.Equal(t, int64(numVoters), env.counts(t, poll.ID)[opt])
}

func TestVoteService_ConcurrentSameVoter(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	creator := env.newUser(t, domain.RoleCreator)
	voter := env.newUser(t, domain.RoleVoter)
	poll := env.newPoll(t, creator)

	var created atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			opt := poll.Options[i%len(poll.Options)].ID
			outcome, err := env.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: opt, Voter: voter})
			if err == nil && outcome == domain.VoteCreated {
				created.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), created.Load())

	var total int64
	for _, c := range env.counts(t, poll.ID) {
		total += c
	}
	assert.Equal(t, int64(1), total)

	vote, err := env.votes.GetVote(ctx, poll.ID, voter.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), env.counts(t, poll.ID)[vote.OptionID])
}

type flakyTransactor struct {
	ports.Transactor
	failures atomic.Int32
}

func (f *flakyTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	if f.failures.Load() > 0 {
		f.failures.Add(-1)
		return fmt.Errorf("%w: could not serialize access", domain.ErrTransient)
	}
	return f.Transactor.WithinTx(ctx, fn)
}

func TestVoteService_RetriesOnceOnContention(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	creator := env.newUser(t, domain.RoleCreator)
	voter := env.newUser(t, domain.RoleVoter)
	poll := env.newPoll(t, creator)
	opt := poll.Options[0].ID

	flaky := &flakyTransactor{Transactor: env.tx}
	svc := NewVoteService(flaky, env.votes, logger.Discard())

	flaky.failures.Store(1)
	outcome, err := svc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: opt, Voter: voter})
	require.NoError(t, err)
	assert.Equal(t, domain.VoteCreated, outcome)

	flaky.failures.Store(2)
	_, err = svc.RemoveVote(ctx, poll.ID, voter)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransient))
	assert.Equal(t, int64(1), env.counts(t, poll.ID)[opt])
}

func TestVoteService_CancelledContextLeavesNoTrace(t *testing.T) {
	env := newTestEnv(t)
	creator := env.newUser(t, domain.RoleCreator)
	voter := env.newUser(t, domain.RoleVoter)
	poll := env.newPoll(t, creator)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: poll.Options[0].ID, Voter: voter})
	require.ErrorIs(t, err, context.Canceled)

	voted, err := env.votes.HasVoted(context.Background(), poll.ID, voter.UserID)
	require.NoError(t, err)
	assert.False(t, voted)
}
