package services

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/adapters/repository/memory"
	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
	"github.com/pollsystem/api/internal/logger"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store *memory.Store
	tx    ports.Transactor
	polls ports.PollRepository
	votes ports.VoteRepository
	users ports.UserRepository

	pollSvc ports.PollService
	voteSvc ports.VoteService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	env := &testEnv{
		store: store,
		tx:    memory.NewTransactor(store),
		polls: memory.NewPollRepository(store),
		votes: memory.NewVoteRepository(store),
		users: memory.NewUserRepository(store),
	}
	env.pollSvc = NewPollService(env.tx, env.polls, env.votes, logger.Discard())
	env.voteSvc = NewVoteService(env.tx, env.votes, logger.Discard())
	return env
}

func (e *testEnv) newUser(t *testing.T, role domain.Role) domain.Identity {
	t.Helper()

	user := &domain.User{
		Name:  gofakeit.Name(),
		Email: gofakeit.Email(),
		Role:  role,
	}
	require.NoError(t, e.users.Create(context.Background(), user))
	return domain.Identity{UserID: user.ID, Role: role}
}

func (e *testEnv) newPoll(t *testing.T, creator domain.Identity, options ...string) *domain.PollView {
	t.Helper()

	if len(options) == 0 {
		options = []string{"Red", "Green", "Blue"}
	}
	view, err := e.pollSvc.Create(context.Background(), ports.CreatePollInput{
		Question: gofakeit.Question(),
		Options:  options,
	}, creator)
	require.NoError(t, err)
	return view
}

func (e *testEnv) counts(t *testing.T, pollID uuid.UUID) map[uuid.UUID]int64 {
	t.Helper()

	poll, err := e.polls.GetByID(context.Background(), pollID)
	require.NoError(t, err)

	counts := make(map[uuid.UUID]int64, len(poll.Options))
	for _, opt := range poll.Options {
		counts[opt.ID] = opt.VoteCount
	}
	return counts
}
