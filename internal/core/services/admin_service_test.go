package services

import (
	"context"
	"testing"

	"github.com/pollsystem/api/internal/adapters/repository/memory"
	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
	"github.com/pollsystem/api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAdminService(env *testEnv) ports.AdminService {
	return NewAdminService(env.tx, env.users, env.polls, memory.NewStatsRepository(env.store), logger.Discard())
}

func TestAdminService_DeleteUser(t *testing.T) {
	env := newTestEnv(t)
	admin := newAdminService(env)
	ctx := context.Background()

	root := env.newUser(t, domain.RoleAdmin)
	creator := env.newUser(t, domain.RoleCreator)
	leaving := env.newUser(t, domain.RoleCreator)
	voter := env.newUser(t, domain.RoleVoter)

	kept := env.newPoll(t, creator, "yes", "no")
	owned := env.newPoll(t, leaving, "a", "b")

	_, err := env.voteSvc.CastVote(ctx, ports.VoteInput{PollID: kept.ID, OptionID: kept.Options[0].ID, Voter: leaving})
	require.NoError(t, err)
	_, err = env.voteSvc.CastVote(ctx, ports.VoteInput{PollID: kept.ID, OptionID: kept.Options[0].ID, Voter: voter})
	require.NoError(t, err)
	_, err = env.voteSvc.CastVote(ctx, ports.VoteInput{PollID: owned.ID, OptionID: owned.Options[1].ID, Voter: voter})
	require.NoError(t, err)

	require.NoError(t, admin.DeleteUser(ctx, leaving.UserID, root))

	user, err := env.users.GetByID(ctx, leaving.UserID)
	require.NoError(t, err)
	assert.Nil(t, user)

	_, err = env.polls.GetByID(ctx, owned.ID)
	assert.ErrorIs(t, err, domain.ErrPollNotFound)

	assert.Equal(t, int64(1), env.counts(t, kept.ID)[kept.Options[0].ID])

	history, err := env.votes.ListByVoter(ctx, voter.UserID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	stats, err := admin.Dashboard(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.TotalPolls)
	assert.Equal(t, int64(1), stats.TotalVotes)
}

func TestAdminService_DeleteUser_Rejected(t *testing.T) {
	env := newTestEnv(t)
	admin := newAdminService(env)
	ctx := context.Background()

	root := env.newUser(t, domain.RoleAdmin)

	err := admin.DeleteUser(ctx, root.UserID, root)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	other := env.newUser(t, domain.RoleVoter)
	require.NoError(t, admin.DeleteUser(ctx, other.UserID, root))

	err = admin.DeleteUser(ctx, other.UserID, root)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestAdminService_UpdateRole(t *testing.T) {
	env := newTestEnv(t)
	admin := newAdminService(env)
	ctx := context.Background()

	voter := env.newUser(t, domain.RoleVoter)

	user, err := admin.UpdateRole(ctx, voter.UserID, "creator")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCreator, user.Role)

	stored, err := env.users.GetByID(ctx, voter.UserID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCreator, stored.Role)

	_, err = admin.UpdateRole(ctx, voter.UserID, "superuser")
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
}

func TestAdminService_Listings(t *testing.T) {
	env := newTestEnv(t)
	admin := newAdminService(env)
	ctx := context.Background()

	creator := env.newUser(t, domain.RoleCreator)
	for range 3 {
		env.newPoll(t, creator)
	}
	_, err := env.pollSvc.Create(ctx, ports.CreatePollInput{
		Question: "Hidden?",
		Options:  []string{"x", "y"},
		Privacy:  "PRIVATE",
	}, creator)
	require.NoError(t, err)

	polls, err := admin.ListPolls(ctx, domain.PageRequest{Page: 0, Size: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), polls.TotalElements)
	assert.Equal(t, 2, polls.TotalPages)
	assert.Len(t, polls.Content, 2)
	for _, p := range polls.Content {
		assert.Nil(t, p.HasVoted)
	}

	users, err := admin.ListUsers(ctx, domain.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), users.TotalElements)
	assert.Equal(t, domain.DefaultPageSize, users.Size)
}
