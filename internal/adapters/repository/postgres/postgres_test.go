package postgres

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
	"github.com/pollsystem/api/internal/core/services"
	"github.com/pollsystem/api/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, MigrateUp(db))
	return db
}

type fixture struct {
	db      *sql.DB
	tx      ports.Transactor
	users   ports.UserRepository
	polls   ports.PollRepository
	votes   ports.VoteRepository
	pollSvc ports.PollService
	voteSvc ports.VoteService
}

func newFixture(t *testing.T) *fixture {
	db := setupDB(t)
	f := &fixture{
		db:    db,
		tx:    NewTransactor(db),
		users: NewUserRepository(db),
		polls: NewPollRepository(db),
		votes: NewVoteRepository(db),
	}
	f.pollSvc = services.NewPollService(f.tx, f.polls, f.votes, logger.Discard())
	f.voteSvc = services.NewVoteService(f.tx, f.votes, logger.Discard())
	return f
}

func (f *fixture) newUser(t *testing.T, role domain.Role) domain.Identity {
	t.Helper()

	user := &domain.User{Name: gofakeit.Name(), Email: gofakeit.Email(), Role: role}
	require.NoError(t, f.users.Create(context.Background(), user))
	return domain.Identity{UserID: user.ID, Role: role}
}

func (f *fixture) newPoll(t *testing.T, creator domain.Identity, options ...string) *domain.PollView {
	t.Helper()

	view, err := f.pollSvc.Create(context.Background(), ports.CreatePollInput{
		Question: gofakeit.Question(),
		Options:  options,
	}, creator)
	require.NoError(t, err)
	return view
}

func (f *fixture) storedCount(t *testing.T, optionID uuid.UUID) int64 {
	t.Helper()

	var n int64
	require.NoError(t, f.db.QueryRow("SELECT vote_count FROM poll_options WHERE id = $1", optionID).Scan(&n))
	return n
}

func TestVoteEngine(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.newUser(t, domain.RoleCreator)
	voter := f.newUser(t, domain.RoleVoter)
	poll := f.newPoll(t, creator, "Opt A", "Opt B")
	optA, optB := poll.Options[0].ID, poll.Options[1].ID

	outcome, err := f.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: optA, Voter: voter})
	require.NoError(t, err)
	assert.Equal(t, domain.VoteCreated, outcome)

	outcome, err = f.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: optA, Voter: voter})
	require.NoError(t, err)
	assert.Equal(t, domain.VoteUpdated, outcome)
	assert.Equal(t, int64(1), f.storedCount(t, optA))

	_, err = f.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: optB, Voter: voter})
	require.NoError(t, err)
	assert.Equal(t, int64(0), f.storedCount(t, optA))
	assert.Equal(t, int64(1), f.storedCount(t, optB))

	var rows int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM votes WHERE poll_id = $1", poll.ID).Scan(&rows))
	assert.Equal(t, 1, rows)

	outcome, err = f.voteSvc.RemoveVote(ctx, poll.ID, voter)
	require.NoError(t, err)
	assert.Equal(t, domain.VoteRemoved, outcome)
	assert.Equal(t, int64(0), f.storedCount(t, optB))

	_, err = f.voteSvc.RemoveVote(ctx, poll.ID, voter)
	assert.ErrorIs(t, err, domain.ErrVoteNotFound)

	other := f.newPoll(t, creator, "X", "Y")
	_, err = f.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: other.Options[0].ID, Voter: voter})
	assert.ErrorIs(t, err, domain.ErrOptionMismatch)

	_, err = f.pollSvc.Close(ctx, poll.ID, creator)
	require.NoError(t, err)
	_, err = f.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: optA, Voter: voter})
	assert.ErrorIs(t, err, domain.ErrPollClosed)
}

func TestVoteEngine_Concurrent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.newUser(t, domain.RoleCreator)
	poll := f.newPoll(t, creator, "A", "B")

	const voters = 20
	identities := make([]domain.Identity, voters)
	for i := range identities {
		identities[i] = f.newUser(t, domain.RoleVoter)
	}

	var wg sync.WaitGroup
	errs := make(chan error, voters*2)
	for i, voter := range identities {
		wg.Add(1)
		go func(i int, voter domain.Identity) {
			defer wg.Done()
			for _, opt := range []int{i % 2, (i + 1) % 2} {
				if _, err := f.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: poll.Options[opt].ID, Voter: voter}); err != nil {
					errs <- err
				}
			}
		}(i, voter)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}

	total := f.storedCount(t, poll.Options[0].ID) + f.storedCount(t, poll.Options[1].ID)
	assert.Equal(t, int64(voters), total)

	corrected, err := NewTallyRepository(f.db).ReconcilePoll(ctx, poll.ID)
	require.NoError(t, err)
	assert.Zero(t, corrected)
}

func TestVoteEngine_SameVoterRace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.newUser(t, domain.RoleCreator)
	voter := f.newUser(t, domain.RoleVoter)
	poll := f.newPoll(t, creator, "A", "B", "C")

	var wg sync.WaitGroup
	for i := range 10 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: poll.Options[i%3].ID, Voter: voter})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	var rows int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM votes WHERE poll_id = $1 AND voter_id = $2", poll.ID, voter.UserID).Scan(&rows))
	assert.Equal(t, 1, rows)

	var total int64
	for _, opt := range poll.Options {
		total += f.storedCount(t, opt.ID)
	}
	assert.Equal(t, int64(1), total)
}

func TestPollLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.newUser(t, domain.RoleCreator)
	voter := f.newUser(t, domain.RoleVoter)
	poll := f.newPoll(t, creator, "A", "B")

	_, err := f.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: poll.Options[0].ID, Voter: voter})
	require.NoError(t, err)

	err = f.pollSvc.Delete(ctx, poll.ID, voter)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, f.pollSvc.Delete(ctx, poll.ID, creator))

	_, err = f.polls.GetByID(ctx, poll.ID)
	assert.ErrorIs(t, err, domain.ErrPollNotFound)

	var orphans int
	require.NoError(t, f.db.QueryRow("SELECT COUNT(*) FROM votes WHERE poll_id = $1", poll.ID).Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestPollRepository_Search(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.newUser(t, domain.RoleCreator)
	_, err := f.pollSvc.Create(ctx, ports.CreatePollInput{Question: "Best 100% coffee?", Options: []string{"a", "b"}}, creator)
	require.NoError(t, err)
	_, err = f.pollSvc.Create(ctx, ports.CreatePollInput{Question: "Best tea?", Options: []string{"a", "b"}}, creator)
	require.NoError(t, err)
	_, err = f.pollSvc.Create(ctx, ports.CreatePollInput{Question: "Secret coffee?", Options: []string{"a", "b"}, Privacy: "PRIVATE"}, creator)
	require.NoError(t, err)

	polls, total, err := f.polls.SearchPublic(ctx, "COFFEE", domain.PageRequest{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, polls, 1)
	assert.Equal(t, "Best 100% coffee?", polls[0].Question)
	assert.NotEmpty(t, polls[0].CreatorName)

	_, total, err = f.polls.SearchPublic(ctx, "%", domain.PageRequest{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = f.polls.ListPublic(ctx, domain.PageRequest{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestTallyRepository_ReconcilePoll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.newUser(t, domain.RoleCreator)
	voter := f.newUser(t, domain.RoleVoter)
	poll := f.newPoll(t, creator, "A", "B")

	_, err := f.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: poll.Options[0].ID, Voter: voter})
	require.NoError(t, err)

	_, err = f.db.Exec("UPDATE poll_options SET vote_count = 7 WHERE poll_id = $1", poll.ID)
	require.NoError(t, err)

	corrected, err := NewTallyRepository(f.db).ReconcilePoll(ctx, poll.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, corrected)
	assert.Equal(t, int64(1), f.storedCount(t, poll.Options[0].ID))
	assert.Equal(t, int64(0), f.storedCount(t, poll.Options[1].ID))
}

func TestUserRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	user := &domain.User{Name: "Dup", Email: "dup@example.com", Role: domain.RoleVoter}
	require.NoError(t, f.users.Create(ctx, user))
	assert.NotEqual(t, uuid.Nil, user.ID)

	err := f.users.Create(ctx, &domain.User{Name: "Dup 2", Email: "DUP@example.com", Role: domain.RoleVoter})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)

	missing, err := f.users.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)

	users, total, err := f.users.List(ctx, domain.PageRequest{Size: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.Equal(t, user.ID, users[0].ID)
}

func TestVoteEngine_DeletedVoter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.newUser(t, domain.RoleCreator)
	voter := f.newUser(t, domain.RoleVoter)
	poll := f.newPoll(t, creator, "Opt A", "Opt B")

	_, err := f.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", voter.UserID)
	require.NoError(t, err)

	_, err = f.voteSvc.CastVote(ctx, ports.VoteInput{PollID: poll.ID, OptionID: poll.Options[0].ID, Voter: voter})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
	assert.Zero(t, f.storedCount(t, poll.Options[0].ID))
}

func TestAuthRepository(t *testing.T) {
	f := newFixture(t)
	repo := NewAuthRepository(f.db)
	ctx := context.Background()

	owner := f.newUser(t, domain.RoleVoter)
	rt := &domain.RefreshToken{
		UserID:    owner.UserID,
		TokenHash: gofakeit.UUID(),
		ExpiresAt: time.Now().Add(time.Hour).UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, repo.StoreRefreshToken(ctx, rt))
	assert.NotEqual(t, uuid.Nil, rt.ID)
	assert.False(t, rt.CreatedAt.IsZero())

	found, err := repo.GetRefreshTokenByHash(ctx, rt.TokenHash)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, rt.ID, found.ID)
	assert.Equal(t, owner.UserID, found.UserID)
	assert.True(t, rt.ExpiresAt.Equal(found.ExpiresAt))
	assert.False(t, found.Revoked)

	missing, err := repo.GetRefreshTokenByHash(ctx, "unknown-hash")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.RevokeRefreshToken(ctx, rt.ID.String()))
	require.NoError(t, repo.RevokeRefreshToken(ctx, rt.ID.String()))
	require.NoError(t, repo.RevokeRefreshToken(ctx, uuid.NewString()))
	assert.Error(t, repo.RevokeRefreshToken(ctx, "not-a-uuid"))

	found, err = repo.GetRefreshTokenByHash(ctx, rt.TokenHash)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.Revoked)

	orphan := &domain.RefreshToken{UserID: uuid.New(), TokenHash: gofakeit.UUID(), ExpiresAt: time.Now().Add(time.Hour)}
	assert.ErrorIs(t, repo.StoreRefreshToken(ctx, orphan), domain.ErrUserNotFound)
}
