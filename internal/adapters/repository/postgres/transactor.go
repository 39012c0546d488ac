package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
)

const lockTimeout = "5s"

type transactor struct {
	db *sql.DB
}

func NewTransactor(db *sql.DB) ports.Transactor {
	return &transactor{db: db}
}

func (t *transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return classify(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "SET LOCAL lock_timeout = '"+lockTimeout+"'"); err != nil {
		return classify(fmt.Errorf("failed to set lock timeout: %w", err))
	}

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return classify(err)
	}

	if err := tx.Commit(); err != nil {
		return classify(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) LockPoll(ctx context.Context, pollID uuid.UUID, forUpdate bool) (*domain.Poll, error) {
	query := `
		SELECT id, creator_id, question, privacy, status, created_at
		FROM polls
		WHERE id = $1
		FOR SHARE
	`
	if forUpdate {
		query = `
		SELECT id, creator_id, question, privacy, status, created_at
		FROM polls
		WHERE id = $1
		FOR UPDATE
	`
	}

	var poll domain.Poll
	err := t.tx.QueryRowContext(ctx, query, pollID).Scan(
		&poll.ID, &poll.CreatorID, &poll.Question, &poll.Privacy, &poll.Status, &poll.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to lock poll: %w", err)
	}
	return &poll, nil
}

func (t *pgTx) GetOption(ctx context.Context, optionID uuid.UUID) (*domain.Option, error) {
	query := `SELECT id, poll_id, text, position, vote_count FROM poll_options WHERE id = $1`

	var opt domain.Option
	err := t.tx.QueryRowContext(ctx, query, optionID).Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.Position, &opt.VoteCount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOptionNotFound
		}
		return nil, fmt.Errorf("failed to get option: %w", err)
	}
	return &opt, nil
}

func (t *pgTx) LockVote(ctx context.Context, pollID, voterID uuid.UUID) (*domain.Vote, error) {
	query := `
		SELECT id, poll_id, option_id, voter_id, cast_at
		FROM votes
		WHERE poll_id = $1 AND voter_id = $2
		FOR UPDATE
	`

	var v domain.Vote
	err := t.tx.QueryRowContext(ctx, query, pollID, voterID).Scan(&v.ID, &v.PollID, &v.OptionID, &v.VoterID, &v.CastAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock vote: %w", err)
	}
	return &v, nil
}

func (t *pgTx) InsertVote(ctx context.Context, vote *domain.Vote) (bool, error) {
	query := `
		INSERT INTO votes (id, poll_id, option_id, voter_id, cast_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (poll_id, voter_id) DO NOTHING
		RETURNING id
	`

	var id uuid.UUID
	err := t.tx.QueryRowContext(ctx, query, vote.ID, vote.PollID, vote.OptionID, vote.VoterID, vote.CastAt).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		if isForeignKeyViolation(err, "votes_voter_id_fkey") {
			return false, domain.ErrUserNotFound
		}
		return false, fmt.Errorf("failed to insert vote: %w", err)
	}
	return true, nil
}

func (t *pgTx) UpdateVoteOption(ctx context.Context, voteID, optionID uuid.UUID, castAt time.Time) error {
	query := `UPDATE votes SET option_id = $2, cast_at = $3 WHERE id = $1`
	res, err := t.tx.ExecContext(ctx, query, voteID, optionID, castAt)
	if err != nil {
		return fmt.Errorf("failed to update vote: %w", err)
	}
	return expectRow(res, domain.ErrVoteNotFound)
}

func (t *pgTx) DeleteVote(ctx context.Context, voteID uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM votes WHERE id = $1`, voteID)
	if err != nil {
		return fmt.Errorf("failed to delete vote: %w", err)
	}
	return expectRow(res, domain.ErrVoteNotFound)
}

func (t *pgTx) LockVotesByVoter(ctx context.Context, voterID uuid.UUID) ([]domain.Vote, error) {
	query := `
		SELECT id, poll_id, option_id, voter_id, cast_at
		FROM votes
		WHERE voter_id = $1
		ORDER BY id
		FOR UPDATE
	`
	rows, err := t.tx.QueryContext(ctx, query, voterID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock votes: %w", err)
	}
	defer rows.Close()

	return scanVotes(rows)
}

// AdjustVoteCounts updates counters in ascending id order so that two units of work touching
// the same options always lock them in the same order.
func (t *pgTx) AdjustVoteCounts(ctx context.Context, deltas map[uuid.UUID]int64) error {
	ids := make([]uuid.UUID, 0, len(deltas))
	for id := range deltas {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int {
		return slices.Compare(a[:], b[:])
	})

	query := `UPDATE poll_options SET vote_count = GREATEST(vote_count + $2, 0) WHERE id = $1`
	for _, id := range ids {
		res, err := t.tx.ExecContext(ctx, query, id, deltas[id])
		if err != nil {
			return fmt.Errorf("failed to adjust vote count: %w", err)
		}
		if err := expectRow(res, domain.ErrOptionNotFound); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) SetPollStatus(ctx context.Context, pollID uuid.UUID, status domain.PollStatus) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE polls SET status = $2 WHERE id = $1`, pollID, status)
	if err != nil {
		return fmt.Errorf("failed to update poll status: %w", err)
	}
	return expectRow(res, domain.ErrPollNotFound)
}

func (t *pgTx) DeletePollCascade(ctx context.Context, pollID uuid.UUID) error {
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM votes WHERE poll_id = $1`, pollID); err != nil {
		return fmt.Errorf("failed to delete poll votes: %w", err)
	}
	if _, err := t.tx.ExecContext(ctx, `DELETE FROM poll_options WHERE poll_id = $1`, pollID); err != nil {
		return fmt.Errorf("failed to delete poll options: %w", err)
	}
	res, err := t.tx.ExecContext(ctx, `DELETE FROM polls WHERE id = $1`, pollID)
	if err != nil {
		return fmt.Errorf("failed to delete poll: %w", err)
	}
	return expectRow(res, domain.ErrPollNotFound)
}

func (t *pgTx) PollIDsByCreator(ctx context.Context, creatorID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT id FROM polls WHERE creator_id = $1 ORDER BY id FOR UPDATE`
	rows, err := t.tx.QueryContext(ctx, query, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock creator polls: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan poll id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating poll ids: %w", err)
	}
	return ids, nil
}

func (t *pgTx) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectRow(res, domain.ErrUserNotFound)
}

func expectRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func scanVotes(rows *sql.Rows) ([]domain.Vote, error) {
	var votes []domain.Vote
	for rows.Next() {
		var v domain.Vote
		if err := rows.Scan(&v.ID, &v.PollID, &v.OptionID, &v.VoterID, &v.CastAt); err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}
		votes = append(votes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating votes: %w", err)
	}
	return votes, nil
}
