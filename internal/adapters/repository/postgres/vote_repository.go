package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
)

type voteRepository struct {
	db *sql.DB
}

func NewVoteRepository(db *sql.DB) ports.VoteRepository {
	return &voteRepository{
		db: db,
	}
}

func (r *voteRepository) HasVoted(ctx context.Context, pollID uuid.UUID, voterID uuid.UUID) (bool, error) {
	query := `SELECT 1 FROM votes WHERE poll_id = $1 AND voter_id = $2 LIMIT 1`
	var exists int
	err := r.db.QueryRowContext(ctx, query, pollID, voterID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check existing vote: %w", err)
	}
	return true, nil
}

func (r *voteRepository) GetVote(ctx context.Context, pollID, voterID uuid.UUID) (*domain.Vote, error) {
	query := `
		SELECT id, poll_id, option_id, voter_id, cast_at
		FROM votes
		WHERE poll_id = $1 AND voter_id = $2
	`
	var v domain.Vote
	err := r.db.QueryRowContext(ctx, query, pollID, voterID).Scan(&v.ID, &v.PollID, &v.OptionID, &v.VoterID, &v.CastAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get vote: %w", err)
	}
	return &v, nil
}

func (r *voteRepository) ListByVoter(ctx context.Context, voterID uuid.UUID) ([]domain.Vote, error) {
	query := `
		SELECT id, poll_id, option_id, voter_id, cast_at
		FROM votes
		WHERE voter_id = $1
		ORDER BY cast_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, voterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	defer rows.Close()

	return scanVotes(rows)
}

func (r *voteRepository) CountByVoter(ctx context.Context, voterID uuid.UUID) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM votes WHERE voter_id = $1`, voterID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count votes: %w", err)
	}
	return n, nil
}
