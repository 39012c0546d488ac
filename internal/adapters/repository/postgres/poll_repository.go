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

const pollColumns = `p.id, p.creator_id, COALESCE(u.name, ''), p.question, p.privacy, p.status, p.created_at`

type pollRepository struct {
	db *sql.DB
}

func NewPollRepository(db *sql.DB) ports.PollRepository {
	return &pollRepository{
		db: db,
	}
}

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	queryPoll := `
		INSERT INTO polls (id, creator_id, question, privacy, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = tx.ExecContext(ctx, queryPoll, poll.ID, poll.CreatorID, poll.Question, poll.Privacy, poll.Status, poll.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert poll: %w", err)
	}

	queryOption := `
		INSERT INTO poll_options (id, poll_id, text, position)
		VALUES ($1, $2, $3, $4)
	`
	stmt, err := tx.PrepareContext(ctx, queryOption)
	if err != nil {
		return fmt.Errorf("failed to prepare option statement: %w", err)
	}
	defer stmt.Close()

	for _, opt := range poll.Options {
		_, err = stmt.ExecContext(ctx, opt.ID, opt.PollID, opt.Text, opt.Position)
		if err != nil {
			return fmt.Errorf("failed to insert option: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *pollRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error) {
	queryPoll := `
		SELECT ` + pollColumns + `
		FROM polls p
		LEFT JOIN users u ON u.id = p.creator_id
		WHERE p.id = $1
	`

	var poll domain.Poll
	err := r.db.QueryRowContext(ctx, queryPoll, id).Scan(
		&poll.ID, &poll.CreatorID, &poll.CreatorName, &poll.Question, &poll.Privacy, &poll.Status, &poll.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPollNotFound
		}
		return nil, fmt.Errorf("failed to get poll: %w", err)
	}

	options, err := r.fetchOptions(ctx, poll.ID)
	if err != nil {
		return nil, err
	}
	poll.Options = options

	return &poll, nil
}

func (r *pollRepository) ListPublic(ctx context.Context, page domain.PageRequest) ([]*domain.Poll, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM polls WHERE privacy = 'PUBLIC'`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count public polls: %w", err)
	}

	query := `
		SELECT ` + pollColumns + `
		FROM polls p
		LEFT JOIN users u ON u.id = p.creator_id
		WHERE p.privacy = 'PUBLIC'
		ORDER BY p.created_at DESC, p.id
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list polls: %w", err)
	}
	defer rows.Close()

	polls, err := r.scanPolls(ctx, rows)
	return polls, total, err
}

func (r *pollRepository) SearchPublic(ctx context.Context, keyword string, page domain.PageRequest) ([]*domain.Poll, int64, error) {
	pattern := likePattern(keyword)
	where := `
		FROM polls p
		LEFT JOIN users u ON u.id = p.creator_id
		WHERE p.privacy = 'PUBLIC' AND (p.question ILIKE $1 OR u.name ILIKE $1)
	`

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) `+where, pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count search results: %w", err)
	}

	query := `SELECT ` + pollColumns + where + `
		ORDER BY p.created_at DESC, p.id
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.QueryContext(ctx, query, pattern, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search polls: %w", err)
	}
	defer rows.Close()

	polls, err := r.scanPolls(ctx, rows)
	return polls, total, err
}

func (r *pollRepository) List(ctx context.Context, page domain.PageRequest) ([]*domain.Poll, int64, error) {
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM polls`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count polls: %w", err)
	}

	query := `
		SELECT ` + pollColumns + `
		FROM polls p
		LEFT JOIN users u ON u.id = p.creator_id
		ORDER BY p.created_at DESC, p.id
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, page.Size, page.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list polls: %w", err)
	}
	defer rows.Close()

	polls, err := r.scanPolls(ctx, rows)
	return polls, total, err
}

func (r *pollRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*domain.Poll, error) {
	query := `
		SELECT ` + pollColumns + `
		FROM polls p
		LEFT JOIN users u ON u.id = p.creator_id
		WHERE p.creator_id = $1
		ORDER BY p.created_at DESC, p.id
	`
	rows, err := r.db.QueryContext(ctx, query, creatorID)
	if err != nil {
		return nil, fmt.Errorf("failed to list creator polls: %w", err)
	}
	defer rows.Close()

	return r.scanPolls(ctx, rows)
}

func (r *pollRepository) CountByCreator(ctx context.Context, creatorID uuid.UUID) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM polls WHERE creator_id = $1`, creatorID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count creator polls: %w", err)
	}
	return n, nil
}

func (r *pollRepository) AllIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM polls`)
	if err != nil {
		return nil, fmt.Errorf("failed to get all polls: %w", err)
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
		return nil, fmt.Errorf("error iterating polls: %w", err)
	}
	return ids, nil
}

// scanPolls drains rows before loading options so only one connection is held at a time.
func (r *pollRepository) scanPolls(ctx context.Context, rows *sql.Rows) ([]*domain.Poll, error) {
	var polls []*domain.Poll
	for rows.Next() {
		var poll domain.Poll
		if err := rows.Scan(&poll.ID, &poll.CreatorID, &poll.CreatorName, &poll.Question, &poll.Privacy, &poll.Status, &poll.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan poll: %w", err)
		}
		polls = append(polls, &poll)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating polls: %w", err)
	}
	rows.Close()

	for _, poll := range polls {
		options, err := r.fetchOptions(ctx, poll.ID)
		if err != nil {
			return nil, err
		}
		poll.Options = options
	}
	return polls, nil
}

func (r *pollRepository) fetchOptions(ctx context.Context, pollID uuid.UUID) ([]domain.Option, error) {
	queryOptions := `
		SELECT id, poll_id, text, position, vote_count
		FROM poll_options
		WHERE poll_id = $1
		ORDER BY position, id
	`
	rows, err := r.db.QueryContext(ctx, queryOptions, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to get poll options: %w", err)
	}
	defer rows.Close()

	var options []domain.Option
	for rows.Next() {
		var opt domain.Option
		if err := rows.Scan(&opt.ID, &opt.PollID, &opt.Text, &opt.Position, &opt.VoteCount); err != nil {
			return nil, fmt.Errorf("failed to scan option: %w", err)
		}
		options = append(options, opt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating options: %w", err)
	}
	return options, nil
}
