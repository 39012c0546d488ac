package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
)

type tallyRepository struct {
	db *sql.DB
}

func NewTallyRepository(db *sql.DB) ports.TallyRepository {
	return &tallyRepository{
		db: db,
	}
}

// ReconcilePoll takes the same locks as the vote engine, poll first and then options in id
// order, before counting live votes.
func (r *tallyRepository) ReconcilePoll(ctx context.Context, pollID uuid.UUID) (int, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var locked uuid.UUID
	if err := tx.QueryRowContext(ctx, `SELECT id FROM polls WHERE id = $1 FOR SHARE`, pollID).Scan(&locked); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to lock poll: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, vote_count FROM poll_options WHERE poll_id = $1 ORDER BY id FOR UPDATE`, pollID)
	if err != nil {
		return 0, fmt.Errorf("failed to lock options: %w", err)
	}
	stored := make(map[uuid.UUID]int64)
	var order []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		var count int64
		if err := rows.Scan(&id, &count); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan option: %w", err)
		}
		stored[id] = count
		order = append(order, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("error iterating options: %w", err)
	}

	live, err := countLiveVotes(ctx, tx, pollID)
	if err != nil {
		return 0, err
	}

	corrected := 0
	for _, id := range order {
		if stored[id] == live[id] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `UPDATE poll_options SET vote_count = $2 WHERE id = $1`, id, live[id]); err != nil {
			return 0, fmt.Errorf("failed to correct vote count: %w", err)
		}
		corrected++
	}

	if err := tx.Commit(); err != nil {
		return 0, classify(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return corrected, nil
}

func countLiveVotes(ctx context.Context, tx *sql.Tx, pollID uuid.UUID) (map[uuid.UUID]int64, error) {
	query := `
		SELECT option_id, COUNT(*)
		FROM votes
		WHERE poll_id = $1
		GROUP BY option_id
	`
	rows, err := tx.QueryContext(ctx, query, pollID)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes for poll %s: %w", pollID, err)
	}
	defer rows.Close()

	live := make(map[uuid.UUID]int64)
	for rows.Next() {
		var id uuid.UUID
		var count int64
		if err := rows.Scan(&id, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		live[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating counts: %w", err)
	}
	return live, nil
}

type statsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) ports.StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) Stats(ctx context.Context) (domain.Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM polls),
			(SELECT COUNT(*) FROM votes),
			(SELECT COUNT(*) FROM polls WHERE status = 'OPEN'),
			(SELECT COUNT(*) FROM polls WHERE status = 'CLOSED')
	`
	var s domain.Stats
	err := r.db.QueryRowContext(ctx, query).Scan(&s.TotalUsers, &s.TotalPolls, &s.TotalVotes, &s.ActivePolls, &s.ClosedPolls)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to load stats: %w", err)
	}
	return s, nil
}
