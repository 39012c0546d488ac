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

const refreshTokenColumns = `id, user_id, token_hash, expires_at, revoked, created_at`

// TokenRepository persists hashed refresh tokens. Raw token values never reach the database.
type TokenRepository struct {
	db *sql.DB
}

func NewAuthRepository(db *sql.DB) ports.AuthRepository {
	return &TokenRepository{db: db}
}

// StoreRefreshToken inserts the token, assigning an ID when the caller left it empty.
// A token for a user that no longer exists yields domain.ErrUserNotFound.
func (r *TokenRepository) StoreRefreshToken(ctx context.Context, rt *domain.RefreshToken) error {
	const op = "postgres.TokenRepository.StoreRefreshToken"

	if rt.ID == uuid.Nil {
		rt.ID = uuid.New()
	}

	query := `
		INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query, rt.ID, rt.UserID, rt.TokenHash, rt.ExpiresAt, rt.Revoked).Scan(&rt.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err, "refresh_tokens_user_id_fkey") {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// GetRefreshTokenByHash returns nil without an error when no token has the hash.
func (r *TokenRepository) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	const op = "postgres.TokenRepository.GetRefreshTokenByHash"

	query := `SELECT ` + refreshTokenColumns + ` FROM refresh_tokens WHERE token_hash = $1`

	var rt domain.RefreshToken
	err := r.db.QueryRowContext(ctx, query, tokenHash).Scan(
		&rt.ID,
		&rt.UserID,
		&rt.TokenHash,
		&rt.ExpiresAt,
		&rt.Revoked,
		&rt.CreatedAt,
	)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &rt, nil
}

// RevokeRefreshToken marks the token revoked. Revoking an unknown or already revoked token is a no-op.
func (r *TokenRepository) RevokeRefreshToken(ctx context.Context, id string) error {
	const op = "postgres.TokenRepository.RevokeRefreshToken"

	tokenID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%s: invalid token id %q: %w", op, id, err)
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE refresh_tokens SET revoked = TRUE WHERE id = $1 AND NOT revoked`, tokenID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
