package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
)

type authRepository struct {
	s *Store
}

func NewAuthRepository(store *Store) ports.AuthRepository {
	return &authRepository{s: store}
}

func (r *authRepository) StoreRefreshToken(_ context.Context, token *domain.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}
	token.CreatedAt = time.Now()
	r.s.st.tokens[token.ID] = *token
	return nil
}

func (r *authRepository) GetRefreshTokenByHash(_ context.Context, tokenHash string) (*domain.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, t := range r.s.st.tokens {
		if t.TokenHash == tokenHash {
			return &t, nil
		}
	}
	return nil, nil
}

func (r *authRepository) RevokeRefreshToken(_ context.Context, id string) error {
	tokenID, err := uuid.Parse(id)
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.st.tokens[tokenID]
	if !ok {
		return nil
	}
	t.Revoked = true
	r.s.st.tokens[tokenID] = t
	return nil
}
