package ports

import (
	"context"

	"github.com/pollsystem/api/internal/core/domain"
)

//go:generate mockgen -destination=mocks/mock_auth.go -package=mocks . AuthRepository,TokenVerifier

type AuthRepository interface {
	StoreRefreshToken(ctx context.Context, token *domain.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id string) error
}

type TokenPayload struct {
	Email string
	Name  string
}

// TokenVerifier validates a third-party identity token.
type TokenVerifier interface {
	Verify(ctx context.Context, token string, clientID string) (*TokenPayload, error)
}

// TokenManager issues and parses the API's own access tokens.
type TokenManager interface {
	Issue(user *domain.User) (string, error)
	Parse(token string) (domain.Identity, error)
}

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type Session struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	User         *domain.User `json:"user"`
}

type AuthService interface {
	Signup(ctx context.Context, input SignupInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	LoginWithGoogle(ctx context.Context, googleToken string) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (*Session, error)
	Logout(ctx context.Context, refreshToken string) error
	Authenticate(accessToken string) (domain.Identity, error)
}
