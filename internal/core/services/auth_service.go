package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

type AuthConfig struct {
	RefreshTTL          time.Duration
	GoogleClientID      string
	BootstrapAdminEmail string
}

type AuthService struct {
	userRepo            ports.UserRepository
	authRepo            ports.AuthRepository
	googleTokenVerifier ports.TokenVerifier
	tokens              ports.TokenManager
	cfg                 AuthConfig
	log                 *slog.Logger
}

func NewAuthService(
	userRepo ports.UserRepository,
	authRepo ports.AuthRepository,
	googleTokenVerifier ports.TokenVerifier,
	tokens ports.TokenManager,
	cfg AuthConfig,
	log *slog.Logger,
) *AuthService {
	if cfg.RefreshTTL == 0 {
		cfg.RefreshTTL = 7 * 24 * time.Hour
	}
	return &AuthService{
		userRepo:            userRepo,
		authRepo:            authRepo,
		googleTokenVerifier: googleTokenVerifier,
		tokens:              tokens,
		cfg:                 cfg,
		log:                 log,
	}
}

func (s *AuthService) Signup(ctx context.Context, input ports.SignupInput) (*domain.User, error) {
	const op = "services.AuthService.Signup"
	log := s.log.With(slog.String("op", op))

	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" {
		return nil, domain.Invalid("name is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, domain.Invalid("email is invalid")
	}
	if len(input.Password) < minPasswordLength {
		return nil, domain.Invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	role, err := s.signupRole(email, input.Role)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if existing != nil {
		return nil, domain.ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to hash password: %w", op, err)
	}

	user := &domain.User{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", slog.String("user_id", user.ID.String()), slog.String("role", string(role)))
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.Session, error) {
	const op = "services.AuthService.Login"

	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user == nil || len(user.PasswordHash) == 0 {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(password)); err != nil {
		s.log.Info("invalid credentials", slog.String("op", op))
		return nil, domain.ErrInvalidCredentials
	}

	return s.newSession(ctx, user)
}

func (s *AuthService) LoginWithGoogle(ctx context.Context, googleToken string) (*ports.Session, error) {
	const op = "services.AuthService.LoginWithGoogle"

	payload, err := s.googleTokenVerifier.Verify(ctx, googleToken, s.cfg.GoogleClientID)
	if err != nil {
		s.log.Warn("google token rejected", slog.String("op", op), slog.Any("error", err))
		return nil, domain.ErrInvalidToken
	}

	email := normalizeEmail(payload.Email)
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}

	if user == nil {
		user = &domain.User{
			Email: email,
			Name:  payload.Name,
			Role:  domain.RoleVoter,
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, fmt.Errorf("%s: failed to create user: %w", op, err)
		}
	}

	return s.newSession(ctx, user)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*ports.Session, error) {
	const op = "services.AuthService.Refresh"
	tokenHash := hashToken(refreshToken)

	rtEntity, err := s.authRepo.GetRefreshTokenByHash(ctx, tokenHash)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get refresh token: %w", op, err)
	}
	if rtEntity == nil || rtEntity.Revoked || rtEntity.ExpiresAt.Before(time.Now()) {
		return nil, domain.ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, rtEntity.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to get user: %w", op, err)
	}
	if user == nil {
		return nil, domain.ErrInvalidToken
	}

	accessToken, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to generate access token: %w", op, err)
	}

	return &ports.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		User:         user,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	tokenHash := hashToken(refreshToken)

	rtEntity, err := s.authRepo.GetRefreshTokenByHash(ctx, tokenHash)
	if err != nil {
		return fmt.Errorf("failed to get refresh token: %w", err)
	}
	if rtEntity == nil {
		return nil
	}

	return s.authRepo.RevokeRefreshToken(ctx, rtEntity.ID.String())
}

func (s *AuthService) Authenticate(accessToken string) (domain.Identity, error) {
	identity, err := s.tokens.Parse(accessToken)
	if err != nil {
		return domain.Identity{}, domain.ErrInvalidToken
	}
	return identity, nil
}

func (s *AuthService) signupRole(email, requested string) (domain.Role, error) {
	if requested == "" {
		requested = string(domain.RoleVoter)
	}
	role, err := domain.ParseRole(requested)
	if err != nil {
		return "", err
	}
	if role == domain.RoleAdmin && (s.cfg.BootstrapAdminEmail == "" || !strings.EqualFold(email, s.cfg.BootstrapAdminEmail)) {
		return "", domain.ErrForbidden
	}
	return role, nil
}

func (s *AuthService) newSession(ctx context.Context, user *domain.User) (*ports.Session, error) {
	accessToken, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	refreshToken, err := generateRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	rtEntity := &domain.RefreshToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: hashToken(refreshToken),
		ExpiresAt: time.Now().Add(s.cfg.RefreshTTL),
	}
	if err := s.authRepo.StoreRefreshToken(ctx, rtEntity); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &ports.Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		User:         user,
	}, nil
}

func generateRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

func hashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
