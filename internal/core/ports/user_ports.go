package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
)

//go:generate mockgen -destination=mocks/mock_user_repository.go -package=mocks . UserRepository

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	List(ctx context.Context, page domain.PageRequest) ([]domain.User, int64, error)
}

type UserService interface {
	Profile(ctx context.Context, requester domain.Identity) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, requester domain.Identity, name, email string) (*domain.User, error)
	ChangePassword(ctx context.Context, requester domain.Identity, current, next string) error
	VotingHistory(ctx context.Context, requester domain.Identity) ([]domain.Vote, error)
}

type StatsRepository interface {
	Stats(ctx context.Context) (domain.Stats, error)
}

type AdminService interface {
	Dashboard(ctx context.Context) (domain.Stats, error)
	ListUsers(ctx context.Context, page domain.PageRequest) (domain.Page[domain.User], error)
	ListPolls(ctx context.Context, page domain.PageRequest) (domain.Page[domain.PollView], error)
	UpdateRole(ctx context.Context, userID uuid.UUID, role string) (*domain.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID, requester domain.Identity) error
}
