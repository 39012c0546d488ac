package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
)

type PollRepository interface {
	Save(ctx context.Context, poll *domain.Poll) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Poll, error)
	ListPublic(ctx context.Context, page domain.PageRequest) ([]*domain.Poll, int64, error)
	SearchPublic(ctx context.Context, keyword string, page domain.PageRequest) ([]*domain.Poll, int64, error)
	List(ctx context.Context, page domain.PageRequest) ([]*domain.Poll, int64, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]*domain.Poll, error)
	CountByCreator(ctx context.Context, creatorID uuid.UUID) (int64, error)
	AllIDs(ctx context.Context) ([]uuid.UUID, error)
}

type CreatePollInput struct {
	Question string
	Options  []string
	Privacy  string
}

type PollService interface {
	Create(ctx context.Context, input CreatePollInput, requester domain.Identity) (*domain.PollView, error)
	Get(ctx context.Context, id uuid.UUID, viewer *domain.Identity) (*domain.PollView, error)
	ListPublic(ctx context.Context, page domain.PageRequest, viewer *domain.Identity) (domain.Page[domain.PollView], error)
	SearchPublic(ctx context.Context, keyword string, page domain.PageRequest, viewer *domain.Identity) (domain.Page[domain.PollView], error)
	ListMine(ctx context.Context, requester domain.Identity) ([]domain.PollView, error)
	Close(ctx context.Context, id uuid.UUID, requester domain.Identity) (*domain.PollView, error)
	Delete(ctx context.Context, id uuid.UUID, requester domain.Identity) error
}
