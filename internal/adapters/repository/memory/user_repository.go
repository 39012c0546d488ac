package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
)

type userRepository struct {
	s *Store
}

func NewUserRepository(store *Store) ports.UserRepository {
	return &userRepository{s: store}
}

func (r *userRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.st.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *userRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.st.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepository) Create(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.emailTaken(user.Email, uuid.Nil) {
		return domain.ErrEmailTaken
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Role == "" {
		user.Role = domain.RoleVoter
	}
	user.CreatedAt = time.Now()
	r.s.st.users[user.ID] = *user
	return nil
}

func (r *userRepository) Update(_ context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.st.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	if r.emailTaken(user.Email, user.ID) {
		return domain.ErrEmailTaken
	}
	r.s.st.users[user.ID] = *user
	return nil
}

func (r *userRepository) List(_ context.Context, page domain.PageRequest) ([]domain.User, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	users := make([]domain.User, 0, len(r.s.st.users))
	for _, u := range r.s.st.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID.String() < users[j].ID.String()
	})
	return paginate(users, page), int64(len(users)), nil
}

func (r *userRepository) emailTaken(email string, except uuid.UUID) bool {
	for id, u := range r.s.st.users {
		if id != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}
