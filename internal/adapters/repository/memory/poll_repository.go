package memory

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
)

type pollRepository struct {
	s *Store
}

func NewPollRepository(store *Store) ports.PollRepository {
	return &pollRepository{s: store}
}

func (r *pollRepository) Save(ctx context.Context, poll *domain.Poll) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored := *poll
	stored.Options = nil
	stored.CreatorName = ""
	r.s.st.polls[poll.ID] = stored
	for _, opt := range poll.Options {
		r.s.st.options[opt.ID] = opt
	}
	return nil
}

func (r *pollRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Poll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	poll, ok := r.s.st.pollWithOptions(id)
	if !ok {
		return nil, domain.ErrPollNotFound
	}
	return poll, nil
}

func (r *pollRepository) ListPublic(_ context.Context, page domain.PageRequest) ([]*domain.Poll, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	polls := r.s.st.sortedPolls(func(p *domain.Poll) bool {
		return p.Privacy == domain.PollPrivacyPublic
	})
	return paginate(polls, page), int64(len(polls)), nil
}

func (r *pollRepository) SearchPublic(_ context.Context, keyword string, page domain.PageRequest) ([]*domain.Poll, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	keyword = strings.ToLower(keyword)
	polls := r.s.st.sortedPolls(func(p *domain.Poll) bool {
		return p.Privacy == domain.PollPrivacyPublic &&
			(strings.Contains(strings.ToLower(p.Question), keyword) ||
				strings.Contains(strings.ToLower(p.CreatorName), keyword))
	})
	return paginate(polls, page), int64(len(polls)), nil
}

func (r *pollRepository) List(_ context.Context, page domain.PageRequest) ([]*domain.Poll, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	polls := r.s.st.sortedPolls(func(*domain.Poll) bool { return true })
	return paginate(polls, page), int64(len(polls)), nil
}

func (r *pollRepository) ListByCreator(_ context.Context, creatorID uuid.UUID) ([]*domain.Poll, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	return r.s.st.sortedPolls(func(p *domain.Poll) bool {
		return p.CreatorID == creatorID
	}), nil
}

func (r *pollRepository) CountByCreator(_ context.Context, creatorID uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, p := range r.s.st.polls {
		if p.CreatorID == creatorID {
			n++
		}
	}
	return n, nil
}

func (r *pollRepository) AllIDs(_ context.Context) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(r.s.st.polls))
	for id := range r.s.st.polls {
		ids = append(ids, id)
	}
	return ids, nil
}
