// Package memory keeps all state in process memory. It implements the same ports as the
// postgres adapter and is meant for local runs and tests.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
)

type state struct {
	users   map[uuid.UUID]domain.User
	polls   map[uuid.UUID]domain.Poll
	options map[uuid.UUID]domain.Option
	votes   map[uuid.UUID]domain.Vote
	tokens  map[uuid.UUID]domain.RefreshToken
}

func newState() *state {
	return &state{
		users:   make(map[uuid.UUID]domain.User),
		polls:   make(map[uuid.UUID]domain.Poll),
		options: make(map[uuid.UUID]domain.Option),
		votes:   make(map[uuid.UUID]domain.Vote),
		tokens:  make(map[uuid.UUID]domain.RefreshToken),
	}
}

func (s *state) clone() *state {
	return &state{
		users:   maps.Clone(s.users),
		polls:   maps.Clone(s.polls),
		options: maps.Clone(s.options),
		votes:   maps.Clone(s.votes),
		tokens:  maps.Clone(s.tokens),
	}
}

// Store guards a single state with one mutex. A unit of work holds the mutex for its whole
// duration, so units of work are serialized.
type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

func NewTransactor(store *Store) ports.Transactor {
	return store
}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx ports.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(ctx, &memTx{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	if err := ctx.Err(); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *state) pollWithOptions(id uuid.UUID) (*domain.Poll, bool) {
	poll, ok := s.polls[id]
	if !ok {
		return nil, false
	}
	if creator, ok := s.users[poll.CreatorID]; ok {
		poll.CreatorName = creator.Name
	}
	poll.Options = s.optionsOf(id)
	return &poll, true
}

func (s *state) optionsOf(pollID uuid.UUID) []domain.Option {
	var opts []domain.Option
	for _, opt := range s.options {
		if opt.PollID == pollID {
			opts = append(opts, opt)
		}
	}
	sort.Slice(opts, func(i, j int) bool {
		return opts[i].Position < opts[j].Position
	})
	return opts
}

// sortedPolls returns the polls accepted by keep, newest first.
func (s *state) sortedPolls(keep func(*domain.Poll) bool) []*domain.Poll {
	var out []*domain.Poll
	for id := range s.polls {
		poll, _ := s.pollWithOptions(id)
		if keep(poll) {
			out = append(out, poll)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func paginate[T any](items []T, page domain.PageRequest) []T {
	start := page.Offset()
	if start >= len(items) {
		return nil
	}
	end := start + page.Size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
