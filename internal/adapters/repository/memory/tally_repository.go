package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
)

type tallyRepository struct {
	s *Store
}

func NewTallyRepository(store *Store) ports.TallyRepository {
	return &tallyRepository{s: store}
}

func (r *tallyRepository) ReconcilePoll(_ context.Context, pollID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	live := make(map[uuid.UUID]int64)
	for _, v := range r.s.st.votes {
		if v.PollID == pollID {
			live[v.OptionID]++
		}
	}

	corrected := 0
	for _, opt := range r.s.st.optionsOf(pollID) {
		if opt.VoteCount != live[opt.ID] {
			opt.VoteCount = live[opt.ID]
			r.s.st.options[opt.ID] = opt
			corrected++
		}
	}
	return corrected, nil
}

type statsRepository struct {
	s *Store
}

func NewStatsRepository(store *Store) ports.StatsRepository {
	return &statsRepository{s: store}
}

func (r *statsRepository) Stats(_ context.Context) (domain.Stats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stats := domain.Stats{
		TotalUsers: int64(len(r.s.st.users)),
		TotalPolls: int64(len(r.s.st.polls)),
		TotalVotes: int64(len(r.s.st.votes)),
	}
	for _, p := range r.s.st.polls {
		if p.IsOpen() {
			stats.ActivePolls++
		} else {
			stats.ClosedPolls++
		}
	}
	return stats, nil
}
