package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/pollsystem/api/internal/core/ports"
	"golang.org/x/sync/errgroup"
)

// DefaultReconcileWorkers bounds how many polls are reconciled at once when no limit is given.
const DefaultReconcileWorkers = 8

type reconcileService struct {
	pollRepo  ports.PollRepository
	tallyRepo ports.TallyRepository
	workers   int
	log       *slog.Logger
}

// NewReconcileService builds the reconciliation job. At most workers polls are reconciled
// concurrently; a non-positive value selects DefaultReconcileWorkers.
func NewReconcileService(pollRepo ports.PollRepository, tallyRepo ports.TallyRepository, workers int, log *slog.Logger) ports.ReconcileService {
	if workers <= 0 {
		workers = DefaultReconcileWorkers
	}
	return &reconcileService{
		pollRepo:  pollRepo,
		tallyRepo: tallyRepo,
		workers:   workers,
		log:       log,
	}
}

// ReconcileAll checks every poll's counters against its live votes and returns the number of
// counters that had drifted and were rewritten. The first failure cancels the remaining polls.
func (s *reconcileService) ReconcileAll(ctx context.Context) (int, error) {
	const op = "services.reconcileService.ReconcileAll"

	ids, err := s.pollRepo.AllIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch all polls: %w", err)
	}

	var corrected atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	for _, id := range ids {
		g.Go(func() error {
			n, err := s.tallyRepo.ReconcilePoll(gctx, id)
			if err != nil {
				return fmt.Errorf("failed to reconcile poll %s: %w", id, err)
			}
			if n > 0 {
				s.log.Warn("counter drift corrected", slog.String("op", op), slog.String("poll_id", id.String()), slog.Int("options", n))
			}
			corrected.Add(int64(n))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(corrected.Load()), err
	}

	s.log.Info("reconciliation finished", slog.String("op", op), slog.Int("polls", len(ids)), slog.Int64("corrected", corrected.Load()))
	return int(corrected.Load()), nil
}
