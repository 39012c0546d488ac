package ports

import (
	"context"

	"github.com/google/uuid"
)

type TallyRepository interface {
	// ReconcilePoll rewrites every option counter of the poll that differs from the number of
	// live votes referencing the option and returns how many counters it corrected.
	ReconcilePoll(ctx context.Context, pollID uuid.UUID) (int, error)
}

type ReconcileService interface {
	ReconcileAll(ctx context.Context) (int, error)
}
