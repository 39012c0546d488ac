package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
)

type voteService struct {
	tx       ports.Transactor
	voteRepo ports.VoteRepository
	log      *slog.Logger
	now      func() time.Time
}

func NewVoteService(tx ports.Transactor, voteRepo ports.VoteRepository, log *slog.Logger) ports.VoteService {
	return &voteService{
		tx:       tx,
		voteRepo: voteRepo,
		log:      log,
		now:      time.Now,
	}
}

func (s *voteService) CastVote(ctx context.Context, input ports.VoteInput) (domain.VoteOutcome, error) {
	const op = "services.voteService.CastVote"
	log := s.log.With(
		slog.String("op", op),
		slog.String("poll_id", input.PollID.String()),
		slog.String("voter_id", input.Voter.UserID.String()),
	)

	var outcome domain.VoteOutcome
	err := s.withRetry(ctx, log, func(ctx context.Context, tx ports.Tx) error {
		poll, err := tx.LockPoll(ctx, input.PollID, false)
		if err != nil {
			return err
		}
		if !poll.IsOpen() {
			return domain.ErrPollClosed
		}

		option, err := tx.GetOption(ctx, input.OptionID)
		if err != nil {
			return err
		}
		if option.PollID != poll.ID {
			return domain.ErrOptionMismatch
		}

		outcome, err = s.cast(ctx, tx, poll.ID, option.ID, input.Voter.UserID)
		return err
	})
	if err != nil {
		return "", err
	}

	log.Info("vote recorded", slog.String("outcome", string(outcome)), slog.String("option_id", input.OptionID.String()))
	return outcome, nil
}

// cast applies the create-or-move logic once the poll and option are known to be valid.
func (s *voteService) cast(ctx context.Context, tx ports.Tx, pollID, optionID, voterID uuid.UUID) (domain.VoteOutcome, error) {
	existing, err := tx.LockVote(ctx, pollID, voterID)
	if err != nil {
		return "", err
	}

	if existing == nil {
		vote := &domain.Vote{
			ID:       uuid.New(),
			PollID:   pollID,
			OptionID: optionID,
			VoterID:  voterID,
			CastAt:   s.now(),
		}
		inserted, err := tx.InsertVote(ctx, vote)
		if err != nil {
			return "", err
		}
		if inserted {
			if err := tx.AdjustVoteCounts(ctx, map[uuid.UUID]int64{optionID: 1}); err != nil {
				return "", err
			}
			return domain.VoteCreated, nil
		}

		// A concurrent cast by the same voter won the insert. Continue as a re-vote.
		existing, err = tx.LockVote(ctx, pollID, voterID)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return "", domain.ErrTransient
		}
	}

	if existing.OptionID == optionID {
		return domain.VoteUpdated, nil
	}

	if err := tx.UpdateVoteOption(ctx, existing.ID, optionID, s.now()); err != nil {
		return "", err
	}
	deltas := map[uuid.UUID]int64{existing.OptionID: -1, optionID: 1}
	if err := tx.AdjustVoteCounts(ctx, deltas); err != nil {
		return "", err
	}
	return domain.VoteUpdated, nil
}

func (s *voteService) RemoveVote(ctx context.Context, pollID uuid.UUID, voter domain.Identity) (domain.VoteOutcome, error) {
	const op = "services.voteService.RemoveVote"
	log := s.log.With(
		slog.String("op", op),
		slog.String("poll_id", pollID.String()),
		slog.String("voter_id", voter.UserID.String()),
	)

	err := s.withRetry(ctx, log, func(ctx context.Context, tx ports.Tx) error {
		poll, err := tx.LockPoll(ctx, pollID, false)
		if err != nil {
			return err
		}
		if !poll.IsOpen() {
			return domain.ErrPollClosed
		}

		existing, err := tx.LockVote(ctx, pollID, voter.UserID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrVoteNotFound
		}

		if err := tx.DeleteVote(ctx, existing.ID); err != nil {
			return err
		}
		return tx.AdjustVoteCounts(ctx, map[uuid.UUID]int64{existing.OptionID: -1})
	})
	if err != nil {
		return "", err
	}

	log.Info("vote removed")
	return domain.VoteRemoved, nil
}

func (s *voteService) MyVote(ctx context.Context, pollID uuid.UUID, voter domain.Identity) (*domain.Vote, error) {
	vote, err := s.voteRepo.GetVote(ctx, pollID, voter.UserID)
	if err != nil {
		return nil, err
	}
	if vote == nil {
		return nil, domain.ErrVoteNotFound
	}
	return vote, nil
}

// withRetry runs fn in a unit of work and repeats it once when the store reports contention.
func (s *voteService) withRetry(ctx context.Context, log *slog.Logger, fn func(ctx context.Context, tx ports.Tx) error) error {
	err := s.tx.WithinTx(ctx, fn)
	if !errors.Is(err, domain.ErrTransient) {
		return err
	}

	log.Warn("retrying after contention", slog.Any("error", err))
	return s.tx.WithinTx(ctx, fn)
}
