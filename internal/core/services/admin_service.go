package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
)

type adminService struct {
	tx    ports.Transactor
	users ports.UserRepository
	polls ports.PollRepository
	stats ports.StatsRepository
	log   *slog.Logger
}

func NewAdminService(tx ports.Transactor, users ports.UserRepository, polls ports.PollRepository, stats ports.StatsRepository, log *slog.Logger) ports.AdminService {
	return &adminService{
		tx:    tx,
		users: users,
		polls: polls,
		stats: stats,
		log:   log,
	}
}

func (s *adminService) Dashboard(ctx context.Context) (domain.Stats, error) {
	stats, err := s.stats.Stats(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("failed to load stats: %w", err)
	}
	return stats, nil
}

func (s *adminService) ListUsers(ctx context.Context, page domain.PageRequest) (domain.Page[domain.User], error) {
	page = page.Normalize()
	users, total, err := s.users.List(ctx, page)
	if err != nil {
		return domain.Page[domain.User]{}, fmt.Errorf("failed to list users: %w", err)
	}
	return domain.NewPage(users, page, total), nil
}

func (s *adminService) ListPolls(ctx context.Context, page domain.PageRequest) (domain.Page[domain.PollView], error) {
	page = page.Normalize()
	polls, total, err := s.polls.List(ctx, page)
	if err != nil {
		return domain.Page[domain.PollView]{}, fmt.Errorf("failed to list polls: %w", err)
	}

	views := make([]domain.PollView, 0, len(polls))
	for _, poll := range polls {
		views = append(views, Present(poll, poll.Options, nil, nil))
	}
	return domain.NewPage(views, page, total), nil
}

func (s *adminService) UpdateRole(ctx context.Context, userID uuid.UUID, role string) (*domain.User, error) {
	const op = "services.adminService.UpdateRole"

	parsed, err := domain.ParseRole(role)
	if err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	user.Role = parsed
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("role updated", slog.String("op", op), slog.String("user_id", userID.String()), slog.String("role", string(parsed)))
	return user, nil
}

// DeleteUser removes the polls the user created, withdraws their remaining votes and deletes the
// user in one unit of work.
func (s *adminService) DeleteUser(ctx context.Context, userID uuid.UUID, requester domain.Identity) error {
	const op = "services.adminService.DeleteUser"

	if userID == requester.UserID {
		return domain.Invalid("administrators cannot delete their own account")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if user == nil {
		return domain.ErrUserNotFound
	}

	var withdrawn, removed int
	err = s.tx.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		withdrawn, removed = 0, 0

		pollIDs, err := tx.PollIDsByCreator(ctx, userID)
		if err != nil {
			return err
		}
		for _, pollID := range pollIDs {
			if err := tx.DeletePollCascade(ctx, pollID); err != nil {
				return err
			}
			removed++
		}

		votes, err := tx.LockVotesByVoter(ctx, userID)
		if err != nil {
			return err
		}
		deltas := make(map[uuid.UUID]int64, len(votes))
		for _, v := range votes {
			if err := tx.DeleteVote(ctx, v.ID); err != nil {
				return err
			}
			deltas[v.OptionID]--
			withdrawn++
		}
		if len(deltas) > 0 {
			if err := tx.AdjustVoteCounts(ctx, deltas); err != nil {
				return err
			}
		}

		return tx.DeleteUser(ctx, userID)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("user deleted",
		slog.String("op", op),
		slog.String("user_id", userID.String()),
		slog.Int("polls_removed", removed),
		slog.Int("votes_withdrawn", withdrawn),
	)
	return nil
}
