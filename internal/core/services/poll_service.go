package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
)

type pollService struct {
	tx       ports.Transactor
	repo     ports.PollRepository
	voteRepo ports.VoteRepository
	log      *slog.Logger
}

func NewPollService(tx ports.Transactor, repo ports.PollRepository, voteRepo ports.VoteRepository, log *slog.Logger) ports.PollService {
	return &pollService{
		tx:       tx,
		repo:     repo,
		voteRepo: voteRepo,
		log:      log,
	}
}

func (s *pollService) Create(ctx context.Context, input ports.CreatePollInput, requester domain.Identity) (*domain.PollView, error) {
	const op = "services.pollService.Create"

	if !requester.HasAnyRole(domain.RoleCreator, domain.RoleAdmin) {
		return nil, domain.ErrForbidden
	}

	question := strings.TrimSpace(input.Question)
	if question == "" {
		return nil, domain.Invalid("question is required")
	}
	if utf8.RuneCountInString(question) > domain.MaxQuestionLength {
		return nil, domain.Invalid(fmt.Sprintf("question must be at most %d characters", domain.MaxQuestionLength))
	}

	privacy, err := domain.ParsePrivacy(input.Privacy)
	if err != nil {
		return nil, err
	}

	pollID := uuid.New()
	now := time.Now()

	poll := &domain.Poll{
		ID:        pollID,
		CreatorID: requester.UserID,
		Question:  question,
		Privacy:   privacy,
		Status:    domain.PollStatusOpen,
		CreatedAt: now,
	}

	for _, optText := range input.Options {
		optText = strings.TrimSpace(optText)
		if optText == "" {
			continue
		}
		if utf8.RuneCountInString(optText) > domain.MaxOptionLength {
			return nil, domain.Invalid(fmt.Sprintf("option must be at most %d characters", domain.MaxOptionLength))
		}
		poll.Options = append(poll.Options, domain.Option{
			ID:       uuid.New(),
			PollID:   pollID,
			Text:     optText,
			Position: len(poll.Options),
		})
	}

	if len(poll.Options) < domain.MinPollOptions || len(poll.Options) > domain.MaxPollOptions {
		return nil, domain.Invalid(fmt.Sprintf("a poll needs between %d and %d options", domain.MinPollOptions, domain.MaxPollOptions))
	}

	if err := s.repo.Save(ctx, poll); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("poll created", slog.String("op", op), slog.String("poll_id", pollID.String()), slog.Int("options", len(poll.Options)))

	return s.Get(ctx, pollID, &requester)
}

func (s *pollService) Get(ctx context.Context, id uuid.UUID, viewer *domain.Identity) (*domain.PollView, error) {
	poll, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	view, err := s.present(ctx, poll, viewer)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (s *pollService) ListPublic(ctx context.Context, page domain.PageRequest, viewer *domain.Identity) (domain.Page[domain.PollView], error) {
	const op = "services.pollService.ListPublic"

	page = page.Normalize()
	polls, total, err := s.repo.ListPublic(ctx, page)
	if err != nil {
		return domain.Page[domain.PollView]{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.page(ctx, polls, page, total, viewer)
}

func (s *pollService) SearchPublic(ctx context.Context, keyword string, page domain.PageRequest, viewer *domain.Identity) (domain.Page[domain.PollView], error) {
	const op = "services.pollService.SearchPublic"

	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return s.ListPublic(ctx, page, viewer)
	}

	page = page.Normalize()
	polls, total, err := s.repo.SearchPublic(ctx, keyword, page)
	if err != nil {
		return domain.Page[domain.PollView]{}, fmt.Errorf("%s: %w", op, err)
	}
	return s.page(ctx, polls, page, total, viewer)
}

func (s *pollService) ListMine(ctx context.Context, requester domain.Identity) ([]domain.PollView, error) {
	const op = "services.pollService.ListMine"

	polls, err := s.repo.ListByCreator(ctx, requester.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	views := make([]domain.PollView, 0, len(polls))
	for _, poll := range polls {
		view, err := s.present(ctx, poll, &requester)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

func (s *pollService) Close(ctx context.Context, id uuid.UUID, requester domain.Identity) (*domain.PollView, error) {
	const op = "services.pollService.Close"

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		poll, err := tx.LockPoll(ctx, id, true)
		if err != nil {
			return err
		}
		if !requester.CanManage(poll.CreatorID) {
			return domain.ErrForbidden
		}
		if !poll.IsOpen() {
			return nil
		}
		return tx.SetPollStatus(ctx, id, domain.PollStatusClosed)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("poll closed", slog.String("op", op), slog.String("poll_id", id.String()), slog.String("by", requester.UserID.String()))

	return s.Get(ctx, id, &requester)
}

func (s *pollService) Delete(ctx context.Context, id uuid.UUID, requester domain.Identity) error {
	const op = "services.pollService.Delete"

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx ports.Tx) error {
		poll, err := tx.LockPoll(ctx, id, true)
		if err != nil {
			return err
		}
		if !requester.CanManage(poll.CreatorID) {
			return domain.ErrForbidden
		}
		return tx.DeletePollCascade(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info("poll deleted", slog.String("op", op), slog.String("poll_id", id.String()), slog.String("by", requester.UserID.String()))
	return nil
}

func (s *pollService) page(ctx context.Context, polls []*domain.Poll, page domain.PageRequest, total int64, viewer *domain.Identity) (domain.Page[domain.PollView], error) {
	views := make([]domain.PollView, 0, len(polls))
	for _, poll := range polls {
		view, err := s.present(ctx, poll, viewer)
		if err != nil {
			return domain.Page[domain.PollView]{}, err
		}
		views = append(views, view)
	}
	return domain.NewPage(views, page, total), nil
}

func (s *pollService) present(ctx context.Context, poll *domain.Poll, viewer *domain.Identity) (domain.PollView, error) {
	var hasVoted *bool
	if viewer != nil {
		voted, err := s.voteRepo.HasVoted(ctx, poll.ID, viewer.UserID)
		if err != nil {
			return domain.PollView{}, fmt.Errorf("failed to check vote: %w", err)
		}
		hasVoted = &voted
	}
	return Present(poll, poll.Options, nil, hasVoted), nil
}
