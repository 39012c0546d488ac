package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	repo     ports.UserRepository
	pollRepo ports.PollRepository
	voteRepo ports.VoteRepository
}

func NewUserService(repo ports.UserRepository, pollRepo ports.PollRepository, voteRepo ports.VoteRepository) ports.UserService {
	return &UserService{
		repo:     repo,
		pollRepo: pollRepo,
		voteRepo: voteRepo,
	}
}

func (s *UserService) Profile(ctx context.Context, requester domain.Identity) (*domain.Profile, error) {
	user, err := s.get(ctx, requester)
	if err != nil {
		return nil, err
	}

	polls, err := s.pollRepo.CountByCreator(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count polls: %w", err)
	}
	votes, err := s.voteRepo.CountByVoter(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count votes: %w", err)
	}

	return &domain.Profile{User: *user, PollsCreated: polls, VotesCount: votes}, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, requester domain.Identity, name, email string) (*domain.User, error) {
	user, err := s.get(ctx, requester)
	if err != nil {
		return nil, err
	}

	if name = strings.TrimSpace(name); name != "" {
		user.Name = name
	}
	if email = normalizeEmail(email); email != "" && email != user.Email {
		if _, err := mail.ParseAddress(email); err != nil {
			return nil, domain.Invalid("email is invalid")
		}
		other, err := s.repo.GetByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		if other != nil {
			return nil, domain.ErrEmailTaken
		}
		user.Email = email
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

func (s *UserService) ChangePassword(ctx context.Context, requester domain.Identity, current, next string) error {
	user, err := s.get(ctx, requester)
	if err != nil {
		return err
	}

	if bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(current)) != nil {
		return domain.ErrInvalidCredentials
	}
	if len(next) < minPasswordLength {
		return domain.Invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = hash

	if err := s.repo.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (s *UserService) VotingHistory(ctx context.Context, requester domain.Identity) ([]domain.Vote, error) {
	votes, err := s.voteRepo.ListByVoter(ctx, requester.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list votes: %w", err)
	}
	if votes == nil {
		votes = []domain.Vote{}
	}
	return votes, nil
}

func (s *UserService) get(ctx context.Context, requester domain.Identity) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, requester.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}
