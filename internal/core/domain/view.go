package domain

import (
	"time"

	"github.com/google/uuid"
)

type OptionView struct {
	ID         uuid.UUID `json:"id"`
	Text       string    `json:"text"`
	VoteCount  int64     `json:"vote_count"`
	Percentage float64   `json:"percentage"`
}

// PollView is the presentable form of a poll. HasVoted is nil for anonymous viewers.
type PollView struct {
	ID          uuid.UUID    `json:"id"`
	Question    string       `json:"question"`
	Privacy     PollPrivacy  `json:"privacy"`
	Status      PollStatus   `json:"status"`
	CreatorID   uuid.UUID    `json:"creator_id"`
	CreatorName string       `json:"creator_name"`
	CreatedAt   time.Time    `json:"created_at"`
	Options     []OptionView `json:"options"`
	TotalVotes  int64        `json:"total_votes"`
	HasVoted    *bool        `json:"has_voted,omitempty"`
}

type PageRequest struct {
	Page int
	Size int
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Normalize clamps the request to a valid page.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	return p
}

func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
}

func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}

type Stats struct {
	TotalUsers  int64 `json:"total_users"`
	TotalPolls  int64 `json:"total_polls"`
	TotalVotes  int64 `json:"total_votes"`
	ActivePolls int64 `json:"active_polls"`
	ClosedPolls int64 `json:"closed_polls"`
}

type Profile struct {
	User         User  `json:"user"`
	PollsCreated int64 `json:"polls_created"`
	VotesCount   int64 `json:"votes_count"`
}
