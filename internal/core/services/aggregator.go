package services

import (
	"sort"

	"github.com/google/uuid"
	"github.com/pollsystem/api/internal/core/domain"
)

// Present builds the view of a poll from already loaded data. counts overrides the
// counter carried by an option when it has an entry for that option's id.
func Present(poll *domain.Poll, options []domain.Option, counts map[uuid.UUID]int64, hasVoted *bool) domain.PollView {
	ordered := make([]domain.Option, len(options))
	copy(ordered, options)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Position != ordered[j].Position {
			return ordered[i].Position < ordered[j].Position
		}
		return ordered[i].ID.String() < ordered[j].ID.String()
	})

	var total int64
	views := make([]domain.OptionView, 0, len(ordered))
	for _, opt := range ordered {
		count := opt.VoteCount
		if c, ok := counts[opt.ID]; ok {
			count = c
		}
		total += count
		views = append(views, domain.OptionView{
			ID:        opt.ID,
			Text:      opt.Text,
			VoteCount: count,
		})
	}

	if total > 0 {
		for i := range views {
			views[i].Percentage = float64(views[i].VoteCount) / float64(total) * 100
		}
	}

	return domain.PollView{
		ID:          poll.ID,
		Question:    poll.Question,
		Privacy:     poll.Privacy,
		Status:      poll.Status,
		CreatorID:   poll.CreatorID,
		CreatorName: poll.CreatorName,
		CreatedAt:   poll.CreatedAt,
		Options:     views,
		TotalVotes:  total,
		HasVoted:    hasVoted,
	}
}
