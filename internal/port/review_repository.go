package port

import (
	"context"

	"github.com/rl1809/flavorhutt/internal/core/domain"
)

type ReviewRepository interface {
	ReviewsWithMinRating(ctx context.Context, minRating int) ([]domain.Review, error)
}

type FeedbackRepository interface {
	ListFeedback(ctx context.Context) ([]domain.Feedback, error)
}
