package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rl1809/flavorhutt/internal/core/domain"
	"github.com/rl1809/flavorhutt/internal/port"
)

// CatalogService serves the read endpoints and catalog insertion.
type CatalogService struct {
	items     port.ItemRepository
	reviews   port.ReviewRepository
	feedbacks port.FeedbackRepository
}

func NewCatalogService(items port.ItemRepository, reviews port.ReviewRepository, feedbacks port.FeedbackRepository) *CatalogService {
	return &CatalogService{items: items, reviews: reviews, feedbacks: feedbacks}
}

func (s *CatalogService) TopSelling(ctx context.Context) ([]domain.MenuItem, error) {
	items, err := s.items.TopSelling(ctx, domain.TopSellingLimit)
	if err != nil {
		return nil, fmt.Errorf("top selling: %w", err)
	}
	return items, nil
}

func (s *CatalogService) ListItems(ctx context.Context, query string) ([]domain.MenuItem, error) {
	items, err := s.items.ListItems(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

// GetItem returns nil, nil when the id is well formed but unknown.
func (s *CatalogService) GetItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrInvalidID
	}
	item, err := s.items.GetItem(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	return item, nil
}

func (s *CatalogService) AddItem(ctx context.Context, item domain.MenuItem) (domain.InsertResult, error) {
	item.FoodName = strings.TrimSpace(item.FoodName)
	if err := validateStruct(item); err != nil {
		return domain.InsertResult{}, err
	}
	item.ID = ""
	item.PurchaseCount = 0
	item.CreatedAt = time.Now().UTC()

	res, err := s.items.InsertItem(ctx, item)
	if err != nil {
		return domain.InsertResult{}, fmt.Errorf("insert item: %w", err)
	}
	return res, nil
}

func (s *CatalogService) TopRatedReviews(ctx context.Context) ([]domain.Review, error) {
	reviews, err := s.reviews.ReviewsWithMinRating(ctx, domain.TopRatedThreshold)
	if err != nil {
		return nil, fmt.Errorf("reviews: %w", err)
	}
	return reviews, nil
}

func (s *CatalogService) ListFeedback(ctx context.Context) ([]domain.Feedback, error) {
	feedbacks, err := s.feedbacks.ListFeedback(ctx)
	if err != nil {
		return nil, fmt.Errorf("feedbacks: %w", err)
	}
	return feedbacks, nil
}
