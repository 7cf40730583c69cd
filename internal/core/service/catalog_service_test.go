package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rl1809/flavorhutt/internal/core/domain"
)

type mockReviewRepo struct {
	minRating int
}

func (m *mockReviewRepo) ReviewsWithMinRating(ctx context.Context, minRating int) ([]domain.Review, error) {
	m.minRating = minRating
	return []domain.Review{{Name: "Ann", StarRating: 5}}, nil
}

type failingFeedbackRepo struct{}

func (failingFeedbackRepo) ListFeedback(ctx context.Context) ([]domain.Feedback, error) {
	return nil, errors.New("store unavailable")
}

func TestAddItem_ResetsPurchaseCount(t *testing.T) {
	items := newMockItemRepo()
	svc := NewCatalogService(items, &mockReviewRepo{}, failingFeedbackRepo{})

	res, err := svc.AddItem(context.Background(), domain.MenuItem{
		ID: "client-chosen", FoodName: " Ramen ", Price: 9.5, Stock: 4, PurchaseCount: 99,
	})
	if err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if !res.Acknowledged || res.InsertedID == "" {
		t.Errorf("unexpected insert result: %+v", res)
	}

	got := items.get("Ramen")
	if got.PurchaseCount != 0 {
		t.Errorf("expected purchaseCount 0, got %d", got.PurchaseCount)
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected createdAt to be set")
	}
}

func TestAddItem_Invalid(t *testing.T) {
	svc := NewCatalogService(newMockItemRepo(), &mockReviewRepo{}, failingFeedbackRepo{})

	for _, item := range []domain.MenuItem{
		{FoodName: "", Price: 1},
		{FoodName: "Soup", Price: -1},
		{FoodName: "Soup", Stock: -3},
	} {
		if _, err := svc.AddItem(context.Background(), item); !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for %+v, got: %v", item, err)
		}
	}
}

func TestGetItem_EmptyID(t *testing.T) {
	svc := NewCatalogService(newMockItemRepo(), &mockReviewRepo{}, failingFeedbackRepo{})

	if _, err := svc.GetItem(context.Background(), " "); !errors.Is(err, domain.ErrInvalidID) {
		t.Errorf("expected ErrInvalidID, got: %v", err)
	}
}

func TestTopRatedReviews_UsesThreshold(t *testing.T) {
	reviews := &mockReviewRepo{}
	svc := NewCatalogService(newMockItemRepo(), reviews, failingFeedbackRepo{})

	got, err := svc.TopRatedReviews(context.Background())
	if err != nil {
		t.Fatalf("TopRatedReviews failed: %v", err)
	}
	if reviews.minRating != domain.TopRatedThreshold {
		t.Errorf("expected min rating %d, got %d", domain.TopRatedThreshold, reviews.minRating)
	}
	if len(got) != 1 {
		t.Errorf("expected 1 review, got %d", len(got))
	}
}

func TestListFeedback_PropagatesStoreError(t *testing.T) {
	svc := NewCatalogService(newMockItemRepo(), &mockReviewRepo{}, failingFeedbackRepo{})

	if _, err := svc.ListFeedback(context.Background()); err == nil {
		t.Error("expected error from failing store")
	}
}

func TestListItems_PassesQueryThrough(t *testing.T) {
	items := newMockItemRepo()
	svc := NewCatalogService(items, &mockReviewRepo{}, failingFeedbackRepo{})

	if _, err := svc.ListItems(context.Background(), " thai"); err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if items.lastQuery != " thai" {
		t.Errorf("expected query passed untouched, got %q", items.lastQuery)
	}
}

func TestAddItem_DuplicateName(t *testing.T) {
	svc := NewCatalogService(duplicateItemRepo{newMockItemRepo()}, &mockReviewRepo{}, failingFeedbackRepo{})

	_, err := svc.AddItem(context.Background(), domain.MenuItem{FoodName: "Burger"})
	if !errors.Is(err, domain.ErrDuplicateItem) {
		t.Errorf("expected ErrDuplicateItem, got: %v", err)
	}
}

type duplicateItemRepo struct {
	*mockItemRepo
}

func (duplicateItemRepo) InsertItem(ctx context.Context, item domain.MenuItem) (domain.InsertResult, error) {
	return domain.InsertResult{}, domain.ErrDuplicateItem
}
