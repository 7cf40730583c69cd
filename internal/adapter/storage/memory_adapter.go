package storage

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/rl1809/flavorhutt/internal/core/domain"
)

// MemoryAdapter keeps the whole catalog in process. Every method takes the
// same lock, so ApplyPurchase is as atomic as the document store's $inc.
type MemoryAdapter struct {
	mu        sync.RWMutex
	items     []domain.MenuItem
	sales     []domain.SaleRecord
	reviews   []domain.Review
	feedbacks []domain.Feedback
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{}
}

func (m *MemoryAdapter) indexByName(food string) int {
	for i := range m.items {
		if m.items[i].FoodName == food {
			return i
		}
	}
	return -1
}

func (m *MemoryAdapter) ApplyPurchase(ctx context.Context, food string, quantity int64, requireStock bool) (domain.UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applyLocked(food, quantity, requireStock)
}

func (m *MemoryAdapter) applyLocked(food string, quantity int64, requireStock bool) (domain.UpdateResult, error) {
	i := m.indexByName(food)
	if i < 0 || (requireStock && m.items[i].Stock < quantity) {
		return domain.UpdateResult{Acknowledged: true}, nil
	}
	item := &m.items[i]
	if quantity < 0 || item.Stock < math.MinInt64+quantity || item.PurchaseCount > math.MaxInt64-quantity {
		return domain.UpdateResult{}, domain.ErrCounterOverflow
	}
	item.Stock -= quantity
	item.PurchaseCount += quantity
	return domain.UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: 1}, nil
}

func (m *MemoryAdapter) RevertPurchase(ctx context.Context, food string, quantity int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if i := m.indexByName(food); i >= 0 {
		m.items[i].Stock += quantity
		m.items[i].PurchaseCount -= quantity
	}
	return nil
}

func (m *MemoryAdapter) ItemExists(ctx context.Context, food string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.indexByName(food) >= 0, nil
}

func (m *MemoryAdapter) TopSelling(ctx context.Context, limit int) ([]domain.MenuItem, error) {
	m.mu.RLock()
	items := make([]domain.MenuItem, len(m.items))
	copy(items, m.items)
	m.mu.RUnlock()

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PurchaseCount > items[j].PurchaseCount
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *MemoryAdapter) ListItems(ctx context.Context, query string) ([]domain.MenuItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	needle := strings.ToLower(query)
	items := make([]domain.MenuItem, 0, len(m.items))
	for _, item := range m.items {
		if strings.Contains(strings.ToLower(item.FoodName), needle) {
			items = append(items, item)
		}
	}
	return items, nil
}

func (m *MemoryAdapter) GetItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrInvalidID
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, item := range m.items {
		if item.ID == id {
			found := item
			return &found, nil
		}
	}
	return nil, nil
}

func (m *MemoryAdapter) InsertItem(ctx context.Context, item domain.MenuItem) (domain.InsertResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.indexByName(item.FoodName) >= 0 {
		return domain.InsertResult{}, domain.ErrDuplicateItem
	}
	item.ID = uuid.NewString()
	m.items = append(m.items, item)
	return domain.InsertResult{Acknowledged: true, InsertedID: item.ID}, nil
}

func (m *MemoryAdapter) AppendSale(ctx context.Context, sale domain.SaleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sales = append(m.sales, sale)
	return nil
}

// RecordSale applies the update and the ledger append under one lock.
func (m *MemoryAdapter) RecordSale(ctx context.Context, sale domain.SaleRecord, requireStock bool) (domain.UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, err := m.applyLocked(sale.Food, sale.Quantity, requireStock)
	if err != nil {
		return domain.UpdateResult{}, err
	}
	if res.MatchedCount > 0 {
		m.sales = append(m.sales, sale)
	}
	return res, nil
}

// Sales returns a copy of the ledger.
func (m *MemoryAdapter) Sales() []domain.SaleRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.SaleRecord(nil), m.sales...)
}

func (m *MemoryAdapter) ReviewsWithMinRating(ctx context.Context, minRating int) ([]domain.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	reviews := make([]domain.Review, 0, len(m.reviews))
	for _, r := range m.reviews {
		if r.StarRating >= minRating {
			reviews = append(reviews, r)
		}
	}
	return reviews, nil
}

func (m *MemoryAdapter) AddReview(r domain.Review) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m.reviews = append(m.reviews, r)
}

func (m *MemoryAdapter) ListFeedback(ctx context.Context) ([]domain.Feedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append(make([]domain.Feedback, 0, len(m.feedbacks)), m.feedbacks...), nil
}

func (m *MemoryAdapter) AddFeedback(f domain.Feedback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	m.feedbacks = append(m.feedbacks, f)
}
