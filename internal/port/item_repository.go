package port

import (
	"context"

	"github.com/rl1809/flavorhutt/internal/core/domain"
)

type ItemRepository interface {
	// ApplyPurchase atomically decrements stock and increments purchaseCount
	// on the item named food. With requireStock the filter also demands
	// stock >= quantity. MatchedCount is 0 when nothing matched.
	ApplyPurchase(ctx context.Context, food string, quantity int64, requireStock bool) (domain.UpdateResult, error)

	// RevertPurchase undoes ApplyPurchase (compensation when the ledger append fails)
	RevertPurchase(ctx context.Context, food string, quantity int64) error

	// ItemExists reports whether an item with this name is in the catalog
	ItemExists(ctx context.Context, food string) (bool, error)

	TopSelling(ctx context.Context, limit int) ([]domain.MenuItem, error)

	// ListItems returns all items, or those whose name contains query case-insensitively
	ListItems(ctx context.Context, query string) ([]domain.MenuItem, error)

	// GetItem returns nil when no item has this id
	GetItem(ctx context.Context, id string) (*domain.MenuItem, error)

	InsertItem(ctx context.Context, item domain.MenuItem) (domain.InsertResult, error)
}
