package domain

import "time"

type StockPolicy string

const (
	// StockPolicyAllowNegative lets stock go below zero (backorder).
	StockPolicyAllowNegative StockPolicy = "allow_negative"
	// StockPolicyReject refuses a purchase larger than the remaining stock.
	StockPolicyReject StockPolicy = "reject"
)

// MaxPurchaseQuantity caps a single purchase so the counters stay in int64 range.
const MaxPurchaseQuantity = 1_000_000

func (p StockPolicy) Valid() bool {
	return p == StockPolicyAllowNegative || p == StockPolicyReject
}

type PurchaseRequest struct {
	Food       string `json:"food" validate:"required"`
	Quantity   int64  `json:"quantity" validate:"required,gt=0,lte=1000000"`
	BuyerEmail string `json:"buyerEmail" validate:"required,email"`
	RequestID  string `json:"requestId,omitempty"`
}

// SaleRecord is one immutable ledger entry. It references the item by name.
type SaleRecord struct {
	ID          string    `json:"_id"`
	Food        string    `json:"food"`
	Quantity    int64     `json:"quantity"`
	BuyerEmail  string    `json:"buyerEmail"`
	RequestID   string    `json:"requestId,omitempty"`
	PurchasedAt time.Time `json:"purchasedAt"`
}

// UpdateResult is the outcome of the conditional stock update.
type UpdateResult struct {
	Acknowledged  bool  `json:"acknowledged"`
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
	UpsertedCount int64 `json:"upsertedCount"`
}
