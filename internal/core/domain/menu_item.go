package domain

import (
	"errors"
	"time"
)

var (
	// ErrInvalidID is returned by stores when an item key is not in the store's id format.
	ErrInvalidID       = errors.New("invalid item id")
	// ErrDuplicateItem is returned when an item with the same name is already in the catalog.
	ErrDuplicateItem   = errors.New("item already exists")
	ErrCounterOverflow = errors.New("stock or purchase count out of range")
)

// TopSellingLimit is how many items the home page shows.
const TopSellingLimit = 6

type Contributor struct {
	Name  string `json:"name,omitempty" bson:"name,omitempty"`
	Email string `json:"email,omitempty" bson:"email,omitempty"`
}

type MenuItem struct {
	ID            string       `json:"_id,omitempty"`
	FoodName      string       `json:"foodName" validate:"required,max=200"`
	FoodImage     string       `json:"foodImage,omitempty"`
	FoodCategory  string       `json:"foodCategory,omitempty"`
	FoodOrigin    string       `json:"foodOrigin,omitempty"`
	Description   string       `json:"description,omitempty"`
	Price         float64      `json:"price" validate:"gte=0"`
	Stock         int64        `json:"stock" validate:"gte=0"`
	PurchaseCount int64        `json:"purchaseCount"`
	AddedBy       *Contributor `json:"addedBy,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// InsertResult mirrors the acknowledgement a document store returns for an insert.
type InsertResult struct {
	Acknowledged bool   `json:"acknowledged"`
	InsertedID   string `json:"insertedId"`
}
