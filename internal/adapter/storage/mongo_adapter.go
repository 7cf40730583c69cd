package storage

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rl1809/flavorhutt/internal/core/domain"
)

const (
	itemsCollection     = "foodItems"
	salesCollection     = "sells"
	reviewsCollection   = "reviews"
	feedbacksCollection = "feedbacks"
)

type itemDocument struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty"`
	FoodName      string              `bson:"foodName"`
	FoodImage     string              `bson:"foodImage,omitempty"`
	FoodCategory  string              `bson:"foodCategory,omitempty"`
	FoodOrigin    string              `bson:"foodOrigin,omitempty"`
	Description   string              `bson:"description,omitempty"`
	Price         float64             `bson:"price"`
	Stock         int64               `bson:"stock"`
	PurchaseCount int64               `bson:"purchaseCount"`
	AddedBy       *domain.Contributor `bson:"addedBy,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt,omitempty"`
}

func (d itemDocument) toDomain() domain.MenuItem {
	return domain.MenuItem{
		ID:            d.ID.Hex(),
		FoodName:      d.FoodName,
		FoodImage:     d.FoodImage,
		FoodCategory:  d.FoodCategory,
		FoodOrigin:    d.FoodOrigin,
		Description:   d.Description,
		Price:         d.Price,
		Stock:         d.Stock,
		PurchaseCount: d.PurchaseCount,
		AddedBy:       d.AddedBy,
		CreatedAt:     d.CreatedAt,
	}
}

type saleDocument struct {
	ID          string    `bson:"_id"`
	Food        string    `bson:"food"`
	Quantity    int64     `bson:"quantity"`
	BuyerEmail  string    `bson:"buyerEmail"`
	RequestID   string    `bson:"requestId,omitempty"`
	PurchasedAt time.Time `bson:"purchasedAt"`
}

type reviewDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	Name       string             `bson:"name"`
	Photo      string             `bson:"photo,omitempty"`
	StarRating int                `bson:"starRating"`
	Review     string             `bson:"review"`
	CreatedAt  time.Time          `bson:"createdAt,omitempty"`
}

type feedbackDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Email     string             `bson:"email,omitempty"`
	Rating    int                `bson:"rating"`
	Message   string             `bson:"message"`
	CreatedAt time.Time          `bson:"createdAt,omitempty"`
}

// ConnectMongo opens a client pinned to Stable API v1 and pings the deployment.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1).
		SetStrict(true).
		SetDeprecationErrors(true)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Database("admin").RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

type MongoAdapter struct {
	client    *mongo.Client
	items     *mongo.Collection
	sales     *mongo.Collection
	reviews   *mongo.Collection
	feedbacks *mongo.Collection
}

func NewMongoAdapter(client *mongo.Client, database string) *MongoAdapter {
	db := client.Database(database)
	return &MongoAdapter{
		client:    client,
		items:     db.Collection(itemsCollection),
		sales:     db.Collection(salesCollection),
		reviews:   db.Collection(reviewsCollection),
		feedbacks: db.Collection(feedbacksCollection),
	}
}

// EnsureIndexes makes foodName unique, which the by-name purchase filter relies on.
func (m *MongoAdapter) EnsureIndexes(ctx context.Context) error {
	if _, err := m.items.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "foodName", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "purchaseCount", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("create item indexes: %w", err)
	}
	if _, err := m.sales.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "food", Value: 1}, {Key: "purchasedAt", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create sales index: %w", err)
	}
	if _, err := m.reviews.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "starRating", Value: 1}},
	}); err != nil {
		return fmt.Errorf("create review index: %w", err)
	}
	return nil
}

func purchaseFilter(food string, quantity int64, requireStock bool) bson.M {
	filter := bson.M{"foodName": food}
	if requireStock {
		filter["stock"] = bson.M{"$gte": quantity}
	}
	return filter
}

func (m *MongoAdapter) ApplyPurchase(ctx context.Context, food string, quantity int64, requireStock bool) (domain.UpdateResult, error) {
	res, err := m.items.UpdateOne(ctx,
		purchaseFilter(food, quantity, requireStock),
		bson.M{"$inc": bson.M{"purchaseCount": quantity, "stock": -quantity}},
	)
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("update item: %w", err)
	}
	return domain.UpdateResult{
		Acknowledged:  true,
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
		UpsertedCount: res.UpsertedCount,
	}, nil
}

func (m *MongoAdapter) RevertPurchase(ctx context.Context, food string, quantity int64) error {
	_, err := m.items.UpdateOne(ctx,
		bson.M{"foodName": food},
		bson.M{"$inc": bson.M{"purchaseCount": -quantity, "stock": quantity}},
	)
	if err != nil {
		return fmt.Errorf("revert item: %w", err)
	}
	return nil
}

func (m *MongoAdapter) ItemExists(ctx context.Context, food string) (bool, error) {
	n, err := m.items.CountDocuments(ctx, bson.M{"foodName": food}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("count items: %w", err)
	}
	return n > 0, nil
}

func (m *MongoAdapter) TopSelling(ctx context.Context, limit int) ([]domain.MenuItem, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "purchaseCount", Value: -1}}).
		SetLimit(int64(limit))
	return m.findItems(ctx, bson.M{}, opts)
}

func (m *MongoAdapter) ListItems(ctx context.Context, query string) ([]domain.MenuItem, error) {
	filter := bson.M{}
	if query != "" {
		filter["foodName"] = bson.M{"$regex": regexp.QuoteMeta(query), "$options": "i"}
	}
	return m.findItems(ctx, filter, options.Find())
}

func (m *MongoAdapter) findItems(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.MenuItem, error) {
	cursor, err := m.items.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find items: %w", err)
	}
	var docs []itemDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}

	items := make([]domain.MenuItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.toDomain())
	}
	return items, nil
}

func (m *MongoAdapter) GetItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	var doc itemDocument
	err = m.items.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find item: %w", err)
	}
	item := doc.toDomain()
	return &item, nil
}

func (m *MongoAdapter) InsertItem(ctx context.Context, item domain.MenuItem) (domain.InsertResult, error) {
	doc := itemDocument{
		ID:            primitive.NewObjectID(),
		FoodName:      item.FoodName,
		FoodImage:     item.FoodImage,
		FoodCategory:  item.FoodCategory,
		FoodOrigin:    item.FoodOrigin,
		Description:   item.Description,
		Price:         item.Price,
		Stock:         item.Stock,
		PurchaseCount: item.PurchaseCount,
		AddedBy:       item.AddedBy,
		CreatedAt:     item.CreatedAt,
	}
	if _, err := m.items.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.InsertResult{}, domain.ErrDuplicateItem
		}
		return domain.InsertResult{}, fmt.Errorf("insert item: %w", err)
	}
	return domain.InsertResult{Acknowledged: true, InsertedID: doc.ID.Hex()}, nil
}

func (m *MongoAdapter) AppendSale(ctx context.Context, sale domain.SaleRecord) error {
	_, err := m.sales.InsertOne(ctx, saleDocument{
		ID:          sale.ID,
		Food:        sale.Food,
		Quantity:    sale.Quantity,
		BuyerEmail:  sale.BuyerEmail,
		RequestID:   sale.RequestID,
		PurchasedAt: sale.PurchasedAt,
	})
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

// RecordSale runs the update and the ledger insert in one multi-document
// transaction. Requires a replica set or sharded cluster.
func (m *MongoAdapter) RecordSale(ctx context.Context, sale domain.SaleRecord, requireStock bool) (domain.UpdateResult, error) {
	session, err := m.client.StartSession()
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(context.Background())

	out, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		res, err := m.ApplyPurchase(sc, sale.Food, sale.Quantity, requireStock)
		if err != nil {
			return nil, err
		}
		if res.MatchedCount == 0 {
			return res, nil
		}
		if err := m.AppendSale(sc, sale); err != nil {
			return nil, err
		}
		return res, nil
	})
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("sale transaction: %w", err)
	}
	return out.(domain.UpdateResult), nil
}

// Sales returns the ledger entries for one item, oldest first.
func (m *MongoAdapter) Sales(ctx context.Context, food string) ([]domain.SaleRecord, error) {
	cursor, err := m.sales.Find(ctx, bson.M{"food": food}, options.Find().SetSort(bson.D{{Key: "purchasedAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find sales: %w", err)
	}
	var docs []saleDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode sales: %w", err)
	}

	sales := make([]domain.SaleRecord, 0, len(docs))
	for _, d := range docs {
		sales = append(sales, domain.SaleRecord{
			ID:          d.ID,
			Food:        d.Food,
			Quantity:    d.Quantity,
			BuyerEmail:  d.BuyerEmail,
			RequestID:   d.RequestID,
			PurchasedAt: d.PurchasedAt,
		})
	}
	return sales, nil
}

func (m *MongoAdapter) ReviewsWithMinRating(ctx context.Context, minRating int) ([]domain.Review, error) {
	cursor, err := m.reviews.Find(ctx, bson.M{"starRating": bson.M{"$gte": minRating}})
	if err != nil {
		return nil, fmt.Errorf("find reviews: %w", err)
	}
	var docs []reviewDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}

	reviews := make([]domain.Review, 0, len(docs))
	for _, d := range docs {
		reviews = append(reviews, domain.Review{
			ID:         d.ID.Hex(),
			Name:       d.Name,
			Photo:      d.Photo,
			StarRating: d.StarRating,
			Review:     d.Review,
			CreatedAt:  d.CreatedAt,
		})
	}
	return reviews, nil
}

func (m *MongoAdapter) ListFeedback(ctx context.Context) ([]domain.Feedback, error) {
	cursor, err := m.feedbacks.Find(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("find feedbacks: %w", err)
	}
	var docs []feedbackDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode feedbacks: %w", err)
	}

	feedbacks := make([]domain.Feedback, 0, len(docs))
	for _, d := range docs {
		feedbacks = append(feedbacks, domain.Feedback{
			ID:        d.ID.Hex(),
			Name:      d.Name,
			Email:     d.Email,
			Rating:    d.Rating,
			Message:   d.Message,
			CreatedAt: d.CreatedAt,
		})
	}
	return feedbacks, nil
}
