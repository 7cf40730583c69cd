package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/rl1809/flavorhutt/internal/core/domain"
)

const itemColumns = `id, food_name, food_image, food_category, food_origin, description,
	price, stock, purchase_count, added_by_name, added_by_email, created_at`

// ER_DUP_ENTRY
const errDupEntry = 1062

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS food_items (
		id CHAR(36) PRIMARY KEY,
		food_name VARCHAR(200) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
		food_image VARCHAR(1000) NOT NULL DEFAULT '',
		food_category VARCHAR(100) NOT NULL DEFAULT '',
		food_origin VARCHAR(100) NOT NULL DEFAULT '',
		description TEXT NOT NULL,
		price DOUBLE NOT NULL DEFAULT 0,
		stock BIGINT NOT NULL DEFAULT 0,
		purchase_count BIGINT NOT NULL DEFAULT 0,
		added_by_name VARCHAR(200) NOT NULL DEFAULT '',
		added_by_email VARCHAR(200) NOT NULL DEFAULT '',
		created_at DATETIME(6) NOT NULL,
		UNIQUE KEY uq_food_items_name (food_name),
		KEY idx_food_items_purchase_count (purchase_count)
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id CHAR(36) PRIMARY KEY,
		food VARCHAR(200) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
		quantity BIGINT NOT NULL,
		buyer_email VARCHAR(200) NOT NULL,
		request_id VARCHAR(100) NOT NULL DEFAULT '',
		purchased_at DATETIME(6) NOT NULL,
		KEY idx_sales_food (food, purchased_at)
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id CHAR(36) PRIMARY KEY,
		name VARCHAR(200) NOT NULL,
		photo VARCHAR(1000) NOT NULL DEFAULT '',
		star_rating INT NOT NULL,
		review TEXT NOT NULL,
		created_at DATETIME(6) NOT NULL,
		KEY idx_reviews_star_rating (star_rating)
	)`,
	`CREATE TABLE IF NOT EXISTS feedbacks (
		id CHAR(36) PRIMARY KEY,
		name VARCHAR(200) NOT NULL,
		email VARCHAR(200) NOT NULL DEFAULT '',
		rating INT NOT NULL,
		message TEXT NOT NULL,
		created_at DATETIME(6) NOT NULL
	)`,
	// Names match byte for byte, as in the document store.
	`ALTER TABLE food_items MODIFY food_name VARCHAR(200) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL`,
	`ALTER TABLE sales MODIFY food VARCHAR(200) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL`,
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) Migrate(ctx context.Context) error {
	for _, stmt := range mysqlSchema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func applyPurchase(ctx context.Context, ex execer, food string, quantity int64, requireStock bool) (domain.UpdateResult, error) {
	query := `
		UPDATE food_items
		SET stock = stock - ?, purchase_count = purchase_count + ?
		WHERE food_name = ?`
	args := []any{quantity, quantity, food}
	if requireStock {
		query += ` AND stock >= ?`
		args = append(args, quantity)
	}

	result, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("update item: %w", err)
	}

	// quantity > 0, so every matched row is also a changed row
	rows, err := result.RowsAffected()
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("rows affected: %w", err)
	}
	return domain.UpdateResult{Acknowledged: true, MatchedCount: rows, ModifiedCount: rows}, nil
}

func appendSale(ctx context.Context, ex execer, sale domain.SaleRecord) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO sales (id, food, quantity, buyer_email, request_id, purchased_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.Food, sale.Quantity, sale.BuyerEmail, sale.RequestID, sale.PurchasedAt,
	)
	if err != nil {
		return fmt.Errorf("insert sale: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ApplyPurchase(ctx context.Context, food string, quantity int64, requireStock bool) (domain.UpdateResult, error) {
	return applyPurchase(ctx, m.db, food, quantity, requireStock)
}

func (m *MySQLAdapter) RevertPurchase(ctx context.Context, food string, quantity int64) error {
	_, err := m.db.ExecContext(ctx, `
		UPDATE food_items
		SET stock = stock + ?, purchase_count = purchase_count - ?
		WHERE food_name = ?`,
		quantity, quantity, food,
	)
	if err != nil {
		return fmt.Errorf("revert item: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) AppendSale(ctx context.Context, sale domain.SaleRecord) error {
	return appendSale(ctx, m.db, sale)
}

func (m *MySQLAdapter) RecordSale(ctx context.Context, sale domain.SaleRecord, requireStock bool) (domain.UpdateResult, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := applyPurchase(ctx, tx, sale.Food, sale.Quantity, requireStock)
	if err != nil {
		return domain.UpdateResult{}, err
	}
	if res.MatchedCount == 0 {
		return res, nil
	}

	if err := appendSale(ctx, tx, sale); err != nil {
		return domain.UpdateResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return domain.UpdateResult{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

func (m *MySQLAdapter) ItemExists(ctx context.Context, food string) (bool, error) {
	var exists bool
	err := m.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM food_items WHERE food_name = ?)`, food,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("query item: %w", err)
	}
	return exists, nil
}

func scanItem(s scanner) (domain.MenuItem, error) {
	var (
		item                     domain.MenuItem
		addedByName, addedByMail string
	)
	err := s.Scan(&item.ID, &item.FoodName, &item.FoodImage, &item.FoodCategory, &item.FoodOrigin,
		&item.Description, &item.Price, &item.Stock, &item.PurchaseCount,
		&addedByName, &addedByMail, &item.CreatedAt)
	if err != nil {
		return domain.MenuItem{}, err
	}
	if addedByName != "" || addedByMail != "" {
		item.AddedBy = &domain.Contributor{Name: addedByName, Email: addedByMail}
	}
	return item, nil
}

func (m *MySQLAdapter) queryItems(ctx context.Context, query string, args ...any) ([]domain.MenuItem, error) {
	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.MenuItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (m *MySQLAdapter) TopSelling(ctx context.Context, limit int) ([]domain.MenuItem, error) {
	return m.queryItems(ctx, `SELECT `+itemColumns+`
		FROM food_items ORDER BY purchase_count DESC LIMIT ?`, limit)
}

func (m *MySQLAdapter) ListItems(ctx context.Context, query string) ([]domain.MenuItem, error) {
	if query == "" {
		return m.queryItems(ctx, `SELECT `+itemColumns+` FROM food_items`)
	}
	return m.queryItems(ctx, `SELECT `+itemColumns+`
		FROM food_items WHERE LOWER(food_name) LIKE ?`,
		"%"+escapeLike(strings.ToLower(query))+"%")
}

// escapeLike escapes LIKE wildcards using MySQL's default backslash escape.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (m *MySQLAdapter) GetItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := scanItem(m.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM food_items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query item: %w", err)
	}
	return &item, nil
}

func (m *MySQLAdapter) InsertItem(ctx context.Context, item domain.MenuItem) (domain.InsertResult, error) {
	id := uuid.NewString()
	var addedByName, addedByMail string
	if item.AddedBy != nil {
		addedByName, addedByMail = item.AddedBy.Name, item.AddedBy.Email
	}

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO food_items (`+itemColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, item.FoodName, item.FoodImage, item.FoodCategory, item.FoodOrigin, item.Description,
		item.Price, item.Stock, item.PurchaseCount, addedByName, addedByMail, item.CreatedAt,
	)
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == errDupEntry {
			return domain.InsertResult{}, domain.ErrDuplicateItem
		}
		return domain.InsertResult{}, fmt.Errorf("insert item: %w", err)
	}
	return domain.InsertResult{Acknowledged: true, InsertedID: id}, nil
}

func (m *MySQLAdapter) ReviewsWithMinRating(ctx context.Context, minRating int) ([]domain.Review, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, photo, star_rating, review, created_at
		FROM reviews WHERE star_rating >= ?`, minRating)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	reviews := make([]domain.Review, 0)
	for rows.Next() {
		var r domain.Review
		if err := rows.Scan(&r.ID, &r.Name, &r.Photo, &r.StarRating, &r.Review, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

func (m *MySQLAdapter) ListFeedback(ctx context.Context) ([]domain.Feedback, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, email, rating, message, created_at FROM feedbacks`)
	if err != nil {
		return nil, fmt.Errorf("query feedbacks: %w", err)
	}
	defer rows.Close()

	feedbacks := make([]domain.Feedback, 0)
	for rows.Next() {
		var f domain.Feedback
		if err := rows.Scan(&f.ID, &f.Name, &f.Email, &f.Rating, &f.Message, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		feedbacks = append(feedbacks, f)
	}
	return feedbacks, rows.Err()
}
