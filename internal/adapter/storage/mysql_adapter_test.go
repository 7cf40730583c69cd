package storage

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/rl1809/flavorhutt/internal/core/domain"
)

func getMySQLDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		dsn = "root:root@tcp(localhost:3306)/flavorhutt?parseTime=true"
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Skipf("MySQL not available: %v", err)
	}

	if err := NewMySQLAdapter(db).Migrate(context.Background()); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}

	return db
}

func seedMySQLItem(t *testing.T, adapter *MySQLAdapter, db *sql.DB, name string, stock, purchaseCount int64) string {
	ctx := context.Background()
	db.ExecContext(ctx, `DELETE FROM food_items WHERE food_name = ?`, name)
	db.ExecContext(ctx, `DELETE FROM sales WHERE food = ?`, name)

	res, err := adapter.InsertItem(ctx, domain.MenuItem{
		FoodName: name, Stock: stock, PurchaseCount: purchaseCount, CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("setup failed: %v", err)
	}
	return res.InsertedID
}

func TestMySQLApplyPurchase_Success(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	id := seedMySQLItem(t, adapter, db, "mysql-burger", 10, 2)

	res, err := adapter.ApplyPurchase(ctx, "mysql-burger", 3, false)
	if err != nil {
		t.Fatalf("ApplyPurchase failed: %v", err)
	}
	if res.MatchedCount != 1 {
		t.Errorf("expected 1 matched, got %d", res.MatchedCount)
	}

	item, err := adapter.GetItem(ctx, id)
	if err != nil || item == nil {
		t.Fatalf("GetItem failed: %v", err)
	}
	if item.Stock != 7 || item.PurchaseCount != 5 {
		t.Errorf("expected stock 7 / purchaseCount 5, got %d / %d", item.Stock, item.PurchaseCount)
	}
}

func TestMySQLApplyPurchase_NotFound(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	res, err := NewMySQLAdapter(db).ApplyPurchase(context.Background(), "mysql-nonexistent", 1, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.MatchedCount != 0 {
		t.Errorf("expected 0 matched, got %d", res.MatchedCount)
	}
}

func TestMySQLApplyPurchase_RequireStock(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	id := seedMySQLItem(t, adapter, db, "mysql-empty", 0, 0)

	res, err := adapter.ApplyPurchase(ctx, "mysql-empty", 1, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.MatchedCount != 0 {
		t.Error("expected update to be refused by stock floor")
	}

	item, _ := adapter.GetItem(ctx, id)
	if item.Stock != 0 {
		t.Errorf("expected stock 0, got %d", item.Stock)
	}
}

func TestMySQLRecordSale_Atomic(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	seedMySQLItem(t, adapter, db, "mysql-tx", 5, 0)

	sale := domain.SaleRecord{
		ID: uuid.NewString(), Food: "mysql-tx", Quantity: 2, BuyerEmail: "a@b.com", PurchasedAt: time.Now(),
	}
	if _, err := adapter.RecordSale(ctx, sale, true); err != nil {
		t.Fatalf("RecordSale failed: %v", err)
	}

	// Duplicate sale id makes the insert fail; the update must roll back
	res, err := adapter.RecordSale(ctx, sale, true)
	if err == nil {
		t.Fatalf("expected duplicate key error, got result %+v", res)
	}

	var stock, count int64
	db.QueryRowContext(ctx, `SELECT stock FROM food_items WHERE food_name = 'mysql-tx'`).Scan(&stock)
	db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sales WHERE food = 'mysql-tx'`).Scan(&count)
	if stock != 3 {
		t.Errorf("expected stock 3, got %d", stock)
	}
	if count != 1 {
		t.Errorf("expected 1 sale, got %d", count)
	}
}

func TestMySQLApplyPurchase_Concurrent(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	seedMySQLItem(t, adapter, db, "mysql-concurrent", 20, 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			adapter.ApplyPurchase(ctx, "mysql-concurrent", 1, true)
		}()
	}
	wg.Wait()

	var stock, purchaseCount int64
	db.QueryRowContext(ctx, `SELECT stock, purchase_count FROM food_items WHERE food_name = 'mysql-concurrent'`).
		Scan(&stock, &purchaseCount)
	if stock != 0 || purchaseCount != 20 {
		t.Errorf("expected stock 0 / purchaseCount 20, got %d / %d", stock, purchaseCount)
	}
}

func TestMySQLListItems_Search(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	seedMySQLItem(t, adapter, db, "Mysql Chicken_Wrap", 1, 0)
	seedMySQLItem(t, adapter, db, "Mysql ChickenXWrap", 1, 0)

	items, err := adapter.ListItems(ctx, "chicken_w")
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 1 || items[0].FoodName != "Mysql Chicken_Wrap" {
		t.Errorf("expected only the literal underscore match, got %+v", items)
	}
}

func TestMySQLGetItem_InvalidID(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	if _, err := NewMySQLAdapter(db).GetItem(context.Background(), "not-a-uuid"); err != domain.ErrInvalidID {
		t.Errorf("expected ErrInvalidID, got: %v", err)
	}
}

func TestMySQLApplyPurchase_NameIsCaseSensitive(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	id := seedMySQLItem(t, adapter, db, "Mysql Burger", 10, 0)

	res, err := adapter.ApplyPurchase(ctx, "mysql burger", 1, false)
	if err != nil {
		t.Fatalf("ApplyPurchase failed: %v", err)
	}
	if res.MatchedCount != 0 {
		t.Errorf("expected no match for a wrong-case name, got %d", res.MatchedCount)
	}

	exists, err := adapter.ItemExists(ctx, "MYSQL BURGER")
	if err != nil {
		t.Fatalf("ItemExists failed: %v", err)
	}
	if exists {
		t.Error("expected wrong-case name to be unknown")
	}

	item, _ := adapter.GetItem(ctx, id)
	if item == nil || item.Stock != 10 || item.PurchaseCount != 0 {
		t.Errorf("expected item unchanged, got %+v", item)
	}

	items, err := adapter.ListItems(ctx, "MYSQL BUR")
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected search to stay case-insensitive, got %d items", len(items))
	}
}

func TestMySQLInsertItem_Duplicate(t *testing.T) {
	db := getMySQLDB(t)
	defer db.Close()

	ctx := context.Background()
	adapter := NewMySQLAdapter(db)
	seedMySQLItem(t, adapter, db, "mysql-dup", 1, 0)

	_, err := adapter.InsertItem(ctx, domain.MenuItem{FoodName: "mysql-dup", CreatedAt: time.Now()})
	if !errors.Is(err, domain.ErrDuplicateItem) {
		t.Errorf("expected ErrDuplicateItem, got: %v", err)
	}
}
