package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rl1809/flavorhutt/internal/app"
	"github.com/rl1809/flavorhutt/internal/config"
	"github.com/rl1809/flavorhutt/internal/core/domain"
	"github.com/rl1809/flavorhutt/internal/core/service"
)

func main() {
	var (
		food          = flag.String("food", "stress-test-burger", "menu item to buy")
		initialStock  = flag.Int64("stock", 20, "stock to seed the item with")
		totalRequests = flag.Int("requests", 50, "concurrent purchase requests")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	ctx := context.Background()

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer a.Close()

	// Seed the item; an existing one is reused with whatever it has left
	startStock, startCount := *initialStock, int64(0)
	if _, err := a.Catalog.AddItem(ctx, domain.MenuItem{FoodName: *food, Stock: *initialStock}); err != nil {
		if !errors.Is(err, domain.ErrDuplicateItem) {
			log.Fatalf("failed to seed %s: %v", *food, err)
		}
		log.Printf("%s already exists, reusing it", *food)
		item, err := findItem(ctx, a.Catalog, *food)
		if err != nil {
			log.Fatalf("failed to load %s: %v", *food, err)
		}
		startStock, startCount = item.Stock, item.PurchaseCount
	}

	var successCount, notFoundCount, soldOutCount, failCount atomic.Int32
	var sold atomic.Int64

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func(buyer int) {
			defer wg.Done()

			_, err := a.Purchases.RecordPurchase(ctx, domain.PurchaseRequest{
				Food:       *food,
				Quantity:   1,
				BuyerEmail: fmt.Sprintf("buyer-%d@stress.test", buyer),
			})
			switch {
			case err == nil:
				successCount.Add(1)
				sold.Add(1)
			case errors.Is(err, service.ErrItemNotFound):
				notFoundCount.Add(1)
			case errors.Is(err, service.ErrInsufficientStock):
				soldOutCount.Add(1)
			default:
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Store:            %s (%s)\n", cfg.StoreDriver, cfg.StockPolicy)
	fmt.Printf("Starting Stock:   %d\n", startStock)
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Successful:       %d\n", successCount.Load())
	fmt.Printf("Sold Out:         %d\n", soldOutCount.Load())
	fmt.Printf("Not Found:        %d\n", notFoundCount.Load())
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	item, err := findItem(ctx, a.Catalog, *food)
	if err != nil {
		log.Fatalf("failed to reload %s: %v", *food, err)
	}

	wantStock := startStock - sold.Load()
	wantCount := startCount + sold.Load()
	if item.Stock == wantStock && item.PurchaseCount == wantCount {
		fmt.Printf("PASS: stock %d, purchaseCount %d\n", item.Stock, item.PurchaseCount)
	} else {
		fmt.Printf("FAIL: expected stock %d / purchaseCount %d, got %d / %d\n",
			wantStock, wantCount, item.Stock, item.PurchaseCount)
	}

	if cfg.StockPolicy == domain.StockPolicyReject && item.Stock < 0 {
		fmt.Printf("FAIL: stock went negative under reject policy: %d\n", item.Stock)
	}
}

func findItem(ctx context.Context, catalog *service.CatalogService, food string) (domain.MenuItem, error) {
	items, err := catalog.ListItems(ctx, food)
	if err != nil {
		return domain.MenuItem{}, err
	}
	for _, item := range items {
		if item.FoodName == food {
			return item, nil
		}
	}
	return domain.MenuItem{}, fmt.Errorf("%s not in catalog", food)
}
