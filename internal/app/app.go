// Package app wires the configured stores into the purchase and catalog services.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"

	"github.com/rl1809/flavorhutt/internal/adapter/storage"
	"github.com/rl1809/flavorhutt/internal/config"
	"github.com/rl1809/flavorhutt/internal/core/service"
	"github.com/rl1809/flavorhutt/internal/port"
)

const connectTimeout = 10 * time.Second

// store is what every catalog backend provides.
type store interface {
	port.ItemRepository
	port.SalesLedger
	port.SaleRecorder
	port.ReviewRepository
	port.FeedbackRepository
}

type App struct {
	Purchases *service.PurchaseService
	Catalog   *service.CatalogService

	// Memory is set when STORE_DRIVER=memory so callers can seed it.
	Memory *storage.MemoryAdapter

	closers []func()
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	st, err := a.openStore(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []service.Option{service.WithStockPolicy(cfg.StockPolicy)}
	if cfg.AtomicPurchases {
		opts = append(opts, service.WithSaleRecorder(st))
		log.Println("purchases recorded in a single transaction")
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			rdb.Close()
			a.Close()
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		a.closers = append(a.closers, func() { rdb.Close() })
		opts = append(opts, service.WithIdempotency(storage.NewRedisAdapter(rdb)))
		log.Println("connected to redis")
	}

	a.Purchases = service.NewPurchaseService(st, st, opts...)
	a.Catalog = service.NewCatalogService(st, st, st)
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg *config.Config) (store, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := storage.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Printf("disconnect mongo: %v", err)
			}
		})
		adapter := storage.NewMongoAdapter(client, cfg.MongoDatabase)
		if err := adapter.EnsureIndexes(ctx); err != nil {
			return nil, err
		}
		log.Println("connected to mongodb")
		return adapter, nil

	case config.DriverMySQL:
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect mysql: %w", err)
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		a.closers = append(a.closers, func() { db.Close() })

		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("failed to ping mysql: %w", err)
		}
		adapter := storage.NewMySQLAdapter(db)
		if err := adapter.Migrate(ctx); err != nil {
			return nil, err
		}
		log.Println("connected to mysql")
		return adapter, nil

	case config.DriverMemory:
		a.Memory = storage.NewMemoryAdapter()
		log.Println("using in-memory store")
		return a.Memory, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
