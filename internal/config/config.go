package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/rl1809/flavorhutt/internal/core/domain"
)

const (
	DriverMongo  = "mongo"
	DriverMySQL  = "mysql"
	DriverMemory = "memory"
)

type Config struct {
	Port     string
	GRPCPort string

	StoreDriver   string
	MongoURI      string
	MongoDatabase string
	MySQLDSN      string
	RedisAddr     string

	StockPolicy      domain.StockPolicy
	AtomicPurchases  bool
	ReconcileWorkers int

	RequestTimeout time.Duration
	CORSOrigins    []string
}

// Load reads the environment, after merging a .env file when one exists.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "5000"),
		GRPCPort:         getEnv("GRPC_PORT", "50051"),
		StoreDriver:      getEnv("STORE_DRIVER", DriverMongo),
		MongoURI:         getEnv("MONGODB_URI", defaultMongoURI()),
		MongoDatabase:    getEnv("MONGODB_DATABASE", "flavorHuttDb"),
		MySQLDSN:         getEnv("MYSQL_DSN", "root:root@tcp(localhost:3306)/flavorhutt?parseTime=true"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		StockPolicy:      domain.StockPolicy(getEnv("STOCK_POLICY", string(domain.StockPolicyAllowNegative))),
		ReconcileWorkers: 2,
		RequestTimeout:   30 * time.Second,
		CORSOrigins:      splitList(getEnv("CORS_ORIGINS", "*")),
	}

	switch cfg.StoreDriver {
	case DriverMongo, DriverMySQL, DriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if !cfg.StockPolicy.Valid() {
		return nil, fmt.Errorf("unknown STOCK_POLICY %q", cfg.StockPolicy)
	}

	if v := os.Getenv("ATOMIC_PURCHASES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ATOMIC_PURCHASES: %w", err)
		}
		cfg.AtomicPurchases = b
	}

	if v := os.Getenv("RECONCILE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid RECONCILE_WORKERS %q", v)
		}
		cfg.ReconcileWorkers = n
	}

	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid REQUEST_TIMEOUT %q", v)
		}
		cfg.RequestTimeout = d
	}

	return cfg, nil
}

// defaultMongoURI builds an Atlas URI from DB_USER/DB_PASS, or a local one.
func defaultMongoURI() string {
	user := os.Getenv("DB_USER")
	if user == "" {
		return "mongodb://localhost:27017"
	}
	host := getEnv("DB_HOST", "cluster0.mongodb.net")
	creds := url.UserPassword(user, os.Getenv("DB_PASS"))
	return fmt.Sprintf("mongodb+srv://%s@%s/?retryWrites=true&w=majority&appName=Cluster0", creds.String(), host)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
