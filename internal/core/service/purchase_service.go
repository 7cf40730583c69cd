package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/flavorhutt/internal/core/domain"
	"github.com/rl1809/flavorhutt/internal/port"
)

const (
	idempotencyKeyPrefix = "purchase:"
	compensationTimeout  = 5 * time.Second
)

// PurchaseService records purchases: it applies the conditional stock update
// and appends the sale to the ledger only when the update matched an item.
type PurchaseService struct {
	items    port.ItemRepository
	ledger   port.SalesLedger
	recorder port.SaleRecorder
	cache    port.CacheRepository
	policy   domain.StockPolicy

	reconcileQueue chan domain.SaleRecord
	retryBackoff   time.Duration
	maxRetries     int
	now            func() time.Time
}

type Option func(*PurchaseService)

func WithStockPolicy(p domain.StockPolicy) Option {
	return func(s *PurchaseService) { s.policy = p }
}

// WithIdempotency deduplicates purchases carrying a request id.
func WithIdempotency(cache port.CacheRepository) Option {
	return func(s *PurchaseService) { s.cache = cache }
}

// WithSaleRecorder switches to single-transaction recording.
func WithSaleRecorder(r port.SaleRecorder) Option {
	return func(s *PurchaseService) { s.recorder = r }
}

func WithRetryBackoff(backoff time.Duration, maxRetries int) Option {
	return func(s *PurchaseService) {
		s.retryBackoff = backoff
		s.maxRetries = maxRetries
	}
}

func NewPurchaseService(items port.ItemRepository, ledger port.SalesLedger, opts ...Option) *PurchaseService {
	s := &PurchaseService{
		items:          items,
		ledger:         ledger,
		policy:         domain.StockPolicyAllowNegative,
		reconcileQueue: make(chan domain.SaleRecord, 1000),
		retryBackoff:   500 * time.Millisecond,
		maxRetries:     10,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PurchaseService) RecordPurchase(ctx context.Context, req domain.PurchaseRequest) (result domain.UpdateResult, err error) {
	req.Food = strings.TrimSpace(req.Food)
	req.BuyerEmail = strings.TrimSpace(req.BuyerEmail)
	if err := validateStruct(req); err != nil {
		return domain.UpdateResult{}, err
	}

	if req.RequestID != "" && s.cache != nil {
		key := idempotencyKeyPrefix + req.RequestID
		ok, setErr := s.cache.SetIdempotency(ctx, key)
		if setErr != nil {
			return domain.UpdateResult{}, fmt.Errorf("idempotency check failed: %w", setErr)
		}
		if !ok {
			return domain.UpdateResult{}, ErrDuplicateRequest
		}
		defer func() {
			if err == nil {
				return
			}
			if relErr := s.cache.ReleaseIdempotency(context.WithoutCancel(ctx), key); relErr != nil {
				log.Printf("purchase: release idempotency key %s: %v", key, relErr)
			}
		}()
	}

	sale := domain.SaleRecord{
		ID:          uuid.NewString(),
		Food:        req.Food,
		Quantity:    req.Quantity,
		BuyerEmail:  req.BuyerEmail,
		RequestID:   req.RequestID,
		PurchasedAt: s.now().UTC(),
	}
	requireStock := s.policy == domain.StockPolicyReject

	if s.recorder != nil {
		result, err = s.recorder.RecordSale(ctx, sale, requireStock)
		if err != nil {
			return domain.UpdateResult{}, fmt.Errorf("record sale: %w", err)
		}
		if result.MatchedCount == 0 {
			return domain.UpdateResult{}, s.missError(ctx, sale.Food, requireStock)
		}
		return result, nil
	}

	result, err = s.items.ApplyPurchase(ctx, sale.Food, sale.Quantity, requireStock)
	if err != nil {
		return domain.UpdateResult{}, fmt.Errorf("apply purchase: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.UpdateResult{}, s.missError(ctx, sale.Food, requireStock)
	}

	if err := s.ledger.AppendSale(ctx, sale); err != nil {
		s.compensate(ctx, sale)
		return domain.UpdateResult{}, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}

	return result, nil
}

// missError tells a missing item apart from one refused by the stock floor.
func (s *PurchaseService) missError(ctx context.Context, food string, requireStock bool) error {
	if !requireStock {
		return ErrItemNotFound
	}
	exists, err := s.items.ItemExists(ctx, food)
	if err != nil {
		return fmt.Errorf("check item: %w", err)
	}
	if exists {
		return ErrInsufficientStock
	}
	return ErrItemNotFound
}

// compensate reverts an update whose ledger entry could not be written. A
// failed revert is handed to the reconcile workers.
func (s *PurchaseService) compensate(ctx context.Context, sale domain.SaleRecord) {
	revertCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	err := s.items.RevertPurchase(revertCtx, sale.Food, sale.Quantity)
	if err == nil {
		log.Printf("purchase: reverted sale %s after ledger failure", sale.ID)
		return
	}

	log.Printf("purchase: revert sale %s failed, queueing: %v", sale.ID, err)
	select {
	case s.reconcileQueue <- sale:
	default:
		log.Printf("CRITICAL: reconcile queue full, sale %s (%s x%d) left unaudited", sale.ID, sale.Food, sale.Quantity)
	}
}

// RunReconciler retries queued reverts until ctx is cancelled.
func (s *PurchaseService) RunReconciler(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case sale := <-s.reconcileQueue:
			s.reconcile(ctx, id, sale)
		}
	}
}

func (s *PurchaseService) reconcile(ctx context.Context, id int, sale domain.SaleRecord) {
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		revertCtx, cancel := context.WithTimeout(ctx, compensationTimeout)
		err := s.items.RevertPurchase(revertCtx, sale.Food, sale.Quantity)
		cancel()
		if err == nil {
			log.Printf("reconciler %d: reverted sale %s on attempt %d", id, sale.ID, attempt)
			return
		}
		log.Printf("reconciler %d: revert sale %s attempt %d: %v", id, sale.ID, attempt, err)

		select {
		case <-ctx.Done():
			log.Printf("CRITICAL: reconciler %d stopped with sale %s (%s x%d) unreverted", id, sale.ID, sale.Food, sale.Quantity)
			return
		case <-time.After(s.retryBackoff * time.Duration(attempt)):
		}
	}
	log.Printf("CRITICAL: reconciler %d gave up on sale %s (%s x%d)", id, sale.ID, sale.Food, sale.Quantity)
}

// PendingReconciliations is the number of reverts waiting for a worker.
func (s *PurchaseService) PendingReconciliations() int {
	return len(s.reconcileQueue)
}
