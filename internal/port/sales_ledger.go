package port

import (
	"context"

	"github.com/rl1809/flavorhutt/internal/core/domain"
)

type SalesLedger interface {
	AppendSale(ctx context.Context, sale domain.SaleRecord) error
}

// SaleRecorder is implemented by stores that can apply the stock update and
// append the ledger entry in a single transaction.
type SaleRecorder interface {
	RecordSale(ctx context.Context, sale domain.SaleRecord, requireStock bool) (domain.UpdateResult, error)
}
