package reservation

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// sharedStockReader collapses concurrent stock lookups for the same product into one query.
type sharedStockReader struct {
	next  StockReader
	group singleflight.Group
}

// NewSharedStockReader wraps next with per-product request coalescing.
func NewSharedStockReader(next StockReader) StockReader {
	return &sharedStockReader{next: next}
}

func (s *sharedStockReader) StockCount(ctx context.Context, productID uuid.UUID) (int, error) {
	v, err, _ := s.group.Do(productID.String(), func() (any, error) {
		return s.next.StockCount(ctx, productID)
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}
