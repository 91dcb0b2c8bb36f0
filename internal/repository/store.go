package repository

import (
	"context"

	"pricescout/crawler/internal/domain"
)

// ProductStore reads persisted products and overwrites their prices. Rows are
// never inserted or deleted here.
type ProductStore interface {
	ListByChannel(ctx context.Context, channel string) ([]domain.PersistedProduct, error)
	// ApplyPriceUpdates writes all updates in one transaction.
	ApplyPriceUpdates(ctx context.Context, updates []domain.PriceUpdate) error
	Migrate(ctx context.Context) error
	Close() error
}

const (
	listByChannelQuery = `
	SELECT pid, COALESCE(price, 0), COALESCE(spec, 0), COALESCE(price_unit, 0)
	FROM products
	WHERE channel = %s
	ORDER BY id`

	updatePriceQuery = `
	UPDATE products SET price = %s, price_unit = %s
	WHERE pid = %s AND channel = %s`
)
