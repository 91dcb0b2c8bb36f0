// Package crawl walks a source's category tree and collects every leaf listing,
// isolating leaf failures into a ledger.
package crawl

import (
	"context"
	"time"

	"pricescout/crawler/internal/domain"
)

// Source is a retailer backend seen from the crawler.
type Source interface {
	Channel() string
	Authenticate(ctx context.Context) error
	// CategoryTree returns the tree, fetching and building it on first use.
	CategoryTree(ctx context.Context) (*domain.CategoryTree, error)
	// LeafKey derives the value FetchPage uses to address a leaf listing.
	LeafKey(path domain.CategoryPath) string
	FetchPage(ctx context.Context, key string, offset int) (*domain.ListingPage, error)
}

// Exporter receives crawl artifacts.
type Exporter interface {
	WriteTree(tree *domain.CategoryTree) error
	WriteLeaf(key string, items []domain.CatalogItem) error
	WriteCatalog(items []domain.CatalogItem, at time.Time) error
}

// LedgerSink persists the error ledger of a run.
type LedgerSink interface {
	SaveLedger(ctx context.Context, ledger *domain.Ledger) error
}
