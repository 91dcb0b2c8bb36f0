package crawl

import (
	"context"
	"fmt"
	"sort"

	"pricescout/crawler/internal/domain"
)

// PageFunc fetches the page starting at offset.
type PageFunc func(ctx context.Context, offset int) (*domain.ListingPage, error)

// Paginate requests pages with offset equal to the number of items collected so
// far until the backend's reported total is reached. Page size is whatever the
// backend returns. The result is sorted by identifier.
func Paginate(ctx context.Context, fetch PageFunc) ([]domain.CatalogItem, error) {
	items := make([]domain.CatalogItem, 0)

	for {
		page, err := fetch(ctx, len(items))
		if err != nil {
			return nil, err
		}

		items = append(items, page.Items...)
		if len(items) >= page.Total {
			break
		}
		if len(page.Items) == 0 {
			return nil, fmt.Errorf("%w: listing stalled at %d of %d items", domain.ErrData, len(items), page.Total)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].ID < items[j].ID
	})
	return items, nil
}

// FetchLeaf paginates one leaf of src.
func FetchLeaf(ctx context.Context, src Source, path domain.CategoryPath) ([]domain.CatalogItem, error) {
	key := src.LeafKey(path)
	return Paginate(ctx, func(ctx context.Context, offset int) (*domain.ListingPage, error) {
		return src.FetchPage(ctx, key, offset)
	})
}
