// Package source adapts the retailer clients to the crawl.Source contract.
package source

import (
	"context"
	"sync"

	"pricescout/crawler/internal/domain"
	"pricescout/crawler/internal/tree"
)

// treeCache builds the category tree on first use and keeps it for the
// lifetime of the source.
type treeCache struct {
	mu   sync.Mutex
	tree *domain.CategoryTree
}

func (c *treeCache) get(ctx context.Context, fetch func(context.Context) (domain.RawLevels, error)) (*domain.CategoryTree, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.tree != nil {
		return c.tree, nil
	}

	raw, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	c.tree = tree.Build(raw)
	return c.tree, nil
}
