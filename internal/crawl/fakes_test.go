package crawl

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"pricescout/crawler/internal/domain"
)

type fakeSource struct {
	mu       sync.Mutex
	tree     *domain.CategoryTree
	treeErr  error
	authErr  error
	pages    map[string][]domain.CatalogItem // Listing per leaf key
	pageSize int
	failures map[string]error
	onFetch  func(key string, offset int) // Runs before each page is served
	calls    []string
}

func (s *fakeSource) Channel() string { return "test" }

func (s *fakeSource) Authenticate(ctx context.Context) error { return s.authErr }

func (s *fakeSource) CategoryTree(ctx context.Context) (*domain.CategoryTree, error) {
	return s.tree, s.treeErr
}

func (s *fakeSource) LeafKey(path domain.CategoryPath) string {
	return path.Level3.ID
}

func (s *fakeSource) FetchPage(ctx context.Context, key string, offset int) (*domain.ListingPage, error) {
	s.mu.Lock()
	s.calls = append(s.calls, fmt.Sprintf("%s@%d", key, offset))
	s.mu.Unlock()

	if s.onFetch != nil {
		s.onFetch(key, offset)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("request cancelled: %w", err)
	}
	if err, ok := s.failures[key]; ok {
		return nil, err
	}

	all := s.pages[key]
	size := s.pageSize
	if size <= 0 {
		size = 100
	}
	end := min(offset+size, len(all))
	start := min(offset, end)
	return &domain.ListingPage{Items: all[start:end], Total: len(all)}, nil
}

func (s *fakeSource) fetchedKeys() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make(map[string]bool)
	for _, c := range s.calls {
		keys[c[:strings.LastIndex(c, "@")]] = true
	}
	return keys
}

type fakeExporter struct {
	trees    int
	leaves   map[string]int
	catalogs [][]domain.CatalogItem
}

func (e *fakeExporter) WriteTree(tree *domain.CategoryTree) error {
	e.trees++
	return nil
}

func (e *fakeExporter) WriteLeaf(key string, items []domain.CatalogItem) error {
	if e.leaves == nil {
		e.leaves = make(map[string]int)
	}
	e.leaves[key] = len(items)
	return nil
}

func (e *fakeExporter) WriteCatalog(items []domain.CatalogItem, at time.Time) error {
	e.catalogs = append(e.catalogs, items)
	return nil
}

type fakeSink struct {
	saved []*domain.Ledger
	err   error
	ctxOK bool
}

func (s *fakeSink) SaveLedger(ctx context.Context, ledger *domain.Ledger) error {
	s.ctxOK = ctx.Err() == nil
	s.saved = append(s.saved, ledger)
	return s.err
}

func node(id, name string, level int, children ...*domain.CategoryNode) *domain.CategoryNode {
	return &domain.CategoryNode{ID: id, Name: name, Level: level, Children: children}
}

func items(prefix string, n int) []domain.CatalogItem {
	out := make([]domain.CatalogItem, n)
	for i := range out {
		out[i] = domain.CatalogItem{ID: fmt.Sprintf("%s-%04d", prefix, i), Name: prefix, Price: int64(i + 1)}
	}
	return out
}
