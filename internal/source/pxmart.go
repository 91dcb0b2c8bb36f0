package source

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"pricescout/crawler/internal/client"
	"pricescout/crawler/internal/domain"
)

// PXMart addresses listings by level 3 category id and page number.
type PXMart struct {
	client  client.PXMartClient
	channel string
	tree    treeCache

	mu      sync.Mutex
	cursors map[string]cursor
}

// cursor is the page that continues a leaf listing at offset.
type cursor struct {
	offset  int
	pageNum int
}

func NewPXMart(c client.PXMartClient, channel string) *PXMart {
	return &PXMart{client: c, channel: channel, cursors: make(map[string]cursor)}
}

func (s *PXMart) Channel() string { return s.channel }

func (s *PXMart) Authenticate(ctx context.Context) error {
	return s.client.Login(ctx)
}

func (s *PXMart) CategoryTree(ctx context.Context) (*domain.CategoryTree, error) {
	return s.tree.get(ctx, s.client.GetCategories)
}

func (s *PXMart) LeafKey(path domain.CategoryPath) string {
	return path.Level3.ID
}

// FetchPage maps the item offset onto the backend's 1-based page number.
// Offset 0 starts a listing at page 1; any other offset must be where the
// previous page of the same leaf ended, so short pages never repeat a page.
func (s *PXMart) FetchPage(ctx context.Context, key string, offset int) (*domain.ListingPage, error) {
	pageNum := 1
	if offset > 0 {
		s.mu.Lock()
		cur, ok := s.cursors[key]
		s.mu.Unlock()
		if !ok || cur.offset != offset {
			return nil, fmt.Errorf("%w: no page of category %s continues at offset %d", domain.ErrData, key, offset)
		}
		pageNum = cur.pageNum
	}

	page, err := s.client.GetGoodsPage(ctx, key, pageNum)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cursors[key] = cursor{offset: offset + len(page.Items), pageNum: pageNum + 1}
	s.mu.Unlock()
	return page, nil
}

func (s *PXMart) Detail(ctx context.Context, goodsID, goodsNo, barcode string) (json.RawMessage, error) {
	if err := s.client.Login(ctx); err != nil {
		return nil, err
	}
	return s.client.GetDetail(ctx, goodsID, goodsNo, barcode)
}
