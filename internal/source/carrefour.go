package source

import (
	"context"

	"pricescout/crawler/internal/client"
	"pricescout/crawler/internal/domain"
	"pricescout/crawler/internal/slug"
)

// Carrefour addresses listings by the slug path of the category names.
type Carrefour struct {
	client  client.CarrefourClient
	encoder *slug.Encoder
	channel string
	tree    treeCache
}

func NewCarrefour(c client.CarrefourClient, channel string) *Carrefour {
	return &Carrefour{
		client:  c,
		encoder: slug.Default(),
		channel: channel,
	}
}

func (s *Carrefour) Channel() string { return s.channel }

// Authenticate does nothing, the storefront is public.
func (s *Carrefour) Authenticate(ctx context.Context) error { return nil }

func (s *Carrefour) CategoryTree(ctx context.Context) (*domain.CategoryTree, error) {
	return s.tree.get(ctx, s.client.GetCategories)
}

func (s *Carrefour) LeafKey(path domain.CategoryPath) string {
	names := path.Names()
	return s.encoder.Path(names[:]...)
}

func (s *Carrefour) FetchPage(ctx context.Context, key string, offset int) (*domain.ListingPage, error) {
	return s.client.GetListingPage(ctx, key, offset)
}

// DetailPrice returns the raw price token of a product page.
func (s *Carrefour) DetailPrice(ctx context.Context, pid string) (string, error) {
	return s.client.GetProductPrice(ctx, pid)
}
