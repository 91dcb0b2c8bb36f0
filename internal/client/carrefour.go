package client

import (
	"context"
	"fmt"
	"strconv"

	"pricescout/crawler/internal/config"
	"pricescout/crawler/internal/domain"
	"pricescout/crawler/internal/proxy"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// CarrefourClient talks to the storefront that addresses listings by slug path.
type CarrefourClient interface {
	GetCategories(ctx context.Context) (domain.RawLevels, error)
	GetListingPage(ctx context.Context, slugPath string, offset int) (*domain.ListingPage, error)
	GetProductPrice(ctx context.Context, pid string) (string, error)
	Close() error
}

type carrefourClient struct {
	rl         ratelimit.Limiter
	config     config.CarrefourConfig
	httpClient *resty.Client
	parser     *carrefourParser
}

func NewCarrefourClient(cfg config.CarrefourConfig, proxySupplier proxy.ProxySupplier) CarrefourClient {
	client := newHTTPClient(cfg.HTTPConfig)

	if proxySupplier != nil {
		if proxyURL := proxySupplier.Get(); proxyURL != "" {
			client.SetProxy(proxyURL)
			log.Infof("🔗 Using proxy for Carrefour: %s", proxyURL)
		}
	}

	return &carrefourClient{
		rl:         newLimiter(cfg.MaxRequestsPerSecond),
		config:     cfg,
		httpClient: client,
		parser:     &carrefourParser{},
	}
}

func (c *carrefourClient) GetCategories(ctx context.Context) (domain.RawLevels, error) {
	html, err := c.fetchHTML(ctx, "/", nil)
	if err != nil {
		return domain.RawLevels{}, fmt.Errorf("failed to fetch category page: %w", err)
	}

	levels, err := c.parser.ParseCategories(html)
	if err != nil {
		return domain.RawLevels{}, fmt.Errorf("failed to parse category page: %w", err)
	}

	log.Debugf("Parsed %d/%d/%d Carrefour categories", len(levels.First), len(levels.Second), len(levels.Third))
	return levels, nil
}

func (c *carrefourClient) GetListingPage(ctx context.Context, slugPath string, offset int) (*domain.ListingPage, error) {
	path := "/" + c.config.Language + "/" + escapeNonASCII(slugPath)

	html, err := c.fetchHTML(ctx, path, map[string]string{"start": strconv.Itoa(offset)})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing %s: %w", slugPath, err)
	}

	page, err := c.parser.ParseListing(html)
	if err != nil {
		return nil, fmt.Errorf("failed to parse listing %s: %w", slugPath, err)
	}

	log.Debugf("Fetched %s at offset %d: %d items of %d", slugPath, offset, len(page.Items), page.Total)
	return page, nil
}

// GetProductPrice returns the raw price text of a product detail page.
func (c *carrefourClient) GetProductPrice(ctx context.Context, pid string) (string, error) {
	path := "/" + c.config.Language + "/" + escapeNonASCII(pid) + ".html"

	html, err := c.fetchHTML(ctx, path, nil)
	if err != nil {
		return "", fmt.Errorf("failed to fetch product %s: %w", pid, err)
	}

	token, err := c.parser.ParseProductPrice(html)
	if err != nil {
		return "", fmt.Errorf("failed to parse product %s: %w", pid, err)
	}
	return token, nil
}

func (c *carrefourClient) Close() error {
	return c.httpClient.Close()
}

func (c *carrefourClient) fetchHTML(ctx context.Context, path string, query map[string]string) (string, error) {
	c.rl.Take()

	req := c.httpClient.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}

	resp, err := req.Get(path)
	if err != nil {
		return "", transportError(ctx, "GET", path, err)
	}

	if resp.IsError() {
		return "", statusError("GET", path, resp)
	}

	return resp.String(), nil
}
