package container

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pricescout/crawler/internal/client"
	"pricescout/crawler/internal/config"
	"pricescout/crawler/internal/crawl"
	"pricescout/crawler/internal/export"
	"pricescout/crawler/internal/proxy"
	"pricescout/crawler/internal/queue"
	"pricescout/crawler/internal/reconcile"
	"pricescout/crawler/internal/repository"
	"pricescout/crawler/internal/source"
	"pricescout/crawler/internal/state"
	"pricescout/crawler/internal/tree"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	SourceCarrefour = "carrefour"
	SourcePXMart    = "pxmart"
)

// Sources lists the source names in the order "all" runs them.
var Sources = []string{SourceCarrefour, SourcePXMart}

// Container holds all initialized components
type Container struct {
	Config    *config.Config
	Carrefour *source.Carrefour
	PXMart    *source.PXMart
	Store     repository.ProductStore
	Ledgers   state.LedgerStore // nil when Redis is disabled
	Queue     *queue.RedisQueue // nil when Redis is disabled
	Job       *reconcile.Job

	carrefourClient client.CarrefourClient
	pxMartClient    client.PXMartClient
	redis           *redis.Client
}

// New creates a new container with all dependencies initialized
func New(ctx context.Context, cfg *config.Config) (*Container, error) {
	c := &Container{
		Config: cfg,
	}

	proxySupplier := proxy.NewProxySupplier(ctx, cfg.Carrefour.Proxies, cfg.Carrefour.BaseURL)

	c.carrefourClient = client.NewCarrefourClient(cfg.Carrefour, proxySupplier)
	c.pxMartClient = client.NewPXMartClient(cfg.PXMart)
	c.Carrefour = source.NewCarrefour(c.carrefourClient, cfg.Carrefour.Channel)
	c.PXMart = source.NewPXMart(c.pxMartClient, cfg.PXMart.Channel)

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Store = store

	var publisher reconcile.ChangePublisher
	if cfg.Redis.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.Database,
		})
		c.redis = rdb

		if _, err := rdb.Ping(ctx).Result(); err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		log.Info("✅ Connected to Redis successfully")

		c.Ledgers = state.NewRedisLedgerStore(rdb)
		c.Queue = queue.NewRedisQueue(rdb, cfg.Redis)
		if err := c.Queue.EnsureStreamsExist(ctx); err != nil {
			c.Close()
			return nil, err
		}
		publisher = c.Queue
	}

	c.Job = reconcile.NewJob(store, publisher)
	return c, nil
}

func openStore(ctx context.Context, cfg config.DatabaseConfig) (repository.ProductStore, error) {
	switch strings.ToLower(cfg.Driver) {
	case "postgres":
		db, err := pgxpool.New(ctx, cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Postgres: %w", err)
		}
		log.Info("✅ Connected to Postgres")
		return repository.NewPostgresStore(db), nil
	case "sqlite", "":
		store, err := repository.NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, err
		}
		log.Infof("✅ Opened SQLite database %s", cfg.Path)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// Source returns the crawl source registered under name.
func (c *Container) Source(name string) (crawl.Source, error) {
	switch name {
	case SourceCarrefour:
		return c.Carrefour, nil
	case SourcePXMart:
		return c.PXMart, nil
	default:
		return nil, fmt.Errorf("unknown source %q, expected one of %s", name, strings.Join(Sources, ", "))
	}
}

// Crawl runs one full crawl of the named source and exports its artifacts.
func (c *Container) Crawl(ctx context.Context, name string) (*crawl.Result, error) {
	src, err := c.Source(name)
	if err != nil {
		return nil, err
	}

	writer := export.NewWriter(c.Config.Crawl.OutputDir, name, time.Now())
	sinks := []crawl.LedgerSink{writer}
	if c.Ledgers != nil {
		sinks = append(sinks, c.Ledgers)
	}

	opts := crawl.Options{Denylist: c.Config.Crawl.Denylist}
	switch name {
	case SourceCarrefour:
		opts.LeafFiles = true
	case SourcePXMart:
		opts.CatalogFile = true
	}

	return crawl.NewCrawler(src, writer, sinks, opts).Run(ctx)
}

// CrawlAll crawls every source at once. Each source still issues its own
// requests one at a time.
func (c *Container) CrawlAll(ctx context.Context) error {
	var g errgroup.Group
	for _, name := range Sources {
		g.Go(func() error {
			if _, err := c.Crawl(ctx, name); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Reconcile refreshes persisted prices of the named source. The listing
// backend is swept by category, the storefront product by product.
func (c *Container) Reconcile(ctx context.Context, name string) (*reconcile.Report, error) {
	switch name {
	case SourcePXMart:
		return c.Job.ReconcileListing(ctx, c.PXMart)
	case SourceCarrefour:
		return c.Job.ReconcileDetails(ctx, c.Carrefour, c.Carrefour.Channel())
	default:
		_, err := c.Source(name)
		return nil, err
	}
}

// ReconcileAll runs the sources one after the other; the store has a single writer.
func (c *Container) ReconcileAll(ctx context.Context) ([]*reconcile.Report, error) {
	reports := make([]*reconcile.Report, 0, len(Sources))
	for _, name := range []string{SourcePXMart, SourceCarrefour} {
		report, err := c.Reconcile(ctx, name)
		if report != nil {
			reports = append(reports, report)
		}
		if err != nil {
			return reports, fmt.Errorf("%s: %w", name, err)
		}
		if report.Cancelled {
			break
		}
	}
	return reports, nil
}

// CategoryLines returns the /level1/level2/level3 listing of the named source.
func (c *Container) CategoryLines(ctx context.Context, name string) ([]string, error) {
	src, err := c.Source(name)
	if err != nil {
		return nil, err
	}
	if err := src.Authenticate(ctx); err != nil {
		return nil, err
	}

	t, err := src.CategoryTree(ctx)
	if err != nil {
		return nil, err
	}
	return tree.Lines(t), nil
}

// Close performs cleanup when shutting down
func (c *Container) Close() error {
	log.Debug("Shutting down container...")

	if c.carrefourClient != nil {
		c.carrefourClient.Close()
	}
	if c.pxMartClient != nil {
		c.pxMartClient.Close()
	}
	if c.Store != nil {
		c.Store.Close()
	}
	if c.redis != nil {
		c.redis.Close()
	}

	log.Debug("Container shut down successfully")
	return nil
}
