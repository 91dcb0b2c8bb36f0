package crawl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pricescout/crawler/internal/domain"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type Options struct {
	Denylist    []string // Level 1 names whose whole branch is skipped
	LeafFiles   bool     // Export every leaf listing on its own
	CatalogFile bool     // Export all items of the run as one catalog
}

type Crawler struct {
	source   Source
	exporter Exporter
	sinks    []LedgerSink
	denylist map[string]struct{}
	opts     Options
	now      func() time.Time
}

// Result is everything a run collected, complete or not.
type Result struct {
	RunID     string
	Channel   string
	Tree      *domain.CategoryTree
	Items     []domain.CatalogItem
	Ledger    *domain.Ledger
	Leaves    int // Leaves attempted, failed ones included
	Cancelled bool
}

func NewCrawler(source Source, exporter Exporter, sinks []LedgerSink, opts Options) *Crawler {
	denylist := make(map[string]struct{}, len(opts.Denylist))
	for _, name := range opts.Denylist {
		denylist[strings.TrimSpace(name)] = struct{}{}
	}

	return &Crawler{
		source:   source,
		exporter: exporter,
		sinks:    sinks,
		denylist: denylist,
		opts:     opts,
		now:      time.Now,
	}
}

// Run crawls every leaf of the source. Leaf failures go to the ledger and the
// walk continues; authentication and protocol failures end it. Cancelling ctx
// stops the walk before the next leaf and Run returns what was collected with
// Cancelled set. The ledger is saved on every path out of Run.
func (c *Crawler) Run(ctx context.Context) (*Result, error) {
	started := c.now()
	result := &Result{
		RunID:   uuid.NewString(),
		Channel: c.source.Channel(),
		Items:   make([]domain.CatalogItem, 0),
	}
	result.Ledger = domain.NewLedger(result.RunID, result.Channel, started)

	log.Infof("🔄 Crawling %s (run %s)", result.Channel, result.RunID)

	err := c.crawl(ctx, result)
	if err != nil && isCancellation(ctx, err) {
		result.Cancelled = true
		err = nil
		log.Warnf("🛑 Crawl of %s cancelled after %d leaves", result.Channel, result.Leaves)
	}

	if c.exporter != nil && c.opts.CatalogFile && result.Tree != nil {
		if exportErr := c.exporter.WriteCatalog(result.Items, started); exportErr != nil {
			log.Errorf("❌ Failed to export %s catalog: %v", result.Channel, exportErr)
		}
	}

	flushErr := c.flushLedger(context.WithoutCancel(ctx), result.Ledger)

	if err != nil {
		log.Errorf("❌ Crawl of %s aborted: %v", result.Channel, err)
		return result, err
	}
	if flushErr != nil {
		return result, flushErr
	}

	log.Infof("✅ Crawled %s: %d leaves, %d items, %d errors",
		result.Channel, result.Leaves, len(result.Items), len(result.Ledger.Errors))
	return result, nil
}

func (c *Crawler) crawl(ctx context.Context, result *Result) error {
	if err := c.source.Authenticate(ctx); err != nil {
		return fmt.Errorf("failed to authenticate: %w", err)
	}

	tree, err := c.source.CategoryTree(ctx)
	if err != nil {
		return fmt.Errorf("failed to load categories: %w", err)
	}
	result.Tree = tree

	if c.exporter != nil {
		if err := c.exporter.WriteTree(tree); err != nil {
			log.Errorf("❌ Failed to export %s categories: %v", result.Channel, err)
		}
	}

	return c.walk(ctx, tree, result)
}

func (c *Crawler) walk(ctx context.Context, tree *domain.CategoryTree, result *Result) error {
	for _, l1 := range tree.Roots {
		if _, denied := c.denylist[l1.Name]; denied {
			log.Infof("⏭️ Skipping %s", l1.Name)
			continue
		}

		for _, l2 := range l1.Children {
			for _, l3 := range l2.Children {
				if err := ctx.Err(); err != nil {
					return err
				}

				path := domain.CategoryPath{Level1: l1, Level2: l2, Level3: l3}
				if err := c.visit(ctx, path, result); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// visit fetches one leaf. Only errors that must end the walk are returned.
func (c *Crawler) visit(ctx context.Context, path domain.CategoryPath, result *Result) error {
	names := path.Names()
	label := strings.Join(names[:], "/")
	result.Leaves++

	items, err := FetchLeaf(ctx, c.source, path)
	if err != nil {
		if isCancellation(ctx, err) || domain.IsFatal(err) {
			return err
		}
		result.Ledger.Record(path, err)
		log.Errorf("❌ Failed to crawl %s: %v", label, err)
		return nil
	}

	result.Items = append(result.Items, items...)
	log.Infof("✅ %s: %d items", label, len(items))

	if c.exporter != nil && c.opts.LeafFiles {
		if err := c.exporter.WriteLeaf(c.source.LeafKey(path), items); err != nil {
			log.Errorf("❌ Failed to export %s: %v", label, err)
		}
	}
	return nil
}

func (c *Crawler) flushLedger(ctx context.Context, ledger *domain.Ledger) error {
	var errs []error
	for _, sink := range c.sinks {
		if err := sink.SaveLedger(ctx, ledger); err != nil {
			log.Errorf("❌ Failed to save error ledger: %v", err)
			errs = append(errs, err)
		}
	}
	if len(ledger.Errors) > 0 {
		log.Warnf("⚠️ %d leaves of %s failed", len(ledger.Errors), ledger.Channel)
	}
	return errors.Join(errs...)
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled)
}
