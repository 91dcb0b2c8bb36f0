// Package export writes crawl artifacts into a per-run directory.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pricescout/crawler/internal/domain"
	"pricescout/crawler/internal/tree"

	"github.com/jszwec/csvutil"
	log "github.com/sirupsen/logrus"
)

const (
	treeFile   = "categories.json"
	linesFile  = "cats.txt"
	ledgerFile = "debug.json"
	rawFile    = "raw_products.json"

	stampLabel = "更新日期"
)

// Writer implements crawl.Exporter and crawl.LedgerSink on the local filesystem.
type Writer struct {
	dir string
}

// NewWriter targets <root>/<name>_<MMDD>.
func NewWriter(root, name string, started time.Time) *Writer {
	return &Writer{dir: filepath.Join(root, fmt.Sprintf("%s_%s", name, started.Format("0102")))}
}

func (w *Writer) Dir() string {
	return w.dir
}

func (w *Writer) WriteTree(t *domain.CategoryTree) error {
	if err := w.writeJSON(treeFile, t); err != nil {
		return err
	}

	lines := strings.Join(tree.Lines(t), "\n")
	if err := w.writeFile(linesFile, []byte(lines+"\n")); err != nil {
		return err
	}

	log.Infof("📁 Wrote category tree to %s", w.dir)
	return nil
}

// WriteLeaf writes one leaf listing to <key>.csv; slashes in key become directories.
func (w *Writer) WriteLeaf(key string, items []domain.CatalogItem) error {
	return w.writeCSV(filepath.FromSlash(key)+".csv", items, nil)
}

// WriteCatalog writes the whole run as products_MMDD.csv, whose first data row
// records when the crawl started, plus the raw item dump.
func (w *Writer) WriteCatalog(items []domain.CatalogItem, at time.Time) error {
	if err := w.writeJSON(rawFile, items); err != nil {
		return err
	}

	stamp := make([]string, len(domain.CatalogFields))
	stamp[0] = stampLabel
	stamp[1] = at.Format(time.DateTime)

	name := fmt.Sprintf("products_%s.csv", at.Format("0102"))
	if err := w.writeCSV(name, items, stamp); err != nil {
		return err
	}

	log.Infof("📦 Wrote %d products to %s", len(items), filepath.Join(w.dir, name))
	return nil
}

func (w *Writer) SaveLedger(ctx context.Context, ledger *domain.Ledger) error {
	return w.writeJSON(ledgerFile, ledger)
}

func (w *Writer) writeCSV(name string, items []domain.CatalogItem, stamp []string) (err error) {
	path, err := w.prepare(name)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, closeErr)
		}
	}()

	return encodeCSV(f, path, items, stamp)
}

func encodeCSV(out io.Writer, path string, items []domain.CatalogItem, stamp []string) error {
	cw := csv.NewWriter(out)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = false

	if err := enc.EncodeHeader(domain.CatalogItem{}); err != nil {
		return fmt.Errorf("failed to write header of %s: %w", path, err)
	}
	if stamp != nil {
		if err := cw.Write(stamp); err != nil {
			return fmt.Errorf("failed to write stamp row of %s: %w", path, err)
		}
	}
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("failed to write row of %s: %w", path, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}
	return nil
}

func (w *Writer) writeJSON(name string, v any) error {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return w.writeFile(name, []byte(b.String()))
}

func (w *Writer) writeFile(name string, data []byte) error {
	path, err := w.prepare(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (w *Writer) prepare(name string) (string, error) {
	path := filepath.Join(w.dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return path, nil
}
