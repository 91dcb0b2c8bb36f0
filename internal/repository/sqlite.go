package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"pricescout/crawler/internal/domain"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
	id         INTEGER PRIMARY KEY,
	pid        TEXT NOT NULL,
	pno        VARCHAR(20),
	barcode    VARCHAR(20),
	name       VARCHAR(100),
	price      INTEGER,
	spec       DOUBLE,
	unit       VARCHAR(10),
	price_unit DOUBLE,
	channel    VARCHAR(20) NOT NULL,
	category1  VARCHAR(20),
	category2  VARCHAR(20),
	category3  VARCHAR(20),
	url        VARCHAR(300),
	pic_url    VARCHAR(300)
);
CREATE INDEX IF NOT EXISTS idx_products_channel_pid ON products (channel, pid);`

type sqliteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens the database file at path, creating its directory.
func NewSQLiteStore(path string) (ProductStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to exec %s: %w", pragma, err)
		}
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) ListByChannel(ctx context.Context, channel string) ([]domain.PersistedProduct, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(listByChannelQuery, "?"), channel)
	if err != nil {
		return nil, fmt.Errorf("failed to list products of %s: %w", channel, err)
	}
	defer rows.Close()

	products := make([]domain.PersistedProduct, 0)
	for rows.Next() {
		p := domain.PersistedProduct{Channel: channel}
		if err := rows.Scan(&p.PID, &p.Price, &p.Spec, &p.PriceUnit); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list products of %s: %w", channel, err)
	}

	return products, nil
}

func (s *sqliteStore) ApplyPriceUpdates(ctx context.Context, updates []domain.PriceUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(updatePriceQuery, "?", "?", "?", "?"))
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to prepare price update: %w", err)
	}
	defer stmt.Close()

	for _, u := range updates {
		if _, err := stmt.ExecContext(ctx, u.Price, u.PriceUnit, u.PID, u.Channel); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update price of %s: %w", u.PID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit price updates: %w", err)
	}
	return nil
}

func (s *sqliteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("failed to migrate products table: %w", err)
	}
	return nil
}

func (s *sqliteStore) Close() error {
	return s.db.Close()
}
