package repository

import (
	"context"
	"fmt"

	"pricescout/crawler/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Pool is the part of pgxpool.Pool the store uses.
type Pool interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

const postgresSchema = `
CREATE TABLE IF NOT EXISTS products (
	id         BIGSERIAL PRIMARY KEY,
	pid        TEXT NOT NULL,
	pno        VARCHAR(20),
	barcode    VARCHAR(20),
	name       VARCHAR(100),
	price      BIGINT,
	spec       DOUBLE PRECISION,
	unit       VARCHAR(10),
	price_unit DOUBLE PRECISION,
	channel    VARCHAR(20) NOT NULL,
	category1  VARCHAR(20),
	category2  VARCHAR(20),
	category3  VARCHAR(20),
	url        VARCHAR(300),
	pic_url    VARCHAR(300)
);
CREATE INDEX IF NOT EXISTS idx_products_channel_pid ON products (channel, pid);`

type postgresStore struct {
	db Pool
}

func NewPostgresStore(db Pool) ProductStore {
	return &postgresStore{
		db: db,
	}
}

func (r *postgresStore) ListByChannel(ctx context.Context, channel string) ([]domain.PersistedProduct, error) {
	rows, err := r.db.Query(ctx, fmt.Sprintf(listByChannelQuery, "$1"), channel)
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

func (r *postgresStore) ApplyPriceUpdates(ctx context.Context, updates []domain.PriceUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	query := fmt.Sprintf(updatePriceQuery, "$1", "$2", "$3", "$4")
	for _, u := range updates {
		if _, err := tx.Exec(ctx, query, u.Price, u.PriceUnit, u.PID, u.Channel); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("failed to update price of %s: %w", u.PID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit price updates: %w", err)
	}
	return nil
}

func (r *postgresStore) Migrate(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to migrate products table: %w", err)
	}
	return nil
}

func (r *postgresStore) Close() error {
	r.db.Close()
	return nil
}
