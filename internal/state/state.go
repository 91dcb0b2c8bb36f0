package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pricescout/crawler/internal/domain"

	"github.com/redis/go-redis/v9"
)

// KV is the part of redis.Client the ledger store uses.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// LedgerStore keeps the latest crawl ledger of each channel.
type LedgerStore interface {
	SaveLedger(ctx context.Context, ledger *domain.Ledger) error
	LatestLedger(ctx context.Context, channel string) (*domain.Ledger, error)
}

type redisLedgerStore struct {
	redisClient KV
	keyPrefix   string
}

func NewRedisLedgerStore(redisClient KV) LedgerStore {
	return &redisLedgerStore{
		redisClient: redisClient,
		keyPrefix:   "pricescout:ledger:",
	}
}

func (s *redisLedgerStore) SaveLedger(ctx context.Context, ledger *domain.Ledger) error {
	data, err := json.Marshal(ledger)
	if err != nil {
		return fmt.Errorf("failed to encode ledger of %s: %w", ledger.Channel, err)
	}

	key := s.keyPrefix + ledger.Channel
	if err := s.redisClient.Set(ctx, key, data, 0).Err(); err != nil { // No expiration
		return fmt.Errorf("failed to save ledger of %s: %w", ledger.Channel, err)
	}
	return nil
}

// LatestLedger returns nil when no run of channel was recorded yet.
func (s *redisLedgerStore) LatestLedger(ctx context.Context, channel string) (*domain.Ledger, error) {
	val, err := s.redisClient.Get(ctx, s.keyPrefix+channel).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get ledger of %s: %w", channel, err)
	}

	var ledger domain.Ledger
	if err := json.Unmarshal(val, &ledger); err != nil {
		return nil, fmt.Errorf("failed to decode ledger of %s: %w", channel, err)
	}
	return &ledger, nil
}
