package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/stockfolio/forex-service/internal/models"
)

const rateSnapshotKeyPrefix = "forex:rates:"

// RateSnapshotRepository stores rate tables in Redis as JSON under
// forex:rates:{BASE}, expiring after the configured TTL.
type RateSnapshotRepository struct {
	client *redis.Client
	exp    time.Duration
}

func NewRateSnapshotRepository(client *redis.Client, expiration time.Duration) *RateSnapshotRepository {
	return &RateSnapshotRepository{
		client: client,
		exp:    expiration,
	}
}

// Load reports false without an error when no snapshot exists for base.
func (r *RateSnapshotRepository) Load(ctx context.Context, base string) (models.CacheEntry, bool, error) {
	data, err := r.client.Get(ctx, rateSnapshotKeyPrefix+base).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.CacheEntry{}, false, nil
	}
	if err != nil {
		return models.CacheEntry{}, false, err
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return models.CacheEntry{}, false, err
	}
	return entry, true, nil
}

func (r *RateSnapshotRepository) Save(ctx context.Context, entry models.CacheEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, rateSnapshotKeyPrefix+entry.Base, data, r.exp).Err()
}
