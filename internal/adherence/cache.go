package adherence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"medication-alerts/internal/models"
)

// Cache stores rendered reports in Redis. Keys embed the ledger version, so
// an entry can never describe a ledger state other than the one it names and
// nothing needs invalidating.
type Cache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewCache(client redis.Cmdable, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(patientID string, version int, start, end time.Time) string {
	return fmt.Sprintf("adherence:%s:%d:%d:%d", patientID, version, start.UnixNano(), end.UnixNano())
}

// Get returns (nil, nil) on a miss.
func (c *Cache) Get(ctx context.Context, key string) (*models.Report, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var report models.Report
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("cache decode: %w", err)
	}
	return &report, nil
}

func (c *Cache) Set(ctx context.Context, key string, report *models.Report) error {
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}
