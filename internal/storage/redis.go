package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/your-org/ytmerge/internal/config"
	"github.com/your-org/ytmerge/internal/models"
)

// FormatsCache keeps resolved format lists for a short TTL so that repeated
// lookups of the same video skip the upstream round trip.
type FormatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFormatsCache(ctx context.Context, cfg config.RedisConfig) (*FormatsCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &FormatsCache{client: client, ttl: cfg.FormatsTTL}, nil
}

func formatsKey(id string) string {
	return "formats:" + id
}

// Get returns the cached formats for id. A miss is (nil, false, nil).
func (c *FormatsCache) Get(ctx context.Context, id string) (*models.VideoFormats, bool, error) {
	val, err := c.client.Get(ctx, formatsKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get formats %s: %w", id, err)
	}
	var vf models.VideoFormats
	if err := json.Unmarshal(val, &vf); err != nil {
		return nil, false, fmt.Errorf("decode formats %s: %w", id, err)
	}
	return &vf, true, nil
}

func (c *FormatsCache) Set(ctx context.Context, vf *models.VideoFormats) error {
	data, err := json.Marshal(vf)
	if err != nil {
		return fmt.Errorf("encode formats %s: %w", vf.ID, err)
	}
	if err := c.client.Set(ctx, formatsKey(vf.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set formats %s: %w", vf.ID, err)
	}
	return nil
}

func (c *FormatsCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *FormatsCache) Close() error {
	return c.client.Close()
}
