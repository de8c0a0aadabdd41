package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tenant-notes/models"
	"tenant-notes/store"
)

const tenantKeyPrefix = "tenant:"

// RedisTenantCache stores tenants as JSON under "tenant:<id>".
type RedisTenantCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisTenantCache(client *redis.Client, ttl time.Duration) *RedisTenantCache {
	return &RedisTenantCache{client: client, ttl: ttl}
}

func tenantKey(id string) string {
	return tenantKeyPrefix + id
}

func (c *RedisTenantCache) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	val, err := c.client.Get(ctx, tenantKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache get %s: %w", id, err)
	}
	var t models.Tenant
	if err := json.Unmarshal(val, &t); err != nil {
		return nil, fmt.Errorf("decode cached tenant %s: %w", id, err)
	}
	return &t, nil
}

func (c *RedisTenantCache) SetTenant(ctx context.Context, t *models.Tenant) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal tenant: %w", err)
	}
	return c.client.Set(ctx, tenantKey(t.ID), data, c.ttl).Err()
}

func (c *RedisTenantCache) InvalidateTenant(ctx context.Context, id string) error {
	return c.client.Del(ctx, tenantKey(id)).Err()
}

func (c *RedisTenantCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
