package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shenikar/relief_locator/internal/models"
	"github.com/shenikar/relief_locator/internal/service"
)

const defaultResourceCacheTTL = 5 * time.Minute

// ResourceCache хранит ресурсы в Redis в виде JSON
type ResourceCache struct {
	redisClient *redis.Client
	ttl         time.Duration
}

var _ service.ResourceCache = (*ResourceCache)(nil)

func NewResourceCache(redisClient *redis.Client, ttl time.Duration) *ResourceCache {
	if ttl <= 0 {
		ttl = defaultResourceCacheTTL
	}
	return &ResourceCache{
		redisClient: redisClient,
		ttl:         ttl,
	}
}

// Get пытается получить ресурс из Redis, nil при промахе
func (c *ResourceCache) Get(ctx context.Context, id uuid.UUID) (*models.Resource, error) {
	val, err := c.redisClient.Get(ctx, resourceKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get resource from cache: %w", err)
	}

	resource := &models.Resource{}
	if err := json.Unmarshal(val, resource); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resource from cache: %w", err)
	}
	return resource, nil
}

// Set сохраняет ресурс в Redis, перезаписывая ключ
func (c *ResourceCache) Set(ctx context.Context, resource *models.Resource) error {
	val, err := json.Marshal(resource)
	if err != nil {
		return fmt.Errorf("failed to marshal resource for cache: %w", err)
	}
	if err := c.redisClient.Set(ctx, resourceKey(resource.ID), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set resource in cache: %w", err)
	}
	return nil
}

// Add сохраняет ресурс, только если ключа ещё нет (SET NX)
func (c *ResourceCache) Add(ctx context.Context, resource *models.Resource) error {
	val, err := json.Marshal(resource)
	if err != nil {
		return fmt.Errorf("failed to marshal resource for cache: %w", err)
	}
	if err := c.redisClient.SetNX(ctx, resourceKey(resource.ID), val, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to add resource to cache: %w", err)
	}
	return nil
}

// Invalidate удаляет ресурс из кэша
func (c *ResourceCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	if err := c.redisClient.Del(ctx, resourceKey(id)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate resource cache: %w", err)
	}
	return nil
}

func resourceKey(id uuid.UUID) string {
	return fmt.Sprintf("resource:%s", id.String())
}
