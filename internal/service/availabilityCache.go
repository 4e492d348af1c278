package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/ds124wfegd/confhub/internal/entity"
)

// redisAvailabilityCache хранит снимки доступности с коротким TTL,
// снимая нагрузку частых опросов с Postgres
type redisAvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAvailabilityCache(client *redis.Client, ttl time.Duration) AvailabilityCache {
	if ttl <= 0 {
		ttl = 5 * time.Second
	}
	return &redisAvailabilityCache{client: client, ttl: ttl}
}

func availabilityKey(ticketID int64) string {
	return fmt.Sprintf("confhub:availability:%d", ticketID)
}

func (c *redisAvailabilityCache) Get(ctx context.Context, ticketID int64) (*entity.TicketAvailability, error) {
	data, err := c.client.Get(ctx, availabilityKey(ticketID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get availability from cache: %w", err)
	}

	var availability entity.TicketAvailability
	if err := json.Unmarshal(data, &availability); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached availability: %w", err)
	}
	return &availability, nil
}

func (c *redisAvailabilityCache) Set(ctx context.Context, availability *entity.TicketAvailability) error {
	data, err := json.Marshal(availability)
	if err != nil {
		return fmt.Errorf("failed to marshal availability: %w", err)
	}

	if err := c.client.Set(ctx, availabilityKey(availability.TicketID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache availability: %w", err)
	}
	return nil
}

func (c *redisAvailabilityCache) Invalidate(ctx context.Context, ticketID int64) error {
	if err := c.client.Del(ctx, availabilityKey(ticketID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate availability cache: %w", err)
	}
	return nil
}
