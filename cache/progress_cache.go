package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"Bt1Zen/model"

	"github.com/redis/go-redis/v9"
)

// ProgressCache persists per-user listening progress aggregates in Redis.
// The aggregate is small and read-modify-written as a single JSON value.
type ProgressCache struct {
	client *redis.Client
}

// NewProgressCache creates a progress cache on the given client. A nil
// client falls back to the global RedisClient.
func NewProgressCache(client *redis.Client) *ProgressCache {
	if client == nil {
		client = RedisClient
	}
	return &ProgressCache{client: client}
}

// progressKey builds the Redis key for a user's progress aggregate.
func progressKey(userID int64) string {
	return fmt.Sprintf("progress:%d", userID)
}

// Get returns the stored progress for a user, or nil when none exists.
func (c *ProgressCache) Get(ctx context.Context, userID int64) (*model.UserProgress, error) {
	if c.client == nil {
		return nil, fmt.Errorf("Redis client not initialized")
	}

	data, err := c.client.Get(ctx, progressKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user progress: %w", err)
	}

	var progress model.UserProgress
	if err := json.Unmarshal(data, &progress); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user progress: %w", err)
	}
	return &progress, nil
}

// Set stores the progress aggregate for a user. Progress has no TTL;
// it lives until explicitly reset.
func (c *ProgressCache) Set(ctx context.Context, userID int64, progress *model.UserProgress) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	data, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to marshal user progress: %w", err)
	}

	if err := c.client.Set(ctx, progressKey(userID), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set user progress: %w", err)
	}
	return nil
}

// Delete removes the progress aggregate for a user.
func (c *ProgressCache) Delete(ctx context.Context, userID int64) error {
	if c.client == nil {
		return fmt.Errorf("Redis client not initialized")
	}

	if err := c.client.Del(ctx, progressKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete user progress: %w", err)
	}
	return nil
}
