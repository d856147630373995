// Package cache keeps per-user unread notification counts in Redis. The count
// endpoint is hit by every client on each poll tick, so it is the one read
// worth caching; all notification writes invalidate.
package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// NotificationCache caches unread counts. A nil client disables caching and
// every lookup misses.
type NotificationCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewNotificationCache creates a cache over the given Redis client
func NewNotificationCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *NotificationCache {
	return &NotificationCache{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (c *NotificationCache) key(userID string) string {
	return "notif-unread:" + userID
}

// GetUnread returns the cached unread count for a user, or ok=false on miss
func (c *NotificationCache) GetUnread(ctx context.Context, userID string) (int, bool) {
	if c == nil || c.client == nil {
		return 0, false
	}

	val, err := c.client.Get(ctx, c.key(userID)).Result()
	if err == redis.Nil {
		return 0, false
	}
	if err != nil {
		c.logger.Debug("Unread count cache read failed", zap.Error(err))
		return 0, false
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}

	return count, true
}

// SetUnread stores the unread count for a user
func (c *NotificationCache) SetUnread(ctx context.Context, userID string, count int) {
	if c == nil || c.client == nil {
		return
	}

	if err := c.client.Set(ctx, c.key(userID), count, c.ttl).Err(); err != nil {
		c.logger.Debug("Unread count cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached count for the given users
func (c *NotificationCache) Invalidate(ctx context.Context, userIDs ...string) {
	if c == nil || c.client == nil || len(userIDs) == 0 {
		return
	}

	keys := make([]string, len(userIDs))
	for i, id := range userIDs {
		keys[i] = c.key(id)
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.logger.Debug("Unread count cache invalidation failed", zap.Error(err))
	}
}
