package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"todoReminder/internal/logger"
	"todoReminder/internal/models/notification"
)

const defaultTTL = 30 * time.Second

func notificationsKey(userID int64) string {
	return fmt.Sprintf("notifications:user:%d", userID)
}

func generationKey(userID int64) string {
	return fmt.Sprintf("notifications:user:%d:gen", userID)
}

// setIfGeneration writes the list only when the generation key still holds
// the value read before the store query. A missing key counts as 0.
var setIfGeneration = redis.NewScript(`
local current = redis.call('GET', KEYS[2])
if (current or '0') ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`)

// RedisCache keeps each user's notification list as one JSON value.
// Cache errors are logged and treated as misses, the store stays authoritative.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(ctx context.Context, url string, ttl time.Duration) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if ttl <= 0 {
		ttl = defaultTTL
	}
	logger.Info("Cache: redis client initialized", zap.String("addr", opts.Addr), zap.Duration("ttl", ttl))
	return &RedisCache{client: client, ttl: ttl}, nil
}

func (c *RedisCache) GetNotifications(ctx context.Context, userID int64) ([]*notification.Notification, bool) {
	b, err := c.client.Get(ctx, notificationsKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		logger.Debug("Cache: redis get failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, false
	}

	var list []*notification.Notification
	if err := json.Unmarshal(b, &list); err != nil {
		logger.Debug("Cache: unmarshal failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, false
	}
	return list, true
}

func (c *RedisCache) Generation(ctx context.Context, userID int64) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(userID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		logger.Debug("Cache: redis generation read failed", zap.Int64("user_id", userID), zap.Error(err))
		return 0, fmt.Errorf("read cache generation: %w", err)
	}
	return gen, nil
}

func (c *RedisCache) SetNotifications(ctx context.Context, userID, gen int64, list []*notification.Notification) {
	b, err := json.Marshal(list)
	if err != nil {
		logger.Debug("Cache: marshal failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}

	keys := []string{notificationsKey(userID), generationKey(userID)}
	stored, err := setIfGeneration.Run(ctx, c.client, keys, gen, b, c.ttl.Milliseconds()).Int()
	if err != nil {
		logger.Debug("Cache: redis set failed", zap.Int64("user_id", userID), zap.Error(err))
		return
	}
	if stored == 0 {
		logger.Debug("Cache: fill dropped, invalidated meanwhile", zap.Int64("user_id", userID))
	}
}

// Invalidate drops the cached lists and bumps each user's generation, so fills
// that started earlier are discarded.
func (c *RedisCache) Invalidate(ctx context.Context, userIDs ...int64) {
	if len(userIDs) == 0 {
		return
	}
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range userIDs {
			pipe.Incr(ctx, generationKey(id))
			pipe.Del(ctx, notificationsKey(id))
		}
		return nil
	})
	if err != nil {
		logger.Warn("Cache: redis invalidate failed", zap.Int("users", len(userIDs)), zap.Error(err))
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Noop is used when no redis url is configured.
type Noop struct{}

func (Noop) GetNotifications(context.Context, int64) ([]*notification.Notification, bool) {
	return nil, false
}

func (Noop) Generation(context.Context, int64) (int64, error) { return 0, nil }

func (Noop) SetNotifications(context.Context, int64, int64, []*notification.Notification) {}

func (Noop) Invalidate(context.Context, ...int64) {}

func (Noop) Close() error { return nil }
