package otp

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"questionnaire-app/backend/apperr"

	"github.com/redis/go-redis/v9"
)

// Throttle decides whether phone may be sent another code right now.
type Throttle interface {
	Allow(ctx context.Context, phone string) error
}

// MemoryThrottle keeps the last send time per phone in process memory. It is
// enough for a single instance; use RedisThrottle when running several.
type MemoryThrottle struct {
	mu       sync.Mutex
	last     map[string]time.Time
	cooldown time.Duration
	now      func() time.Time
}

func NewMemoryThrottle(cooldown time.Duration) *MemoryThrottle {
	return &MemoryThrottle{
		last:     make(map[string]time.Time),
		cooldown: cooldown,
		now:      time.Now,
	}
}

func (t *MemoryThrottle) Allow(_ context.Context, phone string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if last, ok := t.last[phone]; ok {
		if wait := t.cooldown - now.Sub(last); wait > 0 {
			return fmt.Errorf("please wait %d seconds before requesting another code: %w", int(wait.Seconds())+1, apperr.ErrRateLimited)
		}
	}
	t.last[phone] = now

	for p, ts := range t.last {
		if now.Sub(ts) > t.cooldown {
			delete(t.last, p)
		}
	}
	return nil
}

// RedisThrottle stores a short-lived marker key per phone.
type RedisThrottle struct {
	client   *redis.Client
	cooldown time.Duration
}

func NewRedisThrottle(client *redis.Client, cooldown time.Duration) *RedisThrottle {
	return &RedisThrottle{client: client, cooldown: cooldown}
}

func (t *RedisThrottle) Allow(ctx context.Context, phone string) error {
	key := "otp:last:" + phone
	ok, err := t.client.SetNX(ctx, key, "1", t.cooldown).Result()
	if err != nil {
		return fmt.Errorf("otp throttle: %w", err)
	}
	if ok {
		return nil
	}
	ttl, err := t.client.TTL(ctx, key).Result()
	if err != nil || ttl <= 0 {
		ttl = t.cooldown
	}
	return fmt.Errorf("please wait %d seconds before requesting another code: %w", int(ttl.Seconds()), apperr.ErrRateLimited)
}

// ConnectRedis builds a client from a redis:// URL or a bare host:port.
func ConnectRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	var client *redis.Client
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{Addr: redisURL})
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
