package handoff

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/anvishah1/ForReal/internal/logging"
	"github.com/anvishah1/ForReal/internal/upload"
)

// Cache abstracts the Redis operations used by RedisStore to make testing easier.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
}

// RedisCache is a concrete implementation backed by go-redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache constructs a new Redis-backed cache adapter.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Set writes a value to Redis.
func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

// GetDel atomically reads and removes a value.
func (c *RedisCache) GetDel(ctx context.Context, key string) (string, error) {
	return c.client.GetDel(ctx, key).Result()
}

// DialRedis connects to addr and verifies the server answers.
func DialRedis(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, logging.NewOperationError("handoff.dial_redis", "", err)
	}
	return client, nil
}

// RedisStore shares handoff bundles between several instances of the app.
// Transient Redis errors are retried with exponential backoff.
type RedisStore struct {
	cache          Cache
	ttl            time.Duration
	logger         *zap.Logger
	retryAttempts  int
	initialBackoff time.Duration
	maxBackoff     time.Duration
}

// NewRedisStore creates a store over cache whose entries expire after ttl.
func NewRedisStore(cache Cache, ttl time.Duration, logger *zap.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStore{
		cache:          cache,
		ttl:            ttl,
		logger:         logger.Named("handoff_store"),
		retryAttempts:  3,
		initialBackoff: 50 * time.Millisecond,
		maxBackoff:     time.Second,
	}
}

// Put serializes bundle and stores it under a new token.
func (s *RedisStore) Put(ctx context.Context, bundle upload.Bundle) (string, error) {
	token := newToken()
	serialized, err := json.Marshal(bundle)
	if err != nil {
		return "", logging.NewOperationError("handoff.encode", token, err)
	}

	if err := s.withRetry(ctx, token, "handoff.put", func() error {
		return s.cache.Set(ctx, cacheKey(token), string(serialized), s.ttl)
	}); err != nil {
		return "", err
	}
	return token, nil
}

// Take atomically fetches and deletes the bundle for token.
func (s *RedisStore) Take(ctx context.Context, token string) (upload.Bundle, error) {
	var payload string
	err := s.withRetry(ctx, token, "handoff.take", func() error {
		value, err := s.cache.GetDel(ctx, cacheKey(token))
		if err != nil {
			return err
		}
		payload = value
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return upload.Bundle{}, ErrNotFound
	}
	if err != nil {
		return upload.Bundle{}, err
	}

	var bundle upload.Bundle
	if err := json.Unmarshal([]byte(payload), &bundle); err != nil {
		logging.WithOperation(s.logger, "handoff.take", "").Warn("failed to decode cached bundle",
			zap.String("token", token), zap.Error(err))
		return upload.Bundle{}, ErrNotFound
	}
	return bundle, nil
}

func (s *RedisStore) withRetry(ctx context.Context, token, operation string, fn func() error) error {
	opLogger := s.logger.With(zap.String("operation", operation), zap.String("token", token))
	backoff := s.initialBackoff

	var err error
	for attempt := 0; attempt < max(s.retryAttempts, 1); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return logging.NewOperationError(operation, "", ctx.Err())
			case <-time.After(backoff):
			}
			if next := backoff * 2; next <= s.maxBackoff {
				backoff = next
			}
		}

		err = fn()
		if err == nil {
			if attempt > 0 {
				opLogger.Info("redis operation succeeded after retry", zap.Int("attempt", attempt+1))
			}
			return nil
		}
		if errors.Is(err, redis.Nil) {
			return err
		}
		if !isTransientError(err) || attempt == s.retryAttempts-1 {
			opLogger.Error("redis operation failed", zap.Error(err), zap.Int("attempt", attempt+1))
			return logging.NewOperationError(operation, "", err)
		}
		opLogger.Warn("transient redis error", zap.Error(err), zap.Int("attempt", attempt+1))
	}
	return logging.NewOperationError(operation, "", err)
}

func cacheKey(token string) string {
	return fmt.Sprintf("handoff:%s", token)
}

func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var temporary interface{ Temporary() bool }
	if errors.As(err, &temporary) && temporary.Temporary() {
		return true
	}

	return false
}
