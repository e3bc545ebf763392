package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/wanxtv/wanx/backend/internal/logger"
	"github.com/wanxtv/wanx/backend/internal/metrics"
	"go.uber.org/zap"
)

// RedisClient wraps the redis.Client with centralized connection pooling
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates and initializes a Redis client with connection pooling
func NewRedisClient(host string, port string, password string) (*RedisClient, error) {
	if host == "" {
		host = "localhost"
	}
	if port == "" {
		port = "6379"
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           0,
		MaxRetries:   3,
		PoolSize:     10,
		MinIdleConns: 5,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		DialTimeout:  5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.ErrorWithFields("Failed to connect to Redis", err)
		client.Close()
		return nil, err
	}

	rc := &RedisClient{client: client}

	logger.Log.Info("Redis client connected",
		zap.String("address", addr),
	)

	return rc, nil
}

// Close closes the Redis connection gracefully
func (rc *RedisClient) Close() error {
	if rc == nil || rc.client == nil {
		return nil
	}
	return rc.client.Close()
}

// Ping tests the Redis connection
func (rc *RedisClient) Ping(ctx context.Context) error {
	return observe("ping", func() error {
		return rc.client.Ping(ctx).Err()
	})
}

// Del deletes one or more keys from Redis
func (rc *RedisClient) Del(ctx context.Context, keys ...string) error {
	return observe("del", func() error {
		return rc.client.Del(ctx, keys...).Err()
	})
}

// LPush pushes a value to the head of a list
func (rc *RedisClient) LPush(ctx context.Context, key string, values ...interface{}) error {
	return observe("lpush", func() error {
		return rc.client.LPush(ctx, key, values...).Err()
	})
}

// LRange retrieves a range from a list
func (rc *RedisClient) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	var out []string
	err := observe("lrange", func() error {
		var err error
		out, err = rc.client.LRange(ctx, key, start, stop).Result()
		return err
	})
	return out, err
}

// SetNX sets key only if it does not exist yet
func (rc *RedisClient) SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error) {
	var ok bool
	err := observe("setnx", func() error {
		var err error
		ok, err = rc.client.SetNX(ctx, key, value, ttl).Result()
		return err
	})
	return ok, err
}

// releaseScript deletes a lock only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CompareAndDelete removes key if its value equals token
func (rc *RedisClient) CompareAndDelete(ctx context.Context, key, token string) error {
	return observe("cad", func() error {
		return releaseScript.Run(ctx, rc.client, []string{key}, token).Err()
	})
}

func observe(operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordRedisOperation(operation, time.Since(start), err)
	return err
}
