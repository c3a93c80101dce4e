// Package kv wraps the shared redis connection behind the small set of
// operations the rail needs: plain get/set with a TTL, set-if-absent for
// single flight locks, and get-and-delete for one shot quote consumption.
// Callers treat the store as best effort, a failed read or write degrades
// to the uncached path rather than failing the request.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	appctx "github.com/corridor-intl/rail-go/libs/context"
	"github.com/corridor-intl/rail-go/libs/logging"
	redis "github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is absent or was already consumed.
var ErrMiss = errors.New("kv: cache miss")

// Store is the generic interface for the rail's key value needs
type Store interface {
	// Get the string value at key
	Get(ctx context.Context, key string) (string, error)
	// Set the value at key, expiring after ttl
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX sets the value at key only if absent, returning true if it was set
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// GetDel atomically reads and removes the value at key
	GetDel(ctx context.Context, key string) (string, error)
	// Del removes the value at key
	Del(ctx context.Context, key string) error
	// Ping verifies the store is reachable
	Ping(ctx context.Context) error
}

// Client is an implementation of Store using an actual redis connection
type Client redis.Client

// NewStore wraps an existing redis client as a Store
func NewStore(redisClient *redis.Client) *Client {
	return (*Client)(redisClient)
}

// NewClient constructs a redis client from the REDIS_URL on the context and
// verifies connectivity before handing it back
func NewClient(ctx context.Context) (*redis.Client, error) {
	logger := logging.Logger(ctx, "kv.NewClient")

	redisURL, err := appctx.GetStringFromContext(ctx, appctx.RedisURLCTXKey)
	if err != nil {
		logger.Error().Err(err).Msg("failed to get redis url from context")
		return nil, fmt.Errorf("failed to initialize redis client: %w", err)
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Error().Err(err).Msg("failed to parse redis URL")
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	// a pool_size in the URL wins over the operational default
	if opts.PoolSize == 0 {
		opts.PoolSize = 20
	}

	redisClient := redis.NewClient(opts)

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error().Err(err).Msg("failed to initialize the redis client")
		return nil, fmt.Errorf("failed to initialize redis client: %w", err)
	}

	return redisClient, nil
}

// Get the string value at key
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := (*redis.Client)(c).Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return val, err
}

// Set the value at key, expiring after ttl
func (c *Client) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return (*redis.Client)(c).Set(ctx, key, value, ttl).Err()
}

// SetNX sets the value at key only if absent, returning true if it was set
func (c *Client) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	return (*redis.Client)(c).SetNX(ctx, key, value, ttl).Result()
}

// GetDel atomically reads and removes the value at key
func (c *Client) GetDel(ctx context.Context, key string) (string, error) {
	val, err := (*redis.Client)(c).GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMiss
	}
	return val, err
}

// Del removes the value at key
func (c *Client) Del(ctx context.Context, key string) error {
	return (*redis.Client)(c).Del(ctx, key).Err()
}

// Ping verifies the store is reachable
func (c *Client) Ping(ctx context.Context) error {
	return (*redis.Client)(c).Ping(ctx).Err()
}
