// Package redis implements a Redis-backed state store, for clients whose
// session state must survive process restarts and be shared between hosts.
package redis

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vgavro/requests-client/storage"
)

// Store implements storage.Storage using Redis as the backend.
type Store struct {
	client *redis.Client
	config *Config
	closed atomic.Bool
}

var _ storage.Storage = (*Store)(nil)

// NewStore creates a Redis state store. It validates the configuration,
// applies defaults, and verifies connectivity with a PING.
func NewStore(cfg *Config) (*Store, error) {
	cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address(),
		Password:     cfg.Password,
		DB:           cfg.Database,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, storage.NewConnectionError("ping", cfg.Address(), err)
	}

	return &Store{client: client, config: cfg}, nil
}

// Get retrieves the value stored under key.
// Returns storage.ErrNotFound if the key doesn't exist or has expired.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if s.closed.Load() {
		return nil, storage.ErrClosed
	}

	result, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, storage.ErrNotFound
		}
		return nil, storage.NewOperationError("get", key, err)
	}
	return result, nil
}

// Set stores a value under key, applying the configured TTL.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}

	if err := s.client.Set(ctx, key, value, s.config.TTL).Err(); err != nil {
		return storage.NewOperationError("set", key, err)
	}
	return nil
}

// Delete removes a key. It does not fail when the key doesn't exist.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return storage.ErrClosed
	}

	if err := s.client.Del(ctx, key).Err(); err != nil {
		return storage.NewOperationError("delete", key, err)
	}
	return nil
}

// Close closes the Redis client and releases resources.
// Close is idempotent; later calls return storage.ErrClosed.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return storage.ErrClosed
	}
	return s.client.Close()
}
