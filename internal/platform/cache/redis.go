package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// scanBatch is the COUNT hint passed to SCAN during invalidation.
const scanBatch = 200

// RedisStore is a Store backed by Redis. Backend errors are logged and
// reported to callers as misses.
type RedisStore struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisStore connects to the Redis server at url (redis://...) and pings it.
func NewRedisStore(ctx context.Context, url string, logger zerolog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.Info().Str("addr", opts.Addr).Msg("redis cache ready")
	return &RedisStore{client: client, logger: logger}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	data, err := s.client.Get(ctx, KeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("redis get failed")
		return nil, false
	}
	return data, true
}

func (s *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := s.client.Set(ctx, KeyPrefix+key, value, ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("redis set failed")
	}
}

// InvalidateAll deletes every key of scope. It walks the keyspace with SCAN
// so the server is never blocked by KEYS.
func (s *RedisStore) InvalidateAll(ctx context.Context, scope string) {
	iter := s.client.Scan(ctx, 0, scopePrefix(scope)+"*", scanBatch).Iterator()
	var batch []string
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) >= scanBatch {
			s.del(ctx, scope, batch)
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn().Err(err).Str("scope", scope).Msg("redis scan failed")
	}
	if len(batch) > 0 {
		s.del(ctx, scope, batch)
	}
}

func (s *RedisStore) del(ctx context.Context, scope string, keys []string) {
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Str("scope", scope).Int("keys", len(keys)).Msg("redis delete failed")
	}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
