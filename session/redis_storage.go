package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

const minEntryTTL = time.Second

// RedisStorage persists session entries in Redis. Expiry is delegated to key TTLs, so an
// expired entry is simply absent.
//
// Keys have the form <prefix>:<path>:<name>. Several processes sharing the same prefix
// share one session.
type RedisStorage struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisStorage constructs a [RedisStorage] with the given key prefix ("gd" when empty).
//
//	Performance: Get is one GET; Set and Remove are one MULTI/EXEC round-trip.
func NewRedisStorage(client redis.UniversalClient, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = "gd"
	}
	return &RedisStorage{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
}

func (s *RedisStorage) key(name, path string) string {
	return s.prefix + ":" + normalizePath(path) + ":" + name
}

func (s *RedisStorage) Get(ctx context.Context, name, path string) (string, error) {
	val, err := s.redis.Get(ctx, s.key(name, path)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrEntryNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return val, nil
}

// Set writes all entries in one transaction. Entries whose lifetime is already over
// delete the key instead.
func (s *RedisStorage) Set(ctx context.Context, entries ...*http.Cookie) error {
	if len(entries) == 0 {
		return nil
	}
	now := s.now()

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, c := range entries {
			if c == nil {
				continue
			}
			key := s.key(c.Name, c.Path)
			ttl := entryTTL(c, now)
			if ttl <= 0 {
				pipe.Del(ctx, key)
				continue
			}
			if ttl < minEntryTTL {
				ttl = minEntryTTL
			}
			pipe.Set(ctx, key, c.Value, ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func (s *RedisStorage) Remove(ctx context.Context, path string, names ...string) error {
	if len(names) == 0 {
		return nil
	}
	keys := make([]string, 0, len(names))
	for _, name := range names {
		keys = append(keys, s.key(name, path))
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return nil
}
