// Package rediskv реализует kv.Store поверх Redis (GET/SET)
package rediskv

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/xela07ax/spaceai-console/internal/kv"
)

type Store struct {
	rdb    *redis.Client
	prefix string
}

// New - ключи хранятся как "<prefix>:kv:<key>"
func New(rdb *redis.Client, prefix string) *Store {
	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) key(k string) string {
	if s.prefix == "" {
		return "kv:" + k
	}
	return s.prefix + ":kv:" + k
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, kv.ErrNotFound
		}
		return nil, fmt.Errorf("redis: failed to get %s: %w", key, err)
	}
	return v, nil
}

// Set пишет без TTL: снапшоты коллекций живут, пока их не перезапишут
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := s.rdb.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redis: failed to set %s: %w", key, err)
	}
	return nil
}
