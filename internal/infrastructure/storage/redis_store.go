package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/you/ratelink/domain"
)

// RedisStoreImpl implements domain.SessionStore on Redis. Used by kiosk
// deployments where a local Redis instance backs several terminals; the
// key layout matches the sqlite store exactly.
type RedisStoreImpl struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed plain store
func NewRedisStore(client *redis.Client) *RedisStoreImpl {
	return &RedisStoreImpl{
		client: client,
		prefix: "ratelink:",
	}
}

// Get implements domain.SessionStore
func (s *RedisStoreImpl) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, s.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", domain.ErrKeyNotFound
		}
		return "", err
	}
	return val, nil
}

// Set implements domain.SessionStore
func (s *RedisStoreImpl) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}

// SaveSession implements domain.SessionStore. MSet keeps the five keys
// atomic the way the sqlite transaction does.
func (s *RedisStoreImpl) SaveSession(ctx context.Context, session *domain.Session) error {
	kv, err := encodeSession(session)
	if err != nil {
		return err
	}
	pairs := make([]interface{}, 0, len(kv)*2)
	for key, value := range kv {
		pairs = append(pairs, s.prefix+key, value)
	}
	return s.client.MSet(ctx, pairs...).Err()
}

// LoadSession implements domain.SessionStore
func (s *RedisStoreImpl) LoadSession(ctx context.Context) (*domain.Session, error) {
	keys := make([]string, len(sessionKeys))
	for i, k := range sessionKeys {
		keys[i] = s.prefix + k
	}
	vals, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	kv := make(map[string]string, len(sessionKeys))
	for i, v := range vals {
		if str, ok := v.(string); ok {
			kv[sessionKeys[i]] = str
		}
	}
	return decodeSession(func(key string) (string, bool) {
		v, ok := kv[key]
		return v, ok
	})
}

// ClearSession implements domain.SessionStore
func (s *RedisStoreImpl) ClearSession(ctx context.Context) error {
	keys := make([]string, len(sessionKeys))
	for i, k := range sessionKeys {
		keys[i] = s.prefix + k
	}
	return s.client.Del(ctx, keys...).Err()
}

// Compile-time interface compliance verification
var _ domain.SessionStore = (*RedisStoreImpl)(nil)
