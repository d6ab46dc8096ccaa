package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ Repo = (*RedisRepo)(nil)

// RedisRepo stores each key as a plain string under a prefix. Writes and
// clears run in one MULTI/EXEC so readers never see a partial record.
type RedisRepo struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	owned  bool
}

type RedisOption func(*RedisRepo)

// WithTTL expires the stored keys; zero keeps them until cleared.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *RedisRepo) {
		r.ttl = ttl
	}
}

// NewRedisRepo wraps an existing client. The caller keeps ownership of it.
func NewRedisRepo(client *redis.Client, prefix string, options ...RedisOption) *RedisRepo {
	r := &RedisRepo{client: client, prefix: prefix}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// DialRedis connects to addr and returns a repo that closes the client on Close.
func DialRedis(ctx context.Context, addr, password, prefix string, options ...RedisOption) (*RedisRepo, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	r := NewRedisRepo(client, prefix, options...)
	r.owned = true
	return r, nil
}

func (r *RedisRepo) key(k string) string {
	if r.prefix == "" {
		return k
	}
	return r.prefix + ":" + k
}

func (r *RedisRepo) Load(ctx context.Context) (*Record, error) {
	keys := make([]string, len(Keys))
	for i, k := range Keys {
		keys[i] = r.key(k)
	}

	vals, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session keys: %w", err)
	}

	values := make(map[string]string, len(Keys))
	for i, v := range vals {
		if s, ok := v.(string); ok {
			values[Keys[i]] = s
		}
	}
	return decode(values)
}

func (r *RedisRepo) Save(ctx context.Context, record Record) error {
	if err := validate(record); err != nil {
		return err
	}
	values := encode(record)
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range Keys {
			pipe.Set(ctx, r.key(k), values[k], r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to write session keys: %w", err)
	}
	return nil
}

func (r *RedisRepo) Clear(ctx context.Context) error {
	keys := make([]string, len(Keys))
	for i, k := range Keys {
		keys[i] = r.key(k)
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete session keys: %w", err)
	}
	return nil
}

func (r *RedisRepo) Close() error {
	if !r.owned {
		return nil
	}
	return r.client.Close()
}
