package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/songzhibin97/riskladder/internal/risk"
)

const defaultRedisPrefix = "riskladder:state"

// RedisStore keeps the state document under <prefix>:<name>, without TTL
type RedisStore struct {
	client *redis.Client
	key    string
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(ctx context.Context, opts *redis.Options, prefix, name string) (*RedisStore, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisStoreWithClient(client, prefix, name), nil
}

func NewRedisStoreWithClient(client *redis.Client, prefix, name string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{
		client: client,
		key:    fmt.Sprintf("%s:%s", prefix, name),
	}
}

func (s *RedisStore) Key() string {
	return s.key
}

func (s *RedisStore) Load(ctx context.Context) (*risk.RiskState, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, risk.ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get risk state: %w", err)
	}
	return risk.DecodeState(data)
}

func (s *RedisStore) Save(ctx context.Context, state *risk.RiskState) error {
	data, err := risk.EncodeState(state)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save risk state: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
