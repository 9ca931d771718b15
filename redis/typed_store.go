package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// TypedStore keeps JSON-encoded values of type V under a key prefix.
type TypedStore[V any] struct {
	client    *Client
	keyPrefix string
}

// NewTypedStore creates a store whose keys are "<prefix>:<key>".
func NewTypedStore[V any](client *Client, keyPrefix string) *TypedStore[V] {
	return &TypedStore[V]{client: client, keyPrefix: keyPrefix}
}

func (s *TypedStore[V]) fullKey(key string) string {
	if s.keyPrefix == "" {
		return key
	}
	return s.keyPrefix + ":" + key
}

// Load returns (nil, nil) when the key does not exist.
func (s *TypedStore[V]) Load(ctx context.Context, key string) (*V, error) {
	raw, err := s.client.rdb.Get(ctx, s.fullKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("typed store load %q: %w", key, err)
	}
	var val V
	if err := json.Unmarshal(raw, &val); err != nil {
		return nil, fmt.Errorf("typed store unmarshal %q: %w", key, err)
	}
	return &val, nil
}

// Save stores val with ttl. A ttl of 0 means no expiration.
func (s *TypedStore[V]) Save(ctx context.Context, key string, val *V, ttl time.Duration) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("typed store marshal %q: %w", key, err)
	}
	if err := s.client.rdb.Set(ctx, s.fullKey(key), data, ttl).Err(); err != nil {
		return fmt.Errorf("typed store save %q: %w", key, err)
	}
	return nil
}

// Delete removes the key.
func (s *TypedStore[V]) Delete(ctx context.Context, key string) error {
	if err := s.client.rdb.Del(ctx, s.fullKey(key)).Err(); err != nil {
		return fmt.Errorf("typed store delete %q: %w", key, err)
	}
	return nil
}
