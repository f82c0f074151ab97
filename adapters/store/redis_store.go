package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/domecloud/dsigner/core"
	"github.com/domecloud/dsigner/ports"
)

// RedisStore is a Redis implementation of the BindingStore interface.
// Bindings live in a single hash keyed by identity ID; HSetNX provides the
// uniqueness-enforced insert across independent worker instances.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) ports.BindingStore {
	return &RedisStore{
		client: client,
		key:    "dsigner:wallets",
	}
}

// Get returns the binding for an identity
func (s *RedisStore) Get(ctx context.Context, identityID string) (*core.WalletBinding, error) {
	payload, err := s.client.HGet(ctx, s.key, identityID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrNoBinding
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read binding: %w", err)
	}

	var binding core.WalletBinding
	if err := json.Unmarshal([]byte(payload), &binding); err != nil {
		return nil, fmt.Errorf("failed to decode binding: %w", err)
	}

	return &binding, nil
}

// Insert stores the binding unless one already exists for the identity.
// A losing concurrent insert re-reads and returns the winner.
func (s *RedisStore) Insert(ctx context.Context, binding *core.WalletBinding) (*core.WalletBinding, error) {
	payload, err := json.Marshal(binding)
	if err != nil {
		return nil, fmt.Errorf("failed to encode binding: %w", err)
	}

	created, err := s.client.HSetNX(ctx, s.key, binding.IdentityID, payload).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to insert binding: %w", err)
	}

	if !created {
		return s.Get(ctx, binding.IdentityID)
	}

	return binding, nil
}
