package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const defaultScopeKeyPrefix = "crm:scope:"

// RedisScopeStore caches scopes in Redis. Entries are namespaced by a
// generation counter; InvalidateAll bumps the counter so every instance
// stops reading older entries at once, and the old keys expire on their TTL.
type RedisScopeStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedisScopeStore creates a store on an existing client. The caller owns the client.
func NewRedisScopeStore(client *redis.Client, ttl time.Duration) *RedisScopeStore {
	if ttl <= 0 {
		ttl = DefaultScopeTTL
	}
	return &RedisScopeStore{
		client:    client,
		keyPrefix: defaultScopeKeyPrefix,
		ttl:       ttl,
	}
}

func (s *RedisScopeStore) generationKey() string {
	return s.keyPrefix + "gen"
}

func (s *RedisScopeStore) entryKey(generation int64, userID uuid.UUID) string {
	return fmt.Sprintf("%s%d:%s", s.keyPrefix, generation, userID)
}

func (s *RedisScopeStore) generation(ctx context.Context) (int64, error) {
	gen, err := s.client.Get(ctx, s.generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read scope generation: %w", err)
	}
	return gen, nil
}

// Get returns the cached scope of the user in the current generation
func (s *RedisScopeStore) Get(ctx context.Context, userID uuid.UUID) (identity.AccessScope, int64, bool, error) {
	gen, err := s.generation(ctx)
	if err != nil {
		return identity.AccessScope{}, 0, false, err
	}

	data, err := s.client.Get(ctx, s.entryKey(gen, userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return identity.AccessScope{}, gen, false, nil
	}
	if err != nil {
		return identity.AccessScope{}, gen, false, fmt.Errorf("failed to get scope from cache: %w", err)
	}

	var scope identity.AccessScope
	if err := json.Unmarshal(data, &scope); err != nil {
		return identity.AccessScope{}, gen, false, fmt.Errorf("failed to decode cached scope: %w", err)
	}
	return scope, gen, true, nil
}

// Set stores the scope under the given generation. Entries written to a
// superseded generation are never read and expire on their TTL.
func (s *RedisScopeStore) Set(ctx context.Context, gen int64, userID uuid.UUID, scope identity.AccessScope) error {
	data, err := json.Marshal(scope)
	if err != nil {
		return fmt.Errorf("failed to encode scope: %w", err)
	}
	if err := s.client.Set(ctx, s.entryKey(gen, userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache scope: %w", err)
	}
	return nil
}

// InvalidateAll starts a new generation
func (s *RedisScopeStore) InvalidateAll(ctx context.Context) error {
	if err := s.client.Incr(ctx, s.generationKey()).Err(); err != nil {
		return fmt.Errorf("failed to bump scope generation: %w", err)
	}
	return nil
}

var _ ScopeStore = (*RedisScopeStore)(nil)
