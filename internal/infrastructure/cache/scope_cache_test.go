package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingResolver struct {
	mu    sync.Mutex
	calls int
	scope identity.AccessScope
}

func (r *countingResolver) Resolve(_ context.Context, _ uuid.UUID) identity.AccessScope {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.scope
}

func (r *countingResolver) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

type brokenStore struct{}

func (brokenStore) Get(context.Context, uuid.UUID) (identity.AccessScope, int64, bool, error) {
	return identity.AccessScope{}, 0, false, errors.New("connection refused")
}

func (brokenStore) Set(context.Context, int64, uuid.UUID, identity.AccessScope) error {
	return errors.New("connection refused")
}

func (brokenStore) InvalidateAll(context.Context) error {
	return errors.New("connection refused")
}

func newTestStore(t *testing.T, ttl time.Duration) (*InMemoryScopeStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	store := NewInMemoryScopeStore(ttl, WithClock(clock.Now))
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

func TestInMemoryScopeStore(t *testing.T) {
	ctx := context.Background()
	store, clock := newTestStore(t, 30*time.Second)
	alice, bob := uuid.New(), uuid.New()

	_, gen, ok, err := store.Get(ctx, alice)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, gen, alice, identity.RestrictedTo(alice, bob)))
	scope, _, ok, err := store.Get(ctx, alice)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, scope.Contains(bob))

	t.Run("entries expire after the ttl", func(t *testing.T) {
		clock.Advance(31 * time.Second)
		_, _, ok, err := store.Get(ctx, alice)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, 1, store.removeExpired())
		assert.Equal(t, 0, store.Len())
	})

	t.Run("invalidate drops everything", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, gen, alice, identity.SelfOnly(alice)))
		require.NoError(t, store.Set(ctx, gen, bob, identity.Unrestricted()))
		require.NoError(t, store.InvalidateAll(ctx))
		assert.Equal(t, 0, store.Len())
	})

	t.Run("scopes from an invalidated generation are dropped", func(t *testing.T) {
		require.NoError(t, store.Set(ctx, gen, alice, identity.Unrestricted()))
		assert.Equal(t, 0, store.Len())
	})

	hits, misses := store.GetStats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(2), misses)
}

func TestInMemoryScopeStore_DefaultTTL(t *testing.T) {
	store, _ := newTestStore(t, 0)
	assert.Equal(t, DefaultScopeTTL, store.ttl)
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestCachedScopeResolver(t *testing.T) {
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	inner := &countingResolver{scope: identity.RestrictedTo(alice, bob)}
	store, clock := newTestStore(t, 30*time.Second)
	resolver := NewCachedScopeResolver(inner, store, zap.NewNop())

	first := resolver.Resolve(ctx, alice)
	second := resolver.Resolve(ctx, alice)
	assert.Equal(t, 1, inner.Calls())
	assert.ElementsMatch(t, first.UserIDs(), second.UserIDs())

	t.Run("invalidation forces a fresh resolve", func(t *testing.T) {
		inner.scope = identity.SelfOnly(alice)
		resolver.InvalidateAll(ctx)

		scope := resolver.Resolve(ctx, alice)
		assert.Equal(t, 2, inner.Calls())
		assert.False(t, scope.Contains(bob))
	})

	t.Run("expiry forces a fresh resolve", func(t *testing.T) {
		clock.Advance(time.Minute)
		resolver.Resolve(ctx, alice)
		assert.Equal(t, 3, inner.Calls())
	})
}

// invalidatingResolver invalidates the store while a resolve is in flight
type invalidatingResolver struct {
	countingResolver
	store ScopeStore
}

func (r *invalidatingResolver) Resolve(ctx context.Context, callerID uuid.UUID) identity.AccessScope {
	scope := r.countingResolver.Resolve(ctx, callerID)
	_ = r.store.InvalidateAll(ctx)
	return scope
}

func TestCachedScopeResolver_InvalidationDuringResolve(t *testing.T) {
	ctx := context.Background()
	alice, bob := uuid.New(), uuid.New()
	store, _ := newTestStore(t, 30*time.Second)
	inner := &invalidatingResolver{countingResolver: countingResolver{scope: identity.RestrictedTo(alice, bob)}, store: store}
	resolver := NewCachedScopeResolver(inner, store, zap.NewNop())

	resolver.Resolve(ctx, alice)
	assert.Equal(t, 0, store.Len(), "a scope resolved before the invalidation must not be cached")

	resolver.Resolve(ctx, alice)
	assert.Equal(t, 2, inner.Calls())
}

func TestCachedScopeResolver_StoreFailureFallsBack(t *testing.T) {
	ctx := context.Background()
	alice := uuid.New()
	inner := &countingResolver{scope: identity.Unrestricted()}
	resolver := NewCachedScopeResolver(inner, brokenStore{}, zap.NewNop())

	assert.True(t, resolver.Resolve(ctx, alice).IsUnrestricted())
	assert.True(t, resolver.Resolve(ctx, alice).IsUnrestricted())
	assert.Equal(t, 2, inner.Calls())

	assert.NotPanics(t, func() { resolver.InvalidateAll(ctx) })
}

func TestRedisScopeStore_Keys(t *testing.T) {
	store := NewRedisScopeStore(nil, 0)
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	assert.Equal(t, DefaultScopeTTL, store.ttl)
	assert.Equal(t, "crm:scope:gen", store.generationKey())
	assert.Equal(t, "crm:scope:3:6ba7b810-9dad-11d1-80b4-00c04fd430c8", store.entryKey(3, id))
}
