package cache

import (
	"context"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CachedScopeResolver serves resolved scopes from a ScopeStore and falls
// back to the wrapped resolver on a miss or on any store failure.
type CachedScopeResolver struct {
	resolver identity.ScopeResolver
	store    ScopeStore
	logger   *zap.Logger
}

// NewCachedScopeResolver wraps a resolver with a cache
func NewCachedScopeResolver(resolver identity.ScopeResolver, store ScopeStore, logger *zap.Logger) *CachedScopeResolver {
	return &CachedScopeResolver{
		resolver: resolver,
		store:    store,
		logger:   logger,
	}
}

// Resolve returns the caller's scope
func (c *CachedScopeResolver) Resolve(ctx context.Context, callerID uuid.UUID) identity.AccessScope {
	scope, gen, ok, err := c.store.Get(ctx, callerID)
	if err != nil {
		c.logger.Warn("Scope cache read failed, resolving directly",
			zap.String("user_id", callerID.String()),
			zap.Error(err))
		return c.resolver.Resolve(ctx, callerID)
	}
	if ok {
		return scope
	}

	scope = c.resolver.Resolve(ctx, callerID)
	if err := c.store.Set(ctx, gen, callerID, scope); err != nil {
		c.logger.Warn("Scope cache write failed",
			zap.String("user_id", callerID.String()),
			zap.Error(err))
	}
	return scope
}

// InvalidateAll drops every cached scope. Failures are logged; entries
// then expire on their TTL.
func (c *CachedScopeResolver) InvalidateAll(ctx context.Context) {
	if err := c.store.InvalidateAll(ctx); err != nil {
		c.logger.Error("Failed to invalidate scope cache", zap.Error(err))
	}
}

// NopInvalidator is used when scopes are not cached
type NopInvalidator struct{}

// InvalidateAll does nothing
func (NopInvalidator) InvalidateAll(context.Context) {}

var (
	_ identity.ScopeResolver    = (*CachedScopeResolver)(nil)
	_ identity.ScopeInvalidator = (*CachedScopeResolver)(nil)
	_ identity.ScopeInvalidator = NopInvalidator{}
)
