package cache

import (
	"context"
	"time"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/google/uuid"
)

// DefaultScopeTTL bounds how stale a cached scope can be
const DefaultScopeTTL = 30 * time.Second

// ScopeStore keeps resolved access scopes keyed by caller. Entries belong to a
// generation; InvalidateAll starts a new one.
type ScopeStore interface {
	// Get returns the cached scope and the generation it was looked up in;
	// ok is false on a miss
	Get(ctx context.Context, userID uuid.UUID) (scope identity.AccessScope, generation int64, ok bool, err error)

	// Set caches the scope of a caller for the store's TTL. A scope resolved
	// in an invalidated generation is never served.
	Set(ctx context.Context, generation int64, userID uuid.UUID, scope identity.AccessScope) error

	// InvalidateAll drops every cached scope
	InvalidateAll(ctx context.Context) error
}
