package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const defaultCleanupInterval = 30 * time.Second

// InMemoryScopeStore caches scopes in process memory. It is used when no
// Redis server is configured; instances do not share entries.
type InMemoryScopeStore struct {
	mu         sync.RWMutex
	entries    map[uuid.UUID]scopeEntry
	generation int64
	ttl        time.Duration
	now        func() time.Time
	logger     *zap.Logger
	stopCh     chan struct{}
	stopped    int32

	hits   int64
	misses int64
}

type scopeEntry struct {
	scope     identity.AccessScope
	expiresAt time.Time
}

// InMemoryScopeStoreOption configures an InMemoryScopeStore
type InMemoryScopeStoreOption func(*InMemoryScopeStore)

// WithClock replaces the time source
func WithClock(now func() time.Time) InMemoryScopeStoreOption {
	return func(s *InMemoryScopeStore) {
		s.now = now
	}
}

// WithLogger sets the logger of the store
func WithLogger(logger *zap.Logger) InMemoryScopeStoreOption {
	return func(s *InMemoryScopeStore) {
		s.logger = logger
	}
}

// NewInMemoryScopeStore creates the store and starts its cleanup loop.
// Call Close to stop the loop.
func NewInMemoryScopeStore(ttl time.Duration, opts ...InMemoryScopeStoreOption) *InMemoryScopeStore {
	if ttl <= 0 {
		ttl = DefaultScopeTTL
	}
	s := &InMemoryScopeStore{
		entries: make(map[uuid.UUID]scopeEntry),
		ttl:     ttl,
		now:     time.Now,
		logger:  zap.NewNop(),
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupExpired()
	return s
}

// Get returns the cached scope if present and not expired
func (s *InMemoryScopeStore) Get(_ context.Context, userID uuid.UUID) (identity.AccessScope, int64, bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[userID]
	gen := s.generation
	s.mu.RUnlock()

	if !ok || !s.now().Before(entry.expiresAt) {
		atomic.AddInt64(&s.misses, 1)
		return identity.AccessScope{}, gen, false, nil
	}
	atomic.AddInt64(&s.hits, 1)
	return entry.scope, gen, true, nil
}

// Set caches a scope for the store TTL. It is dropped when the store was
// invalidated after gen was read.
func (s *InMemoryScopeStore) Set(_ context.Context, gen int64, userID uuid.UUID, scope identity.AccessScope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return nil
	}
	s.entries[userID] = scopeEntry{scope: scope, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// InvalidateAll drops every entry and starts a new generation
func (s *InMemoryScopeStore) InvalidateAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.entries)
	s.generation++
	return nil
}

// Len returns the number of stored entries, expired ones included
func (s *InMemoryScopeStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetStats returns hit and miss counters
func (s *InMemoryScopeStore) GetStats() (hits, misses int64) {
	return atomic.LoadInt64(&s.hits), atomic.LoadInt64(&s.misses)
}

// Close stops the cleanup loop
func (s *InMemoryScopeStore) Close() error {
	if atomic.CompareAndSwapInt32(&s.stopped, 0, 1) {
		close(s.stopCh)
	}
	return nil
}

func (s *InMemoryScopeStore) cleanupExpired() {
	ticker := time.NewTicker(defaultCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			if removed := s.removeExpired(); removed > 0 {
				s.logger.Debug("Removed expired scope cache entries", zap.Int("removed", removed))
			}
		}
	}
}

func (s *InMemoryScopeStore) removeExpired() int {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, entry := range s.entries {
		if !now.Before(entry.expiresAt) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

var _ ScopeStore = (*InMemoryScopeStore)(nil)
