package identity

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// hierarchyFixture is an in-memory user/role store
type hierarchyFixture struct {
	roles    map[uuid.UUID][]*identity.Role
	managers map[uuid.UUID]uuid.UUID
}

func newHierarchyFixture() *hierarchyFixture {
	return &hierarchyFixture{
		roles:    make(map[uuid.UUID][]*identity.Role),
		managers: make(map[uuid.UUID]uuid.UUID),
	}
}

func (f *hierarchyFixture) addUser(code string, manager *uuid.UUID) uuid.UUID {
	id := uuid.New()
	role, err := identity.NewRole(code, code)
	if err != nil {
		panic(err)
	}
	f.roles[id] = []*identity.Role{role}
	if manager != nil {
		f.managers[id] = *manager
	}
	return id
}

func (f *hierarchyFixture) FindEnabledRoles(_ context.Context, userID uuid.UUID) ([]*identity.Role, error) {
	roles, ok := f.roles[userID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	enabled := make([]*identity.Role, 0, len(roles))
	for _, r := range roles {
		if r.IsEnabled {
			enabled = append(enabled, r)
		}
	}
	return enabled, nil
}

func (f *hierarchyFixture) ListReportingLinks(_ context.Context) ([]identity.ReportingLink, error) {
	links := make([]identity.ReportingLink, 0, len(f.managers))
	for user, manager := range f.managers {
		links = append(links, identity.ReportingLink{UserID: user, ManagerID: manager})
	}
	return links, nil
}

// MockHierarchyReader is a mock implementation of identity.HierarchyReader
type MockHierarchyReader struct {
	mock.Mock
}

func (m *MockHierarchyReader) FindEnabledRoles(ctx context.Context, userID uuid.UUID) ([]*identity.Role, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*identity.Role), args.Error(1)
}

func (m *MockHierarchyReader) ListReportingLinks(ctx context.Context) ([]identity.ReportingLink, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]identity.ReportingLink), args.Error(1)
}

func mustRole(t *testing.T, code string) *identity.Role {
	t.Helper()
	role, err := identity.NewRole(code, code)
	require.NoError(t, err)
	return role
}

func assertScopeEquals(t *testing.T, scope identity.AccessScope, want ...uuid.UUID) {
	t.Helper()
	require.False(t, scope.IsUnrestricted())
	assert.ElementsMatch(t, want, scope.UserIDs())
}

func TestResolve_EndToEndScenario(t *testing.T) {
	store := newHierarchyFixture()
	alice := store.addUser("MANAGER", nil)
	bob := store.addUser("AGENT", &alice)
	carol := store.addUser("AGENT", &alice)
	admin := store.addUser("ADMIN", nil)

	resolver := NewAccessScopeResolver(store, zap.NewNop())
	ctx := context.Background()

	assertScopeEquals(t, resolver.Resolve(ctx, alice), alice, bob, carol)
	assertScopeEquals(t, resolver.Resolve(ctx, bob), bob)
	assert.True(t, resolver.Resolve(ctx, admin).IsUnrestricted())
}

func TestResolve_SelfInclusion(t *testing.T) {
	store := newHierarchyFixture()
	manager := store.addUser("SALES_MANAGER", nil)
	lead := store.addUser("TEAM_LEAD", &manager)
	agent := store.addUser("AGENT", &lead)
	loner := store.addUser("HEAD", nil)

	resolver := NewAccessScopeResolver(store, zap.NewNop())

	for _, caller := range []uuid.UUID{manager, lead, agent, loner} {
		scope := resolver.Resolve(context.Background(), caller)
		assert.False(t, scope.IsUnrestricted())
		assert.True(t, scope.Contains(caller))
	}
	assertScopeEquals(t, resolver.Resolve(context.Background(), loner), loner)
}

func TestResolve_TransitiveReports(t *testing.T) {
	store := newHierarchyFixture()
	m := store.addUser("MANAGER", nil)
	a := store.addUser("MANAGER", &m)
	b := store.addUser("AGENT", &m)
	c := store.addUser("AGENT", &a)
	outsider := store.addUser("AGENT", nil)

	scope := NewAccessScopeResolver(store, zap.NewNop()).Resolve(context.Background(), m)

	assertScopeEquals(t, scope, m, a, b, c)
	assert.False(t, scope.Contains(outsider))
}

func TestResolve_ReportsOfSelfTierUserAreNotVisible(t *testing.T) {
	store := newHierarchyFixture()
	agent := store.addUser("AGENT", nil)
	store.addUser("AGENT", &agent)

	scope := NewAccessScopeResolver(store, zap.NewNop()).Resolve(context.Background(), agent)

	assertScopeEquals(t, scope, agent)
}

func TestResolve_CycleTerminates(t *testing.T) {
	store := newHierarchyFixture()
	x := store.addUser("MANAGER", nil)
	y := store.addUser("MANAGER", &x)
	z := store.addUser("MANAGER", &y)
	store.managers[x] = z // x -> y -> z -> x

	resolver := NewAccessScopeResolver(store, zap.NewNop())

	for _, caller := range []uuid.UUID{x, y, z} {
		scope := resolver.Resolve(context.Background(), caller)
		assertScopeEquals(t, scope, x, y, z)
	}
}

func TestResolve_SelfLoopTerminates(t *testing.T) {
	store := newHierarchyFixture()
	x := store.addUser("MANAGER", nil)
	store.managers[x] = x

	scope := NewAccessScopeResolver(store, zap.NewNop()).Resolve(context.Background(), x)

	assertScopeEquals(t, scope, x)
}

func TestResolve_GlobalTierIsSentinelNotFullSet(t *testing.T) {
	store := newHierarchyFixture()
	admin := store.addUser("super_admin", nil)
	for i := 0; i < 5; i++ {
		store.addUser("AGENT", &admin)
	}

	scope := NewAccessScopeResolver(store, zap.NewNop()).Resolve(context.Background(), admin)

	assert.True(t, scope.IsUnrestricted())
	assert.Nil(t, scope.UserIDs())
}

func TestResolve_GlobalWinsOverOtherRoles(t *testing.T) {
	reader := new(MockHierarchyReader)
	caller := uuid.New()
	reader.On("FindEnabledRoles", mock.Anything, caller).
		Return([]*identity.Role{mustRole(t, "AGENT"), mustRole(t, "MANAGER"), mustRole(t, "ADMIN")}, nil)

	scope := NewAccessScopeResolver(reader, zap.NewNop()).Resolve(context.Background(), caller)

	assert.True(t, scope.IsUnrestricted())
	reader.AssertNotCalled(t, "ListReportingLinks", mock.Anything)
}

func TestResolve_DisabledRolesIgnored(t *testing.T) {
	reader := new(MockHierarchyReader)
	caller := uuid.New()
	admin := mustRole(t, "AUDITOR")
	require.NoError(t, admin.SetTier(identity.RoleTierGlobal))
	require.NoError(t, admin.Disable())
	reader.On("FindEnabledRoles", mock.Anything, caller).Return([]*identity.Role{admin}, nil)

	scope := NewAccessScopeResolver(reader, zap.NewNop()).Resolve(context.Background(), caller)

	assertScopeEquals(t, scope, caller)
}

func TestResolve_NoRolesIsSelfOnly(t *testing.T) {
	reader := new(MockHierarchyReader)
	caller := uuid.New()
	reader.On("FindEnabledRoles", mock.Anything, caller).Return([]*identity.Role{}, nil)

	scope := NewAccessScopeResolver(reader, zap.NewNop()).Resolve(context.Background(), caller)

	assertScopeEquals(t, scope, caller)
}

func TestResolve_MissingUserIsRestrictive(t *testing.T) {
	store := newHierarchyFixture()
	unknown := uuid.New()

	var scope identity.AccessScope
	require.NotPanics(t, func() {
		scope = NewAccessScopeResolver(store, zap.NewNop()).Resolve(context.Background(), unknown)
	})

	assertScopeEquals(t, scope, unknown)
}

func TestResolve_StoreFailuresDegradeToSelf(t *testing.T) {
	caller := uuid.New()

	t.Run("roles", func(t *testing.T) {
		reader := new(MockHierarchyReader)
		reader.On("FindEnabledRoles", mock.Anything, caller).Return(nil, errors.New("connection reset"))

		scope := NewAccessScopeResolver(reader, zap.NewNop()).Resolve(context.Background(), caller)
		assertScopeEquals(t, scope, caller)
	})

	t.Run("links", func(t *testing.T) {
		reader := new(MockHierarchyReader)
		reader.On("FindEnabledRoles", mock.Anything, caller).Return([]*identity.Role{mustRole(t, "MANAGER")}, nil)
		reader.On("ListReportingLinks", mock.Anything).Return(nil, errors.New("timeout"))

		scope := NewAccessScopeResolver(reader, zap.NewNop()).Resolve(context.Background(), caller)
		assertScopeEquals(t, scope, caller)
	})
}

func TestResolve_ConcurrentCallsAgree(t *testing.T) {
	store := newHierarchyFixture()
	m := store.addUser("MANAGER", nil)
	a := store.addUser("AGENT", &m)
	b := store.addUser("AGENT", &m)
	resolver := NewAccessScopeResolver(store, zap.NewNop())

	var wg sync.WaitGroup
	results := make([]identity.AccessScope, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = resolver.Resolve(context.Background(), m)
		}(i)
	}
	wg.Wait()

	for _, scope := range results {
		assertScopeEquals(t, scope, m, a, b)
	}
}

func TestCollectReports_ReportsCycle(t *testing.T) {
	x, y := uuid.New(), uuid.New()
	links := []identity.ReportingLink{
		{UserID: y, ManagerID: x},
		{UserID: x, ManagerID: y},
	}

	reports, truncated := CollectReports(x, links)

	assert.True(t, truncated)
	assert.Equal(t, []uuid.UUID{y}, reports)
}

func TestCollectReports_Tree(t *testing.T) {
	root, a, b := uuid.New(), uuid.New(), uuid.New()
	links := []identity.ReportingLink{
		{UserID: a, ManagerID: root},
		{UserID: b, ManagerID: a},
	}

	reports, truncated := CollectReports(root, links)

	assert.False(t, truncated)
	assert.Equal(t, []uuid.UUID{a, b}, reports)
}
