package identity

import (
	"context"
	"testing"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func assertDomainCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, code, domainErr.Code)
}

func newUserServiceFixture() (*UserService, *fakeUserRepo, *MockScopeInvalidator) {
	roles := newFakeRoleRepo()
	users := newFakeUserRepo(roles)
	invalidator := new(MockScopeInvalidator)
	return NewUserService(users, roles, invalidator, zap.NewNop()), users, invalidator
}

func TestUserService_UpdateHierarchy(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects a manager from the user's own subtree", func(t *testing.T) {
		svc, users, invalidator := newUserServiceFixture()
		alice := seedUser(t, users, "alice", nil, "MANAGER")
		bob := seedUser(t, users, "bob", alice, "TEAM_LEAD")
		carol := seedUser(t, users, "carol", bob, "AGENT")

		_, err := svc.UpdateHierarchy(ctx, identity.Unrestricted(), UpdateHierarchyInput{ID: alice.ID, ManagerID: &carol.ID})

		assertDomainCode(t, err, "MANAGER_CYCLE")
		assert.Nil(t, alice.ManagerID)
		invalidator.AssertNotCalled(t, "InvalidateAll", mock.Anything)
	})

	t.Run("rejects self management", func(t *testing.T) {
		svc, users, _ := newUserServiceFixture()
		alice := seedUser(t, users, "alice", nil, "MANAGER")

		_, err := svc.UpdateHierarchy(ctx, identity.Unrestricted(), UpdateHierarchyInput{ID: alice.ID, ManagerID: &alice.ID})

		assertDomainCode(t, err, "INVALID_MANAGER")
	})

	t.Run("rejects an unknown manager", func(t *testing.T) {
		svc, users, _ := newUserServiceFixture()
		alice := seedUser(t, users, "alice", nil, "AGENT")
		missing := uuid.New()

		_, err := svc.UpdateHierarchy(ctx, identity.Unrestricted(), UpdateHierarchyInput{ID: alice.ID, ManagerID: &missing})

		assertDomainCode(t, err, "MANAGER_NOT_FOUND")
	})

	t.Run("moves the user and drops cached scopes", func(t *testing.T) {
		svc, users, invalidator := newUserServiceFixture()
		alice := seedUser(t, users, "alice", nil, "MANAGER")
		dave := seedUser(t, users, "dave", nil, "MANAGER")
		bob := seedUser(t, users, "bob", alice, "AGENT")
		invalidator.On("InvalidateAll", mock.Anything).Once()

		dto, err := svc.UpdateHierarchy(ctx, identity.Unrestricted(), UpdateHierarchyInput{ID: bob.ID, ManagerID: &dave.ID})

		require.NoError(t, err)
		require.NotNil(t, dto.ManagerID)
		assert.Equal(t, dave.ID, *dto.ManagerID)
		invalidator.AssertExpectations(t)
	})

	t.Run("team change alone keeps cached scopes", func(t *testing.T) {
		svc, users, invalidator := newUserServiceFixture()
		bob := seedUser(t, users, "bob", nil, "AGENT")
		team := uuid.New()

		dto, err := svc.UpdateHierarchy(ctx, identity.Unrestricted(), UpdateHierarchyInput{ID: bob.ID, TeamID: &team})

		require.NoError(t, err)
		assert.Equal(t, &team, dto.TeamID)
		invalidator.AssertNotCalled(t, "InvalidateAll", mock.Anything)
	})
}

func TestUserService_ScopedReads(t *testing.T) {
	ctx := context.Background()
	svc, users, _ := newUserServiceFixture()
	alice := seedUser(t, users, "alice", nil, "MANAGER")
	bob := seedUser(t, users, "bob", alice, "AGENT")
	outsider := seedUser(t, users, "erin", nil, "AGENT")
	aliceScope := identity.RestrictedTo(alice.ID, bob.ID)

	t.Run("list returns the subtree only", func(t *testing.T) {
		page, err := svc.List(ctx, aliceScope, identity.NewUserFilter())
		require.NoError(t, err)

		ids := make([]uuid.UUID, len(page.Items))
		for i, u := range page.Items {
			ids[i] = u.ID
		}
		assert.ElementsMatch(t, []uuid.UUID{alice.ID, bob.ID}, ids)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("users outside the scope look missing", func(t *testing.T) {
		_, err := svc.GetByID(ctx, aliceScope, outsider.ID)
		assertDomainCode(t, err, "USER_NOT_FOUND")

		_, err = svc.GetByID(ctx, aliceScope, bob.ID)
		assert.NoError(t, err)
	})
}

func TestUserService_AssignRoles(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown role is rejected", func(t *testing.T) {
		svc, users, invalidator := newUserServiceFixture()
		bob := seedUser(t, users, "bob", nil, "AGENT")

		_, err := svc.AssignRoles(ctx, identity.Unrestricted(), bob.ID, []uuid.UUID{uuid.New()})

		assertDomainCode(t, err, "ROLE_NOT_FOUND")
		invalidator.AssertNotCalled(t, "InvalidateAll", mock.Anything)
	})

	t.Run("assignment drops cached scopes", func(t *testing.T) {
		svc, users, invalidator := newUserServiceFixture()
		bob := seedUser(t, users, "bob", nil, "AGENT")
		manager, err := identity.NewRole("MANAGER", "Manager")
		require.NoError(t, err)
		users.roles.roles[manager.ID] = manager
		invalidator.On("InvalidateAll", mock.Anything).Once()

		dto, err := svc.AssignRoles(ctx, identity.Unrestricted(), bob.ID, []uuid.UUID{manager.ID})

		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{manager.ID}, dto.RoleIDs)
		invalidator.AssertExpectations(t)
	})
}

func TestUserService_Create(t *testing.T) {
	ctx := context.Background()
	svc, users, invalidator := newUserServiceFixture()
	alice := seedUser(t, users, "alice", nil, "MANAGER")
	invalidator.On("InvalidateAll", mock.Anything).Once()

	dto, err := svc.Create(ctx, CreateUserInput{
		Username:  "frank",
		Password:  "secret123",
		Email:     "frank@example.com",
		ManagerID: &alice.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "frank", dto.Username)
	assert.Equal(t, &alice.ID, dto.ManagerID)
	invalidator.AssertExpectations(t)

	_, err = svc.Create(ctx, CreateUserInput{Username: "frank", Password: "secret123", Email: "other@example.com"})
	assertDomainCode(t, err, "USERNAME_EXISTS")
}

func TestUserService_Delete(t *testing.T) {
	ctx := context.Background()
	svc, users, invalidator := newUserServiceFixture()
	alice := seedUser(t, users, "alice", nil, "MANAGER")
	bob := seedUser(t, users, "bob", alice, "AGENT")
	invalidator.On("InvalidateAll", mock.Anything).Once()

	require.NoError(t, svc.Delete(ctx, identity.Unrestricted(), bob.ID))

	links, err := users.ListReportingLinks(ctx)
	require.NoError(t, err)
	assert.Empty(t, links)
	invalidator.AssertExpectations(t)

	_, err = svc.GetByID(ctx, identity.Unrestricted(), bob.ID)
	assertDomainCode(t, err, "USER_NOT_FOUND")
}
