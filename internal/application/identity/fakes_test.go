package identity

import (
	"context"
	"strings"
	"testing"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeUserRepo is an in-memory identity.UserRepository
type fakeUserRepo struct {
	users map[uuid.UUID]*identity.User
	roles *fakeRoleRepo
}

func newFakeUserRepo(roles *fakeRoleRepo) *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*identity.User), roles: roles}
}

func (r *fakeUserRepo) Create(_ context.Context, user *identity.User) error {
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *identity.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return shared.ErrNotFound
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	user, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	now := user.UpdatedAt
	user.DeletedAt = &now
	return nil
}

func (r *fakeUserRepo) HardDelete(_ context.Context, id uuid.UUID) error {
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	user, ok := r.users[id]
	if !ok || user.IsDeleted() {
		return nil, shared.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) FindByUsername(_ context.Context, username string) (*identity.User, error) {
	for _, user := range r.users {
		if user.Username == strings.ToLower(username) && !user.IsDeleted() {
			return user, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeUserRepo) FindAll(_ context.Context, scope identity.AccessScope, _ identity.UserFilter) ([]*identity.User, int64, error) {
	var out []*identity.User
	for _, user := range r.users {
		if scope.Contains(user.ID) && !user.IsDeleted() {
			out = append(out, user)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.FindByUsername(ctx, username)
	return err == nil, nil
}

func (r *fakeUserRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, user := range r.users {
		if user.Email == strings.ToLower(email) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeUserRepo) FindEnabledRoles(ctx context.Context, userID uuid.UUID) ([]*identity.Role, error) {
	user, err := r.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	roles, _ := r.roles.FindByIDs(ctx, user.RoleIDs)
	enabled := make([]*identity.Role, 0, len(roles))
	for _, role := range roles {
		if role.IsEnabled {
			enabled = append(enabled, role)
		}
	}
	return enabled, nil
}

func (r *fakeUserRepo) ListReportingLinks(_ context.Context) ([]identity.ReportingLink, error) {
	var links []identity.ReportingLink
	for _, user := range r.users {
		if user.ManagerID != nil && !user.IsDeleted() {
			links = append(links, identity.ReportingLink{UserID: user.ID, ManagerID: *user.ManagerID})
		}
	}
	return links, nil
}

// fakeRoleRepo is an in-memory identity.RoleRepository
type fakeRoleRepo struct {
	roles map[uuid.UUID]*identity.Role
}

func newFakeRoleRepo() *fakeRoleRepo {
	return &fakeRoleRepo{roles: make(map[uuid.UUID]*identity.Role)}
}

func (r *fakeRoleRepo) Create(_ context.Context, role *identity.Role) error {
	r.roles[role.ID] = role
	return nil
}

func (r *fakeRoleRepo) Update(_ context.Context, role *identity.Role) error {
	r.roles[role.ID] = role
	return nil
}

func (r *fakeRoleRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(r.roles, id)
	return nil
}

func (r *fakeRoleRepo) FindByID(_ context.Context, id uuid.UUID) (*identity.Role, error) {
	role, ok := r.roles[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return role, nil
}

func (r *fakeRoleRepo) FindByCode(_ context.Context, code string) (*identity.Role, error) {
	for _, role := range r.roles {
		if role.Code == strings.ToUpper(code) {
			return role, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeRoleRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*identity.Role, error) {
	var out []*identity.Role
	for _, id := range ids {
		if role, ok := r.roles[id]; ok {
			out = append(out, role)
		}
	}
	return out, nil
}

func (r *fakeRoleRepo) FindAll(_ context.Context, _ identity.RoleFilter) ([]*identity.Role, error) {
	out := make([]*identity.Role, 0, len(r.roles))
	for _, role := range r.roles {
		out = append(out, role)
	}
	return out, nil
}

func (r *fakeRoleRepo) ExistsByCode(ctx context.Context, code string) (bool, error) {
	_, err := r.FindByCode(ctx, code)
	return err == nil, nil
}

// MockScopeInvalidator is a mock implementation of identity.ScopeInvalidator
type MockScopeInvalidator struct {
	mock.Mock
}

func (m *MockScopeInvalidator) InvalidateAll(ctx context.Context) {
	m.Called(ctx)
}

// seedUser stores an active user with the given role codes
func seedUser(t *testing.T, users *fakeUserRepo, username string, manager *identity.User, codes ...string) *identity.User {
	t.Helper()
	user, err := identity.NewUser(username, username+"@example.com", "secret123")
	require.NoError(t, err)

	roleIDs := make([]uuid.UUID, 0, len(codes))
	for _, code := range codes {
		role, err := users.roles.FindByCode(context.Background(), code)
		if err != nil {
			role, err = identity.NewRole(code, code)
			require.NoError(t, err)
			users.roles.roles[role.ID] = role
		}
		roleIDs = append(roleIDs, role.ID)
	}
	require.NoError(t, user.SetRoles(roleIDs))
	if manager != nil {
		require.NoError(t, user.SetManager(&manager.ID))
	}
	users.users[user.ID] = user
	return user
}
