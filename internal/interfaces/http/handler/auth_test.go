package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	appidentity "github.com/crm/backend/internal/application/identity"
	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/domain/shared"
	"github.com/crm/backend/internal/infrastructure/auth"
	"github.com/crm/backend/internal/infrastructure/config"
	"github.com/crm/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type memoryUsers struct {
	identity.UserRepository
	byID map[uuid.UUID]*identity.User
}

func (r *memoryUsers) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	if u, ok := r.byID[id]; ok {
		return u, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memoryUsers) FindByUsername(_ context.Context, username string) (*identity.User, error) {
	for _, u := range r.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *memoryUsers) Update(_ context.Context, user *identity.User) error {
	r.byID[user.ID] = user
	return nil
}

type memoryRoles struct {
	identity.RoleRepository
	roles []*identity.Role
}

func (r *memoryRoles) FindByIDs(_ context.Context, ids []uuid.UUID) ([]*identity.Role, error) {
	var out []*identity.Role
	for _, role := range r.roles {
		for _, id := range ids {
			if role.ID == id {
				out = append(out, role)
			}
		}
	}
	return out, nil
}

type selfResolver struct{}

func (selfResolver) Resolve(_ context.Context, callerID uuid.UUID) identity.AccessScope {
	return identity.SelfOnly(callerID)
}

type authFixture struct {
	engine *gin.Engine
	user   *identity.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "handler-test-secret-32-characters",
		RefreshSecret:          "handler-test-refresh-secret-32-ch",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "crm-test",
		MaxRefreshCount:        5,
	})
	blacklist := auth.NewInMemoryTokenBlacklist()

	role, err := identity.NewRole("SALES_REP", "Sales rep")
	require.NoError(t, err)
	require.NoError(t, role.SetPermissionCodes([]string{"lead:read", "lead:create"}))

	user, err := identity.NewUser("alice", "alice@example.com", "correct-horse-1")
	require.NoError(t, err)
	require.NoError(t, user.SetRoles([]uuid.UUID{role.ID}))

	users := &memoryUsers{byID: map[uuid.UUID]*identity.User{user.ID: user}}
	service := appidentity.NewAuthService(users, &memoryRoles{roles: []*identity.Role{role}},
		jwtService, blacklist, selfResolver{}, zap.NewNop())
	h := NewAuthHandler(service)

	engine := gin.New()
	engine.POST("/auth/login", h.Login)
	engine.POST("/auth/refresh", h.RefreshToken)
	protected := engine.Group("/auth",
		middleware.JWTAuthMiddleware(middleware.JWTMiddlewareConfig{
			JWTService:     jwtService,
			TokenBlacklist: blacklist,
			Logger:         zap.NewNop(),
		}),
		middleware.AccessScope(selfResolver{}),
	)
	protected.POST("/logout", h.Logout)
	protected.GET("/me", h.GetCurrentUser)
	protected.PUT("/password", h.ChangePassword)

	return &authFixture{engine: engine, user: user}
}

func (f *authFixture) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		payload = mustJSON(t, body)
	}
	req := httptest.NewRequest(method, path, bytesReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func (f *authFixture) login(t *testing.T) appidentity.LoginResult {
	t.Helper()
	w := f.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "alice", Password: "correct-horse-1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Data appidentity.LoginResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Data
}

func TestAuthHandler_Login(t *testing.T) {
	f := newAuthFixture(t)

	t.Run("success returns tokens and permissions", func(t *testing.T) {
		result := f.login(t)
		assert.NotEmpty(t, result.AccessToken)
		assert.NotEmpty(t, result.RefreshToken)
		assert.Equal(t, f.user.ID, result.User.ID)
		assert.Equal(t, []string{"lead:create", "lead:read"}, result.User.Permissions)
	})

	t.Run("wrong password", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "alice", Password: "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", decodeResponse(t, w).Error.Code)
	})

	t.Run("unknown user gets the same answer", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "mallory", Password: "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "INVALID_CREDENTIALS", decodeResponse(t, w).Error.Code)
	})

	t.Run("missing fields", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/auth/login", "", map[string]string{"username": "alice"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", decodeResponse(t, w).Error.Code)
	})

	t.Run("deactivated account", func(t *testing.T) {
		g := newAuthFixture(t)
		require.NoError(t, g.user.Deactivate())
		w := g.do(t, http.MethodPost, "/auth/login", "", LoginRequest{Username: "alice", Password: "correct-horse-1"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "ACCOUNT_DEACTIVATED", decodeResponse(t, w).Error.Code)
	})
}

func TestAuthHandler_RefreshToken(t *testing.T) {
	f := newAuthFixture(t)
	tokens := f.login(t)

	w := f.do(t, http.MethodPost, "/auth/refresh", "", RefreshTokenRequest{RefreshToken: tokens.RefreshToken})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodPost, "/auth/refresh", "", RefreshTokenRequest{RefreshToken: tokens.AccessToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_CurrentUser(t *testing.T) {
	f := newAuthFixture(t)
	tokens := f.login(t)

	w := f.do(t, http.MethodGet, "/auth/me", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"username":"alice"`)
	assert.Contains(t, w.Body.String(), f.user.ID.String())

	w = f.do(t, http.MethodGet, "/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthHandler_LogoutRevokesToken(t *testing.T) {
	f := newAuthFixture(t)
	tokens := f.login(t)

	w := f.do(t, http.MethodPost, "/auth/logout", tokens.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = f.do(t, http.MethodGet, "/auth/me", tokens.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_REVOKED", decodeResponse(t, w).Error.Code)
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	f := newAuthFixture(t)
	tokens := f.login(t)

	w := f.do(t, http.MethodPut, "/auth/password", tokens.AccessToken,
		ChangePasswordRequest{OldPassword: "wrong", NewPassword: "battery-staple-2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_PASSWORD", decodeResponse(t, w).Error.Code)

	w = f.do(t, http.MethodPut, "/auth/password", tokens.AccessToken,
		ChangePasswordRequest{OldPassword: "correct-horse-1", NewPassword: "battery-staple-2"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, f.user.VerifyPassword("battery-staple-2"))
}
