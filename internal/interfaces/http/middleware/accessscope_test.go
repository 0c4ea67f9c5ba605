package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingResolver struct {
	scopes map[uuid.UUID]identity.AccessScope
	calls  int
}

func (r *countingResolver) Resolve(_ context.Context, callerID uuid.UUID) identity.AccessScope {
	r.calls++
	if scope, ok := r.scopes[callerID]; ok {
		return scope
	}
	return identity.SelfOnly(callerID)
}

func TestAccessScope(t *testing.T) {
	jwtService := newTestJWTService()
	manager, report := uuid.New(), uuid.New()
	resolver := &countingResolver{scopes: map[uuid.UUID]identity.AccessScope{
		manager: identity.RestrictedTo(manager, report),
	}}

	var fromGin, fromRequest identity.Actor
	router := gin.New()
	router.Use(JWTAuthMiddleware(JWTMiddlewareConfig{JWTService: jwtService}), AccessScope(resolver))
	router.GET("/test", func(c *gin.Context) {
		var ok bool
		fromGin, ok = GetActor(c)
		require.True(t, ok)
		fromRequest, ok = identity.ActorFromContext(c.Request.Context())
		require.True(t, ok)
		c.Status(http.StatusOK)
	})

	rec := serve(router, BearerPrefix+issueToken(t, jwtService, manager))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1, resolver.calls)
	assert.Equal(t, manager, fromGin.UserID)
	assert.True(t, fromGin.CanSee(report))
	assert.False(t, fromGin.CanSee(uuid.New()))
	assert.Equal(t, fromGin.UserID, fromRequest.UserID)
	assert.Equal(t, 2, fromRequest.Scope.Len())
}

func TestAccessScope_RequiresAuthentication(t *testing.T) {
	resolver := &countingResolver{}
	router := gin.New()
	router.Use(AccessScope(resolver))
	router.GET("/test", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, resolver.calls)
}
