package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/crm/backend/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJWTRouter(cfg JWTMiddlewareConfig) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), JWTAuthMiddleware(cfg))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": GetJWTUserID(c)})
	})
	return router
}

func serve(router http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if token != "" {
		req.Header.Set(AuthHeaderKey, token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthMiddleware(t *testing.T) {
	jwtService := newTestJWTService()
	userID := uuid.New()
	token := issueToken(t, jwtService, userID, "lead:read")

	t.Run("valid token", func(t *testing.T) {
		rec := serve(newJWTRouter(JWTMiddlewareConfig{JWTService: jwtService}), BearerPrefix+token)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), userID.String())
	})

	t.Run("missing header", func(t *testing.T) {
		rec := serve(newJWTRouter(JWTMiddlewareConfig{JWTService: jwtService}), "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		errInfo := decodeError(t, rec)
		assert.Equal(t, "TOKEN_INVALID", errInfo.Code)
		assert.NotEmpty(t, errInfo.RequestID)
	})

	t.Run("not a bearer token", func(t *testing.T) {
		rec := serve(newJWTRouter(JWTMiddlewareConfig{JWTService: jwtService}), "Basic abc")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		rec := serve(newJWTRouter(JWTMiddlewareConfig{JWTService: jwtService}), BearerPrefix+"not.a.jwt")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "TOKEN_INVALID", decodeError(t, rec).Code)
	})

	t.Run("refresh token is rejected", func(t *testing.T) {
		pair, err := jwtService.GenerateTokenPair(auth.GenerateTokenInput{UserID: userID, Username: "alice"})
		require.NoError(t, err)
		rec := serve(newJWTRouter(JWTMiddlewareConfig{JWTService: jwtService}), BearerPrefix+pair.RefreshToken)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("skip paths need no token", func(t *testing.T) {
		router := newJWTRouter(JWTMiddlewareConfig{JWTService: jwtService, SkipPaths: []string{"/health"}})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestJWTAuthMiddleware_Blacklist(t *testing.T) {
	ctx := context.Background()
	jwtService := newTestJWTService()

	t.Run("revoked jti", func(t *testing.T) {
		blacklist := auth.NewInMemoryTokenBlacklist()
		token := issueToken(t, jwtService, uuid.New())
		claims, err := jwtService.ValidateAccessToken(token)
		require.NoError(t, err)
		require.NoError(t, blacklist.AddToBlacklist(ctx, claims.ID, time.Hour))

		rec := serve(newJWTRouter(JWTMiddlewareConfig{JWTService: jwtService, TokenBlacklist: blacklist}), BearerPrefix+token)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "TOKEN_REVOKED", decodeError(t, rec).Code)
	})

	t.Run("other tokens of the user stay valid", func(t *testing.T) {
		blacklist := auth.NewInMemoryTokenBlacklist()
		userID := uuid.New()
		revoked := issueToken(t, jwtService, userID)
		claims, err := jwtService.ValidateAccessToken(revoked)
		require.NoError(t, err)
		require.NoError(t, blacklist.AddToBlacklist(ctx, claims.ID, time.Hour))

		rec := serve(newJWTRouter(JWTMiddlewareConfig{JWTService: jwtService, TokenBlacklist: blacklist}),
			BearerPrefix+issueToken(t, jwtService, userID))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
