package middleware

import (
	"net/http"

	"github.com/crm/backend/internal/domain/identity"
	"github.com/crm/backend/internal/infrastructure/logger"
	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ActorKey is the gin context key of the resolved identity.Actor
const ActorKey = "actor"

// AccessScope resolves the caller's access scope once per request. It must run
// after JWTAuthMiddleware. The actor is stored in the gin context and in the
// request context so services and repositories see the same scope.
func AccessScope(resolver identity.ScopeResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		userID, err := claims.GetUserUUID()
		if err != nil {
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeTokenInvalid, "Invalid token")
			return
		}

		ctx := c.Request.Context()
		actor := identity.NewActor(userID, resolver.Resolve(ctx, userID))
		if !actor.Scope.IsUnrestricted() {
			logger.FromContext(ctx).Debug("Access scope resolved", zap.Int("scope_size", actor.Scope.Len()))
		}

		c.Set(ActorKey, actor)
		c.Request = c.Request.WithContext(identity.ContextWithActor(ctx, actor))
		c.Next()
	}
}

// GetActor returns the actor stored by AccessScope
func GetActor(c *gin.Context) (identity.Actor, bool) {
	if v, exists := c.Get(ActorKey); exists {
		if actor, ok := v.(identity.Actor); ok {
			return actor, true
		}
	}
	return identity.Actor{}, false
}
