package middleware

import (
	"net/http"

	"github.com/crm/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Permission codes checked by the router
const (
	PermUserRead      = "user:read"
	PermUserManage    = "user:manage"
	PermRoleManage    = "role:manage"
	PermSettingsWrite = "settings:update"
	PermExpenseReview = "expense:approve"
	PermReportRead    = "report:read"
)

// RequirePermission aborts with 403 unless the caller holds the permission
func RequirePermission(permission string, log *zap.Logger) gin.HandlerFunc {
	return RequireAnyPermission(log, permission)
}

// RequireAnyPermission aborts with 403 unless the caller holds one of the permissions
func RequireAnyPermission(log *zap.Logger, permissions ...string) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}
	return func(c *gin.Context) {
		claims := GetJWTClaims(c)
		if claims == nil {
			abortWithError(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}
		if !claims.HasAnyPermission(permissions...) {
			log.Warn("Permission denied",
				zap.String("user_id", claims.UserID),
				zap.Strings("required_any", permissions),
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
			)
			abortWithError(c, http.StatusForbidden, dto.ErrCodeForbidden, "Access denied: insufficient permissions")
			return
		}
		c.Next()
	}
}

// HasPermission reports whether the authenticated caller holds the permission
func HasPermission(c *gin.Context, permission string) bool {
	claims := GetJWTClaims(c)
	return claims != nil && claims.HasPermission(permission)
}
