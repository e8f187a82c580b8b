package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/degree-audit-backend/internal/response"
)

// RequirePermission checks that the admin JWT contains the required permission code.
// Must run after RequireAdminJWT.
func RequirePermission(permissionCode string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetClaims(c)
		if claims == nil {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}

		if !claims.HasPermission(permissionCode) {
			response.AbortFail(c, http.StatusForbidden, response.ErrPermissionDenied)
			return
		}
		c.Next()
	}
}
