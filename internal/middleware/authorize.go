package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"givehub/api/internal/models"
)

// RequireRoles gates a route group to the given roles. Must run after Auth.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := make(map[models.UserRole]struct{}, len(roles))
	for _, role := range roles {
		roleSet[role] = struct{}{}
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			abortError(c, http.StatusUnauthorized, "auth_failed", "authentication required")
			return
		}

		if _, ok := roleSet[user.Role]; !ok {
			abortError(c, http.StatusForbidden, "forbidden", "insufficient role")
			return
		}

		c.Next()
	}
}
