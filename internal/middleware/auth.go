package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"givehub/api/internal/models"
	"givehub/api/internal/security"
)

const (
	ContextUser   = "current_user"
	ContextClaims = "access_claims"
)

type userLoader interface {
	GetByID(ctx context.Context, id string) (models.User, error)
}

// Auth authenticates the request from its Bearer access token. Tokens
// issued before the user's last password change are rejected even when
// their expiry has not passed.
func Auth(tokenSvc *security.TokenService, users userLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			abortError(c, http.StatusUnauthorized, "token_invalid", "missing access token")
			return
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

		claims, err := tokenSvc.VerifyAccessToken(tokenStr)
		if err != nil {
			if errors.Is(err, security.ErrTokenExpired) {
				abortError(c, http.StatusUnauthorized, "token_expired", "access token expired")
				return
			}
			abortError(c, http.StatusUnauthorized, "token_invalid", "invalid access token")
			return
		}

		user, err := users.GetByID(c.Request.Context(), claims.UserID)
		if err != nil {
			abortError(c, http.StatusUnauthorized, "token_invalid", "invalid access token")
			return
		}

		if !user.IsActive {
			abortError(c, http.StatusUnauthorized, "auth_failed", "account is deactivated")
			return
		}

		if claims.IssuedAt != nil && claims.IssuedAt.Time.Before(user.PasswordChangedAt) {
			abortError(c, http.StatusUnauthorized, "token_invalid", "password changed, please log in again")
			return
		}

		c.Set(ContextClaims, *claims)
		c.Set(ContextUser, user)

		c.Next()
	}
}

// CurrentUser returns the authenticated user placed on the context by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	value, exists := c.Get(ContextUser)
	if !exists {
		return models.User{}, false
	}
	user, ok := value.(models.User)
	return user, ok
}

func abortError(c *gin.Context, status int, code string, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error": gin.H{"code": code, "message": message},
	})
}
