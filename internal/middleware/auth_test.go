package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"givehub/api/internal/config"
	"givehub/api/internal/models"
	"givehub/api/internal/security"
)

type fakeUserLoader struct {
	users map[string]models.User
}

func (f *fakeUserLoader) GetByID(_ context.Context, id string) (models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return models.User{}, assert.AnError
	}
	return user, nil
}

func testSecurityConfig() config.SecurityConfig {
	return config.SecurityConfig{
		JWTAccessSecret:  "access-secret",
		JWTRefreshSecret: "refresh-secret",
		JWTIssuer:        "givehub-api",
		JWTAudience:      "givehub-clients",
		JWTAccessTTL:     time.Hour,
		JWTRefreshTTL:    24 * time.Hour,
	}
}

func protectedRouter(tokenSvc *security.TokenService, users userLoader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/me", Auth(tokenSvc, users), func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "no user on context"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"email": user.Email})
	})
	return router
}

func getWithToken(router *gin.Engine, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestAuth(t *testing.T) {
	cfg := testSecurityConfig()
	tokenSvc := security.NewTokenService(cfg)

	activeUser := models.User{
		ID:                "u-1",
		Email:             "alice@example.com",
		Role:              models.UserRoleUser,
		IsActive:          true,
		PasswordChangedAt: time.Now().Add(-time.Hour),
	}

	t.Run("valid token reaches the handler", func(t *testing.T) {
		users := &fakeUserLoader{users: map[string]models.User{"u-1": activeUser}}
		token, err := tokenSvc.IssueAccessToken(activeUser.ID, activeUser.Email, activeUser.Role)
		require.NoError(t, err)

		rec := getWithToken(protectedRouter(tokenSvc, users), token)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "alice@example.com")
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		users := &fakeUserLoader{users: map[string]models.User{}}

		rec := getWithToken(protectedRouter(tokenSvc, users), "")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "token_invalid")
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		users := &fakeUserLoader{users: map[string]models.User{}}

		rec := getWithToken(protectedRouter(tokenSvc, users), "not-a-jwt")

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "token_invalid")
	})

	t.Run("expired token reports token_expired", func(t *testing.T) {
		expiredCfg := testSecurityConfig()
		expiredCfg.JWTAccessTTL = -time.Minute
		expiredSvc := security.NewTokenService(expiredCfg)

		users := &fakeUserLoader{users: map[string]models.User{"u-1": activeUser}}
		token, err := expiredSvc.IssueAccessToken(activeUser.ID, activeUser.Email, activeUser.Role)
		require.NoError(t, err)

		rec := getWithToken(protectedRouter(tokenSvc, users), token)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "token_expired")
	})

	t.Run("unknown subject is rejected", func(t *testing.T) {
		users := &fakeUserLoader{users: map[string]models.User{}}
		token, err := tokenSvc.IssueAccessToken("ghost", "ghost@example.com", models.UserRoleUser)
		require.NoError(t, err)

		rec := getWithToken(protectedRouter(tokenSvc, users), token)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "token_invalid")
	})

	t.Run("deactivated account is rejected", func(t *testing.T) {
		inactive := activeUser
		inactive.IsActive = false
		users := &fakeUserLoader{users: map[string]models.User{"u-1": inactive}}
		token, err := tokenSvc.IssueAccessToken(inactive.ID, inactive.Email, inactive.Role)
		require.NoError(t, err)

		rec := getWithToken(protectedRouter(tokenSvc, users), token)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "auth_failed")
	})

	t.Run("token issued before a password change is rejected", func(t *testing.T) {
		stale := activeUser
		stale.PasswordChangedAt = time.Now().Add(time.Hour)
		users := &fakeUserLoader{users: map[string]models.User{"u-1": stale}}
		token, err := tokenSvc.IssueAccessToken(stale.ID, stale.Email, stale.Role)
		require.NoError(t, err)

		rec := getWithToken(protectedRouter(tokenSvc, users), token)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "password changed")
	})
}
