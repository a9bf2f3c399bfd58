package service

import (
	"context"
	"encoding/hex"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"givehub/api/internal/apperr"
	"givehub/api/internal/config"
	"givehub/api/internal/models"
	"givehub/api/internal/repository"
	"givehub/api/internal/security"
)

// fakeUserStore is an in-memory stand-in for the users table, mirroring the
// repository's single-statement counter and lock updates.
type fakeUserStore struct {
	users map[string]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: map[string]*models.User{}}
}

func (f *fakeUserStore) Create(_ context.Context, user models.User) error {
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	user.PasswordChangedAt = time.Now()
	user.CreatedAt = time.Now()
	f.users[user.ID] = &user
	return nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return *user, nil
		}
	}
	return models.User{}, repository.ErrUserNotFound
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return models.User{}, repository.ErrUserNotFound
	}
	return *user, nil
}

func (f *fakeUserStore) RecordLoginFailure(_ context.Context, id string, threshold int, lockUntil time.Time) (int, *time.Time, error) {
	user, ok := f.users[id]
	if !ok {
		return 0, nil, repository.ErrUserNotFound
	}
	user.FailedLoginAttempts++
	if user.FailedLoginAttempts >= threshold {
		user.LockUntil = &lockUntil
	}
	return user.FailedLoginAttempts, user.LockUntil, nil
}

func (f *fakeUserStore) RecordLoginSuccess(_ context.Context, id string) error {
	user, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	now := time.Now()
	user.FailedLoginAttempts = 0
	user.LockUntil = nil
	user.LastLoginAt = &now
	return nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id string, passwordHash []byte) error {
	user, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	user.PasswordChangedAt = time.Now()
	return nil
}

func (f *fakeUserStore) SetActive(_ context.Context, id string, active bool) error {
	user, ok := f.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.IsActive = active
	return nil
}

type fakeTokenStore struct {
	tokens map[string]map[string]models.RefreshToken
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: map[string]map[string]models.RefreshToken{}}
}

func (f *fakeTokenStore) Add(_ context.Context, token models.RefreshToken) error {
	if f.tokens[token.UserID] == nil {
		f.tokens[token.UserID] = map[string]models.RefreshToken{}
	}
	f.tokens[token.UserID][hex.EncodeToString(token.TokenHash)] = token
	return nil
}

func (f *fakeTokenStore) Consume(_ context.Context, userID string, tokenHash []byte) error {
	key := hex.EncodeToString(tokenHash)
	stored, ok := f.tokens[userID][key]
	if !ok || stored.ExpiresAt.Before(time.Now()) {
		return repository.ErrTokenNotFound
	}
	delete(f.tokens[userID], key)
	return nil
}

func (f *fakeTokenStore) Remove(_ context.Context, userID string, tokenHash []byte) error {
	delete(f.tokens[userID], hex.EncodeToString(tokenHash))
	return nil
}

func (f *fakeTokenStore) RemoveAll(_ context.Context, userID string) error {
	delete(f.tokens, userID)
	return nil
}

func (f *fakeTokenStore) CountForUser(_ context.Context, userID string) (int, error) {
	return len(f.tokens[userID]), nil
}

func (f *fakeTokenStore) count(userID string) int {
	return len(f.tokens[userID])
}

func newTestAuthService(t *testing.T) (*AuthService, *fakeUserStore, *fakeTokenStore) {
	t.Helper()

	cfg := config.SecurityConfig{
		JWTAccessSecret:  "access-secret",
		JWTRefreshSecret: "refresh-secret",
		JWTIssuer:        "givehub-api",
		JWTAudience:      "givehub-clients",
		JWTAccessTTL:     time.Hour,
		JWTRefreshTTL:    168 * time.Hour,
		LockoutThreshold: 5,
		LockoutDuration:  2 * time.Hour,
	}

	users := newFakeUserStore()
	tokens := newFakeTokenStore()
	svc := NewAuthService(users, tokens, security.NewTokenService(cfg), cfg, zerolog.Nop())
	return svc, users, tokens
}

func register(t *testing.T, svc *AuthService, email, password string) AuthResult {
	t.Helper()
	result, err := svc.Register(context.Background(), RegisterInput{
		Name:     "Test Donor",
		Email:    email,
		Password: password,
	})
	require.NoError(t, err)
	return result
}

func TestAuthService_Register(t *testing.T) {
	t.Run("issues tokens and persists refresh token", func(t *testing.T) {
		svc, _, tokens := newTestAuthService(t)

		result := register(t, svc, "donor@example.com", "sup3r-secret")

		assert.Equal(t, models.UserRoleUser, result.User.Role)
		assert.Equal(t, "donor@example.com", result.User.Email)
		assert.NotEmpty(t, result.Tokens.AccessToken)
		assert.NotEmpty(t, result.Tokens.RefreshToken)
		assert.Equal(t, 1, tokens.count(result.User.ID))
	})

	t.Run("duplicate email conflicts regardless of case", func(t *testing.T) {
		svc, _, _ := newTestAuthService(t)
		register(t, svc, "donor@example.com", "sup3r-secret")

		_, err := svc.Register(context.Background(), RegisterInput{
			Name:     "Another",
			Email:    "DONOR@Example.COM",
			Password: "other-secret",
		})
		assert.True(t, apperr.IsCode(err, apperr.CodeConflict), "expected conflict, got %v", err)
	})
}

func TestAuthService_Login(t *testing.T) {
	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		svc, _, _ := newTestAuthService(t)
		register(t, svc, "donor@example.com", "sup3r-secret")

		_, errUnknown := svc.Login(context.Background(), LoginInput{
			Email: "nobody@example.com", Password: "whatever",
		})
		_, errWrong := svc.Login(context.Background(), LoginInput{
			Email: "donor@example.com", Password: "wrong",
		})

		require.Error(t, errUnknown)
		require.Error(t, errWrong)
		assert.Equal(t, errUnknown.Error(), errWrong.Error())
		assert.True(t, apperr.IsCode(errUnknown, apperr.CodeAuthFailed))
		assert.True(t, apperr.IsCode(errWrong, apperr.CodeAuthFailed))
	})

	t.Run("deactivated account cannot log in", func(t *testing.T) {
		svc, users, _ := newTestAuthService(t)
		result := register(t, svc, "donor@example.com", "sup3r-secret")
		require.NoError(t, users.SetActive(context.Background(), result.User.ID, false))

		_, err := svc.Login(context.Background(), LoginInput{
			Email: "donor@example.com", Password: "sup3r-secret",
		})
		assert.True(t, apperr.IsCode(err, apperr.CodeAuthFailed))
	})

	t.Run("successful login resets the attempt counter", func(t *testing.T) {
		svc, users, _ := newTestAuthService(t)
		result := register(t, svc, "donor@example.com", "sup3r-secret")

		for i := 0; i < 2; i++ {
			_, err := svc.Login(context.Background(), LoginInput{
				Email: "donor@example.com", Password: "wrong",
			})
			require.Error(t, err)
		}
		stored, _ := users.GetByID(context.Background(), result.User.ID)
		require.Equal(t, 2, stored.FailedLoginAttempts)

		_, err := svc.Login(context.Background(), LoginInput{
			Email: "donor@example.com", Password: "sup3r-secret",
		})
		require.NoError(t, err)

		stored, _ = users.GetByID(context.Background(), result.User.ID)
		assert.Zero(t, stored.FailedLoginAttempts)
		assert.Nil(t, stored.LockUntil)
		assert.NotNil(t, stored.LastLoginAt)
	})
}

func TestAuthService_Lockout(t *testing.T) {
	t.Run("fifth failure locks, correct password then rejected", func(t *testing.T) {
		svc, _, _ := newTestAuthService(t)
		register(t, svc, "donor@example.com", "sup3r-secret")

		for i := 0; i < 5; i++ {
			_, err := svc.Login(context.Background(), LoginInput{
				Email: "donor@example.com", Password: "wrong",
			})
			assert.True(t, apperr.IsCode(err, apperr.CodeAuthFailed))
		}

		_, err := svc.Login(context.Background(), LoginInput{
			Email: "donor@example.com", Password: "sup3r-secret",
		})
		assert.True(t, apperr.IsCode(err, apperr.CodeAccountLocked), "expected locked, got %v", err)
	})

	t.Run("lock expiry restores access", func(t *testing.T) {
		svc, users, _ := newTestAuthService(t)
		result := register(t, svc, "donor@example.com", "sup3r-secret")

		for i := 0; i < 5; i++ {
			_, _ = svc.Login(context.Background(), LoginInput{
				Email: "donor@example.com", Password: "wrong",
			})
		}

		// Simulate the 2h lock window elapsing.
		past := time.Now().Add(-time.Minute)
		users.users[result.User.ID].LockUntil = &past

		_, err := svc.Login(context.Background(), LoginInput{
			Email: "donor@example.com", Password: "sup3r-secret",
		})
		assert.NoError(t, err)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	t.Run("rotation is single use", func(t *testing.T) {
		svc, _, tokens := newTestAuthService(t)
		result := register(t, svc, "donor@example.com", "sup3r-secret")

		rotated, err := svc.Refresh(context.Background(), result.Tokens.RefreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, result.Tokens.RefreshToken, rotated.Tokens.RefreshToken)
		assert.Equal(t, 1, tokens.count(result.User.ID))

		// The consumed token is gone; replaying it must fail.
		_, err = svc.Refresh(context.Background(), result.Tokens.RefreshToken)
		assert.True(t, apperr.IsCode(err, apperr.CodeTokenInvalid), "expected token_invalid, got %v", err)

		// The replacement still works.
		_, err = svc.Refresh(context.Background(), rotated.Tokens.RefreshToken)
		assert.NoError(t, err)
	})

	t.Run("access token is rejected as refresh token", func(t *testing.T) {
		svc, _, _ := newTestAuthService(t)
		result := register(t, svc, "donor@example.com", "sup3r-secret")

		_, err := svc.Refresh(context.Background(), result.Tokens.AccessToken)
		assert.True(t, apperr.IsCode(err, apperr.CodeTokenInvalid))
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		svc, _, _ := newTestAuthService(t)

		_, err := svc.Refresh(context.Background(), "not-a-jwt")
		assert.True(t, apperr.IsCode(err, apperr.CodeTokenInvalid))
	})
}

func TestAuthService_ChangePassword(t *testing.T) {
	t.Run("wrong current password", func(t *testing.T) {
		svc, _, _ := newTestAuthService(t)
		result := register(t, svc, "donor@example.com", "sup3r-secret")

		err := svc.ChangePassword(context.Background(), result.User.ID, "wrong", "new-password-1")
		assert.True(t, apperr.IsCode(err, apperr.CodeAuthFailed))
	})

	t.Run("new password must differ", func(t *testing.T) {
		svc, _, _ := newTestAuthService(t)
		result := register(t, svc, "donor@example.com", "sup3r-secret")

		err := svc.ChangePassword(context.Background(), result.User.ID, "sup3r-secret", "sup3r-secret")
		assert.True(t, apperr.IsCode(err, apperr.CodeValidationFailed))
	})

	t.Run("success revokes every refresh token", func(t *testing.T) {
		svc, users, tokens := newTestAuthService(t)
		result := register(t, svc, "donor@example.com", "sup3r-secret")

		// Second device.
		_, err := svc.Login(context.Background(), LoginInput{
			Email: "donor@example.com", Password: "sup3r-secret",
		})
		require.NoError(t, err)
		require.Equal(t, 2, tokens.count(result.User.ID))

		before, _ := users.GetByID(context.Background(), result.User.ID)

		err = svc.ChangePassword(context.Background(), result.User.ID, "sup3r-secret", "new-password-1")
		require.NoError(t, err)

		after, _ := users.GetByID(context.Background(), result.User.ID)
		assert.Zero(t, tokens.count(result.User.ID))
		assert.NotEqual(t, before.PasswordHash, after.PasswordHash)
		assert.True(t, after.PasswordChangedAt.After(before.PasswordChangedAt))

		// Old refresh tokens are dead even though their signatures verify.
		_, err = svc.Refresh(context.Background(), result.Tokens.RefreshToken)
		assert.True(t, apperr.IsCode(err, apperr.CodeTokenInvalid))

		// The new password works.
		_, err = svc.Login(context.Background(), LoginInput{
			Email: "donor@example.com", Password: "new-password-1",
		})
		assert.NoError(t, err)
	})
}

func TestAuthService_Logout(t *testing.T) {
	t.Run("single device", func(t *testing.T) {
		svc, _, tokens := newTestAuthService(t)
		result := register(t, svc, "donor@example.com", "sup3r-secret")

		second, err := svc.Login(context.Background(), LoginInput{
			Email: "donor@example.com", Password: "sup3r-secret",
		})
		require.NoError(t, err)
		require.Equal(t, 2, tokens.count(result.User.ID))

		err = svc.Logout(context.Background(), result.User.ID, second.Tokens.RefreshToken)
		require.NoError(t, err)
		assert.Equal(t, 1, tokens.count(result.User.ID))

		// The other session survives.
		_, err = svc.Refresh(context.Background(), result.Tokens.RefreshToken)
		assert.NoError(t, err)
	})

	t.Run("all devices", func(t *testing.T) {
		svc, _, tokens := newTestAuthService(t)
		result := register(t, svc, "donor@example.com", "sup3r-secret")

		_, err := svc.Login(context.Background(), LoginInput{
			Email: "donor@example.com", Password: "sup3r-secret",
		})
		require.NoError(t, err)

		err = svc.Logout(context.Background(), result.User.ID, "")
		require.NoError(t, err)
		assert.Zero(t, tokens.count(result.User.ID))
	})
}

func TestAuthService_ActiveSessions(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	result := register(t, svc, "donor@example.com", "sup3r-secret")

	sessions, err := svc.ActiveSessions(context.Background(), result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, sessions)

	_, err = svc.Login(context.Background(), LoginInput{
		Email: "donor@example.com", Password: "sup3r-secret",
	})
	require.NoError(t, err)

	sessions, err = svc.ActiveSessions(context.Background(), result.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, sessions)

	require.NoError(t, svc.Logout(context.Background(), result.User.ID, ""))

	sessions, err = svc.ActiveSessions(context.Background(), result.User.ID)
	require.NoError(t, err)
	assert.Zero(t, sessions)
}

func TestAuthService_Deactivate(t *testing.T) {
	svc, users, tokens := newTestAuthService(t)
	result := register(t, svc, "donor@example.com", "sup3r-secret")

	err := svc.Deactivate(context.Background(), result.User.ID)
	require.NoError(t, err)

	stored, _ := users.GetByID(context.Background(), result.User.ID)
	assert.False(t, stored.IsActive)
	assert.Zero(t, tokens.count(result.User.ID))

	// A still-valid refresh token is useless for an inactive account.
	_, err = svc.Refresh(context.Background(), result.Tokens.RefreshToken)
	assert.True(t, apperr.IsCode(err, apperr.CodeTokenInvalid))
}
