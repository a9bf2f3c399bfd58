package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"givehub/api/internal/apperr"
	"givehub/api/internal/config"
	"givehub/api/internal/ids"
	"givehub/api/internal/models"
	"givehub/api/internal/repository"
	"givehub/api/internal/security"
)

const credentialsMessage = "incorrect email or password"

type userStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	GetByID(ctx context.Context, id string) (models.User, error)
	RecordLoginFailure(ctx context.Context, id string, threshold int, lockUntil time.Time) (int, *time.Time, error)
	RecordLoginSuccess(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id string, passwordHash []byte) error
	SetActive(ctx context.Context, id string, active bool) error
}

type tokenStore interface {
	Add(ctx context.Context, token models.RefreshToken) error
	Consume(ctx context.Context, userID string, tokenHash []byte) error
	Remove(ctx context.Context, userID string, tokenHash []byte) error
	RemoveAll(ctx context.Context, userID string) error
	CountForUser(ctx context.Context, userID string) (int, error)
}

// AuthService coordinates the credential store and the token service for
// the register/login/refresh/logout flows and enforces the lockout policy.
type AuthService struct {
	users    userStore
	tokens   tokenStore
	tokenSvc *security.TokenService
	cfg      config.SecurityConfig
	log      zerolog.Logger
}

func NewAuthService(users userStore, tokens tokenStore, tokenSvc *security.TokenService, cfg config.SecurityConfig, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		tokenSvc: tokenSvc,
		cfg:      cfg,
		log:      log,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type AuthResult struct {
	User   models.User
	Tokens security.TokenPair
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (AuthResult, error) {
	email := normalizeEmail(input.Email)

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return AuthResult{}, err
	}

	user := models.User{
		ID:           ids.New(),
		Name:         strings.TrimSpace(input.Name),
		Email:        email,
		PasswordHash: passwordHash,
		Role:         models.UserRoleUser,
		IsActive:     true,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return AuthResult{}, apperr.Conflict("email already registered")
		}
		return AuthResult{}, err
	}

	pair, err := s.issueAndPersist(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}

	s.log.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("user registered")

	return AuthResult{User: user, Tokens: pair}, nil
}

type LoginInput struct {
	Email    string
	Password string
	SourceIP string
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (AuthResult, error) {
	email := normalizeEmail(input.Email)

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Same message as a wrong password so accounts cannot be enumerated.
			return AuthResult{}, apperr.AuthFailed(credentialsMessage)
		}
		return AuthResult{}, err
	}

	if !user.IsActive {
		return AuthResult{}, apperr.AuthFailed(credentialsMessage)
	}

	now := time.Now()
	if user.Locked(now) {
		s.log.Warn().
			Str("user_id", user.ID).
			Str("ip", input.SourceIP).
			Time("lock_until", *user.LockUntil).
			Msg("login attempt on locked account")
		return AuthResult{}, apperr.AccountLocked("account temporarily locked, try again later")
	}

	ok, err := security.VerifyPassword(input.Password, user.PasswordHash)
	if err != nil || !ok {
		attempts, lockUntil, recErr := s.users.RecordLoginFailure(ctx, user.ID,
			s.cfg.LockoutThreshold, now.Add(s.cfg.LockoutDuration))
		if recErr != nil {
			return AuthResult{}, recErr
		}

		event := s.log.Warn().
			Str("user_id", user.ID).
			Str("ip", input.SourceIP).
			Int("failed_attempts", attempts)
		if lockUntil != nil && lockUntil.After(now) {
			event = event.Time("lock_until", *lockUntil)
		}
		event.Msg("failed login attempt")

		return AuthResult{}, apperr.AuthFailed(credentialsMessage)
	}

	if err := s.users.RecordLoginSuccess(ctx, user.ID); err != nil {
		return AuthResult{}, err
	}

	pair, err := s.issueAndPersist(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}

	s.log.Info().Str("user_id", user.ID).Str("ip", input.SourceIP).Msg("login")

	user.FailedLoginAttempts = 0
	user.LockUntil = nil
	user.LastLoginAt = &now

	return AuthResult{User: user, Tokens: pair}, nil
}

// Refresh rotates a refresh token: the presented token must match a stored
// live one and is consumed atomically before the replacement is issued, so
// each refresh token is good for exactly one exchange.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (AuthResult, error) {
	claims, err := s.tokenSvc.VerifyRefreshToken(refreshToken)
	if err != nil {
		return AuthResult{}, tokenError(err)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return AuthResult{}, apperr.TokenInvalid("invalid refresh token")
		}
		return AuthResult{}, err
	}
	if !user.IsActive {
		return AuthResult{}, apperr.TokenInvalid("invalid refresh token")
	}

	if err := s.tokens.Consume(ctx, user.ID, security.HashToken(refreshToken)); err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			s.log.Warn().Str("user_id", user.ID).Msg("refresh token reuse or unknown token")
			return AuthResult{}, apperr.TokenInvalid("invalid refresh token")
		}
		return AuthResult{}, err
	}

	pair, err := s.issueAndPersist(ctx, user)
	if err != nil {
		return AuthResult{}, err
	}

	return AuthResult{User: user, Tokens: pair}, nil
}

// Logout removes one stored refresh token, or every token for the user when
// none is given.
func (s *AuthService) Logout(ctx context.Context, userID string, refreshToken string) error {
	if refreshToken == "" {
		return s.tokens.RemoveAll(ctx, userID)
	}
	return s.tokens.Remove(ctx, userID, security.HashToken(refreshToken))
}

func (s *AuthService) ChangePassword(ctx context.Context, userID string, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := security.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil || !ok {
		return apperr.AuthFailed("current password is incorrect")
	}

	if newPassword == currentPassword {
		return apperr.ValidationFailed("new password must differ from the current password")
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.users.UpdatePassword(ctx, userID, passwordHash); err != nil {
		return err
	}

	// Outstanding refresh tokens die here; access tokens die via the
	// password_changed_at staleness check on each request.
	if err := s.tokens.RemoveAll(ctx, userID); err != nil {
		return err
	}

	s.log.Info().Str("user_id", userID).Msg("password changed")
	return nil
}

// ActiveSessions counts the user's live refresh tokens, one per signed-in
// client.
func (s *AuthService) ActiveSessions(ctx context.Context, userID string) (int, error) {
	return s.tokens.CountForUser(ctx, userID)
}

// Deactivate soft-deletes the account and revokes every refresh token.
func (s *AuthService) Deactivate(ctx context.Context, userID string) error {
	if err := s.users.SetActive(ctx, userID, false); err != nil {
		return err
	}
	return s.tokens.RemoveAll(ctx, userID)
}

func (s *AuthService) issueAndPersist(ctx context.Context, user models.User) (security.TokenPair, error) {
	pair, err := s.tokenSvc.IssueTokenPair(user)
	if err != nil {
		return security.TokenPair{}, err
	}

	err = s.tokens.Add(ctx, models.RefreshToken{
		ID:        ids.New(),
		UserID:    user.ID,
		TokenHash: security.HashToken(pair.RefreshToken),
		ExpiresAt: time.Now().Add(s.cfg.JWTRefreshTTL),
	})
	if err != nil {
		return security.TokenPair{}, err
	}
	return pair, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func tokenError(err error) error {
	if errors.Is(err, security.ErrTokenExpired) {
		return apperr.TokenExpired("token expired")
	}
	return apperr.TokenInvalid("invalid token")
}
