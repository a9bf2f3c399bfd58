package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"givehub/api/internal/models"
)

var ErrTokenNotFound = errors.New("refresh token not found")

// TokenRepository owns the refresh_tokens table, the per-user list of live
// refresh credentials.
type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) Add(ctx context.Context, token models.RefreshToken) error {
	const query = `
		INSERT INTO refresh_tokens (id, user_id, token_hash, created_at, expires_at)
		VALUES ($1, $2, $3, NOW(), $4)
	`
	_, err := r.pool.Exec(ctx, query, token.ID, token.UserID, token.TokenHash, token.ExpiresAt)
	return err
}

// Consume removes the token in a single conditional delete. Two concurrent
// refreshes with the same token race on this statement and exactly one wins;
// the loser sees ErrTokenNotFound.
func (r *TokenRepository) Consume(ctx context.Context, userID string, tokenHash []byte) error {
	const query = `
		DELETE FROM refresh_tokens
		WHERE user_id = $1 AND token_hash = $2 AND expires_at > NOW()
	`
	cmd, err := r.pool.Exec(ctx, query, userID, tokenHash)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// Remove deletes one stored token without the expiry guard (single-device
// logout accepts an already-expired token).
func (r *TokenRepository) Remove(ctx context.Context, userID string, tokenHash []byte) error {
	const query = `DELETE FROM refresh_tokens WHERE user_id = $1 AND token_hash = $2`
	_, err := r.pool.Exec(ctx, query, userID, tokenHash)
	return err
}

// RemoveAll clears the user's entire token list (all-device logout,
// password change, deactivation).
func (r *TokenRepository) RemoveAll(ctx context.Context, userID string) error {
	const query = `DELETE FROM refresh_tokens WHERE user_id = $1`
	_, err := r.pool.Exec(ctx, query, userID)
	return err
}

func (r *TokenRepository) CountForUser(ctx context.Context, userID string) (int, error) {
	const query = `SELECT COUNT(*) FROM refresh_tokens WHERE user_id = $1`
	var count int
	if err := r.pool.QueryRow(ctx, query, userID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// PurgeExpired drops tokens past their expiry. Run by the scheduler.
func (r *TokenRepository) PurgeExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM refresh_tokens WHERE expires_at <= NOW()`
	cmd, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
