package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"clipshare/internal/model"
)

const refreshTokenColumns = `id, user_id, token_hash, expires_at, created_at, revoked_at, replaced_by, device_info, ip_address`

type refreshTokenRepository struct {
	db *sqlx.DB
}

func NewRefreshTokenRepository(db *sqlx.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}

// Create fills in the generated ID and CreatedAt.
func (r *refreshTokenRepository) Create(ctx context.Context, t *model.RefreshToken) error {
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO refresh_tokens (user_id, token_hash, expires_at, device_info, ip_address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		t.UserID, t.TokenHash, t.ExpiresAt, t.DeviceInfo, t.IPAddress,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert refresh token: %w", err)
	}
	return nil
}

func (r *refreshTokenRepository) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var t model.RefreshToken
	err := r.db.GetContext(ctx, &t,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, model.ErrRefreshTokenNotFound
	case err != nil:
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &t, nil
}

// Revoke leaves an already revoked token untouched so the first
// replaced_by link survives.
func (r *refreshTokenRepository) Revoke(ctx context.Context, id string, replacedBy *string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW(), replaced_by = $2 WHERE id = $1 AND revoked_at IS NULL`,
		id, replacedBy)
	if err != nil {
		return fmt.Errorf("revoke refresh token %s: %w", id, err)
	}
	return nil
}

func (r *refreshTokenRepository) RevokeAllForUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked_at = NOW() WHERE user_id = $1 AND revoked_at IS NULL`, userID)
	if err != nil {
		return fmt.Errorf("revoke refresh tokens of user %d: %w", userID, err)
	}
	return nil
}

// DeleteExpired removes tokens that expired more than olderThan ago.
func (r *refreshTokenRepository) DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE expires_at < NOW() - make_interval(secs => $1)`, olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("purge refresh tokens: %w", err)
	}
	return rowsAffected(res, "purge refresh tokens")
}
