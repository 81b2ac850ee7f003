package model

import (
	"time"

	"clipshare/internal/apperr"
)

// RefreshToken is one link in a rotation chain. Only the sha256 of the raw
// token is stored; ReplacedBy points at the token issued on rotation.
type RefreshToken struct {
	ID         string     `db:"id"`
	UserID     int64      `db:"user_id"`
	TokenHash  string     `db:"token_hash"`
	ExpiresAt  time.Time  `db:"expires_at"`
	CreatedAt  time.Time  `db:"created_at"`
	RevokedAt  *time.Time `db:"revoked_at"`
	ReplacedBy *string    `db:"replaced_by"`
	DeviceInfo *string    `db:"device_info"`
	IPAddress  *string    `db:"ip_address"`
}

// Check reports why the token cannot be exchanged at now, or nil.
// A revoked token presented again means the chain leaked.
func (t *RefreshToken) Check(now time.Time) error {
	switch {
	case t.RevokedAt != nil:
		return ErrRefreshTokenReused
	case !now.Before(t.ExpiresAt):
		return ErrRefreshTokenExpired
	default:
		return nil
	}
}

var (
	ErrRefreshTokenNotFound = apperr.New(apperr.KindUnauthorized, "invalid refresh token")
	ErrRefreshTokenExpired  = apperr.New(apperr.KindUnauthorized, "refresh token expired")
	ErrRefreshTokenReused   = apperr.New(apperr.KindUnauthorized, "refresh token reuse detected")
)

// Machine-readable codes for 401s the client reacts to differently.
const (
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
	CodeTokenReused  = "TOKEN_REUSED"
)

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"` // access token lifetime, seconds
}

type LoginResponse struct {
	User *User `json:"user"`
	TokenPair
}

// TokenRequest is the body of /auth/refresh and /auth/logout.
type TokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}
