package model

import (
	"time"

	"clipshare/internal/apperr"
)

// User represents a user in the system
type User struct {
	ID             int64     `db:"id" json:"id"`
	Username       string    `db:"username" json:"username"`
	Email          string    `db:"email" json:"email,omitempty"`
	PasswordHashed string    `db:"password_hashed" json:"-"` // "-" hides from JSON output
	DisplayName    *string   `db:"display_name" json:"display_name"`
	AvatarURL      *string   `db:"avatar_url" json:"avatar_url"`
	AvatarKey      *string   `db:"avatar_key" json:"-"`
	Bio            *string   `db:"bio" json:"bio"`
	FollowerCount  int       `db:"follower_count" json:"follower_count"`
	FollowingCount int       `db:"following_count" json:"following_count"`
	PostCount      int       `db:"post_count" json:"post_count"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Summary returns the public card used in lists and embeds.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:          u.ID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// RegisterRequest represents the data needed to register a new user
type RegisterRequest struct {
	Username    string  `json:"username" validate:"required,min=3,max=30"`
	Email       string  `json:"email" validate:"required,email,max=255"`
	Password    string  `json:"password" validate:"required,min=6,max=72"`
	DisplayName string  `json:"display_name" validate:"omitempty,max=100"`
	AvatarURL   *string `json:"-"`
	AvatarKey   *string `json:"-"`
}

// LoginRequest accepts either a username or an email in Login.
type LoginRequest struct {
	Login    string `json:"login" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	DisplayName *string `json:"display_name" validate:"omitempty,max=100"`
	Bio         *string `json:"bio" validate:"omitempty,max=200"`
}

// ProfileResponse is a user as seen by a (possibly anonymous) viewer.
type ProfileResponse struct {
	*User
	IsFollowing bool `json:"is_following"`
}

const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
)

var (
	// ErrUserNotFound is returned when a user cannot be found
	ErrUserNotFound = apperr.New(apperr.KindNotFound, "user not found")

	// ErrUsernameExists is returned when attempting to create a user with a taken username
	ErrUsernameExists = apperr.New(apperr.KindConflict, "username already exists")

	ErrEmailExists = apperr.New(apperr.KindConflict, "email already registered")

	ErrInvalidUsername = apperr.New(apperr.KindValidation, "username may only contain lowercase letters, digits, '_' and '.'")

	// ErrInvalidCredentials is returned when login credentials are incorrect
	ErrInvalidCredentials = apperr.New(apperr.KindUnauthorized, "invalid credentials")

	ErrAuthRequired = apperr.New(apperr.KindUnauthorized, "authentication required")
)
