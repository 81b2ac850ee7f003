package model

import (
	"time"

	"clipshare/internal/apperr"
)

type Follow struct {
	FollowerID int64     `db:"follower_id" json:"follower_id"`
	FolloweeID int64     `db:"followee_id" json:"followee_id"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

type UserSummary struct {
	ID          int64   `db:"id" json:"id"`
	Username    string  `db:"username" json:"username"`
	DisplayName *string `db:"display_name" json:"display_name"`
	AvatarURL   *string `db:"avatar_url" json:"avatar_url"`
	IsFollowing bool    `json:"is_following"`
}

type FollowListResponse struct {
	Users []UserSummary `json:"users"`
	Meta  PageMeta      `json:"pagination"`
}

type FollowStatusResponse struct {
	IsFollowing bool `json:"is_following"`
}

const (
	DefaultFollowListLimit = 20
	MaxFollowListLimit     = 100
)

var (
	ErrAlreadyFollowing = apperr.New(apperr.KindConflict, "already following this user")
	ErrNotFollowing     = apperr.New(apperr.KindConflict, "not following this user")
	ErrCannotFollowSelf = apperr.New(apperr.KindConflict, "cannot follow yourself")
)
