package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"clipshare/internal/model"
)

// Transactor runs fn inside a single database transaction. Mutating
// repository methods take the *sqlx.Tx handed to fn.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error
}

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	Exists(ctx context.Context, id int64) (bool, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error)
	Search(ctx context.Context, query string, page model.PageRequest) ([]model.UserSummary, error)
	UpdateProfile(ctx context.Context, id int64, displayName, bio *string) (*model.User, error)
	AdjustFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
	AdjustFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
	AdjustPostCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error
	// RecountFollowCounts rewrites both follow counters from the edge table.
	RecountFollowCounts(ctx context.Context, userID int64) error
}

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Revoke(ctx context.Context, id string, replacedBy *string) error
	RevokeAllForUser(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context, olderThan time.Duration) (int64, error)
}

// FollowRepository is the follow graph: one edge row per (follower, followee).
type FollowRepository interface {
	// Create reports false when the edge already existed.
	Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error)
	Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error
	Exists(ctx context.Context, followerID, followeeID int64) (bool, error)
	ListFollowers(ctx context.Context, userID int64, page model.PageRequest) ([]model.UserSummary, error)
	ListFollowing(ctx context.Context, userID int64, page model.PageRequest) ([]model.UserSummary, error)
	CheckFollows(ctx context.Context, followerID int64, followeeIDs []int64) (map[int64]bool, error)
	GetFolloweeIDs(ctx context.Context, userID int64) ([]int64, error)
}

// PostQuery filters a post listing. Owners nil means "any owner".
type PostQuery struct {
	Owners       []int64
	ExcludeOwner *int64
	Kind         *model.PostKind
	PublicOnly   bool
	Search       string
}

type PostRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, post *model.Post) error
	GetByID(ctx context.Context, postID int64) (*model.Post, error)
	// List returns up to page.Limit+1 posts, newest first.
	List(ctx context.Context, q PostQuery, page model.PageRequest) ([]model.Post, error)
	AttachImages(ctx context.Context, posts []model.Post) error
	IncrementViews(ctx context.Context, postID int64) error
	Delete(ctx context.Context, tx *sqlx.Tx, postID int64) error
	Exists(ctx context.Context, postID int64) (bool, error)
	CommentCount(ctx context.Context, tx *sqlx.Tx, postID int64) (int, error)
	AdjustCommentCount(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) error
	RecountCommentCount(ctx context.Context, postID int64) error
}

type CommentRepository interface {
	Create(ctx context.Context, tx *sqlx.Tx, comment *model.Comment) error
	GetByID(ctx context.Context, commentID int64) (*model.Comment, error)
	GetRef(ctx context.Context, commentID int64) (*model.CommentRef, error)
	Exists(ctx context.Context, commentID int64) (bool, error)
	Update(ctx context.Context, commentID int64, content string, editedAt time.Time) (*model.Comment, error)
	ListTopLevel(ctx context.Context, postID int64, page model.PageRequest) ([]model.Comment, error)
	// ListChildren returns direct children of the given parents, oldest first.
	ListChildren(ctx context.Context, parentIDs []int64) ([]model.CommentRef, error)
	GetByIDs(ctx context.Context, ids []int64) (map[int64]model.Comment, error)
	AdjustReplyCount(ctx context.Context, tx *sqlx.Tx, rootID int64, delta int) error
	// SetReplyCount is a compare-and-set against expected.
	SetReplyCount(ctx context.Context, rootID int64, expected, count int) (bool, error)
	DeleteByIDs(ctx context.Context, tx *sqlx.Tx, ids []int64) (int64, error)
	// FindOrphans returns comments whose parent id no longer resolves.
	FindOrphans(ctx context.Context, limit int) ([]model.CommentRef, error)
	ListRoots(ctx context.Context, afterID int64, limit int) ([]model.Comment, error)
}

type ReactionRepository interface {
	// GetForUpdate locks and returns the caller's current reaction, or nil.
	GetForUpdate(ctx context.Context, tx *sqlx.Tx, ref model.EntityRef, userID int64) (*model.ReactionKind, error)
	Set(ctx context.Context, tx *sqlx.Tx, ref model.EntityRef, userID int64, kind model.ReactionKind) error
	Delete(ctx context.Context, tx *sqlx.Tx, ref model.EntityRef, userID int64) error
	// Summaries returns counts per entity id, plus the viewer's own
	// reaction when viewerID is non-nil.
	Summaries(ctx context.Context, entity model.EntityType, ids []int64, viewerID *int64) (map[int64]model.Reactions, error)
	DeleteForEntities(ctx context.Context, tx *sqlx.Tx, entity model.EntityType, ids []int64) error
}
