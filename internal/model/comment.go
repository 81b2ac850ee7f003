package model

import (
	"time"

	"clipshare/internal/apperr"
)

// Comment represents a comment on a post. ReplyCount is maintained on
// root comments only and counts every descendant at any depth.
type Comment struct {
	ID              int64      `db:"id" json:"id"`
	PostID          int64      `db:"post_id" json:"post_id"`
	UserID          int64      `db:"user_id" json:"user_id"`
	Content         string     `db:"content" json:"content"`
	ParentCommentID *int64     `db:"parent_comment_id" json:"parent_comment_id,omitempty"`
	ReplyCount      int        `db:"reply_count" json:"reply_count"`
	IsEdited        bool       `db:"is_edited" json:"is_edited"`
	EditedAt        *time.Time `db:"edited_at" json:"edited_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`

	Author *UserSummary `json:"author,omitempty"` // Joined field
	Reactions
}

func (c *Comment) IsRoot() bool {
	return c.ParentCommentID == nil
}

// CommentRef is the minimal row needed to walk the tree.
type CommentRef struct {
	ID              int64  `db:"id"`
	PostID          int64  `db:"post_id"`
	ParentCommentID *int64 `db:"parent_comment_id"`
}

// CreateCommentRequest is the request body for creating a comment.
type CreateCommentRequest struct {
	Content         string `json:"content" validate:"required,min=1,max=1000"`
	ParentCommentID *int64 `json:"parent_id,omitempty"`
}

// UpdateCommentRequest is the request body for updating a comment.
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=1000"`
}

// CreateCommentResponse carries the new comment and the post's
// top-level comment count after the insert.
type CreateCommentResponse struct {
	Comment          *Comment `json:"comment"`
	PostCommentCount int      `json:"post_comment_count"`
}

// CommentListResponse is the paginated comment list response.
type CommentListResponse struct {
	Comments []Comment `json:"comments"`
	Meta     PageMeta  `json:"pagination"`
}

// DeleteCommentResponse reports how many comments the cascade removed.
type DeleteCommentResponse struct {
	Deleted int `json:"deleted"`
}

// Comment constraints
const (
	MaxCommentLength = 1000

	// MaxTreeWalkSteps bounds the ancestor walk from a reply to its root.
	MaxTreeWalkSteps = 10000
	// MaxListedReplies bounds the subtree ListReplies will flatten and page.
	// Deletes and repairs walk the whole subtree.
	MaxListedReplies = 10000

	DefaultTopLevelLimit = 20
	DefaultRepliesLimit  = 100
	MaxCommentListLimit  = 100
)

// Comment errors
var (
	ErrCommentNotFound    = apperr.New(apperr.KindNotFound, "comment not found")
	ErrNotCommentOwner    = apperr.New(apperr.KindForbidden, "not the author of this comment")
	ErrContentRequired    = apperr.New(apperr.KindValidation, "comment content is required")
	ErrContentTooLong     = apperr.New(apperr.KindValidation, "comment content too long")
	ErrParentPostMismatch = apperr.New(apperr.KindValidation, "parent comment belongs to a different post")
	ErrTreeWalkLimit      = apperr.New(apperr.KindInternal, "comment tree exceeds traversal limit")
	ErrThreadTooLarge     = apperr.New(apperr.KindValidation, "reply thread too large to list")
)
