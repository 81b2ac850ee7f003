package model

import (
	"strings"
	"time"

	"github.com/lib/pq"

	"clipshare/internal/apperr"
)

// PostKind is the content shape of a post.
type PostKind string

const (
	PostKindVideo    PostKind = "video"
	PostKindImageSet PostKind = "image_set"
	PostKindShort    PostKind = "short"
)

func (k PostKind) Valid() bool {
	switch k {
	case PostKindVideo, PostKindImageSet, PostKindShort:
		return true
	}
	return false
}

// ParsePostKind accepts "" as "no filter".
func ParsePostKind(s string) (*PostKind, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return nil, nil
	}
	k := PostKind(s)
	if !k.Valid() {
		return nil, ErrInvalidPostKind
	}
	return &k, nil
}

// Post represents a user's post with its metadata.
type Post struct {
	ID              int64          `db:"id" json:"id"`
	UserID          int64          `db:"user_id" json:"user_id"`
	Kind            PostKind       `db:"kind" json:"kind"`
	Title           string         `db:"title" json:"title"`
	Description     string         `db:"description" json:"description"`
	VideoURL        *string        `db:"video_url" json:"video_url,omitempty"`
	ThumbnailURL    *string        `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	DurationSeconds *int           `db:"duration_seconds" json:"duration_seconds,omitempty"`
	Tags            pq.StringArray `db:"tags" json:"tags"`
	IsPublic        bool           `db:"is_public" json:"is_public"`
	Views           int64          `db:"views" json:"views"`
	CommentCount    int            `db:"comment_count" json:"comment_count"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`

	// Joined fields (not in posts table)
	Images []PostImage  `json:"images,omitempty"`
	Author *UserSummary `json:"author,omitempty"`
	Reactions
}

// PostImage is one entry of an image_set post, kept in position order.
type PostImage struct {
	PostID   int64  `db:"post_id" json:"-"`
	Position int    `db:"position" json:"position"`
	URL      string `db:"url" json:"url"`
	Caption  string `db:"caption" json:"caption"`
}

// ValidatePayload checks that the media fields match the kind.
func (p *Post) ValidatePayload() error {
	switch p.Kind {
	case PostKindVideo, PostKindShort:
		if p.VideoURL == nil || strings.TrimSpace(*p.VideoURL) == "" {
			return ErrVideoURLRequired
		}
		if len(p.Images) > 0 {
			return ErrPayloadKindMismatch
		}
		if p.DurationSeconds != nil && *p.DurationSeconds < 0 {
			return ErrInvalidDuration
		}
	case PostKindImageSet:
		if p.VideoURL != nil || p.ThumbnailURL != nil || p.DurationSeconds != nil {
			return ErrPayloadKindMismatch
		}
		if len(p.Images) == 0 {
			return ErrNoMediaProvided
		}
		if len(p.Images) > MaxPostImages {
			return ErrTooManyMedia
		}
		for _, img := range p.Images {
			if strings.TrimSpace(img.URL) == "" {
				return ErrInvalidMediaURL
			}
		}
	default:
		return ErrInvalidPostKind
	}
	return nil
}

// PostListResponse is a page of posts (feed, profile, search).
type PostListResponse struct {
	Posts []Post   `json:"posts"`
	Meta  PageMeta `json:"pagination"`
}

type CreatePostImage struct {
	URL     string `json:"url" validate:"required,url"`
	Caption string `json:"caption" validate:"max=500"`
}

// CreatePostRequest is the request body for creating a post.
type CreatePostRequest struct {
	Kind            PostKind          `json:"kind" validate:"required,oneof=video image_set short"`
	Title           string            `json:"title" validate:"required,min=1,max=200"`
	Description     string            `json:"description" validate:"max=5000"`
	VideoURL        *string           `json:"video_url" validate:"omitempty,url"`
	ThumbnailURL    *string           `json:"thumbnail_url" validate:"omitempty,url"`
	DurationSeconds *int              `json:"duration_seconds" validate:"omitempty,min=0"`
	Images          []CreatePostImage `json:"images" validate:"omitempty,max=10,dive"`
	Tags            []string          `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	IsPublic        *bool             `json:"is_public"`
}

// Post constraints
const (
	MaxPostImages    = 10
	MaxPostTags      = 20
	PostMediaFolder  = "posts"
	MaxPostMediaSize = 200 * 1024 * 1024 // 200MB per media, videos included
)

// Post errors
var (
	ErrPostNotFound        = apperr.New(apperr.KindNotFound, "post not found")
	ErrNotPostOwner        = apperr.New(apperr.KindForbidden, "not the owner of this post")
	ErrNoMediaProvided     = apperr.New(apperr.KindValidation, "image_set posts require at least one image")
	ErrTooManyMedia        = apperr.New(apperr.KindValidation, "image_set posts allow at most 10 images")
	ErrInvalidMediaURL     = apperr.New(apperr.KindValidation, "invalid media URL")
	ErrVideoURLRequired    = apperr.New(apperr.KindValidation, "video_url is required for video and short posts")
	ErrPayloadKindMismatch = apperr.New(apperr.KindValidation, "media fields do not match post kind")
	ErrInvalidDuration     = apperr.New(apperr.KindValidation, "duration must not be negative")
	ErrInvalidPostKind     = apperr.New(apperr.KindValidation, "kind must be one of video, image_set, short")
)
