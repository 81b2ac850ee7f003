package model

import "clipshare/internal/apperr"

// EntityType names a table that carries reactions.
type EntityType string

const (
	EntityPost    EntityType = "post"
	EntityComment EntityType = "comment"
)

func (t EntityType) Valid() bool {
	return t == EntityPost || t == EntityComment
}

type ReactionKind string

const (
	ReactionLike    ReactionKind = "like"
	ReactionDislike ReactionKind = "dislike"
)

func (k ReactionKind) Valid() bool {
	return k == ReactionLike || k == ReactionDislike
}

// EntityRef identifies one reactable entity.
type EntityRef struct {
	Type EntityType
	ID   int64
}

// Reactions is the like/dislike view composed into posts and comments.
// IsLiked and IsDisliked are relative to the viewer and never both true.
type Reactions struct {
	Likes      int  `json:"likes_count"`
	Dislikes   int  `json:"dislikes_count"`
	IsLiked    bool `json:"is_liked"`
	IsDisliked bool `json:"is_disliked"`
}

// ReactionResult is the response body of a like or dislike toggle.
type ReactionResult struct {
	Likes      int  `json:"likes"`
	Dislikes   int  `json:"dislikes"`
	IsLiked    bool `json:"is_liked"`
	IsDisliked bool `json:"is_disliked"`
}

func (r Reactions) Result() ReactionResult {
	return ReactionResult{
		Likes:      r.Likes,
		Dislikes:   r.Dislikes,
		IsLiked:    r.IsLiked,
		IsDisliked: r.IsDisliked,
	}
}

var (
	ErrInvalidReaction = apperr.New(apperr.KindValidation, "reaction must be like or dislike")
	ErrInvalidEntity   = apperr.New(apperr.KindValidation, "unknown reactable entity")
)
