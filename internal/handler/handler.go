package handler

import (
	"context"
	"net/http"

	"clipshare/internal/httputil"
	"clipshare/internal/model"
	"clipshare/internal/transport/http/middleware"
)

// Service surfaces the engagement handlers depend on. The service package
// types satisfy them; handler tests substitute fakes.
type (
	Reactions interface {
		Toggle(ctx context.Context, ref model.EntityRef, userID int64, kind model.ReactionKind) (*model.ReactionResult, error)
	}

	Comments interface {
		Add(ctx context.Context, postID, authorID int64, req model.CreateCommentRequest) (*model.CreateCommentResponse, error)
		ListTopLevel(ctx context.Context, postID int64, page model.PageRequest, viewerID *int64) (*model.CommentListResponse, error)
		ListReplies(ctx context.Context, commentID int64, page model.PageRequest, viewerID *int64) (*model.CommentListResponse, error)
		Update(ctx context.Context, commentID, callerID int64, content string) (*model.Comment, error)
		Delete(ctx context.Context, commentID, callerID int64) (*model.DeleteCommentResponse, error)
	}

	Follows interface {
		Follow(ctx context.Context, followerID, followeeID int64) error
		Unfollow(ctx context.Context, followerID, followeeID int64) error
		ListFollowers(ctx context.Context, userID int64, page model.PageRequest, viewerID *int64) (*model.FollowListResponse, error)
		ListFollowing(ctx context.Context, userID int64, page model.PageRequest, viewerID *int64) (*model.FollowListResponse, error)
		Status(ctx context.Context, viewerID, targetID int64) (bool, error)
	}

	Feed interface {
		GetFeed(ctx context.Context, viewerID int64, page model.PageRequest, kind *model.PostKind) (*model.PostListResponse, error)
	}
)

// currentUser writes a 401 and returns false when the request is anonymous.
func currentUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
	}
	return userID, ok
}

// kindParam parses the optional ?kind= filter.
func kindParam(r *http.Request) (*model.PostKind, error) {
	return model.ParsePostKind(r.URL.Query().Get("kind"))
}
