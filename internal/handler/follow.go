package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"clipshare/internal/httputil"
	"clipshare/internal/logging"
	"clipshare/internal/model"
	"clipshare/internal/transport/http/middleware"
)

type FollowHandler struct {
	follows Follows
	logger  *zap.Logger
}

func NewFollowHandler(follows Follows, logger *zap.Logger) *FollowHandler {
	return &FollowHandler{follows: follows, logger: logging.OrNop(logger).Named("follow_handler")}
}

// Follow handles POST /users/{id}/follow
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := currentUser(w, r)
	if !ok {
		return
	}
	followeeID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	if err := h.follows.Follow(r.Context(), followerID, followeeID); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.FollowStatusResponse{IsFollowing: true})
}

// Unfollow handles DELETE /users/{id}/follow
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	followerID, ok := currentUser(w, r)
	if !ok {
		return
	}
	followeeID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	if err := h.follows.Unfollow(r.Context(), followerID, followeeID); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.FollowStatusResponse{IsFollowing: false})
}

// Status handles GET /users/{id}/follow-status
func (h *FollowHandler) Status(w http.ResponseWriter, r *http.Request) {
	viewerID, ok := currentUser(w, r)
	if !ok {
		return
	}
	targetID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	following, err := h.follows.Status(r.Context(), viewerID, targetID)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.FollowStatusResponse{IsFollowing: following})
}

// GetFollowers handles GET /users/{id}/followers
func (h *FollowHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.follows.ListFollowers)
}

// GetFollowing handles GET /users/{id}/following
func (h *FollowHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.follows.ListFollowing)
}

type followLister func(ctx context.Context, userID int64, page model.PageRequest, viewerID *int64) (*model.FollowListResponse, error)

func (h *FollowHandler) list(w http.ResponseWriter, r *http.Request, fetch followLister) {
	userID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	page, err := httputil.ParsePage(r, model.DefaultFollowListLimit, model.MaxFollowListLimit)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	res, err := fetch(r.Context(), userID, page, middleware.ViewerFromContext(r.Context()))
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
