package handler

import (
	"net/http"

	"go.uber.org/zap"

	"clipshare/internal/httputil"
	"clipshare/internal/logging"
	"clipshare/internal/service"
)

type FeedHandler struct {
	feed   Feed
	logger *zap.Logger
}

func NewFeedHandler(feed Feed, logger *zap.Logger) *FeedHandler {
	return &FeedHandler{feed: feed, logger: logging.OrNop(logger).Named("feed_handler")}
}

// GetFeed handles GET /feed?page=&limit=&kind=
// Returns followees' public posts, newest first, never the caller's own.
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	page, err := httputil.ParsePage(r, service.DefaultFeedLimit, service.MaxFeedLimit)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	kind, err := kindParam(r)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	feed, err := h.feed.GetFeed(r.Context(), userID, page, kind)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, feed)
}
