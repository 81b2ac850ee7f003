package handler

import (
	"net/http"

	"go.uber.org/zap"

	"clipshare/internal/httputil"
	"clipshare/internal/logging"
	"clipshare/internal/model"
	"clipshare/internal/transport/http/middleware"
)

type CommentHandler struct {
	comments Comments
	logger   *zap.Logger
}

func NewCommentHandler(comments Comments, logger *zap.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, logger: logging.OrNop(logger).Named("comment_handler")}
}

// Create handles POST /posts/{id}/comments. parent_id makes it a reply.
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	postID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	var req model.CreateCommentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	res, err := h.comments.Add(r.Context(), postID, userID, req)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

// List handles GET /posts/{id}/comments (top-level only, newest first).
func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	postID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	page, err := httputil.ParsePage(r, model.DefaultTopLevelLimit, model.MaxCommentListLimit)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	res, err := h.comments.ListTopLevel(r.Context(), postID, page, middleware.ViewerFromContext(r.Context()))
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// Replies handles GET /comments/{id}/replies: the whole subtree, depth first.
func (h *CommentHandler) Replies(w http.ResponseWriter, r *http.Request) {
	commentID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	page, err := httputil.ParsePage(r, model.DefaultRepliesLimit, model.MaxCommentListLimit)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	res, err := h.comments.ListReplies(r.Context(), commentID, page, middleware.ViewerFromContext(r.Context()))
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// Update handles PATCH /comments/{id}
func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	commentID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	var req model.UpdateCommentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	comment, err := h.comments.Update(r.Context(), commentID, userID, req.Content)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, comment)
}

// Delete handles DELETE /comments/{id}
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	commentID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	res, err := h.comments.Delete(r.Context(), commentID, userID)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
