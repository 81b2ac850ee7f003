package handler

import (
	"net/http"

	"go.uber.org/zap"

	"clipshare/internal/httputil"
	"clipshare/internal/logging"
	"clipshare/internal/model"
	"clipshare/internal/service"
	"clipshare/internal/transport/http/middleware"
)

type PostHandler struct {
	postService   *service.PostService
	searchService *service.SearchService
	logger        *zap.Logger
}

func NewPostHandler(postService *service.PostService, searchService *service.SearchService, logger *zap.Logger) *PostHandler {
	return &PostHandler{
		postService:   postService,
		searchService: searchService,
		logger:        logging.OrNop(logger).Named("post_handler"),
	}
}

// Create handles POST /posts
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req model.CreatePostRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	post, err := h.postService.Create(r.Context(), userID, req)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, post)
}

// GetByID handles GET /posts/{id}
func (h *PostHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	postID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	post, err := h.postService.Get(r.Context(), postID, middleware.ViewerFromContext(r.Context()))
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, post)
}

// Delete handles DELETE /posts/{id}
func (h *PostHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	postID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	if err := h.postService.Delete(r.Context(), postID, userID); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /posts?kind=
func (h *PostHandler) List(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.ParsePage(r, service.DefaultPostListLimit, service.MaxPostListLimit)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	kind, err := kindParam(r)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	res, err := h.postService.ListPublic(r.Context(), page, kind, middleware.ViewerFromContext(r.Context()))
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// Shorts handles GET /posts/shorts
func (h *PostHandler) Shorts(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.ParsePage(r, service.DefaultPostListLimit, service.MaxPostListLimit)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	res, err := h.postService.ListShorts(r.Context(), page, middleware.ViewerFromContext(r.Context()))
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// GetUserPosts handles GET /users/{id}/posts
func (h *PostHandler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	page, err := httputil.ParsePage(r, service.DefaultPostListLimit, service.MaxPostListLimit)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	res, err := h.postService.ListByUser(r.Context(), userID, page, middleware.ViewerFromContext(r.Context()))
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// Search handles GET /posts/search?q=&kind=
func (h *PostHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.ParsePage(r, service.DefaultSearchLimit, service.MaxSearchLimit)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	kind, err := kindParam(r)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	res, err := h.searchService.Posts(r.Context(), r.URL.Query().Get("q"), kind, page, middleware.ViewerFromContext(r.Context()))
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
