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

type UserHandler struct {
	userService   *service.UserService
	searchService *service.SearchService
	logger        *zap.Logger
}

func NewUserHandler(userService *service.UserService, searchService *service.SearchService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService:   userService,
		searchService: searchService,
		logger:        logging.OrNop(logger).Named("user_handler"),
	}
}

// GetProfile handles GET /users/{id}
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	profile, err := h.userService.GetProfile(r.Context(), userID, middleware.ViewerFromContext(r.Context()))
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// Me handles GET /me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// UpdateMe handles PATCH /me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req model.UpdateProfileRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	user, err := h.userService.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

// Search handles GET /users/search?q=
func (h *UserHandler) Search(w http.ResponseWriter, r *http.Request) {
	page, err := httputil.ParsePage(r, service.DefaultSearchLimit, service.MaxSearchLimit)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	res, err := h.searchService.Users(r.Context(), r.URL.Query().Get("q"), page, middleware.ViewerFromContext(r.Context()))
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
