package handler

import (
	"errors"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"clipshare/internal/config"
	"clipshare/internal/httputil"
	"clipshare/internal/logging"
	"clipshare/internal/model"
	"clipshare/internal/service"
)

// AuthHandler groups auth-related HTTP endpoints and their dependencies.
type AuthHandler struct {
	userService  *service.UserService
	authService  *service.AuthService
	mediaService *service.MediaService // nil when R2 is not configured
	config       *config.Config
	logger       *zap.Logger
}

func NewAuthHandler(userService *service.UserService, authService *service.AuthService, mediaService *service.MediaService, cfg *config.Config, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService:  userService,
		authService:  authService,
		mediaService: mediaService,
		config:       cfg,
		logger:       logging.OrNop(logger).Named("auth_handler"),
	}
}

// Register handles POST /auth/register. Multipart bodies may carry an
// avatar file; JSON bodies get the default avatar.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var (
		req model.RegisterRequest
		err error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		req, err = h.parseMultipartRegister(w, r)
	} else {
		err = httputil.DecodeJSON(r, &req)
	}
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	if req.AvatarURL == nil && h.config.DefaultAvatarURL != "" && h.config.DefaultAvatarKey != "" {
		req.AvatarURL = &h.config.DefaultAvatarURL
		req.AvatarKey = &h.config.DefaultAvatarKey
	}

	user, err := h.userService.Register(r.Context(), &req)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) parseMultipartRegister(w http.ResponseWriter, r *http.Request) (model.RegisterRequest, error) {
	maxFormSize := int64(model.MaxAvatarSizeBytes) + 1024*1024 // allow form overhead
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)

	var req model.RegisterRequest
	if err := r.ParseMultipartForm(maxFormSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, model.ErrFileTooLarge
		}
		return req, model.ErrInvalidContentType
	}

	req.Username = strings.TrimSpace(r.FormValue("username"))
	req.Email = strings.TrimSpace(r.FormValue("email"))
	req.Password = r.FormValue("password")
	req.DisplayName = r.FormValue("display_name")

	file, header, err := r.FormFile("avatar")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return req, nil
	case err != nil:
		return req, model.ErrInvalidImageType
	}
	defer file.Close()

	if h.mediaService == nil {
		return req, model.ErrMediaStorageDisabled
	}
	upload, err := h.mediaService.UploadAvatar(r.Context(), file, header)
	if err != nil {
		return req, err
	}
	req.AvatarURL = &upload.URL
	req.AvatarKey = &upload.Key
	return req, nil
}

// Login handles POST /auth/login with a username or email.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	tokenPair, err := h.authService.GenerateTokenPair(r.Context(), user.ID, r.Header.Get("User-Agent"), clientIP(r))
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.LoginResponse{User: user, TokenPair: *tokenPair})
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req model.TokenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	tokenPair, _, err := h.authService.RefreshTokens(r.Context(), req.RefreshToken, r.Header.Get("User-Agent"), clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, model.ErrRefreshTokenExpired):
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Refresh token has expired")
		case errors.Is(err, model.ErrRefreshTokenReused):
			httputil.WriteUnauthorizedWithCode(w, model.CodeTokenReused, "Refresh token reuse detected. Please login again.")
		default:
			httputil.WriteAppError(w, h.logger, err)
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tokenPair)
}

// Logout handles POST /auth/logout. Unknown tokens still log out.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}

	var req model.TokenRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	err := h.authService.RevokeRefreshToken(r.Context(), req.RefreshToken)
	if err != nil && !errors.Is(err, model.ErrRefreshTokenNotFound) {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// LogoutAll handles POST /auth/logout-all
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.authService.RevokeAllUserTokens(r.Context(), userID); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"message": "Logged out from all devices"})
}

// clientIP relies on chi's RealIP middleware having rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx != -1 && !strings.HasSuffix(addr, "]") {
		return strings.Trim(addr[:idx], "[]")
	}
	return addr
}
