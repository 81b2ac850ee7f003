package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"clipshare/internal/httputil"
	"clipshare/internal/logging"
	"clipshare/internal/model"
	"clipshare/internal/service"
)

type MediaHandler struct {
	mediaService *service.MediaService // nil when R2 is not configured
	logger       *zap.Logger
}

func NewMediaHandler(mediaService *service.MediaService, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{mediaService: mediaService, logger: logging.OrNop(logger).Named("media_handler")}
}

// PresignPostUpload handles POST /media/posts/presign
// Returns a presigned URL for uploading post media directly to R2.
func (h *MediaHandler) PresignPostUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if h.mediaService == nil {
		httputil.WriteAppError(w, h.logger, model.ErrMediaStorageDisabled)
		return
	}

	var req model.PresignPostUploadRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	res, err := h.mediaService.PresignPostUpload(r.Context(), userID, req)
	if err != nil {
		h.writeMediaError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// PresignPostUploadBatch handles POST /media/posts/presign/batch
func (h *MediaHandler) PresignPostUploadBatch(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	if h.mediaService == nil {
		httputil.WriteAppError(w, h.logger, model.ErrMediaStorageDisabled)
		return
	}

	var req model.PresignPostUploadBatchRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	res, err := h.mediaService.PresignPostUploadBatch(r.Context(), userID, req)
	if err != nil {
		h.writeMediaError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *MediaHandler) writeMediaError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrFileTooLarge):
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "Media exceeds the 200MB limit")
	case errors.Is(err, model.ErrInvalidContentType):
		httputil.WriteBadRequestWithCode(w, model.CodeInvalidContentType, "Unsupported media type")
	default:
		httputil.WriteAppError(w, h.logger, err)
	}
}
