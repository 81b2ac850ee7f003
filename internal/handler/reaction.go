package handler

import (
	"net/http"

	"go.uber.org/zap"

	"clipshare/internal/httputil"
	"clipshare/internal/logging"
	"clipshare/internal/model"
)

// ReactionHandler exposes the like/dislike toggle for posts and comments.
type ReactionHandler struct {
	reactions Reactions
	logger    *zap.Logger
}

func NewReactionHandler(reactions Reactions, logger *zap.Logger) *ReactionHandler {
	return &ReactionHandler{reactions: reactions, logger: logging.OrNop(logger).Named("reaction_handler")}
}

// POST /posts/{id}/like
func (h *ReactionHandler) LikePost(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, model.EntityPost, model.ReactionLike)
}

// POST /posts/{id}/dislike
func (h *ReactionHandler) DislikePost(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, model.EntityPost, model.ReactionDislike)
}

// POST /comments/{id}/like
func (h *ReactionHandler) LikeComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, model.EntityComment, model.ReactionLike)
}

// POST /comments/{id}/dislike
func (h *ReactionHandler) DislikeComment(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, model.EntityComment, model.ReactionDislike)
}

func (h *ReactionHandler) toggle(w http.ResponseWriter, r *http.Request, entity model.EntityType, kind model.ReactionKind) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}

	result, err := h.reactions.Toggle(r.Context(), model.EntityRef{Type: entity, ID: id}, userID, kind)
	if err != nil {
		httputil.WriteAppError(w, h.logger, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}
