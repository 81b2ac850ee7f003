package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"clipshare/internal/logging"
	"clipshare/internal/model"
	"clipshare/internal/repository"
)

// ReactionService is the like/dislike toggle shared by posts and comments.
type ReactionService struct {
	reactionRepo repository.ReactionRepository
	postRepo     repository.PostRepository
	commentRepo  repository.CommentRepository
	tx           repository.Transactor
	logger       *zap.Logger
}

func NewReactionService(
	reactionRepo repository.ReactionRepository,
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	tx repository.Transactor,
	logger *zap.Logger,
) *ReactionService {
	return &ReactionService{
		reactionRepo: reactionRepo,
		postRepo:     postRepo,
		commentRepo:  commentRepo,
		tx:           tx,
		logger:       logging.OrNop(logger).Named("reaction_service"),
	}
}

// Toggle applies kind for userID. Repeating the current kind removes it;
// the opposite kind replaces it.
func (s *ReactionService) Toggle(ctx context.Context, ref model.EntityRef, userID int64, kind model.ReactionKind) (*model.ReactionResult, error) {
	if userID == 0 {
		return nil, model.ErrAuthRequired
	}
	if !kind.Valid() {
		return nil, model.ErrInvalidReaction
	}
	if err := s.ensureExists(ctx, ref); err != nil {
		return nil, err
	}

	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		current, err := s.reactionRepo.GetForUpdate(ctx, tx, ref, userID)
		if err != nil {
			return err
		}
		if current != nil && *current == kind {
			return s.reactionRepo.Delete(ctx, tx, ref, userID)
		}
		return s.reactionRepo.Set(ctx, tx, ref, userID, kind)
	})
	if err != nil {
		return nil, fmt.Errorf("toggle %s on %s %d: %w", kind, ref.Type, ref.ID, err)
	}

	summaries, err := s.reactionRepo.Summaries(ctx, ref.Type, []int64{ref.ID}, &userID)
	if err != nil {
		return nil, err
	}
	result := summaries[ref.ID].Result()
	return &result, nil
}

// Enrich returns the reaction state of each id as seen by viewerID.
func (s *ReactionService) Enrich(ctx context.Context, entity model.EntityType, ids []int64, viewerID *int64) (map[int64]model.Reactions, error) {
	if !entity.Valid() {
		return nil, model.ErrInvalidEntity
	}
	return s.reactionRepo.Summaries(ctx, entity, ids, viewerID)
}

func (s *ReactionService) ensureExists(ctx context.Context, ref model.EntityRef) error {
	switch ref.Type {
	case model.EntityPost:
		exists, err := s.postRepo.Exists(ctx, ref.ID)
		if err != nil {
			return err
		}
		if !exists {
			return model.ErrPostNotFound
		}
	case model.EntityComment:
		exists, err := s.commentRepo.Exists(ctx, ref.ID)
		if err != nil {
			return err
		}
		if !exists {
			return model.ErrCommentNotFound
		}
	default:
		return model.ErrInvalidEntity
	}
	return nil
}
