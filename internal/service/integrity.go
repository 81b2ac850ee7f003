package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"clipshare/internal/logging"
	"clipshare/internal/model"
	"clipshare/internal/repository"
)

const (
	DefaultOrphanSweepLimit = 500
	DefaultReconcileBatch   = 200
)

// IntegrityService repairs drift the request path cannot prevent: replies
// inserted under a comment while its subtree was being deleted, and
// counters that diverged from the rows they count.
type IntegrityService struct {
	commentRepo  repository.CommentRepository
	postRepo     repository.PostRepository
	userRepo     repository.UserRepository
	reactionRepo repository.ReactionRepository
	tx           repository.Transactor
	logger       *zap.Logger
}

func NewIntegrityService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	reactionRepo repository.ReactionRepository,
	tx repository.Transactor,
	logger *zap.Logger,
) *IntegrityService {
	return &IntegrityService{
		commentRepo:  commentRepo,
		postRepo:     postRepo,
		userRepo:     userRepo,
		reactionRepo: reactionRepo,
		tx:           tx,
		logger:       logging.OrNop(logger).Named("integrity"),
	}
}

// SweepOrphans deletes comments whose parent no longer exists, together
// with their subtrees and reactions. Returns the number of rows removed.
func (s *IntegrityService) SweepOrphans(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = DefaultOrphanSweepLimit
	}
	orphans, err := s.commentRepo.FindOrphans(ctx, limit)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, orphan := range orphans {
		tree, err := walkSubtree(ctx, s.commentRepo, orphan.ID, 0)
		if err != nil {
			return removed, err
		}

		err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
			if err := s.reactionRepo.DeleteForEntities(ctx, tx, model.EntityComment, tree.ids()); err != nil {
				return err
			}
			for i := len(tree.levels) - 1; i >= 0; i-- {
				if _, err := s.commentRepo.DeleteByIDs(ctx, tx, tree.levels[i]); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return removed, fmt.Errorf("sweep orphan %d: %w", orphan.ID, err)
		}
		removed += tree.size()
	}

	if removed > 0 {
		s.logger.Info("orphan comments swept", zap.Int("removed", removed))
	}
	return removed, nil
}

// ReconcileRoot rewrites a root's reply_count when it differs from the
// live descendant count. Reports whether a fix was written. A counter
// that moved after it was read is left alone for the next pass.
func (s *IntegrityService) ReconcileRoot(ctx context.Context, rootID int64) (bool, error) {
	root, err := s.commentRepo.GetByID(ctx, rootID)
	if err != nil {
		if errors.Is(err, model.ErrCommentNotFound) {
			return false, nil
		}
		return false, err
	}
	if !root.IsRoot() {
		return false, nil
	}
	return s.reconcile(ctx, root)
}

func (s *IntegrityService) reconcile(ctx context.Context, root *model.Comment) (bool, error) {
	tree, err := walkSubtree(ctx, s.commentRepo, root.ID, 0)
	if err != nil {
		return false, err
	}
	actual := tree.descendants()
	if actual == root.ReplyCount {
		return false, nil
	}

	written, err := s.commentRepo.SetReplyCount(ctx, root.ID, root.ReplyCount, actual)
	if err != nil {
		return false, err
	}
	if !written {
		s.logger.Debug("reply_count changed during reconcile",
			zap.Int64("root_id", root.ID),
			zap.Int("expected", root.ReplyCount),
		)
		return false, nil
	}
	s.logger.Info("reply_count corrected",
		zap.Int64("root_id", root.ID),
		zap.Int("stored", root.ReplyCount),
		zap.Int("actual", actual),
	)
	return true, nil
}

// ReconcileRoots walks every root comment in id order. Returns the number
// of roots corrected.
func (s *IntegrityService) ReconcileRoots(ctx context.Context, batch int) (int, error) {
	if batch <= 0 {
		batch = DefaultReconcileBatch
	}

	fixed := 0
	var after int64
	for {
		if err := ctx.Err(); err != nil {
			return fixed, err
		}
		roots, err := s.commentRepo.ListRoots(ctx, after, batch)
		if err != nil {
			return fixed, err
		}
		for i := range roots {
			changed, err := s.reconcile(ctx, &roots[i])
			if err != nil {
				return fixed, err
			}
			if changed {
				fixed++
			}
		}
		if len(roots) < batch {
			return fixed, nil
		}
		after = roots[len(roots)-1].ID
	}
}

// ReconcileFollowCounts recomputes both follow counters of each user.
func (s *IntegrityService) ReconcileFollowCounts(ctx context.Context, userIDs ...int64) error {
	for _, id := range userIDs {
		if err := s.userRepo.RecountFollowCounts(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *IntegrityService) ReconcilePostCommentCount(ctx context.Context, postID int64) error {
	return s.postRepo.RecountCommentCount(ctx, postID)
}
