package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"clipshare/internal/logging"
	"clipshare/internal/model"
	"clipshare/internal/queue"
	"clipshare/internal/repository"
	"clipshare/internal/validation"
)

// CommentService owns the nested comment tree. Only top-level comments
// carry reply_count, which counts every descendant at any depth.
type CommentService struct {
	commentRepo  repository.CommentRepository
	postRepo     repository.PostRepository
	userRepo     repository.UserRepository
	reactionRepo repository.ReactionRepository
	reactions    *ReactionService
	tx           repository.Transactor
	publisher    queue.Publisher
	logger       *zap.Logger
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	reactionRepo repository.ReactionRepository,
	reactions *ReactionService,
	tx repository.Transactor,
	publisher queue.Publisher,
	logger *zap.Logger,
) *CommentService {
	return &CommentService{
		commentRepo:  commentRepo,
		postRepo:     postRepo,
		userRepo:     userRepo,
		reactionRepo: reactionRepo,
		reactions:    reactions,
		tx:           tx,
		publisher:    publisher,
		logger:       logging.OrNop(logger).Named("comment_service"),
	}
}

func cleanCommentContent(raw string) (string, error) {
	content := validation.CleanText(raw)
	if content == "" {
		return "", model.ErrContentRequired
	}
	if utf8.RuneCountInString(content) > model.MaxCommentLength {
		return "", model.ErrContentTooLong
	}
	return content, nil
}

// Add creates a top-level comment or a reply. A reply bumps its root's
// reply_count; a top-level comment bumps the post's comment_count.
func (s *CommentService) Add(ctx context.Context, postID, authorID int64, req model.CreateCommentRequest) (*model.CreateCommentResponse, error) {
	content, err := cleanCommentContent(req.Content)
	if err != nil {
		return nil, err
	}

	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("check post exists: %w", err)
	}
	if !exists {
		return nil, model.ErrPostNotFound
	}

	var rootID int64
	if req.ParentCommentID != nil {
		parent, err := s.commentRepo.GetRef(ctx, *req.ParentCommentID)
		if err != nil {
			return nil, err
		}
		if parent.PostID != postID {
			return nil, model.ErrParentPostMismatch
		}
		rootID, err = resolveRoot(ctx, s.commentRepo, parent)
		if err != nil {
			if errors.Is(err, errBrokenChain) {
				// The parent is mid-cascade; treat it as gone.
				return nil, model.ErrCommentNotFound
			}
			return nil, err
		}
	}

	comment := &model.Comment{
		PostID:          postID,
		UserID:          authorID,
		Content:         content,
		ParentCommentID: req.ParentCommentID,
	}

	var postCommentCount int
	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.commentRepo.Create(ctx, tx, comment); err != nil {
			return err
		}
		if comment.ParentCommentID != nil {
			if err := s.commentRepo.AdjustReplyCount(ctx, tx, rootID, 1); err != nil {
				return err
			}
		} else if err := s.postRepo.AdjustCommentCount(ctx, tx, postID, 1); err != nil {
			return err
		}

		count, err := s.postRepo.CommentCount(ctx, tx, postID)
		if err != nil {
			return err
		}
		postCommentCount = count
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("add comment to post %d: %w", postID, err)
	}

	list := []model.Comment{*comment}
	if err := attachCommentDetails(ctx, s.userRepo, s.reactions, list, &authorID); err != nil {
		return nil, err
	}

	return &model.CreateCommentResponse{Comment: &list[0], PostCommentCount: postCommentCount}, nil
}

// ListTopLevel pages a post's top-level comments, newest first.
func (s *CommentService) ListTopLevel(ctx context.Context, postID int64, page model.PageRequest, viewerID *int64) (*model.CommentListResponse, error) {
	page = page.Normalize(model.DefaultTopLevelLimit, model.MaxCommentListLimit)

	exists, err := s.postRepo.Exists(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("check post exists: %w", err)
	}
	if !exists {
		return nil, model.ErrPostNotFound
	}

	rows, err := s.commentRepo.ListTopLevel(ctx, postID, page)
	if err != nil {
		return nil, err
	}
	comments, meta := model.TrimPage(rows, page)

	if err := attachCommentDetails(ctx, s.userRepo, s.reactions, comments, viewerID); err != nil {
		return nil, err
	}
	return &model.CommentListResponse{Comments: comments, Meta: meta}, nil
}

// ListReplies pages every descendant of a comment in depth-first order,
// siblings oldest first, with the total descendant count.
func (s *CommentService) ListReplies(ctx context.Context, commentID int64, page model.PageRequest, viewerID *int64) (*model.CommentListResponse, error) {
	page = page.Normalize(model.DefaultRepliesLimit, model.MaxCommentListLimit)

	if _, err := s.commentRepo.GetRef(ctx, commentID); err != nil {
		return nil, err
	}

	tree, err := walkSubtree(ctx, s.commentRepo, commentID, model.MaxListedReplies)
	if err != nil {
		return nil, err
	}
	ordered := tree.preorder()
	total := len(ordered)

	start := max(0, min(page.Offset(), total))
	end := start + min(page.Limit, total-start)
	pageIDs := ordered[start:end]

	byID, err := s.commentRepo.GetByIDs(ctx, pageIDs)
	if err != nil {
		return nil, err
	}
	comments := make([]model.Comment, 0, len(pageIDs))
	for _, id := range pageIDs {
		// A reply deleted between the walk and the fetch is skipped.
		if c, ok := byID[id]; ok {
			comments = append(comments, c)
		}
	}

	if err := attachCommentDetails(ctx, s.userRepo, s.reactions, comments, viewerID); err != nil {
		return nil, err
	}

	return &model.CommentListResponse{
		Comments: comments,
		Meta: model.PageMeta{
			Page:    page.Page,
			Limit:   page.Limit,
			Total:   &total,
			HasMore: end < total,
		},
	}, nil
}

// Update replaces the content of the caller's own comment.
func (s *CommentService) Update(ctx context.Context, commentID, callerID int64, rawContent string) (*model.Comment, error) {
	existing, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != callerID {
		return nil, model.ErrNotCommentOwner
	}

	content, err := cleanCommentContent(rawContent)
	if err != nil {
		return nil, err
	}

	updated, err := s.commentRepo.Update(ctx, commentID, content, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	list := []model.Comment{*updated}
	if err := attachCommentDetails(ctx, s.userRepo, s.reactions, list, &callerID); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// Delete removes the comment and its whole subtree in one transaction
// and fixes the counter that tracked it.
func (s *CommentService) Delete(ctx context.Context, commentID, callerID int64) (*model.DeleteCommentResponse, error) {
	existing, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != callerID {
		return nil, model.ErrNotCommentOwner
	}

	tree, err := walkSubtree(ctx, s.commentRepo, commentID, 0)
	if err != nil {
		return nil, err
	}

	var rootID *int64
	if !existing.IsRoot() {
		ref := &model.CommentRef{ID: existing.ID, PostID: existing.PostID, ParentCommentID: existing.ParentCommentID}
		id, err := resolveRoot(ctx, s.commentRepo, ref)
		switch {
		case err == nil:
			rootID = &id
		case errors.Is(err, errBrokenChain):
			// Already detached from its root; the repair job reconciles counts.
			s.logger.Warn("deleting detached comment", zap.Int64("comment_id", commentID))
		default:
			return nil, err
		}
	}

	removed := tree.size()
	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		switch {
		case existing.IsRoot():
			if err := s.postRepo.AdjustCommentCount(ctx, tx, existing.PostID, -1); err != nil {
				return err
			}
		case rootID != nil:
			if err := s.commentRepo.AdjustReplyCount(ctx, tx, *rootID, -removed); err != nil {
				return err
			}
		}

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
		return nil, fmt.Errorf("delete comment %d: %w", commentID, err)
	}

	s.publish(ctx, queue.NewCommentSubtreeDeletedEvent(existing.PostID, commentID, rootID))

	return &model.DeleteCommentResponse{Deleted: removed}, nil
}

// publish is best effort; the periodic sweep covers lost events.
func (s *CommentService) publish(ctx context.Context, event queue.Event) {
	if s.publisher == nil {
		return
	}
	if _, err := s.publisher.Publish(ctx, queue.StreamIntegrity, event); err != nil {
		s.logger.Warn("publish integrity event failed", zap.String("type", event.Type), zap.Error(err))
	}
}
