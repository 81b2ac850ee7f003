package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"clipshare/internal/cache"
	"clipshare/internal/logging"
	"clipshare/internal/model"
	"clipshare/internal/repository"
)

const (
	DefaultFeedLimit = 20
	MaxFeedLimit     = 50
)

// FeedService builds the home feed from the viewer's followees.
type FeedService struct {
	followRepo repository.FollowRepository
	postRepo   repository.PostRepository
	userRepo   repository.UserRepository
	reactions  *ReactionService
	cache      cache.FollowingCache
	logger     *zap.Logger
}

// NewFeedService accepts a nil cache, in which case followees are read
// from the database on every request.
func NewFeedService(
	followRepo repository.FollowRepository,
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	reactions *ReactionService,
	followingCache cache.FollowingCache,
	logger *zap.Logger,
) *FeedService {
	return &FeedService{
		followRepo: followRepo,
		postRepo:   postRepo,
		userRepo:   userRepo,
		reactions:  reactions,
		cache:      followingCache,
		logger:     logging.OrNop(logger).Named("feed_service"),
	}
}

// GetFeed returns public posts of the users viewerID follows, newest
// first. The viewer's own posts never appear, even under mutual follow.
func (s *FeedService) GetFeed(ctx context.Context, viewerID int64, page model.PageRequest, kind *model.PostKind) (*model.PostListResponse, error) {
	page = page.Normalize(DefaultFeedLimit, MaxFeedLimit)
	if kind != nil && !kind.Valid() {
		return nil, model.ErrInvalidPostKind
	}

	followees, err := s.followeeIDs(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	owners := make([]int64, 0, len(followees))
	for _, id := range followees {
		if id != viewerID {
			owners = append(owners, id)
		}
	}
	if len(owners) == 0 {
		return &model.PostListResponse{
			Posts: []model.Post{},
			Meta:  model.PageMeta{Page: page.Page, Limit: page.Limit},
		}, nil
	}

	rows, err := s.postRepo.List(ctx, repository.PostQuery{
		Owners:       owners,
		ExcludeOwner: &viewerID,
		Kind:         kind,
		PublicOnly:   true,
	}, page)
	if err != nil {
		return nil, err
	}
	posts, meta := model.TrimPage(rows, page)

	if err := s.postRepo.AttachImages(ctx, posts); err != nil {
		return nil, err
	}
	if err := attachPostDetails(ctx, s.userRepo, s.reactions, posts, &viewerID); err != nil {
		return nil, err
	}
	return &model.PostListResponse{Posts: posts, Meta: meta}, nil
}

// followeeIDs reads through the following cache. Cache failures fall
// back to the database. The generation is read before the database so a
// follow change committed in between makes the write-back a no-op.
func (s *FeedService) followeeIDs(ctx context.Context, viewerID int64) ([]int64, error) {
	var gen int64
	canStore := false
	if s.cache != nil {
		ids, hit, err := s.cache.Get(ctx, viewerID)
		if err != nil {
			s.logger.Warn("following cache read failed", zap.Int64("user_id", viewerID), zap.Error(err))
		} else if hit {
			return ids, nil
		}
		if gen, err = s.cache.Generation(ctx, viewerID); err != nil {
			s.logger.Warn("following cache generation read failed", zap.Int64("user_id", viewerID), zap.Error(err))
		} else {
			canStore = true
		}
	}

	ids, err := s.followRepo.GetFolloweeIDs(ctx, viewerID)
	if err != nil {
		return nil, fmt.Errorf("load followees of %d: %w", viewerID, err)
	}

	if canStore {
		err := s.cache.Set(ctx, viewerID, gen, ids)
		switch {
		case errors.Is(err, cache.ErrStaleFollowing):
			s.logger.Debug("following cache write skipped", zap.Int64("user_id", viewerID))
		case err != nil:
			s.logger.Warn("following cache write failed", zap.Int64("user_id", viewerID), zap.Error(err))
		}
	}
	return ids, nil
}
