package service

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"clipshare/internal/cache"
	"clipshare/internal/logging"
	"clipshare/internal/model"
	"clipshare/internal/queue"
	"clipshare/internal/repository"
)

// FollowService maintains follow edges and the denormalized
// follower_count and following_count columns.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
	tx         repository.Transactor
	cache      cache.FollowingCache
	publisher  queue.Publisher
	logger     *zap.Logger
}

// NewFollowService accepts a nil cache and a nil publisher.
func NewFollowService(
	followRepo repository.FollowRepository,
	userRepo repository.UserRepository,
	tx repository.Transactor,
	followingCache cache.FollowingCache,
	publisher queue.Publisher,
	logger *zap.Logger,
) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
		tx:         tx,
		cache:      followingCache,
		publisher:  publisher,
		logger:     logging.OrNop(logger).Named("follow_service"),
	}
}

func (s *FollowService) Follow(ctx context.Context, followerID, followeeID int64) error {
	if followerID == followeeID {
		return model.ErrCannotFollowSelf
	}
	if err := s.ensureUser(ctx, followeeID); err != nil {
		return err
	}

	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		inserted, err := s.followRepo.Create(ctx, tx, followerID, followeeID)
		if err != nil {
			return err
		}
		if !inserted {
			return model.ErrAlreadyFollowing
		}
		if err := s.userRepo.AdjustFollowerCount(ctx, tx, followeeID, 1); err != nil {
			return err
		}
		return s.userRepo.AdjustFollowingCount(ctx, tx, followerID, 1)
	})
	if err != nil {
		return fmt.Errorf("follow %d -> %d: %w", followerID, followeeID, err)
	}

	s.afterChange(ctx, followerID, followeeID)
	return nil
}

func (s *FollowService) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	if err := s.ensureUser(ctx, followeeID); err != nil {
		return err
	}

	err := s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.followRepo.Delete(ctx, tx, followerID, followeeID); err != nil {
			return err
		}
		if err := s.userRepo.AdjustFollowerCount(ctx, tx, followeeID, -1); err != nil {
			return err
		}
		return s.userRepo.AdjustFollowingCount(ctx, tx, followerID, -1)
	})
	if err != nil {
		return fmt.Errorf("unfollow %d -> %d: %w", followerID, followeeID, err)
	}

	s.afterChange(ctx, followerID, followeeID)
	return nil
}

func (s *FollowService) ListFollowers(ctx context.Context, userID int64, page model.PageRequest, viewerID *int64) (*model.FollowListResponse, error) {
	return s.list(ctx, userID, page, viewerID, s.followRepo.ListFollowers)
}

func (s *FollowService) ListFollowing(ctx context.Context, userID int64, page model.PageRequest, viewerID *int64) (*model.FollowListResponse, error) {
	return s.list(ctx, userID, page, viewerID, s.followRepo.ListFollowing)
}

type listFunc func(ctx context.Context, userID int64, page model.PageRequest) ([]model.UserSummary, error)

func (s *FollowService) list(ctx context.Context, userID int64, page model.PageRequest, viewerID *int64, fetch listFunc) (*model.FollowListResponse, error) {
	page = page.Normalize(model.DefaultFollowListLimit, model.MaxFollowListLimit)
	if err := s.ensureUser(ctx, userID); err != nil {
		return nil, err
	}

	rows, err := fetch(ctx, userID, page)
	if err != nil {
		return nil, err
	}
	users, meta := model.TrimPage(rows, page)

	if err := markFollowing(ctx, s.followRepo, users, viewerID); err != nil {
		return nil, err
	}
	return &model.FollowListResponse{Users: users, Meta: meta}, nil
}

// Status reports whether viewerID follows targetID.
func (s *FollowService) Status(ctx context.Context, viewerID, targetID int64) (bool, error) {
	if err := s.ensureUser(ctx, targetID); err != nil {
		return false, err
	}
	if viewerID == targetID {
		return false, nil
	}
	return s.followRepo.Exists(ctx, viewerID, targetID)
}

func (s *FollowService) ensureUser(ctx context.Context, userID int64) error {
	exists, err := s.userRepo.Exists(ctx, userID)
	if err != nil {
		return fmt.Errorf("check user exists: %w", err)
	}
	if !exists {
		return model.ErrUserNotFound
	}
	return nil
}

func (s *FollowService) afterChange(ctx context.Context, followerID, followeeID int64) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, followerID); err != nil {
			s.logger.Warn("invalidate following cache failed", zap.Int64("user_id", followerID), zap.Error(err))
		}
	}
	if s.publisher != nil {
		event := queue.NewFollowChangedEvent(followerID, followeeID)
		if _, err := s.publisher.Publish(ctx, queue.StreamIntegrity, event); err != nil {
			s.logger.Warn("publish follow event failed", zap.Error(err))
		}
	}
}

// markFollowing sets IsFollowing relative to the viewer with one batch query.
func markFollowing(ctx context.Context, follows repository.FollowRepository, users []model.UserSummary, viewerID *int64) error {
	if viewerID == nil || len(users) == 0 {
		return nil
	}
	ids := make([]int64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	following, err := follows.CheckFollows(ctx, *viewerID, ids)
	if err != nil {
		return err
	}
	for i := range users {
		users[i].IsFollowing = following[users[i].ID]
	}
	return nil
}
