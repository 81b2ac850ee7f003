package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"clipshare/internal/apperr"
	"clipshare/internal/logging"
	"clipshare/internal/model"
	"clipshare/internal/repository"
	"clipshare/internal/validation"
)

const (
	DefaultPostListLimit = 20
	MaxPostListLimit     = 50
)

type PostService struct {
	postRepo  repository.PostRepository
	userRepo  repository.UserRepository
	reactions *ReactionService
	tx        repository.Transactor
	logger    *zap.Logger
}

func NewPostService(
	postRepo repository.PostRepository,
	userRepo repository.UserRepository,
	reactions *ReactionService,
	tx repository.Transactor,
	logger *zap.Logger,
) *PostService {
	return &PostService{
		postRepo:  postRepo,
		userRepo:  userRepo,
		reactions: reactions,
		tx:        tx,
		logger:    logging.OrNop(logger).Named("post_service"),
	}
}

// Create validates the payload against its kind and stores the post and
// its images together with the owner's post_count.
func (s *PostService) Create(ctx context.Context, ownerID int64, req model.CreatePostRequest) (*model.Post, error) {
	post := &model.Post{
		UserID:          ownerID,
		Kind:            req.Kind,
		Title:           validation.CleanText(req.Title),
		Description:     validation.CleanText(req.Description),
		VideoURL:        trimmedOrNil(req.VideoURL),
		ThumbnailURL:    trimmedOrNil(req.ThumbnailURL),
		DurationSeconds: req.DurationSeconds,
		IsPublic:        true,
	}
	if req.IsPublic != nil {
		post.IsPublic = *req.IsPublic
	}
	if post.Title == "" {
		return nil, apperr.Validation("title is required")
	}

	tags, err := normalizeTags(req.Tags)
	if err != nil {
		return nil, err
	}
	post.Tags = tags

	for i, img := range req.Images {
		post.Images = append(post.Images, model.PostImage{
			Position: i,
			URL:      strings.TrimSpace(img.URL),
			Caption:  validation.CleanText(img.Caption),
		})
	}

	if err := post.ValidatePayload(); err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.postRepo.Create(ctx, tx, post); err != nil {
			return err
		}
		return s.userRepo.AdjustPostCount(ctx, tx, ownerID, 1)
	})
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	s.logger.Debug("post created", zap.Int64("post_id", post.ID), zap.String("kind", string(post.Kind)))

	list := []model.Post{*post}
	if err := attachPostDetails(ctx, s.userRepo, s.reactions, list, &ownerID); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// Get returns one post and counts the view. Private posts are only
// visible to their owner.
func (s *PostService) Get(ctx context.Context, postID int64, viewerID *int64) (*model.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !post.IsPublic && (viewerID == nil || *viewerID != post.UserID) {
		return nil, model.ErrPostNotFound
	}

	if err := s.postRepo.IncrementViews(ctx, postID); err != nil {
		return nil, err
	}
	post.Views++

	list := []model.Post{*post}
	if err := attachPostDetails(ctx, s.userRepo, s.reactions, list, viewerID); err != nil {
		return nil, err
	}
	return &list[0], nil
}

func (s *PostService) Delete(ctx context.Context, postID, callerID int64) error {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != callerID {
		return model.ErrNotPostOwner
	}

	err = s.tx.WithinTx(ctx, func(tx *sqlx.Tx) error {
		if err := s.postRepo.Delete(ctx, tx, postID); err != nil {
			return err
		}
		return s.userRepo.AdjustPostCount(ctx, tx, post.UserID, -1)
	})
	if err != nil {
		return fmt.Errorf("delete post %d: %w", postID, err)
	}
	return nil
}

// ListPublic pages every public post, optionally filtered by kind.
func (s *PostService) ListPublic(ctx context.Context, page model.PageRequest, kind *model.PostKind, viewerID *int64) (*model.PostListResponse, error) {
	return s.list(ctx, repository.PostQuery{Kind: kind, PublicOnly: true}, page, viewerID)
}

func (s *PostService) ListShorts(ctx context.Context, page model.PageRequest, viewerID *int64) (*model.PostListResponse, error) {
	kind := model.PostKindShort
	return s.list(ctx, repository.PostQuery{Kind: &kind, PublicOnly: true}, page, viewerID)
}

// ListByUser pages a profile's posts. The owner also sees private ones.
func (s *PostService) ListByUser(ctx context.Context, userID int64, page model.PageRequest, viewerID *int64) (*model.PostListResponse, error) {
	exists, err := s.userRepo.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check user exists: %w", err)
	}
	if !exists {
		return nil, model.ErrUserNotFound
	}

	own := viewerID != nil && *viewerID == userID
	return s.list(ctx, repository.PostQuery{Owners: []int64{userID}, PublicOnly: !own}, page, viewerID)
}

func (s *PostService) list(ctx context.Context, q repository.PostQuery, page model.PageRequest, viewerID *int64) (*model.PostListResponse, error) {
	page = page.Normalize(DefaultPostListLimit, MaxPostListLimit)
	if q.Kind != nil && !q.Kind.Valid() {
		return nil, model.ErrInvalidPostKind
	}

	rows, err := s.postRepo.List(ctx, q, page)
	if err != nil {
		return nil, err
	}
	posts, meta := model.TrimPage(rows, page)

	if err := s.postRepo.AttachImages(ctx, posts); err != nil {
		return nil, err
	}
	if err := attachPostDetails(ctx, s.userRepo, s.reactions, posts, viewerID); err != nil {
		return nil, err
	}
	return &model.PostListResponse{Posts: posts, Meta: meta}, nil
}

// normalizeTags lowercases, strips '#', and dedupes while keeping order.
func normalizeTags(raw []string) (pq.StringArray, error) {
	tags := pq.StringArray{}
	seen := make(map[string]bool, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(t), "#"))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	if len(tags) > model.MaxPostTags {
		return nil, apperr.Validation("at most %d tags are allowed", model.MaxPostTags)
	}
	return tags, nil
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
