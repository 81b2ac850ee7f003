package service

import (
	"context"
	"strings"

	"clipshare/internal/apperr"
	"clipshare/internal/model"
	"clipshare/internal/repository"
)

const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 50
	MaxSearchQueryLen  = 100
)

// SearchService is a plain substring and tag search.
type SearchService struct {
	posts      *PostService
	userRepo   repository.UserRepository
	followRepo repository.FollowRepository
}

func NewSearchService(posts *PostService, userRepo repository.UserRepository, followRepo repository.FollowRepository) *SearchService {
	return &SearchService{posts: posts, userRepo: userRepo, followRepo: followRepo}
}

func normalizeQuery(q string) (string, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return "", apperr.Validation("search query is required")
	}
	if len(q) > MaxSearchQueryLen {
		return "", apperr.Validation("search query must be at most %d characters", MaxSearchQueryLen)
	}
	return q, nil
}

// Posts matches title or description, or an exact tag. Public posts only.
func (s *SearchService) Posts(ctx context.Context, q string, kind *model.PostKind, page model.PageRequest, viewerID *int64) (*model.PostListResponse, error) {
	q, err := normalizeQuery(q)
	if err != nil {
		return nil, err
	}
	return s.posts.list(ctx, repository.PostQuery{
		Kind:       kind,
		PublicOnly: true,
		Search:     strings.TrimPrefix(q, "#"),
	}, page, viewerID)
}

// Users matches username or display name.
func (s *SearchService) Users(ctx context.Context, q string, page model.PageRequest, viewerID *int64) (*model.FollowListResponse, error) {
	q, err := normalizeQuery(q)
	if err != nil {
		return nil, err
	}
	page = page.Normalize(DefaultSearchLimit, MaxSearchLimit)

	rows, err := s.userRepo.Search(ctx, q, page)
	if err != nil {
		return nil, err
	}
	users, meta := model.TrimPage(rows, page)

	if err := markFollowing(ctx, s.followRepo, users, viewerID); err != nil {
		return nil, err
	}
	return &model.FollowListResponse{Users: users, Meta: meta}, nil
}
