package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"clipshare/internal/httputil"
	"clipshare/internal/model"
	"clipshare/internal/transport/http/middleware"
)

type mockReactions struct{ mock.Mock }

func (m *mockReactions) Toggle(ctx context.Context, ref model.EntityRef, userID int64, kind model.ReactionKind) (*model.ReactionResult, error) {
	args := m.Called(ctx, ref, userID, kind)
	res, _ := args.Get(0).(*model.ReactionResult)
	return res, args.Error(1)
}

type mockComments struct{ mock.Mock }

func (m *mockComments) Add(ctx context.Context, postID, authorID int64, req model.CreateCommentRequest) (*model.CreateCommentResponse, error) {
	args := m.Called(ctx, postID, authorID, req)
	res, _ := args.Get(0).(*model.CreateCommentResponse)
	return res, args.Error(1)
}

func (m *mockComments) ListTopLevel(ctx context.Context, postID int64, page model.PageRequest, viewerID *int64) (*model.CommentListResponse, error) {
	args := m.Called(ctx, postID, page, viewerID)
	res, _ := args.Get(0).(*model.CommentListResponse)
	return res, args.Error(1)
}

func (m *mockComments) ListReplies(ctx context.Context, commentID int64, page model.PageRequest, viewerID *int64) (*model.CommentListResponse, error) {
	args := m.Called(ctx, commentID, page, viewerID)
	res, _ := args.Get(0).(*model.CommentListResponse)
	return res, args.Error(1)
}

func (m *mockComments) Update(ctx context.Context, commentID, callerID int64, content string) (*model.Comment, error) {
	args := m.Called(ctx, commentID, callerID, content)
	res, _ := args.Get(0).(*model.Comment)
	return res, args.Error(1)
}

func (m *mockComments) Delete(ctx context.Context, commentID, callerID int64) (*model.DeleteCommentResponse, error) {
	args := m.Called(ctx, commentID, callerID)
	res, _ := args.Get(0).(*model.DeleteCommentResponse)
	return res, args.Error(1)
}

type mockFollows struct{ mock.Mock }

func (m *mockFollows) Follow(ctx context.Context, followerID, followeeID int64) error {
	return m.Called(ctx, followerID, followeeID).Error(0)
}

func (m *mockFollows) Unfollow(ctx context.Context, followerID, followeeID int64) error {
	return m.Called(ctx, followerID, followeeID).Error(0)
}

func (m *mockFollows) ListFollowers(ctx context.Context, userID int64, page model.PageRequest, viewerID *int64) (*model.FollowListResponse, error) {
	args := m.Called(ctx, userID, page, viewerID)
	res, _ := args.Get(0).(*model.FollowListResponse)
	return res, args.Error(1)
}

func (m *mockFollows) ListFollowing(ctx context.Context, userID int64, page model.PageRequest, viewerID *int64) (*model.FollowListResponse, error) {
	args := m.Called(ctx, userID, page, viewerID)
	res, _ := args.Get(0).(*model.FollowListResponse)
	return res, args.Error(1)
}

func (m *mockFollows) Status(ctx context.Context, viewerID, targetID int64) (bool, error) {
	args := m.Called(ctx, viewerID, targetID)
	return args.Bool(0), args.Error(1)
}

type mockFeed struct{ mock.Mock }

func (m *mockFeed) GetFeed(ctx context.Context, viewerID int64, page model.PageRequest, kind *model.PostKind) (*model.PostListResponse, error) {
	args := m.Called(ctx, viewerID, page, kind)
	res, _ := args.Get(0).(*model.PostListResponse)
	return res, args.Error(1)
}

// call routes one request through a chi router so URL params resolve.
// userID 0 sends the request anonymously.
func call(t *testing.T, method, pattern, target string, h http.HandlerFunc, userID int64, body string) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	r.MethodFunc(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if userID != 0 {
		req = req.WithContext(context.WithValue(req.Context(), middleware.UserIDKey, userID))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) httputil.ErrorDetail {
	t.Helper()
	return decode[httputil.ErrorResponse](t, rec).Error
}

func viewerIs(id int64) interface{} {
	return mock.MatchedBy(func(v *int64) bool { return v != nil && *v == id })
}

func anonymous() interface{} {
	return mock.MatchedBy(func(v *int64) bool { return v == nil })
}
