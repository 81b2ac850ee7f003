package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"clipshare/internal/httputil"
	"clipshare/internal/model"
)

func TestCommentHandler_Create(t *testing.T) {
	parent := int64(4)

	t.Run("reply", func(t *testing.T) {
		svc := new(mockComments)
		h := NewCommentHandler(svc, nil)
		want := model.CreateCommentRequest{Content: "nice", ParentCommentID: &parent}
		svc.On("Add", mock.Anything, int64(10), int64(2), want).
			Return(&model.CreateCommentResponse{Comment: &model.Comment{ID: 11, PostID: 10, ParentCommentID: &parent}, PostCommentCount: 3}, nil)

		rec := call(t, http.MethodPost, "/posts/{id}/comments", "/posts/10/comments", h.Create, 2, `{"content":"nice","parent_id":4}`)

		assert.Equal(t, http.StatusCreated, rec.Code)
		res := decode[model.CreateCommentResponse](t, rec)
		assert.Equal(t, int64(11), res.Comment.ID)
		assert.Equal(t, 3, res.PostCommentCount)
		svc.AssertExpectations(t)
	})

	t.Run("anonymous", func(t *testing.T) {
		svc := new(mockComments)
		rec := call(t, http.MethodPost, "/posts/{id}/comments", "/posts/10/comments", NewCommentHandler(svc, nil).Create, 0, `{"content":"x"}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		svc.AssertNotCalled(t, "Add")
	})

	t.Run("empty content", func(t *testing.T) {
		svc := new(mockComments)
		rec := call(t, http.MethodPost, "/posts/{id}/comments", "/posts/10/comments", NewCommentHandler(svc, nil).Create, 2, `{"content":""}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "content is required", errorBody(t, rec).Message)
	})

	t.Run("missing body", func(t *testing.T) {
		svc := new(mockComments)
		rec := call(t, http.MethodPost, "/posts/{id}/comments", "/posts/10/comments", NewCommentHandler(svc, nil).Create, 2, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("parent on another post", func(t *testing.T) {
		svc := new(mockComments)
		svc.On("Add", mock.Anything, int64(10), int64(2), mock.Anything).Return(nil, model.ErrParentPostMismatch)
		rec := call(t, http.MethodPost, "/posts/{id}/comments", "/posts/10/comments", NewCommentHandler(svc, nil).Create, 2, `{"content":"x","parent_id":99}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, httputil.ErrCodeBadRequest, errorBody(t, rec).Code)
	})
}

func TestCommentHandler_List(t *testing.T) {
	svc := new(mockComments)
	h := NewCommentHandler(svc, nil)
	svc.On("ListTopLevel", mock.Anything, int64(10), model.PageRequest{Page: 1, Limit: model.DefaultTopLevelLimit}, anonymous()).
		Return(&model.CommentListResponse{Comments: []model.Comment{{ID: 1}}}, nil)
	svc.On("ListTopLevel", mock.Anything, int64(10), model.PageRequest{Page: 2, Limit: 5}, viewerIs(7)).
		Return(&model.CommentListResponse{Comments: []model.Comment{}}, nil)

	rec := call(t, http.MethodGet, "/posts/{id}/comments", "/posts/10/comments", h.List, 0, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[model.CommentListResponse](t, rec).Comments, 1)

	rec = call(t, http.MethodGet, "/posts/{id}/comments", "/posts/10/comments?page=2&limit=5", h.List, 7, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = call(t, http.MethodGet, "/posts/{id}/comments", "/posts/10/comments?limit=500", h.List, 7, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.AssertExpectations(t)
}

func TestCommentHandler_Replies(t *testing.T) {
	svc := new(mockComments)
	h := NewCommentHandler(svc, nil)
	total := 2
	svc.On("ListReplies", mock.Anything, int64(1), model.PageRequest{Page: 1, Limit: model.DefaultRepliesLimit}, anonymous()).
		Return(&model.CommentListResponse{Comments: []model.Comment{{ID: 2}, {ID: 3}}, Meta: model.PageMeta{Total: &total}}, nil)
	svc.On("ListReplies", mock.Anything, int64(404), mock.Anything, mock.Anything).Return(nil, model.ErrCommentNotFound)

	rec := call(t, http.MethodGet, "/comments/{id}/replies", "/comments/1/replies", h.Replies, 0, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	res := decode[model.CommentListResponse](t, rec)
	assert.Equal(t, []int64{2, 3}, []int64{res.Comments[0].ID, res.Comments[1].ID})
	assert.Equal(t, 2, *res.Meta.Total)

	rec = call(t, http.MethodGet, "/comments/{id}/replies", "/comments/404/replies", h.Replies, 0, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommentHandler_UpdateAndDelete(t *testing.T) {
	svc := new(mockComments)
	h := NewCommentHandler(svc, nil)
	svc.On("Update", mock.Anything, int64(5), int64(2), "edited").
		Return(&model.Comment{ID: 5, Content: "edited", IsEdited: true}, nil)
	svc.On("Update", mock.Anything, int64(5), int64(9), "edited").Return(nil, model.ErrNotCommentOwner)
	svc.On("Delete", mock.Anything, int64(5), int64(2)).Return(&model.DeleteCommentResponse{Deleted: 4}, nil)
	svc.On("Delete", mock.Anything, int64(6), int64(2)).Return(nil, model.ErrCommentNotFound)

	rec := call(t, http.MethodPatch, "/comments/{id}", "/comments/5", h.Update, 2, `{"content":"edited"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[model.Comment](t, rec).IsEdited)

	rec = call(t, http.MethodPatch, "/comments/{id}", "/comments/5", h.Update, 9, `{"content":"edited"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = call(t, http.MethodDelete, "/comments/{id}", "/comments/5", h.Delete, 2, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 4, decode[model.DeleteCommentResponse](t, rec).Deleted)

	rec = call(t, http.MethodDelete, "/comments/{id}", "/comments/6", h.Delete, 2, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = call(t, http.MethodDelete, "/comments/{id}", "/comments/5", h.Delete, 0, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	svc.AssertExpectations(t)
}
