package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"clipshare/internal/model"
)

const commentColumns = `id, post_id, user_id, content, parent_comment_id, reply_count, is_edited, edited_at, created_at`

type commentRepository struct {
	db *sqlx.DB
}

func NewCommentRepository(db *sqlx.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, tx *sqlx.Tx, c *model.Comment) error {
	query := `
		INSERT INTO comments (post_id, user_id, content, parent_comment_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, reply_count, is_edited, created_at
	`
	err := tx.QueryRowxContext(ctx, query, c.PostID, c.UserID, c.Content, c.ParentCommentID).
		Scan(&c.ID, &c.ReplyCount, &c.IsEdited, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert comment: %w", err)
	}
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, commentID int64) (*model.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`

	var c model.Comment
	if err := r.db.GetContext(ctx, &c, query, commentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return &c, nil
}

func (r *commentRepository) GetRef(ctx context.Context, commentID int64) (*model.CommentRef, error) {
	query := `SELECT id, post_id, parent_comment_id FROM comments WHERE id = $1`

	var ref model.CommentRef
	if err := r.db.GetContext(ctx, &ref, query, commentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to get comment ref: %w", err)
	}
	return &ref, nil
}

func (r *commentRepository) Exists(ctx context.Context, commentID int64) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM comments WHERE id = $1)`, commentID); err != nil {
		return false, fmt.Errorf("failed to check comment existence: %w", err)
	}
	return exists, nil
}

// Update sets new content and stamps the edit. Ownership is checked by the service.
func (r *commentRepository) Update(ctx context.Context, commentID int64, content string, editedAt time.Time) (*model.Comment, error) {
	query := `
		UPDATE comments
		SET content = $2, is_edited = TRUE, edited_at = $3
		WHERE id = $1
		RETURNING ` + commentColumns

	var c model.Comment
	if err := r.db.GetContext(ctx, &c, query, commentID, content, editedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	return &c, nil
}

// ListTopLevel returns up to page.Limit+1 root comments, newest first.
func (r *commentRepository) ListTopLevel(ctx context.Context, postID int64, page model.PageRequest) ([]model.Comment, error) {
	query := `
		SELECT ` + commentColumns + `
		FROM comments
		WHERE post_id = $1 AND parent_comment_id IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	var comments []model.Comment
	if err := r.db.SelectContext(ctx, &comments, query, postID, page.Limit+1, page.Offset()); err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func (r *commentRepository) ListChildren(ctx context.Context, parentIDs []int64) ([]model.CommentRef, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	query := `
		SELECT id, post_id, parent_comment_id
		FROM comments
		WHERE parent_comment_id = ANY($1)
		ORDER BY created_at ASC, id ASC
	`
	var refs []model.CommentRef
	if err := r.db.SelectContext(ctx, &refs, query, pq.Array(parentIDs)); err != nil {
		return nil, fmt.Errorf("failed to list child comments: %w", err)
	}
	return refs, nil
}

func (r *commentRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]model.Comment, error) {
	result := make(map[int64]model.Comment, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = ANY($1)`
	var comments []model.Comment
	if err := r.db.SelectContext(ctx, &comments, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	for _, c := range comments {
		result[c.ID] = c
	}
	return result, nil
}

func (r *commentRepository) AdjustReplyCount(ctx context.Context, tx *sqlx.Tx, rootID int64, delta int) error {
	return adjustCounter(ctx, tx, "comments", "reply_count", rootID, delta)
}

// SetReplyCount writes count only while the stored value still equals
// expected. Reports whether the row was updated.
func (r *commentRepository) SetReplyCount(ctx context.Context, rootID int64, expected, count int) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE comments SET reply_count = $2 WHERE id = $1 AND reply_count = $3`,
		rootID, count, expected,
	)
	if err != nil {
		return false, fmt.Errorf("failed to set reply count: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to set reply count: %w", err)
	}
	return n > 0, nil
}

func (r *commentRepository) DeleteByIDs(ctx context.Context, tx *sqlx.Tx, ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM comments WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("failed to delete comments: %w", err)
	}
	return result.RowsAffected()
}

func (r *commentRepository) FindOrphans(ctx context.Context, limit int) ([]model.CommentRef, error) {
	query := `
		SELECT c.id, c.post_id, c.parent_comment_id
		FROM comments c
		LEFT JOIN comments p ON p.id = c.parent_comment_id
		WHERE c.parent_comment_id IS NOT NULL AND p.id IS NULL
		ORDER BY c.id
		LIMIT $1
	`
	var refs []model.CommentRef
	if err := r.db.SelectContext(ctx, &refs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to find orphan comments: %w", err)
	}
	return refs, nil
}

// ListRoots pages through root comments by id for reconciliation.
func (r *commentRepository) ListRoots(ctx context.Context, afterID int64, limit int) ([]model.Comment, error) {
	query := `
		SELECT ` + commentColumns + `
		FROM comments
		WHERE parent_comment_id IS NULL AND id > $1
		ORDER BY id
		LIMIT $2
	`
	var roots []model.Comment
	if err := r.db.SelectContext(ctx, &roots, query, afterID, limit); err != nil {
		return nil, fmt.Errorf("failed to list root comments: %w", err)
	}
	return roots, nil
}
