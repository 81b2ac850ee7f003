package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"clipshare/internal/model"
)

const postColumns = `p.id, p.user_id, p.kind, p.title, p.description, p.video_url, p.thumbnail_url,
		       p.duration_seconds, p.tags, p.is_public, p.views, p.comment_count, p.created_at, p.updated_at`

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

// Create inserts the post row and, for image sets, its ordered images.
func (r *postRepository) Create(ctx context.Context, tx *sqlx.Tx, p *model.Post) error {
	query := `
		INSERT INTO posts (user_id, kind, title, description, video_url, thumbnail_url, duration_seconds, tags, is_public)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, views, comment_count, created_at, updated_at
	`
	err := tx.QueryRowxContext(ctx, query,
		p.UserID, p.Kind, p.Title, p.Description, p.VideoURL, p.ThumbnailURL,
		p.DurationSeconds, p.Tags, p.IsPublic,
	).Scan(&p.ID, &p.Views, &p.CommentCount, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}

	for i := range p.Images {
		p.Images[i].PostID = p.ID
		p.Images[i].Position = i
		_, err := tx.ExecContext(ctx,
			`INSERT INTO post_images (post_id, position, url, caption) VALUES ($1, $2, $3, $4)`,
			p.ID, i, p.Images[i].URL, p.Images[i].Caption,
		)
		if err != nil {
			return fmt.Errorf("failed to insert post image: %w", err)
		}
	}

	return nil
}

func (r *postRepository) GetByID(ctx context.Context, postID int64) (*model.Post, error) {
	query := `SELECT ` + postColumns + ` FROM posts p WHERE p.id = $1`

	var p model.Post
	if err := r.db.GetContext(ctx, &p, query, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrPostNotFound
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	posts := []model.Post{p}
	if err := r.AttachImages(ctx, posts); err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// List builds one filtered query for feed, profile, browse and search.
func (r *postRepository) List(ctx context.Context, q PostQuery, page model.PageRequest) ([]model.Post, error) {
	var (
		where []string
		args  []interface{}
	)
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Owners != nil {
		where = append(where, "p.user_id = ANY("+arg(pq.Array(q.Owners))+")")
	}
	if q.ExcludeOwner != nil {
		where = append(where, "p.user_id <> "+arg(*q.ExcludeOwner))
	}
	if q.Kind != nil {
		where = append(where, "p.kind = "+arg(string(*q.Kind)))
	}
	if q.PublicOnly {
		where = append(where, "p.is_public")
	}
	if q.Search != "" {
		like := arg("%" + escapeLike(q.Search) + "%")
		tag := arg(strings.ToLower(q.Search))
		where = append(where, fmt.Sprintf("(p.title ILIKE %s OR p.description ILIKE %s OR %s = ANY(p.tags))", like, like, tag))
	}

	query := `SELECT ` + postColumns + ` FROM posts p`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY p.created_at DESC, p.id DESC LIMIT " + arg(page.Limit+1) + " OFFSET " + arg(page.Offset())

	var posts []model.Post
	if err := r.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	return posts, nil
}

// AttachImages loads images for every image_set post in one query.
func (r *postRepository) AttachImages(ctx context.Context, posts []model.Post) error {
	var ids []int64
	for _, p := range posts {
		if p.Kind == model.PostKindImageSet {
			ids = append(ids, p.ID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	query := `
		SELECT post_id, position, url, caption
		FROM post_images
		WHERE post_id = ANY($1)
		ORDER BY post_id, position
	`
	var images []model.PostImage
	if err := r.db.SelectContext(ctx, &images, query, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to get post images: %w", err)
	}

	byPost := make(map[int64][]model.PostImage, len(ids))
	for _, img := range images {
		byPost[img.PostID] = append(byPost[img.PostID], img)
	}
	for i := range posts {
		if imgs, ok := byPost[posts[i].ID]; ok {
			posts[i].Images = imgs
		}
	}
	return nil
}

func (r *postRepository) IncrementViews(ctx context.Context, postID int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE posts SET views = views + 1 WHERE id = $1`, postID); err != nil {
		return fmt.Errorf("failed to increment views: %w", err)
	}
	return nil
}

// Delete removes the post. Comments cascade by foreign key; reactions on
// the post and its comments are removed here since they carry none.
func (r *postRepository) Delete(ctx context.Context, tx *sqlx.Tx, postID int64) error {
	_, err := tx.ExecContext(ctx, `
		DELETE FROM reactions
		WHERE (entity_type = 'post' AND entity_id = $1)
		   OR (entity_type = 'comment' AND entity_id IN (SELECT id FROM comments WHERE post_id = $1))
	`, postID)
	if err != nil {
		return fmt.Errorf("failed to delete post reactions: %w", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, postID)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return model.ErrPostNotFound
	}
	return nil
}

func (r *postRepository) Exists(ctx context.Context, postID int64) (bool, error) {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM posts WHERE id = $1)`, postID); err != nil {
		return false, fmt.Errorf("failed to check post existence: %w", err)
	}
	return exists, nil
}

func (r *postRepository) CommentCount(ctx context.Context, tx *sqlx.Tx, postID int64) (int, error) {
	var count int
	if err := tx.GetContext(ctx, &count, `SELECT comment_count FROM posts WHERE id = $1`, postID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, model.ErrPostNotFound
		}
		return 0, fmt.Errorf("failed to read comment count: %w", err)
	}
	return count, nil
}

func (r *postRepository) AdjustCommentCount(ctx context.Context, tx *sqlx.Tx, postID int64, delta int) error {
	return adjustCounter(ctx, tx, "posts", "comment_count", postID, delta)
}

func (r *postRepository) RecountCommentCount(ctx context.Context, postID int64) error {
	query := `
		UPDATE posts
		SET comment_count = (SELECT COUNT(*) FROM comments WHERE post_id = $1 AND parent_comment_id IS NULL)
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, postID); err != nil {
		return fmt.Errorf("failed to recount comment count: %w", err)
	}
	return nil
}
