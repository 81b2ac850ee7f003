package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"clipshare/internal/model"
)

type followRepository struct {
	db *sqlx.DB
}

func NewFollowRepository(db *sqlx.DB) FollowRepository {
	return &followRepository{db: db}
}

func rowsAffected(res sql.Result, op string) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", op, err)
	}
	return n, nil
}

// Create is idempotent at the SQL level; the caller turns false into a conflict.
func (r *followRepository) Create(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO follows (follower_id, followee_id) VALUES ($1, $2)
		 ON CONFLICT (follower_id, followee_id) DO NOTHING`,
		followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("insert follow edge: %w", err)
	}
	n, err := rowsAffected(res, "insert follow edge")
	return n == 1, err
}

func (r *followRepository) Delete(ctx context.Context, tx *sqlx.Tx, followerID, followeeID int64) error {
	res, err := tx.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND followee_id = $2`,
		followerID, followeeID)
	if err != nil {
		return fmt.Errorf("delete follow edge: %w", err)
	}
	n, err := rowsAffected(res, "delete follow edge")
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFollowing
	}
	return nil
}

func (r *followRepository) Exists(ctx context.Context, followerID, followeeID int64) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS(SELECT 1 FROM follows WHERE follower_id = $1 AND followee_id = $2)`,
		followerID, followeeID)
	if err != nil {
		return false, fmt.Errorf("check follow edge: %w", err)
	}
	return exists, nil
}

// edgeSide picks which end of the edge is fixed and which end is listed.
type edgeSide struct {
	fixed, listed, label string
}

var (
	followersSide = edgeSide{fixed: "followee_id", listed: "follower_id", label: "followers"}
	followingSide = edgeSide{fixed: "follower_id", listed: "followee_id", label: "following"}
)

// listEdges returns up to page.Limit+1 users on the listed side, newest edge first.
func (r *followRepository) listEdges(ctx context.Context, side edgeSide, userID int64, page model.PageRequest) ([]model.UserSummary, error) {
	query := fmt.Sprintf(`
		SELECT u.id, u.username, u.display_name, u.avatar_url
		FROM follows f
		JOIN users u ON u.id = f.%s
		WHERE f.%s = $1
		ORDER BY f.created_at DESC, u.id DESC
		LIMIT $2 OFFSET $3
	`, side.listed, side.fixed)

	var users []model.UserSummary
	if err := r.db.SelectContext(ctx, &users, query, userID, page.Limit+1, page.Offset()); err != nil {
		return nil, fmt.Errorf("list %s: %w", side.label, err)
	}
	return users, nil
}

func (r *followRepository) ListFollowers(ctx context.Context, userID int64, page model.PageRequest) ([]model.UserSummary, error) {
	return r.listEdges(ctx, followersSide, userID, page)
}

func (r *followRepository) ListFollowing(ctx context.Context, userID int64, page model.PageRequest) ([]model.UserSummary, error) {
	return r.listEdges(ctx, followingSide, userID, page)
}

// CheckFollows answers "does followerID follow each of ids" in one query.
// Every requested id is present in the result.
func (r *followRepository) CheckFollows(ctx context.Context, followerID int64, ids []int64) (map[int64]bool, error) {
	out := make(map[int64]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var hits []int64
	err := r.db.SelectContext(ctx, &hits,
		`SELECT followee_id FROM follows WHERE follower_id = $1 AND followee_id = ANY($2)`,
		followerID, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("check follows: %w", err)
	}
	for _, id := range ids {
		out[id] = false
	}
	for _, id := range hits {
		out[id] = true
	}
	return out, nil
}

func (r *followRepository) GetFolloweeIDs(ctx context.Context, userID int64) ([]int64, error) {
	var ids []int64
	if err := r.db.SelectContext(ctx, &ids, `SELECT followee_id FROM follows WHERE follower_id = $1`, userID); err != nil {
		return nil, fmt.Errorf("load followee ids: %w", err)
	}
	return ids, nil
}
