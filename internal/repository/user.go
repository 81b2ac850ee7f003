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

const userColumns = `id, username, email, password_hashed, display_name, avatar_url, avatar_key, bio,
		       follower_count, following_count, post_count, created_at, updated_at`

// userRepository implements UserRepository using sqlx
type userRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user. Unique violations on the lowercased
// username or email indexes map to the matching Conflict error.
func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	query := `
		INSERT INTO users (username, email, password_hashed, display_name, avatar_url, avatar_key, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		RETURNING id, follower_count, following_count, post_count, created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		u.Username,
		u.Email,
		u.PasswordHashed,
		u.DisplayName,
		u.AvatarURL,
		u.AvatarKey,
	).Scan(
		&u.ID,
		&u.FollowerCount,
		&u.FollowingCount,
		&u.PostCount,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			if strings.Contains(pqErr.Constraint, "email") {
				return model.ErrEmailExists
			}
			return model.ErrUsernameExists
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}

	return nil
}

func (r *userRepository) getOne(ctx context.Context, where string, arg interface{}) (*model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + where

	var u model.User
	err := r.db.GetContext(ctx, &u, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// GetByID retrieves a user by their ID
func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByUsername matches case-insensitively.
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.getOne(ctx, "LOWER(username) = LOWER($1)", username)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "LOWER(email) = LOWER($1)", email)
}

func (r *userRepository) exists(ctx context.Context, where string, arg interface{}) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM users WHERE `+where+`)`, arg)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

func (r *userRepository) Exists(ctx context.Context, id int64) (bool, error) {
	return r.exists(ctx, "id = $1", id)
}

// ExistsByUsername checks if a username is already taken
func (r *userRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, "LOWER(username) = LOWER($1)", username)
}

func (r *userRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, "LOWER(email) = LOWER($1)", email)
}

// GetSummaries loads user cards for a batch of ids in one query.
func (r *userRepository) GetSummaries(ctx context.Context, ids []int64) (map[int64]model.UserSummary, error) {
	result := make(map[int64]model.UserSummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `SELECT id, username, display_name, avatar_url FROM users WHERE id = ANY($1)`
	var users []model.UserSummary
	if err := r.db.SelectContext(ctx, &users, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to get user summaries: %w", err)
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

func (r *userRepository) Search(ctx context.Context, query string, page model.PageRequest) ([]model.UserSummary, error) {
	searchQuery := `
		SELECT id, username, display_name, avatar_url
		FROM users
		WHERE username ILIKE $1 OR display_name ILIKE $1
		ORDER BY follower_count DESC, id ASC
		LIMIT $2 OFFSET $3
	`

	var users []model.UserSummary
	err := r.db.SelectContext(ctx, &users, searchQuery, "%"+escapeLike(query)+"%", page.Limit+1, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	return users, nil
}

func (r *userRepository) UpdateProfile(ctx context.Context, id int64, displayName, bio *string) (*model.User, error) {
	query := `
		UPDATE users
		SET display_name = COALESCE($2, display_name),
		    bio = COALESCE($3, bio),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	var u model.User
	if err := r.db.GetContext(ctx, &u, query, id, displayName, bio); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return &u, nil
}

// adjustCounter applies delta atomically and never drops below zero.
func adjustCounter(ctx context.Context, tx *sqlx.Tx, table, column string, id int64, delta int) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = GREATEST(%s + $1, 0) WHERE id = $2`, table, column, column)
	if _, err := tx.ExecContext(ctx, query, delta, id); err != nil {
		return fmt.Errorf("failed to adjust %s.%s: %w", table, column, err)
	}
	return nil
}

func (r *userRepository) AdjustFollowerCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	return adjustCounter(ctx, tx, "users", "follower_count", userID, delta)
}

func (r *userRepository) AdjustFollowingCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	return adjustCounter(ctx, tx, "users", "following_count", userID, delta)
}

func (r *userRepository) AdjustPostCount(ctx context.Context, tx *sqlx.Tx, userID int64, delta int) error {
	return adjustCounter(ctx, tx, "users", "post_count", userID, delta)
}

func (r *userRepository) RecountFollowCounts(ctx context.Context, userID int64) error {
	query := `
		UPDATE users SET
			follower_count  = (SELECT COUNT(*) FROM follows WHERE followee_id = $1),
			following_count = (SELECT COUNT(*) FROM follows WHERE follower_id = $1)
		WHERE id = $1
	`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to recount follow counts: %w", err)
	}
	return nil
}

// escapeLike neutralizes LIKE wildcards in user input.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
