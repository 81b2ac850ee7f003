package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"clipshare/internal/model"
)

// reactionRepository stores one row per (entity, user). Like and dislike
// are values of the same row, so they cannot coexist.
type reactionRepository struct {
	db *sqlx.DB
}

func NewReactionRepository(db *sqlx.DB) ReactionRepository {
	return &reactionRepository{db: db}
}

func (r *reactionRepository) GetForUpdate(ctx context.Context, tx *sqlx.Tx, ref model.EntityRef, userID int64) (*model.ReactionKind, error) {
	query := `
		SELECT kind FROM reactions
		WHERE entity_type = $1 AND entity_id = $2 AND user_id = $3
		FOR UPDATE
	`
	var kind model.ReactionKind
	if err := tx.GetContext(ctx, &kind, query, ref.Type, ref.ID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read reaction: %w", err)
	}
	return &kind, nil
}

// Set writes kind for the user, replacing the opposite kind in the same statement.
func (r *reactionRepository) Set(ctx context.Context, tx *sqlx.Tx, ref model.EntityRef, userID int64, kind model.ReactionKind) error {
	query := `
		INSERT INTO reactions (entity_type, entity_id, user_id, kind)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (entity_type, entity_id, user_id)
		DO UPDATE SET kind = EXCLUDED.kind, created_at = NOW()
	`
	if _, err := tx.ExecContext(ctx, query, ref.Type, ref.ID, userID, kind); err != nil {
		return fmt.Errorf("failed to set reaction: %w", err)
	}
	return nil
}

func (r *reactionRepository) Delete(ctx context.Context, tx *sqlx.Tx, ref model.EntityRef, userID int64) error {
	query := `DELETE FROM reactions WHERE entity_type = $1 AND entity_id = $2 AND user_id = $3`
	if _, err := tx.ExecContext(ctx, query, ref.Type, ref.ID, userID); err != nil {
		return fmt.Errorf("failed to delete reaction: %w", err)
	}
	return nil
}

func (r *reactionRepository) Summaries(ctx context.Context, entity model.EntityType, ids []int64, viewerID *int64) (map[int64]model.Reactions, error) {
	result := make(map[int64]model.Reactions, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	var viewer int64
	if viewerID != nil {
		viewer = *viewerID
	}

	query := `
		SELECT entity_id,
		       COUNT(*) FILTER (WHERE kind = 'like')    AS likes,
		       COUNT(*) FILTER (WHERE kind = 'dislike') AS dislikes,
		       COALESCE(BOOL_OR(user_id = $3 AND kind = 'like'), FALSE)    AS is_liked,
		       COALESCE(BOOL_OR(user_id = $3 AND kind = 'dislike'), FALSE) AS is_disliked
		FROM reactions
		WHERE entity_type = $1 AND entity_id = ANY($2)
		GROUP BY entity_id
	`

	type row struct {
		EntityID   int64 `db:"entity_id"`
		Likes      int   `db:"likes"`
		Dislikes   int   `db:"dislikes"`
		IsLiked    bool  `db:"is_liked"`
		IsDisliked bool  `db:"is_disliked"`
	}
	var rows []row
	if err := r.db.SelectContext(ctx, &rows, query, entity, pq.Array(ids), viewer); err != nil {
		return nil, fmt.Errorf("failed to summarize reactions: %w", err)
	}

	for _, id := range ids {
		result[id] = model.Reactions{}
	}
	for _, rw := range rows {
		result[rw.EntityID] = model.Reactions{
			Likes:      rw.Likes,
			Dislikes:   rw.Dislikes,
			IsLiked:    rw.IsLiked,
			IsDisliked: rw.IsDisliked,
		}
	}
	return result, nil
}

func (r *reactionRepository) DeleteForEntities(ctx context.Context, tx *sqlx.Tx, entity model.EntityType, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	query := `DELETE FROM reactions WHERE entity_type = $1 AND entity_id = ANY($2)`
	if _, err := tx.ExecContext(ctx, query, entity, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to delete reactions: %w", err)
	}
	return nil
}
