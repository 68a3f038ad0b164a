package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/notteddydev/reimagined-lamp/internal/domain"
)

// TagRepo implements domain.TagRepository backed by PostgreSQL.
type TagRepo struct {
	pool *pgxpool.Pool
}

func NewTagRepo(pool *pgxpool.Pool) *TagRepo {
	return &TagRepo{pool: pool}
}

func (r *TagRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Tag, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, name, created_at, updated_at
		FROM tags
		WHERE user_id = $1
		ORDER BY name
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	var tags []domain.Tag
	for rows.Next() {
		var t domain.Tag
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (r *TagRepo) Create(ctx context.Context, userID uuid.UUID, name string, contactIDs []uuid.UUID) (*domain.Tag, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var tag domain.Tag
	err = tx.QueryRow(ctx, `
		INSERT INTO tags (user_id, name, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		RETURNING id, user_id, name, created_at, updated_at
	`, userID, name).Scan(&tag.ID, &tag.UserID, &tag.Name, &tag.CreatedAt, &tag.UpdatedAt)
	if isUniqueViolation(err) {
		return nil, domain.ErrDuplicateTag
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	// Link only contacts the user actually owns.
	for _, contactID := range contactIDs {
		tagCmd, err := tx.Exec(ctx, `
			INSERT INTO contact_tags (contact_id, tag_id)
			SELECT id, $2 FROM contacts WHERE id = $1 AND user_id = $3
		`, contactID, tag.ID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to link tag to contact: %w", err)
		}
		if tagCmd.RowsAffected() == 0 {
			return nil, domain.ErrContactNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &tag, nil
}

func (r *TagRepo) Delete(ctx context.Context, userID, tagID uuid.UUID) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tags WHERE id = $1 AND user_id = $2`, tagID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete tag: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrTagNotFound
	}
	return nil
}
