package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ghostmirror/internal/common"
	"github.com/dmitrijs2005/ghostmirror/internal/dbx"
	"github.com/dmitrijs2005/ghostmirror/internal/models"
)

const postColumns = `id, uuid, slug, title, markdown, html, custom_excerpt, feature_image,
       status, created_at, published_at, updated_at, meta_title, meta_description,
       conflict_state, base_updated_at, local_only`

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, post *models.Post) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := tx.ExecContext(ctx, `
INSERT INTO posts (`+postColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  uuid = excluded.uuid, slug = excluded.slug, title = excluded.title,
  markdown = excluded.markdown, html = excluded.html,
  custom_excerpt = excluded.custom_excerpt, feature_image = excluded.feature_image,
  status = excluded.status, created_at = excluded.created_at,
  published_at = excluded.published_at, updated_at = excluded.updated_at,
  meta_title = excluded.meta_title, meta_description = excluded.meta_description,
  conflict_state = excluded.conflict_state, base_updated_at = excluded.base_updated_at,
  local_only = excluded.local_only`,
			post.ID, post.UUID, post.Slug, post.Title, post.Markdown,
			nullStr(post.HTML), nullStr(post.CustomExcerpt), nullStr(post.FeatureImage),
			string(post.Status), nullTime(post.CreatedAt), nullTime(post.PublishedAt),
			fmtTime(post.UpdatedAt), nullStr(post.MetaTitle), nullStr(post.MetaDescription),
			string(post.ConflictState), nullTime(post.BaseUpdatedAt), boolToInt(post.LocalOnly))
		if err != nil {
			return fmt.Errorf("failed to upsert post: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ?`, post.ID); err != nil {
			return fmt.Errorf("failed to clear post tags: %w", err)
		}
		for i, tag := range post.Tags {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO tags (id, uuid, name, slug, description, feature_image,
                  meta_title, meta_description, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  uuid = excluded.uuid, name = excluded.name, slug = excluded.slug,
  description = excluded.description, feature_image = excluded.feature_image,
  meta_title = excluded.meta_title, meta_description = excluded.meta_description,
  created_at = excluded.created_at, updated_at = excluded.updated_at`,
				tag.ID, tag.UUID, tag.Name, nullStr(tag.Slug), nullStr(tag.Description),
				nullStr(tag.FeatureImage), nullStr(tag.MetaTitle), nullStr(tag.MetaDescription),
				nullTime(tag.CreatedAt), nullTime(tag.UpdatedAt)); err != nil {
				return fmt.Errorf("failed to upsert tag %s: %w", tag.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO post_tags (post_id, tag_id, sort_order) VALUES (?, ?, ?)`,
				post.ID, tag.ID, i); err != nil {
				return fmt.Errorf("failed to link tag %s: %w", tag.ID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id = ?`, id)

	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select post: %w", err)
	}

	tags, err := r.tagsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	post.Tags = tags
	return post, nil
}

func (r *SQLiteRepository) GetAll(ctx context.Context) ([]models.Post, error) {
	return r.list(ctx, `SELECT `+postColumns+` FROM posts ORDER BY updated_at DESC`)
}

func (r *SQLiteRepository) GetUnsynced(ctx context.Context) ([]models.Post, error) {
	return r.list(ctx, `SELECT `+postColumns+` FROM posts
WHERE conflict_state IN ('LOCAL_EDITS_UNSYNCED', 'CONFLICT_DETECTED') OR local_only = 1
ORDER BY updated_at DESC`)
}

func (r *SQLiteRepository) SetConflictState(ctx context.Context, id string, state models.ConflictState, baseUpdatedAt *time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE posts SET conflict_state = ?, base_updated_at = ? WHERE id = ?`,
		string(state), nullTime(baseUpdatedAt), id)
	if err != nil {
		return fmt.Errorf("failed to update conflict state: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM post_tags WHERE post_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete post tags: %w", err)
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM posts WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete post: %w", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 0 {
			return common.ErrNotFound
		}
		return nil
	})
}

func (r *SQLiteRepository) list(ctx context.Context, query string) ([]models.Post, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select posts: %w", err)
	}
	defer rows.Close()

	var result []models.Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return result, nil
	}

	byID := make(map[string]*models.Post, len(result))
	for i := range result {
		byID[result[i].ID] = &result[i]
	}
	tagRows, err := r.db.QueryContext(ctx, `
SELECT pt.post_id, t.id, t.uuid, t.name, t.slug, t.description, t.feature_image,
       t.meta_title, t.meta_description, t.created_at, t.updated_at
FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
ORDER BY pt.post_id, pt.sort_order`)
	if err != nil {
		return nil, fmt.Errorf("failed to select tags: %w", err)
	}
	defer tagRows.Close()

	for tagRows.Next() {
		var postID string
		tag, err := scanTagWithOwner(tagRows, &postID)
		if err != nil {
			return nil, err
		}
		if p, ok := byID[postID]; ok {
			p.Tags = append(p.Tags, *tag)
		}
	}
	return result, tagRows.Err()
}

func (r *SQLiteRepository) tagsFor(ctx context.Context, postID string) ([]models.Tag, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT t.id, t.uuid, t.name, t.slug, t.description, t.feature_image,
       t.meta_title, t.meta_description, t.created_at, t.updated_at
FROM post_tags pt JOIN tags t ON t.id = pt.tag_id
WHERE pt.post_id = ?
ORDER BY pt.sort_order`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to select tags: %w", err)
	}
	defer rows.Close()

	var tags []models.Tag
	for rows.Next() {
		tag, err := scanTag(rows)
		if err != nil {
			return nil, err
		}
		tags = append(tags, *tag)
	}
	return tags, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.Post, error) {
	var (
		p                        models.Post
		html, excerpt, image     sql.NullString
		status, conflictState    string
		createdAt, publishedAt   sql.NullString
		updatedAt                string
		metaTitle, metaDesc      sql.NullString
		baseUpdatedAt            sql.NullString
		localOnly                int
	)
	err := row.Scan(&p.ID, &p.UUID, &p.Slug, &p.Title, &p.Markdown,
		&html, &excerpt, &image, &status, &createdAt, &publishedAt, &updatedAt,
		&metaTitle, &metaDesc, &conflictState, &baseUpdatedAt, &localOnly)
	if err != nil {
		return nil, err
	}

	p.HTML = strPtr(html)
	p.CustomExcerpt = strPtr(excerpt)
	p.FeatureImage = strPtr(image)
	p.Status = models.PostStatus(status)
	p.CreatedAt = timePtr(createdAt)
	p.PublishedAt = timePtr(publishedAt)
	p.UpdatedAt = parseTime(updatedAt)
	p.MetaTitle = strPtr(metaTitle)
	p.MetaDescription = strPtr(metaDesc)
	p.ConflictState = models.ConflictState(conflictState)
	p.BaseUpdatedAt = timePtr(baseUpdatedAt)
	p.LocalOnly = localOnly != 0
	return &p, nil
}

func scanTag(row rowScanner) (*models.Tag, error) {
	var (
		t                           models.Tag
		slug, desc, image           sql.NullString
		metaTitle, metaDesc         sql.NullString
		createdAt, updatedAt        sql.NullString
	)
	err := row.Scan(&t.ID, &t.UUID, &t.Name, &slug, &desc, &image,
		&metaTitle, &metaDesc, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.Slug = strPtr(slug)
	t.Description = strPtr(desc)
	t.FeatureImage = strPtr(image)
	t.MetaTitle = strPtr(metaTitle)
	t.MetaDescription = strPtr(metaDesc)
	t.CreatedAt = timePtr(createdAt)
	t.UpdatedAt = timePtr(updatedAt)
	return &t, nil
}

func scanTagWithOwner(row rowScanner, postID *string) (*models.Tag, error) {
	var (
		t                           models.Tag
		slug, desc, image           sql.NullString
		metaTitle, metaDesc         sql.NullString
		createdAt, updatedAt        sql.NullString
	)
	err := row.Scan(postID, &t.ID, &t.UUID, &t.Name, &slug, &desc, &image,
		&metaTitle, &metaDesc, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.Slug = strPtr(slug)
	t.Description = strPtr(desc)
	t.FeatureImage = strPtr(image)
	t.MetaTitle = strPtr(metaTitle)
	t.MetaDescription = strPtr(metaDesc)
	t.CreatedAt = timePtr(createdAt)
	t.UpdatedAt = timePtr(updatedAt)
	return &t, nil
}

// Timestamps are stored as RFC3339Nano in UTC.

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: fmtTime(*t), Valid: true}
}

func timePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullStr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func strPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
