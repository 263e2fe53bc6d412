package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/ghostmirror/internal/common"
	"github.com/dmitrijs2005/ghostmirror/internal/dbx"
	"github.com/dmitrijs2005/ghostmirror/internal/models"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, user *models.User) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		// The store mirrors a single blog: replace whatever user was there.
		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id != ?`, user.ID); err != nil {
			return fmt.Errorf("failed to clear stale users: %w", err)
		}

		_, err := tx.ExecContext(ctx, `
INSERT INTO users (id, name, slug, email, profile_image, bio)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  name = excluded.name, slug = excluded.slug, email = excluded.email,
  profile_image = excluded.profile_image, bio = excluded.bio`,
			user.ID, user.Name, user.Slug, user.Email,
			nullStr(user.ProfileImage), nullStr(user.Bio))
		if err != nil {
			return fmt.Errorf("failed to upsert user: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = ?`, user.ID); err != nil {
			return fmt.Errorf("failed to clear roles: %w", err)
		}
		for _, role := range user.Roles {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO roles (id, uuid, name, description) VALUES (?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  uuid = excluded.uuid, name = excluded.name, description = excluded.description`,
				role.ID, role.UUID, role.Name, role.Description); err != nil {
				return fmt.Errorf("failed to upsert role %d: %w", role.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)`,
				user.ID, role.ID); err != nil {
				return fmt.Errorf("failed to link role %d: %w", role.ID, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) Get(ctx context.Context) (*models.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, slug, email, profile_image, bio FROM users LIMIT 1`)

	var (
		u          models.User
		image, bio sql.NullString
	)
	err := row.Scan(&u.ID, &u.Name, &u.Slug, &u.Email, &image, &bio)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select user: %w", err)
	}
	u.ProfileImage = strPtr(image)
	u.Bio = strPtr(bio)

	rows, err := r.db.QueryContext(ctx, `
SELECT r.id, r.uuid, r.name, r.description
FROM user_roles ur JOIN roles r ON r.id = ur.role_id
WHERE ur.user_id = ?
ORDER BY r.id`, u.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to select roles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.UUID, &role.Name, &role.Description); err != nil {
			return nil, err
		}
		u.Roles = append(u.Roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM user_roles`); err != nil {
			return fmt.Errorf("failed to clear user roles: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM users`); err != nil {
			return fmt.Errorf("failed to clear users: %w", err)
		}
		return nil
	})
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
