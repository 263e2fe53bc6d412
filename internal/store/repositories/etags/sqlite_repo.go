package etags

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

func (r *SQLiteRepository) Get(ctx context.Context, tag models.ResourceTag) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM etags WHERE type = ?`, string(tag)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get etag[%s]: %w", tag, err)
	}
	return value, nil
}

func (r *SQLiteRepository) Replace(ctx context.Context, tag models.ResourceTag, value string) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM etags WHERE type = ?`, string(tag)); err != nil {
			return fmt.Errorf("failed to delete etag[%s]: %w", tag, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO etags (type, value) VALUES (?, ?)`, string(tag), value); err != nil {
			return fmt.Errorf("failed to insert etag[%s]: %w", tag, err)
		}
		return nil
	})
}

func (r *SQLiteRepository) Delete(ctx context.Context, tag models.ResourceTag) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM etags WHERE type = ?`, string(tag)); err != nil {
		return fmt.Errorf("failed to delete etag[%s]: %w", tag, err)
	}
	return nil
}
