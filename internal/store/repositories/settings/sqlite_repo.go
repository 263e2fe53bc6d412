package settings

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

func (r *SQLiteRepository) ReplaceSettings(ctx context.Context, items []models.Setting) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM settings`); err != nil {
			return fmt.Errorf("failed to clear settings: %w", err)
		}
		for _, item := range items {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO settings (id, key, value) VALUES (?, ?, ?)`,
				item.ID, item.Key, item.Value); err != nil {
				return fmt.Errorf("failed to insert setting %q: %w", item.Key, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %q: %w", key, err)
	}
	return value, nil
}

func (r *SQLiteRepository) ReplaceConfiguration(ctx context.Context, params []models.ConfigurationParam) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM configuration_params`); err != nil {
			return fmt.Errorf("failed to clear configuration: %w", err)
		}
		for _, param := range params {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO configuration_params (key, value) VALUES (?, ?)`,
				param.Key, param.Value); err != nil {
				return fmt.Errorf("failed to insert configuration param %q: %w", param.Key, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) GetConfigurationParam(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx,
		`SELECT value FROM configuration_params WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", common.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get configuration param %q: %w", key, err)
	}
	return value, nil
}
