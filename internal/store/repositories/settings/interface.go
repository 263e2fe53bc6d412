// Package settings persists blog settings and the flattened configuration
// document.
package settings

import (
	"context"

	"github.com/dmitrijs2005/ghostmirror/internal/models"
)

type Repository interface {
	// ReplaceSettings swaps the full settings set atomically.
	ReplaceSettings(ctx context.Context, items []models.Setting) error

	// GetSetting returns the value for a key, or common.ErrNotFound.
	GetSetting(ctx context.Context, key string) (string, error)

	// ReplaceConfiguration swaps the full configuration-param set atomically.
	ReplaceConfiguration(ctx context.Context, params []models.ConfigurationParam) error

	// GetConfigurationParam returns the stored string value for a key, or
	// common.ErrNotFound.
	GetConfigurationParam(ctx context.Context, key string) (string, error)
}
