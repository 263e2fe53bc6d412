// Package users persists the authenticated blog user and their roles.
// The store mirrors a single blog, so at most one user row is live.
package users

import (
	"context"

	"github.com/dmitrijs2005/ghostmirror/internal/models"
)

type Repository interface {
	// Save upserts the user and replaces their role set atomically.
	Save(ctx context.Context, user *models.User) error

	// Get returns the stored user with roles, or common.ErrNotFound.
	Get(ctx context.Context) (*models.User, error)

	// Clear removes the stored user and role links.
	Clear(ctx context.Context) error
}
