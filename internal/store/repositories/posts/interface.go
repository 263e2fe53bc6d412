// Package posts persists the mirrored Post entities and their tags.
package posts

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ghostmirror/internal/models"
)

type Repository interface {
	// Upsert inserts or replaces a post and its tag links atomically.
	Upsert(ctx context.Context, post *models.Post) error

	// GetByID returns the post with its tags, or common.ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Post, error)

	// GetAll returns every post with tags attached.
	GetAll(ctx context.Context) ([]models.Post, error)

	// GetUnsynced returns posts carrying local edits the server has not
	// seen (LOCAL_EDITS_UNSYNCED or CONFLICT_DETECTED) plus local-only drafts.
	GetUnsynced(ctx context.Context) ([]models.Post, error)

	// SetConflictState updates only the reconciliation bookkeeping of a post.
	SetConflictState(ctx context.Context, id string, state models.ConflictState, baseUpdatedAt *time.Time) error

	// Delete removes the post and its tag links.
	Delete(ctx context.Context, id string) error
}
