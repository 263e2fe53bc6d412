// Package etags persists the last validation token seen per resource class.
package etags

import (
	"context"

	"github.com/dmitrijs2005/ghostmirror/internal/models"
)

type Repository interface {
	// Get returns the live token for a tag, or common.ErrNotFound.
	Get(ctx context.Context, tag models.ResourceTag) (string, error)

	// Replace deletes any prior record for the tag and inserts the new one,
	// atomically. Superseded records never accumulate.
	Replace(ctx context.Context, tag models.ResourceTag, value string) error

	// Delete removes the record for a tag; deleting a missing tag is a no-op.
	Delete(ctx context.Context, tag models.ResourceTag) error
}
