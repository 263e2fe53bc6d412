// Package cache decides whether locally mirrored data for a resource class
// is still current, using the validation tokens recorded from prior
// fetches. A 304-style "not modified" outcome means the stored token is
// still valid and no fetch body needs decoding.
package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/ghostmirror/internal/common"
	"github.com/dmitrijs2005/ghostmirror/internal/models"
	"github.com/dmitrijs2005/ghostmirror/internal/store/repositories/etags"
)

// Validator maps a resource class to its last-seen validation token.
type Validator struct {
	etags etags.Repository
}

func NewValidator(repo etags.Repository) *Validator {
	return &Validator{etags: repo}
}

// ShouldRefetch returns true when no token is recorded for the tag, or
// when current differs from the stored one.
func (v *Validator) ShouldRefetch(ctx context.Context, tag models.ResourceTag, current string) (bool, error) {
	stored, err := v.etags.Get(ctx, tag)
	if errors.Is(err, common.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache check for %s: %w", tag, err)
	}
	return stored != current, nil
}

// Token returns the stored token for the tag, or "" when none is recorded.
// The empty token is what conditional requests send on a cold cache.
func (v *Validator) Token(ctx context.Context, tag models.ResourceTag) (string, error) {
	stored, err := v.etags.Get(ctx, tag)
	if errors.Is(err, common.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("token lookup for %s: %w", tag, err)
	}
	return stored, nil
}

// RecordToken atomically replaces any prior record for the tag. Only call
// it after a fetch fully completed and its payload was persisted.
func (v *Validator) RecordToken(ctx context.Context, tag models.ResourceTag, token string) error {
	if err := v.etags.Replace(ctx, tag, token); err != nil {
		return fmt.Errorf("record token for %s: %w", tag, err)
	}
	return nil
}

// Invalidate forces the next check for the tag to refetch. Used by the
// migrator and by logout/login flows.
func (v *Validator) Invalidate(ctx context.Context, tag models.ResourceTag) error {
	if err := v.etags.Delete(ctx, tag); err != nil {
		return fmt.Errorf("invalidate %s: %w", tag, err)
	}
	return nil
}
