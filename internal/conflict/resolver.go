// Package conflict implements the per-post reconciliation state machine.
//
// The unit of conflict is the whole post record: no field-level merge is
// attempted. Divergence is detected by comparing the remote last-modified
// marker against the one captured at the moment local edits began
// (Post.BaseUpdatedAt). States are persisted with the post, so an
// unresolved conflict survives restarts; the conflict-detected event fires
// only on the edge into the state, never again for the same occurrence.
package conflict

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ghostmirror/internal/common"
	"github.com/dmitrijs2005/ghostmirror/internal/events"
	"github.com/dmitrijs2005/ghostmirror/internal/logging"
	"github.com/dmitrijs2005/ghostmirror/internal/models"
)

// Choice is one of the exactly two user-chosen ways out of a conflict.
type Choice string

const (
	// ChoiceKeepLocal keeps the local edits; the next push overwrites remote.
	ChoiceKeepLocal Choice = "keep_local"
	// ChoiceAcceptRemote discards local edits and adopts the remote snapshot.
	ChoiceAcceptRemote Choice = "accept_remote"
)

// Resolver drives conflict state transitions. It mutates the post in
// memory; callers persist the result.
type Resolver struct {
	bus *events.Bus
	log logging.Logger
}

func NewResolver(bus *events.Bus, log logging.Logger) *Resolver {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Resolver{bus: bus, log: log}
}

// MarkLocalEdit records that the user saved edits locally. On the first
// edit after a clean state it captures the remote last-modified marker the
// edit is based on; subsequent edits keep the original base.
func (r *Resolver) MarkLocalEdit(ctx context.Context, p *models.Post) {
	switch p.ConflictState {
	case models.ConflictNone, models.ConflictResolved, "":
		base := p.UpdatedAt
		p.BaseUpdatedAt = &base
		p.ConflictState = models.ConflictLocalEdits
		r.log.Debug(ctx, "local edits begin", "post", p.ID, "base", base)
	case models.ConflictLocalEdits, models.ConflictDetected:
		// further edits on top of existing unsynced ones keep the base
	}
}

// ObserveRemote compares a freshly pulled remote last-modified marker
// against the post's captured base. Returns true when this call detected a
// new conflict. The detection event is published exactly once per
// occurrence.
func (r *Resolver) ObserveRemote(ctx context.Context, p *models.Post, remoteUpdatedAt time.Time) bool {
	if p.ConflictState != models.ConflictLocalEdits {
		return false
	}
	if p.BaseUpdatedAt != nil && p.BaseUpdatedAt.Equal(remoteUpdatedAt) {
		// local edits are based on the current remote state; safe to push
		return false
	}

	p.ConflictState = models.ConflictDetected
	r.log.Warn(ctx, "conflict detected", "post", p.ID,
		"base", p.BaseUpdatedAt, "remote", remoteUpdatedAt)
	if r.bus != nil {
		r.bus.Publish(events.ConflictDetected{PostID: p.ID})
	}
	return true
}

// CanPush reports whether the post may be pushed to the server. A post in
// CONFLICT_DETECTED must not be pushed until an explicit user choice.
func (r *Resolver) CanPush(p *models.Post) error {
	if p.ConflictState == models.ConflictDetected {
		return fmt.Errorf("%w: post %s", common.ErrConflictUnresolved, p.ID)
	}
	return nil
}

// Resolve applies the user's choice to a detected conflict. Both choices
// pass through RESOLVED (reported on the bus) and settle immediately:
// keep-local settles to LOCAL_EDITS_UNSYNCED with the base moved to the
// remote marker, accept-remote replaces the local fields with the remote
// snapshot and settles to NONE.
func (r *Resolver) Resolve(ctx context.Context, p *models.Post, remote *models.Post, choice Choice) error {
	if p.ConflictState != models.ConflictDetected {
		return fmt.Errorf("%w: post %s is %s", common.ErrInvalidTransition, p.ID, p.ConflictState)
	}

	p.ConflictState = models.ConflictResolved
	if r.bus != nil {
		r.bus.Publish(events.ConflictResolved{PostID: p.ID, Choice: string(choice)})
	}

	switch choice {
	case ChoiceKeepLocal:
		if remote != nil {
			base := remote.UpdatedAt
			p.BaseUpdatedAt = &base
		}
		p.ConflictState = models.ConflictLocalEdits
		r.log.Info(ctx, "conflict resolved, keeping local edits", "post", p.ID)
	case ChoiceAcceptRemote:
		if remote != nil {
			adoptRemote(p, remote)
		}
		p.BaseUpdatedAt = nil
		p.ConflictState = models.ConflictNone
		r.log.Info(ctx, "conflict resolved, accepting remote", "post", p.ID)
	default:
		p.ConflictState = models.ConflictDetected
		return fmt.Errorf("%w: unknown choice %q", common.ErrInvalidTransition, choice)
	}
	return nil
}

// MarkPushed records a successful push: the server state now matches
// local, so the lifecycle returns to NONE and server-assigned fields are
// adopted.
func (r *Resolver) MarkPushed(ctx context.Context, p *models.Post, serverPost *models.Post) {
	if serverPost != nil {
		p.UpdatedAt = serverPost.UpdatedAt
		p.Slug = serverPost.Slug
		p.UUID = serverPost.UUID
		p.HTML = serverPost.HTML
		if serverPost.PublishedAt != nil {
			p.PublishedAt = serverPost.PublishedAt
		}
	}
	p.BaseUpdatedAt = nil
	p.LocalOnly = false
	p.ConflictState = models.ConflictNone
	r.log.Debug(ctx, "push acknowledged", "post", p.ID)
}

// adoptRemote replaces every editable field with the remote snapshot.
func adoptRemote(p *models.Post, remote *models.Post) {
	p.UUID = remote.UUID
	p.Slug = remote.Slug
	p.Title = remote.Title
	p.Markdown = remote.Markdown
	p.HTML = remote.HTML
	p.CustomExcerpt = remote.CustomExcerpt
	p.FeatureImage = remote.FeatureImage
	p.Status = remote.Status
	p.CreatedAt = remote.CreatedAt
	p.PublishedAt = remote.PublishedAt
	p.UpdatedAt = remote.UpdatedAt
	p.MetaTitle = remote.MetaTitle
	p.MetaDescription = remote.MetaDescription
	p.Tags = remote.Tags
	p.LocalOnly = false
}
