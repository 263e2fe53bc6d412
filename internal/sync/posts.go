package sync

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/dmitrijs2005/ghostmirror/internal/client"
	"github.com/dmitrijs2005/ghostmirror/internal/common"
	"github.com/dmitrijs2005/ghostmirror/internal/conflict"
	"github.com/dmitrijs2005/ghostmirror/internal/events"
	"github.com/dmitrijs2005/ghostmirror/internal/models"
)

// SavePost persists an edit locally. It never talks to the server: pushes
// happen through PushPost or PushAll, so saving works offline. The post
// action is classified against the previously stored version and
// announced on the bus.
func (o *Orchestrator) SavePost(ctx context.Context, p *models.Post, autosave bool) error {
	newPost := p.ID == ""
	if newPost {
		p.ID = uuid.NewString()
		p.UUID = uuid.NewString()
		p.LocalOnly = true
		if p.Status == "" {
			p.Status = models.StatusDraft
		}
		now := o.now().UTC()
		p.CreatedAt = &now
		p.UpdatedAt = now
	}

	unlock := o.store.LockEntity(p.ID)
	defer unlock()

	var prev *models.Post
	if !newPost {
		stored, err := o.store.Posts.GetByID(ctx, p.ID)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return err
		}
		prev = stored
		if prev != nil {
			p.LocalOnly = prev.LocalOnly
			p.ConflictState = prev.ConflictState
			p.BaseUpdatedAt = prev.BaseUpdatedAt
			p.UpdatedAt = prev.UpdatedAt
		}
	}

	o.resolver.MarkLocalEdit(ctx, p)
	if err := o.store.Posts.Upsert(ctx, p); err != nil {
		return err
	}

	scenario := classifyScenario(prev, p, autosave)
	o.bus.Publish(events.PostAction{Scenario: scenario, PostID: p.ID})
	o.log.Debug(ctx, "post saved locally", "post", p.ID, "scenario", string(scenario))
	return nil
}

// PushPost sends one post's local edits upstream. A post in
// CONFLICT_DETECTED is rejected with ErrConflictUnresolved until the user
// chooses a resolution; a push that fails upstream leaves the local edits
// flagged unsynced.
func (o *Orchestrator) PushPost(ctx context.Context, id string) error {
	unlock := o.store.LockEntity(id)
	defer unlock()

	p, err := o.store.Posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !p.LocalOnly && !p.HasUnsyncedEdits() {
		return nil
	}
	if err := o.resolver.CanPush(p); err != nil {
		return err
	}

	return o.withRetry(ctx, func(ctx context.Context) error {
		var saved *models.Post
		var err error
		if p.LocalOnly {
			saved, err = o.client.CreatePost(ctx, p)
		} else {
			saved, err = o.client.UpdatePost(ctx, p)
		}
		if err != nil {
			return o.mapAuthError(err)
		}
		o.resolver.MarkPushed(ctx, p, saved)
		return o.store.Posts.Upsert(ctx, p)
	})
}

// PushAll pushes every post with unsynced edits, skipping those waiting on
// a conflict decision. Per-post failures are aggregated.
func (o *Orchestrator) PushAll(ctx context.Context) error {
	unsynced, err := o.store.Posts.GetUnsynced(ctx)
	if err != nil {
		return err
	}
	var errs error
	for i := range unsynced {
		p := &unsynced[i]
		if p.ConflictState == models.ConflictDetected {
			o.log.Info(ctx, "skipping push of conflicted post", "post", p.ID)
			continue
		}
		errs = multierr.Append(errs, o.PushPost(ctx, p.ID))
	}
	return errs
}

// ResolveConflict applies the user's choice to a conflicted post. The
// current remote copy is fetched unconditionally so accept-remote adopts
// the server's actual present state, not the stale one that triggered the
// conflict.
func (o *Orchestrator) ResolveConflict(ctx context.Context, id string, choice conflict.Choice) error {
	unlock := o.store.LockEntity(id)
	defer unlock()

	p, err := o.store.Posts.GetByID(ctx, id)
	if err != nil {
		return err
	}

	remote, err := o.fetchRemotePost(ctx, id)
	if err != nil {
		return err
	}

	if remote == nil {
		// deleted upstream while conflicted
		switch choice {
		case conflict.ChoiceAcceptRemote:
			if err := o.resolver.Resolve(ctx, p, nil, choice); err != nil {
				return err
			}
			return o.store.Posts.Delete(ctx, id)
		case conflict.ChoiceKeepLocal:
			if err := o.resolver.Resolve(ctx, p, nil, choice); err != nil {
				return err
			}
			p.LocalOnly = true
			return o.store.Posts.Upsert(ctx, p)
		}
	}

	if err := o.resolver.Resolve(ctx, p, remote, choice); err != nil {
		return err
	}
	if err := o.store.Posts.Upsert(ctx, p); err != nil {
		return err
	}
	return nil
}

// fetchRemotePost pulls the current remote copy of a single post, nil when
// it no longer exists upstream.
func (o *Orchestrator) fetchRemotePost(ctx context.Context, id string) (*models.Post, error) {
	res, err := o.client.FetchPosts(ctx, "")
	if err != nil {
		return nil, o.mapAuthError(err)
	}
	for i := range res.Value {
		if res.Value[i].ID == id {
			return &res.Value[i], nil
		}
	}
	return nil, nil
}

// DeletePost removes a post locally and, unless it only ever existed on
// this device, upstream too.
func (o *Orchestrator) DeletePost(ctx context.Context, id string) error {
	unlock := o.store.LockEntity(id)
	defer unlock()

	p, err := o.store.Posts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !p.LocalOnly {
		err := o.withRetry(ctx, func(ctx context.Context) error {
			err := o.client.DeletePost(ctx, id)
			if err != nil && client.KindOf(err) == client.KindNotFound {
				// already gone upstream
				return nil
			}
			return o.mapAuthError(err)
		})
		if err != nil {
			return err
		}
	}
	if err := o.store.Posts.Delete(ctx, id); err != nil {
		return err
	}
	o.bus.Publish(events.PostAction{Scenario: events.ScenarioDraftDeleted, PostID: id})
	return nil
}
