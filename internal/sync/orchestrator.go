// Package sync pulls remote blog state into the local store and pushes
// local edits back, sequencing the cache validator, the conflict resolver
// and the upstream client.
package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/multierr"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrijs2005/ghostmirror/internal/auth"
	"github.com/dmitrijs2005/ghostmirror/internal/cache"
	"github.com/dmitrijs2005/ghostmirror/internal/client"
	"github.com/dmitrijs2005/ghostmirror/internal/common"
	"github.com/dmitrijs2005/ghostmirror/internal/conflict"
	"github.com/dmitrijs2005/ghostmirror/internal/events"
	"github.com/dmitrijs2005/ghostmirror/internal/logging"
	"github.com/dmitrijs2005/ghostmirror/internal/models"
	"github.com/dmitrijs2005/ghostmirror/internal/store"
)

const metaBlogVersion = "blog_version"

// Orchestrator owns the pull/push cycle. Concurrent refreshes of the same
// resource class are coalesced into a single upstream request.
type Orchestrator struct {
	client   client.Client
	store    *store.Store
	cache    *cache.Validator
	resolver *conflict.Resolver
	auth     *auth.Manager
	bus      *events.Bus
	log      logging.Logger

	group singleflight.Group
	now   func() time.Time
}

type Options struct {
	Client   client.Client
	Store    *store.Store
	Cache    *cache.Validator
	Resolver *conflict.Resolver
	Auth     *auth.Manager
	Bus      *events.Bus
	Logger   logging.Logger
}

func NewOrchestrator(opts Options) *Orchestrator {
	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Orchestrator{
		client:   opts.Client,
		store:    opts.Store,
		cache:    opts.Cache,
		resolver: opts.Resolver,
		auth:     opts.Auth,
		bus:      opts.Bus,
		log:      log,
		now:      time.Now,
	}
}

// sessionSetter is implemented by clients that accept a restored session.
type sessionSetter interface {
	SetSession(*client.Session)
}

// RestoreSession installs the persisted session into the client,
// refreshing the access token first when it has lapsed. Local data stays
// readable when this fails; only upstream calls need it.
func (o *Orchestrator) RestoreSession(ctx context.Context) error {
	s, err := o.auth.Load(ctx)
	if err != nil {
		return err
	}
	if auth.TokenExpired(s.AccessToken, o.now()) {
		refreshed, err := o.client.RefreshSession(ctx, s.RefreshToken)
		if err != nil {
			if client.KindOf(err) == client.KindUnauthorized {
				return fmt.Errorf("%w: %v", common.ErrCredentialsExpired, err)
			}
			return err
		}
		s.AccessToken = refreshed.AccessToken
		s.RefreshToken = refreshed.RefreshToken
		if err := o.auth.Save(ctx, s); err != nil {
			return err
		}
	}
	if setter, ok := o.client.(sessionSetter); ok {
		setter.SetSession(&client.Session{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken})
	}
	return nil
}

// Login authenticates against the blog and persists the session.
func (o *Orchestrator) Login(ctx context.Context, creds client.Credentials) error {
	s, err := o.client.Login(ctx, creds)
	if err != nil {
		o.bus.Publish(events.LoginError{BlogURL: creds.BlogURL, Err: err})
		return err
	}
	stored := &auth.StoredSession{
		BlogURL:      creds.BlogURL,
		Email:        creds.Email,
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
	}
	if err := o.auth.Save(ctx, stored); err != nil {
		return err
	}
	o.bus.Publish(events.LoginDone{BlogURL: creds.BlogURL})
	return nil
}

// Logout drops the session and the cached user. Mirrored content and any
// unsynced edits stay in place.
func (o *Orchestrator) Logout(ctx context.Context) error {
	if o.client != nil {
		_ = o.client.Logout(ctx)
	}
	var errs error
	errs = multierr.Append(errs, o.auth.Clear(ctx))
	errs = multierr.Append(errs, o.store.Users.Clear(ctx))
	errs = multierr.Append(errs, o.cache.Invalidate(ctx, models.TagCurrentUser))
	if errs == nil {
		o.bus.Publish(events.LogoutDone{})
	}
	return errs
}

// SyncAll runs a full cycle: push local edits first so the subsequent
// pull sees the server's acknowledged state, then refresh every resource
// class. Per-class failures are aggregated, not short-circuited.
func (o *Orchestrator) SyncAll(ctx context.Context) error {
	var errs error
	errs = multierr.Append(errs, o.PushAll(ctx))
	errs = multierr.Append(errs, o.RefreshPosts(ctx))
	errs = multierr.Append(errs, o.RefreshUser(ctx))
	errs = multierr.Append(errs, o.RefreshSettings(ctx))
	errs = multierr.Append(errs, o.RefreshConfiguration(ctx))
	errs = multierr.Append(errs, o.LoadVersion(ctx))
	return errs
}

// withRetry retries transient upstream failures with exponential backoff.
func (o *Orchestrator) withRetry(ctx context.Context, op func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := op(ctx)
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Retryable() {
			return retry.RetryableError(err)
		}
		return err
	})
}

// RefreshPosts pulls the post list and reconciles it with local state.
// The validation token is recorded only after every change is persisted,
// so an interrupted refresh refetches instead of trusting a half-applied
// one.
func (o *Orchestrator) RefreshPosts(ctx context.Context) error {
	_, err, _ := o.group.Do(string(models.TagAllPosts), func() (any, error) {
		return nil, o.withRetry(ctx, o.refreshPosts)
	})
	return err
}

func (o *Orchestrator) refreshPosts(ctx context.Context) error {
	token, err := o.cache.Token(ctx, models.TagAllPosts)
	if err != nil {
		return err
	}
	res, err := o.client.FetchPosts(ctx, token)
	if err != nil {
		return o.mapAuthError(err)
	}
	if res.NotModified {
		o.log.Debug(ctx, "posts unchanged upstream")
		return nil
	}

	local, err := o.store.Posts.GetAll(ctx)
	if err != nil {
		return err
	}
	localByID := make(map[string]*models.Post, len(local))
	for i := range local {
		localByID[local[i].ID] = &local[i]
	}

	var errs error
	seen := make(map[string]bool, len(res.Value))
	for i := range res.Value {
		remote := &res.Value[i]
		seen[remote.ID] = true
		errs = multierr.Append(errs, o.reconcilePost(ctx, localByID[remote.ID], remote))
	}

	// posts deleted upstream disappear locally too, unless they carry
	// unsynced edits
	for id, lp := range localByID {
		if seen[id] || lp.LocalOnly || lp.HasUnsyncedEdits() {
			continue
		}
		errs = multierr.Append(errs, o.store.Posts.Delete(ctx, id))
	}
	if errs != nil {
		return errs
	}
	return o.cache.RecordToken(ctx, models.TagAllPosts, res.Token)
}

// reconcilePost applies one remote post against its local counterpart.
// Local unsynced edits are never overwritten; a divergent remote only
// flips the conflict flag.
func (o *Orchestrator) reconcilePost(ctx context.Context, local, remote *models.Post) error {
	if local == nil || !local.HasUnsyncedEdits() {
		if local != nil {
			remote.ConflictState = local.ConflictState
			if remote.ConflictState == "" {
				remote.ConflictState = models.ConflictNone
			}
		}
		unlock := o.store.LockEntity(remote.ID)
		defer unlock()
		return o.store.Posts.Upsert(ctx, remote)
	}

	unlock := o.store.LockEntity(local.ID)
	defer unlock()
	if o.resolver.ObserveRemote(ctx, local, remote.UpdatedAt) {
		return o.store.Posts.SetConflictState(ctx, local.ID, local.ConflictState, local.BaseUpdatedAt)
	}
	return nil
}

// RefreshUser pulls the current user with roles.
func (o *Orchestrator) RefreshUser(ctx context.Context) error {
	_, err, _ := o.group.Do(string(models.TagCurrentUser), func() (any, error) {
		return nil, o.withRetry(ctx, func(ctx context.Context) error {
			token, err := o.cache.Token(ctx, models.TagCurrentUser)
			if err != nil {
				return err
			}
			res, err := o.client.FetchCurrentUser(ctx, token)
			if err != nil {
				return o.mapAuthError(err)
			}
			if res.NotModified {
				return nil
			}
			if err := o.store.Users.Save(ctx, &res.Value); err != nil {
				return err
			}
			return o.cache.RecordToken(ctx, models.TagCurrentUser, res.Token)
		})
	})
	return err
}

// RefreshSettings pulls the blog settings.
func (o *Orchestrator) RefreshSettings(ctx context.Context) error {
	_, err, _ := o.group.Do(string(models.TagSettings), func() (any, error) {
		return nil, o.withRetry(ctx, func(ctx context.Context) error {
			token, err := o.cache.Token(ctx, models.TagSettings)
			if err != nil {
				return err
			}
			res, err := o.client.FetchSettings(ctx, token)
			if err != nil {
				return o.mapAuthError(err)
			}
			if res.NotModified {
				return nil
			}
			if err := o.store.Settings.ReplaceSettings(ctx, res.Value); err != nil {
				return err
			}
			return o.cache.RecordToken(ctx, models.TagSettings, res.Token)
		})
	})
	return err
}

// RefreshConfiguration pulls the flattened configuration document.
func (o *Orchestrator) RefreshConfiguration(ctx context.Context) error {
	_, err, _ := o.group.Do(string(models.TagConfiguration), func() (any, error) {
		return nil, o.withRetry(ctx, func(ctx context.Context) error {
			token, err := o.cache.Token(ctx, models.TagConfiguration)
			if err != nil {
				return err
			}
			res, err := o.client.FetchConfiguration(ctx, token)
			if err != nil {
				return o.mapAuthError(err)
			}
			if res.NotModified {
				return nil
			}
			if err := o.store.Settings.ReplaceConfiguration(ctx, res.Value); err != nil {
				return err
			}
			return o.cache.RecordToken(ctx, models.TagConfiguration, res.Token)
		})
	})
	return err
}

// LoadVersion pulls the blog's server version and announces it.
func (o *Orchestrator) LoadVersion(ctx context.Context) error {
	_, err, _ := o.group.Do(string(models.TagBlogVersion), func() (any, error) {
		return nil, o.withRetry(ctx, func(ctx context.Context) error {
			token, err := o.cache.Token(ctx, models.TagBlogVersion)
			if err != nil {
				return err
			}
			res, err := o.client.FetchVersion(ctx, token)
			if err != nil {
				return o.mapAuthError(err)
			}
			if res.NotModified {
				return nil
			}
			if err := o.store.Metadata.Set(ctx, metaBlogVersion, []byte(res.Value)); err != nil {
				return err
			}
			if err := o.cache.RecordToken(ctx, models.TagBlogVersion, res.Token); err != nil {
				return err
			}
			o.bus.Publish(events.BlogVersionLoaded{Version: res.Value})
			return nil
		})
	})
	return err
}

// BlogVersion returns the last version seen by LoadVersion, "" when none.
func (o *Orchestrator) BlogVersion(ctx context.Context) (string, error) {
	v, err := o.store.Metadata.Get(ctx, metaBlogVersion)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

// UploadFile pushes a file to the blog and returns its public URL.
func (o *Orchestrator) UploadFile(ctx context.Context, filename string, data []byte) (string, error) {
	var uploaded string
	err := o.withRetry(ctx, func(ctx context.Context) error {
		var err error
		uploaded, err = o.client.UploadFile(ctx, filename, data)
		return o.mapAuthError(err)
	})
	if err != nil {
		return "", err
	}
	o.bus.Publish(events.FileUploaded{URL: uploaded})
	return uploaded, nil
}

// mapAuthError marks an unauthorized answer as expired credentials so
// callers can prompt for a fresh login. Local data and unsynced edits are
// untouched either way.
func (o *Orchestrator) mapAuthError(err error) error {
	if err == nil {
		return nil
	}
	if client.KindOf(err) == client.KindUnauthorized {
		return fmt.Errorf("%w: %v", common.ErrCredentialsExpired, err)
	}
	return err
}
