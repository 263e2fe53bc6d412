package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/ghostmirror/internal/analytics"
	"github.com/dmitrijs2005/ghostmirror/internal/auth"
	"github.com/dmitrijs2005/ghostmirror/internal/cache"
	"github.com/dmitrijs2005/ghostmirror/internal/client"
	"github.com/dmitrijs2005/ghostmirror/internal/config"
	"github.com/dmitrijs2005/ghostmirror/internal/conflict"
	"github.com/dmitrijs2005/ghostmirror/internal/events"
	"github.com/dmitrijs2005/ghostmirror/internal/logging"
	"github.com/dmitrijs2005/ghostmirror/internal/search"
	"github.com/dmitrijs2005/ghostmirror/internal/store"
	syncpkg "github.com/dmitrijs2005/ghostmirror/internal/sync"
)

// app bundles the wired components a command works with.
type app struct {
	cfg      *config.Config
	log      logging.Logger
	store    *store.Store
	bus      *events.Bus
	cache    *cache.Validator
	resolver *conflict.Resolver
	auth     *auth.Manager
	orch     *syncpkg.Orchestrator

	collector *analytics.Collector
	search    *search.Index
}

// newApp opens the local store and wires the sync machinery. The upstream
// client is only constructed when a blog address is known; purely local
// commands work without one.
func newApp(ctx context.Context) (*app, error) {
	cfg := config.LoadConfig()
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, err
	}

	log := logging.NewTextLogger(os.Stderr, logLevel(cfg.LogLevel))
	bus := events.NewBus()
	collector := analytics.Attach(bus, log)

	st, err := store.Open(ctx, cfg.DatabasePath(), store.Options{
		Logger:  log,
		OnReset: func() { bus.Publish(events.StoreReset{}) },
	})
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:       cfg,
		log:       log,
		store:     st,
		bus:       bus,
		cache:     cache.NewValidator(st.ETags),
		resolver:  conflict.NewResolver(bus, log),
		auth:      auth.NewManager(st.Metadata, cfg.SecretPath(), log),
		collector: collector,
	}
	return a, nil
}

// connect builds the upstream client and the orchestrator around it. The
// blog address comes from the stored session, falling back to config.
func (a *app) connect(ctx context.Context) error {
	blogURL := a.cfg.BlogURL
	if s, err := a.auth.Load(ctx); err == nil && s.BlogURL != "" {
		blogURL = s.BlogURL
	}
	return a.connectTo(ctx, blogURL, true)
}

// connectTo wires the orchestrator against an explicit blog address.
// restore controls whether the persisted session is installed.
func (a *app) connectTo(ctx context.Context, blogURL string, restore bool) error {
	if blogURL == "" {
		return fmt.Errorf("no blog address: log in first or set blog_url in the config")
	}
	c, err := client.New(blogURL, a.log)
	if err != nil {
		return err
	}
	a.orch = syncpkg.NewOrchestrator(syncpkg.Options{
		Client:   c,
		Store:    a.store,
		Cache:    a.cache,
		Resolver: a.resolver,
		Auth:     a.auth,
		Bus:      a.bus,
		Logger:   a.log,
	})
	if restore {
		if err := a.orch.RestoreSession(ctx); err != nil {
			return err
		}
	}
	return nil
}

// local wires the orchestrator without an upstream client for commands
// that only touch the store.
func (a *app) local() {
	a.orch = syncpkg.NewOrchestrator(syncpkg.Options{
		Store:    a.store,
		Cache:    a.cache,
		Resolver: a.resolver,
		Auth:     a.auth,
		Bus:      a.bus,
		Logger:   a.log,
	})
}

// openSearch opens the full-text index lazily.
func (a *app) openSearch() (*search.Index, error) {
	if a.search != nil {
		return a.search, nil
	}
	idx, err := search.Open(a.cfg.SearchIndexPath())
	if err != nil {
		return nil, err
	}
	a.search = idx
	return idx, nil
}

func (a *app) Close() {
	if a.search != nil {
		_ = a.search.Close()
	}
	if a.collector != nil {
		a.collector.Detach()
	}
	_ = a.store.Close()
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
