// Package store owns local persistence for the blog mirror: it opens the
// SQLite database, guarantees the schema is current before any other
// operation, and hands out typed repositories. Entities are referenced by
// id across reconciliation boundaries, never by live row handles, so the
// store is free to rebuild or drop tables during migration.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/ghostmirror/internal/logging"
	"github.com/dmitrijs2005/ghostmirror/internal/store/repositories/etags"
	"github.com/dmitrijs2005/ghostmirror/internal/store/repositories/metadata"
	"github.com/dmitrijs2005/ghostmirror/internal/store/repositories/posts"
	"github.com/dmitrijs2005/ghostmirror/internal/store/repositories/settings"
	"github.com/dmitrijs2005/ghostmirror/internal/store/repositories/users"
)

// Options configures Open.
type Options struct {
	Logger logging.Logger
	// OnReset is invoked when a destructive migration wiped the cached
	// content; callers should force re-authentication.
	OnReset func()
}

// Store is the open, migrated local database plus its repositories.
type Store struct {
	db  *sql.DB
	log logging.Logger

	Posts    posts.Repository
	Users    users.Repository
	ETags    etags.Repository
	Settings settings.Repository
	Metadata metadata.Repository

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open opens (or creates) the store at dsn and migrates it to
// CurrentVersion before wiring repositories. A migration failure is fatal:
// the store cannot be opened and used inconsistently.
func Open(ctx context.Context, dsn string, opts Options) (*Store, error) {
	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// SQLite allows one writer; a single pooled connection keeps
	// transactions from tripping over each other.
	db.SetMaxOpenConns(1)

	if err := prepare(ctx, db, log, opts.OnReset); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{
		db:       db,
		log:      log,
		Posts:    posts.NewSQLiteRepository(db),
		Users:    users.NewSQLiteRepository(db),
		ETags:    etags.NewSQLiteRepository(db),
		Settings: settings.NewSQLiteRepository(db),
		Metadata: metadata.NewSQLiteRepository(db),
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

// prepare creates a fresh schema or migrates a legacy one.
func prepare(ctx context.Context, db *sql.DB, log logging.Logger, onReset func()) error {
	if _, err := db.ExecContext(ctx, metadataSchema); err != nil {
		return fmt.Errorf("create app_metadata: %w", err)
	}

	version, err := SchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	hasContent, err := tableExists(ctx, db, "posts")
	if err != nil {
		return err
	}
	if !hasContent && version == 0 {
		// Fresh install: create the current shape directly, no steps to run.
		if _, err := db.ExecContext(ctx, contentSchema); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", CurrentVersion)); err != nil {
			return fmt.Errorf("stamp schema version: %w", err)
		}
		log.Info(ctx, "created store", "schema_version", CurrentVersion)
		return nil
	}

	m := NewMigrator(log, onReset)
	if err := m.Migrate(ctx, db, version, CurrentVersion); err != nil {
		return err
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the raw handle for components the store composes with
// (search reindexing, tests).
func (s *Store) DB() *sql.DB { return s.db }

// LockEntity serializes writes to a single entity id: a pending auto-save
// and a pending manual save of the same post may not interleave, while
// writes to different entities proceed concurrently. The returned func
// releases the lock.
func (s *Store) LockEntity(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}
