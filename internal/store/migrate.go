package store

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"

	"github.com/dmitrijs2005/ghostmirror/internal/common"
	"github.com/dmitrijs2005/ghostmirror/internal/logging"
)

// CurrentVersion is the schema version a fully migrated store carries,
// persisted in PRAGMA user_version.
const CurrentVersion = 5

// Step is one schema upgrade. Version is the store version the step
// upgrades from: Migrate applies every step with Version in
// [oldVersion, newVersion), in ascending order. Each step runs in its own
// transaction and is guarded by live schema inspection, so re-running a
// step that already applied is a no-op.
type Step struct {
	Version     int
	Description string
	apply       func(ctx context.Context, tx *sql.Tx) error
}

// Migrator applies ordered schema upgrade steps.
//
// Two migrators with the same step set compare equal and produce the same
// Fingerprint: identity is the ordered (version, description) pairs, never
// the instance. The persistence layer refuses to reopen a store under a
// migrator whose fingerprint differs from the one that last touched it.
type Migrator struct {
	steps   []Step
	log     logging.Logger
	onReset func()

	resetRequested bool
}

// NewMigrator builds the canonical migrator. onReset, if non-nil, is called
// after a destructive-reset step committed, so the caller can force
// re-authentication; it plays no part in migrator identity.
func NewMigrator(log logging.Logger, onReset func()) *Migrator {
	if log == nil {
		log = logging.NewNopLogger()
	}
	m := &Migrator{log: log, onReset: onReset}
	m.steps = m.buildSteps()
	return m
}

// Versions returns the ascending step versions, mostly for logging.
func (m *Migrator) Versions() []int {
	vs := make([]int, len(m.steps))
	for i, s := range m.steps {
		vs[i] = s.Version
	}
	return vs
}

// Equal reports value equality: same step versions and descriptions in the
// same order.
func (m *Migrator) Equal(other *Migrator) bool {
	if other == nil || len(m.steps) != len(other.steps) {
		return false
	}
	for i := range m.steps {
		if m.steps[i].Version != other.steps[i].Version ||
			m.steps[i].Description != other.steps[i].Description {
			return false
		}
	}
	return true
}

// Fingerprint hashes the migrator's step identity. Stable across process
// restarts for the same step set.
func (m *Migrator) Fingerprint() uint64 {
	h := fnv.New64a()
	for _, s := range m.steps {
		fmt.Fprintf(h, "%d:%s;", s.Version, s.Description)
	}
	return h.Sum64()
}

// SchemaVersion reads the persisted schema version of an open database.
func SchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v int
	if err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, fmt.Errorf("read user_version: %w", err)
	}
	return v, nil
}

// Migrate applies every step whose version lies in [oldVersion, newVersion),
// in ascending order, each in its own transaction. The stored version is
// bumped inside the same transaction as the step, so a failed step leaves
// the store exactly at the version before it. Migrate(v, v) is a no-op.
func (m *Migrator) Migrate(ctx context.Context, db *sql.DB, oldVersion, newVersion int) error {
	if oldVersion == newVersion {
		return nil
	}
	if newVersion < oldVersion {
		return fmt.Errorf("%w: version cannot decrease (%d -> %d)",
			common.ErrMigrationFailed, oldVersion, newVersion)
	}

	m.log.Info(ctx, "migrating store", "from", oldVersion, "to", newVersion)
	m.resetRequested = false

	for _, step := range m.steps {
		if step.Version < oldVersion || step.Version >= newVersion {
			continue
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("%w: begin step %d: %v", common.ErrMigrationFailed, step.Version, err)
		}

		m.log.Info(ctx, "applying migration step", "version", step.Version, "description", step.Description)

		if err := step.apply(ctx, tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: step %d (%s): %v",
				common.ErrMigrationFailed, step.Version, step.Description, err)
		}
		// PRAGMA does not accept bind parameters
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", step.Version+1)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: set version %d: %v", common.ErrMigrationFailed, step.Version+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("%w: commit step %d: %v", common.ErrMigrationFailed, step.Version, err)
		}
	}

	// Steps may be sparse; settle the recorded version at the target.
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", newVersion)); err != nil {
		return fmt.Errorf("%w: set final version: %v", common.ErrMigrationFailed, err)
	}

	if m.resetRequested && m.onReset != nil {
		m.onReset()
	}
	return nil
}

func (m *Migrator) buildSteps() []Step {
	return []Step{
		{
			Version:     0,
			Description: "backfill null slugs, align column nullability with upstream schema",
			apply:       m.stepAlignNullability,
		},
		{
			Version:     1,
			Description: "add custom excerpt field to posts",
			apply:       m.stepAddCustomExcerpt,
		},
		{
			Version:     2,
			Description: "invalidate user/post etags, add roles and user-role relation",
			apply:       m.stepAddRoles,
		},
		{
			Version:     3,
			Description: "add conflict state field to posts",
			apply:       m.stepAddConflictState,
		},
		{
			Version:     4,
			Description: "drop all data for the upstream 1.0 upgrade",
			apply:       m.stepDestructiveReset,
		},
	}
}

// stepAlignNullability rewrites null-valued slugs to "" and tightens the
// column to NOT NULL, then loosens the columns the upstream schema declares
// nullable. SQLite cannot alter constraints in place, so affected tables
// are rebuilt and data copied over. Guarded per table: a table already in
// the target shape is left alone.
func (m *Migrator) stepAlignNullability(ctx context.Context, tx *sql.Tx) error {
	notNull, err := columnNotNull(ctx, tx, "posts", "slug")
	if err != nil {
		return err
	}
	if !notNull {
		var nullSlugs int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM posts WHERE slug IS NULL`).Scan(&nullSlugs); err != nil {
			return err
		}
		m.log.Info(ctx, "converting null slugs to empty string", "count", nullSlugs)

		err := rebuildTable(ctx, tx, "posts", `
CREATE TABLE posts_new (
  id              TEXT PRIMARY KEY,
  uuid            TEXT NOT NULL DEFAULT '',
  slug            TEXT NOT NULL,
  title           TEXT NOT NULL DEFAULT '',
  markdown        TEXT NOT NULL DEFAULT '',
  html            TEXT,
  feature_image   TEXT,
  status          TEXT NOT NULL DEFAULT 'draft',
  created_at      TEXT,
  published_at    TEXT,
  updated_at      TEXT NOT NULL DEFAULT '',
  meta_title      TEXT,
  meta_description TEXT
)`, `
INSERT INTO posts_new (id, uuid, slug, title, markdown, html, feature_image,
                       status, created_at, published_at, updated_at, meta_title, meta_description)
SELECT id, uuid, COALESCE(slug, ''), title, markdown, html, feature_image,
       status, created_at, published_at, updated_at, meta_title, meta_description
FROM posts`)
		if err != nil {
			return fmt.Errorf("rebuild posts: %w", err)
		}
	}

	if notNull, err := columnNotNull(ctx, tx, "tags", "slug"); err != nil {
		return err
	} else if notNull {
		err := rebuildTable(ctx, tx, "tags", `
CREATE TABLE tags_new (
  id              TEXT PRIMARY KEY,
  uuid            TEXT NOT NULL DEFAULT '',
  name            TEXT NOT NULL,
  slug            TEXT,
  description     TEXT,
  feature_image   TEXT,
  meta_title      TEXT,
  meta_description TEXT,
  created_at      TEXT,
  updated_at      TEXT
)`, `
INSERT INTO tags_new (id, uuid, name, slug, description, feature_image,
                      meta_title, meta_description, created_at, updated_at)
SELECT id, uuid, name, slug, description, feature_image,
       meta_title, meta_description, created_at, updated_at
FROM tags`)
		if err != nil {
			return fmt.Errorf("rebuild tags: %w", err)
		}
	}

	if notNull, err := columnNotNull(ctx, tx, "users", "bio"); err != nil {
		return err
	} else if notNull {
		err := rebuildTable(ctx, tx, "users", `
CREATE TABLE users_new (
  id            TEXT PRIMARY KEY,
  name          TEXT NOT NULL,
  slug          TEXT NOT NULL DEFAULT '',
  email         TEXT NOT NULL,
  profile_image TEXT,
  bio           TEXT
)`, `
INSERT INTO users_new (id, name, slug, email, profile_image, bio)
SELECT id, name, slug, email, profile_image, bio
FROM users`)
		if err != nil {
			return fmt.Errorf("rebuild users: %w", err)
		}
	}

	return nil
}

func (m *Migrator) stepAddCustomExcerpt(ctx context.Context, tx *sql.Tx) error {
	exists, err := columnExists(ctx, tx, "posts", "custom_excerpt")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	m.log.Info(ctx, "adding custom excerpt field to posts")
	_, err = tx.ExecContext(ctx, `ALTER TABLE posts ADD COLUMN custom_excerpt TEXT`)
	return err
}

// stepAddRoles deletes the user/post etags so the data is fetched and
// stored again with role-based permissions enforced, then creates the
// roles lookup table and the user-role relation if they do not exist.
func (m *Migrator) stepAddRoles(ctx context.Context, tx *sql.Tx) error {
	m.log.Info(ctx, "deleting user/post etags to refresh data completely")
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM etags WHERE type = ? OR type = ?`, "CURRENT_USER", "ALL_POSTS"); err != nil {
		return err
	}

	if exists, err := tableExists(ctx, tx, "roles"); err != nil {
		return err
	} else if !exists {
		m.log.Info(ctx, "creating roles table")
		if _, err := tx.ExecContext(ctx, `
CREATE TABLE roles (
  id          INTEGER PRIMARY KEY,
  uuid        TEXT NOT NULL,
  name        TEXT NOT NULL,
  description TEXT NOT NULL
)`); err != nil {
			return err
		}
	}

	if exists, err := tableExists(ctx, tx, "user_roles"); err != nil {
		return err
	} else if !exists {
		m.log.Info(ctx, "adding role relation to users")
		if _, err := tx.ExecContext(ctx, `
CREATE TABLE user_roles (
  user_id TEXT NOT NULL,
  role_id INTEGER NOT NULL,
  PRIMARY KEY (user_id, role_id)
)`); err != nil {
			return err
		}
	}
	return nil
}

func (m *Migrator) stepAddConflictState(ctx context.Context, tx *sql.Tx) error {
	exists, err := columnExists(ctx, tx, "posts", "conflict_state")
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	m.log.Info(ctx, "adding conflict state field to posts")
	_, err = tx.ExecContext(ctx,
		`ALTER TABLE posts ADD COLUMN conflict_state TEXT NOT NULL DEFAULT 'NONE'`)
	return err
}

// stepDestructiveReset is the one-time escape hatch for the upstream 1.0
// bump: cached content cannot be migrated, so all of it is dropped, the
// current schema recreated, and login state plus stored credentials
// cleared. The caller is notified through onReset after commit.
func (m *Migrator) stepDestructiveReset(ctx context.Context, tx *sql.Tx) error {
	m.log.Warn(ctx, "dropping all cached content for upstream major upgrade")

	for _, table := range []string{
		"posts", "tags", "post_tags", "users", "roles", "user_roles",
		"settings", "configuration_params", "etags",
	} {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table)); err != nil {
			return fmt.Errorf("drop %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, contentSchema); err != nil {
		return fmt.Errorf("recreate schema: %w", err)
	}

	if exists, err := tableExists(ctx, tx, "app_metadata"); err != nil {
		return err
	} else if exists {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM app_metadata WHERE key IN (?, ?, ?)`,
			"logged_in", "credentials", "credentials_nonce"); err != nil {
			return err
		}
	}

	m.resetRequested = true
	return nil
}

// rebuildTable swaps a table for a rebuilt copy: createSQL must create
// <table>_new, copySQL must move the rows over.
func rebuildTable(ctx context.Context, tx *sql.Tx, table, createSQL, copySQL string) error {
	if _, err := tx.ExecContext(ctx, createSQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, copySQL); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DROP TABLE %s", table)); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		fmt.Sprintf("ALTER TABLE %s_new RENAME TO %s", table, table))
	return err
}
