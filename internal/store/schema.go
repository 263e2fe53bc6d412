package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/ghostmirror/internal/dbx"
)

// contentSchema is the current shape of the mirrored-content tables, i.e.
// what a fresh install creates directly. Legacy stores reach the same shape
// by running the migration steps in order. The destructive-reset step also
// recreates exactly this, which is why app_metadata lives in its own DDL.
const contentSchema = `
CREATE TABLE posts (
  id              TEXT PRIMARY KEY,
  uuid            TEXT NOT NULL DEFAULT '',
  slug            TEXT NOT NULL,
  title           TEXT NOT NULL DEFAULT '',
  markdown        TEXT NOT NULL DEFAULT '',
  html            TEXT,
  custom_excerpt  TEXT,
  feature_image   TEXT,
  status          TEXT NOT NULL DEFAULT 'draft',
  created_at      TEXT,
  published_at    TEXT,
  updated_at      TEXT NOT NULL DEFAULT '',
  meta_title      TEXT,
  meta_description TEXT,
  conflict_state  TEXT NOT NULL DEFAULT 'NONE',
  base_updated_at TEXT,
  local_only      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE tags (
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
);

CREATE TABLE post_tags (
  post_id    TEXT NOT NULL,
  tag_id     TEXT NOT NULL,
  sort_order INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (post_id, tag_id)
);

CREATE TABLE users (
  id            TEXT PRIMARY KEY,
  name          TEXT NOT NULL,
  slug          TEXT NOT NULL DEFAULT '',
  email         TEXT NOT NULL,
  profile_image TEXT,
  bio           TEXT
);

CREATE TABLE roles (
  id          INTEGER PRIMARY KEY,
  uuid        TEXT NOT NULL,
  name        TEXT NOT NULL,
  description TEXT NOT NULL
);

CREATE TABLE user_roles (
  user_id TEXT NOT NULL,
  role_id INTEGER NOT NULL,
  PRIMARY KEY (user_id, role_id)
);

CREATE TABLE settings (
  id    INTEGER PRIMARY KEY,
  key   TEXT NOT NULL,
  value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE configuration_params (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL DEFAULT ''
);

CREATE TABLE etags (
  type  TEXT NOT NULL,
  value TEXT NOT NULL
);
`

// metadataSchema holds app-level key/value state (login flag, encrypted
// credentials). It survives the destructive reset as a table; only the
// login-related keys are deleted from it.
const metadataSchema = `
CREATE TABLE IF NOT EXISTS app_metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);
`

// tableExists checks whether a table exists in the database.
func tableExists(ctx context.Context, q dbx.DBTX, table string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// columnInfo reports whether a column exists on a table and whether it
// carries a NOT NULL constraint.
func columnInfo(ctx context.Context, q dbx.DBTX, table, column string) (exists, notNull bool, err error) {
	rows, err := q.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			cid       int
			name      string
			ctype     string
			nn        int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &ctype, &nn, &dfltValue, &pk); err != nil {
			return false, false, err
		}
		if name == column {
			return true, nn != 0, nil
		}
	}
	return false, false, rows.Err()
}

func columnExists(ctx context.Context, q dbx.DBTX, table, column string) (bool, error) {
	exists, _, err := columnInfo(ctx, q, table, column)
	return exists, err
}

func columnNotNull(ctx context.Context, q dbx.DBTX, table, column string) (bool, error) {
	_, notNull, err := columnInfo(ctx, q, table, column)
	return notNull, err
}
