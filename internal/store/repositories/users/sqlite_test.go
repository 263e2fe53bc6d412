package users

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/ghostmirror/internal/common"
	"github.com/dmitrijs2005/ghostmirror/internal/models"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
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
);`)
	require.NoError(t, err)
	return db
}

func TestSaveAndGet_WithRoles(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	u := &models.User{
		ID:    "u1",
		Name:  "Pat",
		Slug:  "pat",
		Email: "pat@example.com",
		Roles: []models.Role{
			{ID: 1, UUID: "r1", Name: "Author", Description: "writes"},
			{ID: 2, UUID: "r2", Name: "Editor", Description: "edits"},
		},
	}
	require.NoError(t, r.Save(ctx, u))

	got, err := r.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", got.ID)
	assert.Nil(t, got.Bio)
	require.Len(t, got.Roles, 2)
	assert.Equal(t, "Author", got.Roles[0].Name)
	assert.Equal(t, "Editor", got.Roles[1].Name)
}

func TestSave_ReplacesPreviousUserAndRoles(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	first := &models.User{ID: "u1", Name: "Pat", Email: "pat@example.com",
		Roles: []models.Role{{ID: 1, UUID: "r1", Name: "Owner", Description: ""}}}
	require.NoError(t, r.Save(ctx, first))

	second := &models.User{ID: "u2", Name: "Sam", Email: "sam@example.com",
		Roles: []models.Role{{ID: 3, UUID: "r3", Name: "Author", Description: ""}}}
	require.NoError(t, r.Save(ctx, second))

	got, err := r.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u2", got.ID, "a re-login under another account replaces the stored user")
	require.Len(t, got.Roles, 1)
	assert.Equal(t, "Author", got.Roles[0].Name)
}

func TestGet_NotExists(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.Get(context.Background())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestClear_RemovesUserAndLinks(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	u := &models.User{ID: "u1", Name: "Pat", Email: "pat@example.com",
		Roles: []models.Role{{ID: 1, UUID: "r1", Name: "Owner", Description: ""}}}
	require.NoError(t, r.Save(ctx, u))
	require.NoError(t, r.Clear(ctx))

	_, err := r.Get(ctx)
	assert.ErrorIs(t, err, common.ErrNotFound)

	var links int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM user_roles`).Scan(&links))
	assert.Equal(t, 0, links)
}
