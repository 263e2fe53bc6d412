package posts

import (
	"context"
	"database/sql"
	"testing"
	"time"

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
);`)
	require.NoError(t, err)
	return db
}

func samplePost(id string) *models.Post {
	excerpt := "short"
	updated := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &models.Post{
		ID:            id,
		UUID:          "uuid-" + id,
		Slug:          "slug-" + id,
		Title:         "Title " + id,
		Markdown:      "# body",
		CustomExcerpt: &excerpt,
		Status:        models.StatusDraft,
		UpdatedAt:     updated,
		ConflictState: models.ConflictNone,
	}
}

func TestUpsert_InsertThenGet(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	slug := "go"
	p := samplePost("p1")
	p.Tags = []models.Tag{
		{ID: "t1", Name: "Go", Slug: &slug},
		{ID: "t2", Name: "News"},
	}
	require.NoError(t, r.Upsert(ctx, p))

	got, err := r.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, p.Title, got.Title)
	assert.Equal(t, p.UpdatedAt, got.UpdatedAt)
	require.NotNil(t, got.CustomExcerpt)
	assert.Equal(t, "short", *got.CustomExcerpt)
	assert.Nil(t, got.HTML)
	require.Len(t, got.Tags, 2)
	assert.Equal(t, "Go", got.Tags[0].Name)
	assert.Equal(t, "News", got.Tags[1].Name)
	assert.False(t, got.LocalOnly)
}

func TestUpsert_ReplacesRowAndTagLinks(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	p := samplePost("p1")
	p.Tags = []models.Tag{{ID: "t1", Name: "Go"}}
	require.NoError(t, r.Upsert(ctx, p))

	p.Title = "renamed"
	p.Tags = []models.Tag{{ID: "t2", Name: "News"}}
	require.NoError(t, r.Upsert(ctx, p))

	got, err := r.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "t2", got.Tags[0].ID)
}

func TestGetByID_NotExists(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.GetByID(context.Background(), "absent")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetAll_AttachesTagsToOwners(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	p1 := samplePost("p1")
	p1.Tags = []models.Tag{{ID: "t1", Name: "Go"}}
	p2 := samplePost("p2")
	require.NoError(t, r.Upsert(ctx, p1))
	require.NoError(t, r.Upsert(ctx, p2))

	all, err := r.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)

	byID := map[string][]models.Tag{}
	for _, p := range all {
		byID[p.ID] = p.Tags
	}
	assert.Len(t, byID["p1"], 1)
	assert.Empty(t, byID["p2"])
}

func TestGetUnsynced_SelectsEditedAndLocalOnly(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	clean := samplePost("clean")
	edited := samplePost("edited")
	edited.ConflictState = models.ConflictLocalEdits
	conflicted := samplePost("conflicted")
	conflicted.ConflictState = models.ConflictDetected
	localOnly := samplePost("local")
	localOnly.LocalOnly = true

	for _, p := range []*models.Post{clean, edited, conflicted, localOnly} {
		require.NoError(t, r.Upsert(ctx, p))
	}

	unsynced, err := r.GetUnsynced(ctx)
	require.NoError(t, err)

	ids := map[string]bool{}
	for _, p := range unsynced {
		ids[p.ID] = true
	}
	assert.Equal(t, map[string]bool{"edited": true, "conflicted": true, "local": true}, ids)
}

func TestSetConflictState_UpdatesOnlyBookkeeping(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	p := samplePost("p1")
	require.NoError(t, r.Upsert(ctx, p))

	base := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	require.NoError(t, r.SetConflictState(ctx, "p1", models.ConflictDetected, &base))

	got, err := r.GetByID(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.ConflictDetected, got.ConflictState)
	require.NotNil(t, got.BaseUpdatedAt)
	assert.Equal(t, base, *got.BaseUpdatedAt)
	assert.Equal(t, p.Title, got.Title, "content is untouched")

	err = r.SetConflictState(ctx, "absent", models.ConflictNone, nil)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDelete_RemovesPostAndLinks(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	p := samplePost("p1")
	p.Tags = []models.Tag{{ID: "t1", Name: "Go"}}
	require.NoError(t, r.Upsert(ctx, p))

	require.NoError(t, r.Delete(ctx, "p1"))

	_, err := r.GetByID(ctx, "p1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	var links int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM post_tags WHERE post_id = 'p1'`).Scan(&links))
	assert.Equal(t, 0, links)

	assert.ErrorIs(t, r.Delete(ctx, "p1"), common.ErrNotFound)
}
