package settings

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
CREATE TABLE settings (
  id    INTEGER PRIMARY KEY,
  key   TEXT NOT NULL,
  value TEXT NOT NULL DEFAULT ''
);
CREATE TABLE configuration_params (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL DEFAULT ''
);`)
	require.NoError(t, err)
	return db
}

func TestReplaceSettings_SwapsWholeSet(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.ReplaceSettings(ctx, []models.Setting{
		{ID: 1, Key: "title", Value: "My Blog"},
		{ID: 2, Key: "description", Value: "notes"},
	}))
	require.NoError(t, r.ReplaceSettings(ctx, []models.Setting{
		{ID: 1, Key: "title", Value: "Renamed"},
	}))

	v, err := r.GetSetting(ctx, "title")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", v)

	_, err = r.GetSetting(ctx, "description")
	assert.ErrorIs(t, err, common.ErrNotFound, "settings absent from the new set are gone")
}

func TestGetSetting_NotExists(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)

	_, err := r.GetSetting(context.Background(), "absent")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestReplaceConfiguration_RoundTrip(t *testing.T) {
	db := setupDB(t)
	r := NewSQLiteRepository(db)
	ctx := context.Background()

	require.NoError(t, r.ReplaceConfiguration(ctx, []models.ConfigurationParam{
		{Key: "version", Value: "0.11.14"},
		{Key: "fileStorage", Value: "true"},
		{Key: "blogTitle", Value: ""},
	}))

	v, err := r.GetConfigurationParam(ctx, "version")
	require.NoError(t, err)
	assert.Equal(t, "0.11.14", v)

	// "" is a legitimate stored value, distinct from absence
	v, err = r.GetConfigurationParam(ctx, "blogTitle")
	require.NoError(t, err)
	assert.Equal(t, "", v)

	_, err = r.GetConfigurationParam(ctx, "absent")
	assert.ErrorIs(t, err, common.ErrNotFound)
}
