package auth

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/ghostmirror/internal/common"
	"github.com/dmitrijs2005/ghostmirror/internal/store/repositories/metadata"
)

func setupManager(t *testing.T) *Manager {
	t.Helper()
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx,
		`CREATE TABLE app_metadata (key TEXT PRIMARY KEY, value BLOB)`)
	require.NoError(t, err)

	return NewManager(metadata.NewSQLiteRepository(db),
		filepath.Join(t.TempDir(), "install.secret"), nil)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	s := &StoredSession{
		BlogURL:      "https://blog.example",
		Email:        "pat@example.com",
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
	}
	require.NoError(t, m.Save(ctx, s))

	got, err := m.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.True(t, m.LoggedIn(ctx))
}

func TestLoad_NotLoggedIn(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	_, err := m.Load(ctx)
	assert.ErrorIs(t, err, common.ErrNotLoggedIn)
	assert.False(t, m.LoggedIn(ctx))
}

func TestClear_ForgetsSession(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, &StoredSession{BlogURL: "https://blog.example"}))
	require.NoError(t, m.Clear(ctx))

	_, err := m.Load(ctx)
	assert.ErrorIs(t, err, common.ErrNotLoggedIn)
	assert.False(t, m.LoggedIn(ctx))
}

func TestSave_CiphertextIsOpaque(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	require.NoError(t, m.Save(ctx, &StoredSession{Email: "pat@example.com", AccessToken: "secret-token"}))

	blob, err := m.meta.Get(ctx, keyCreds)
	require.NoError(t, err)
	assert.NotContains(t, string(blob), "pat@example.com")
	assert.NotContains(t, string(blob), "secret-token")
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "1",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

func TestTokenExpiresAt(t *testing.T) {
	exp := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	got, err := TokenExpiresAt(signedToken(t, exp))
	require.NoError(t, err)
	assert.True(t, got.Equal(exp))
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, TokenExpired(signedToken(t, now.Add(time.Hour)), now))
	assert.True(t, TokenExpired(signedToken(t, now.Add(-time.Minute)), now))
	// tokens about to lapse count as expired so a refresh happens in time
	assert.True(t, TokenExpired(signedToken(t, now.Add(10*time.Second)), now))
	// garbage never passes for a live token
	assert.True(t, TokenExpired("not-a-jwt", now))
}
