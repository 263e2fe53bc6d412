package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var cfg Config
	cfg.LoadDefaults()

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Contains(t, cfg.DataDir, ".ghostmirror")
	assert.Empty(t, cfg.BlogURL)
}

func TestDataDirPaths(t *testing.T) {
	cfg := Config{DataDir: "/tmp/mirror"}

	assert.Equal(t, filepath.Join("/tmp/mirror", "content.db"), cfg.DatabasePath())
	assert.Equal(t, filepath.Join("/tmp/mirror", "install.secret"), cfg.SecretPath())
	assert.Equal(t, filepath.Join("/tmp/mirror", "search.bleve"), cfg.SearchIndexPath())
}

func Test_LoadConfig_SourcesAndPrecedence(t *testing.T) {
	originalArgs := os.Args
	defer func() { os.Args = originalArgs }()

	confFile := filepath.Join(t.TempDir(), "conf.json")
	require.NoError(t, os.WriteFile(confFile,
		[]byte(`{"blog_url":"https://json.example","data_dir":"/from/json","log_level":"debug"}`), 0o600))

	t.Run("defaults only", func(t *testing.T) {
		os.Args = []string{"app"}
		cfg := LoadConfig()
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Empty(t, cfg.BlogURL)
	})

	t.Run("json overlays defaults", func(t *testing.T) {
		os.Args = []string{"app", "-c", confFile}
		cfg := LoadConfig()
		assert.Equal(t, "https://json.example", cfg.BlogURL)
		assert.Equal(t, "/from/json", cfg.DataDir)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("flags win over json", func(t *testing.T) {
		os.Args = []string{"app", "-c", confFile, "-b", "https://flag.example", "-l", "warn"}
		cfg := LoadConfig()
		assert.Equal(t, "https://flag.example", cfg.BlogURL)
		assert.Equal(t, "/from/json", cfg.DataDir)
		assert.Equal(t, "warn", cfg.LogLevel)
	})

	t.Run("missing config file panics", func(t *testing.T) {
		os.Args = []string{"app", "-c", filepath.Join(t.TempDir(), "absent.json")}
		assert.Panics(t, func() { LoadConfig() })
	})
}
