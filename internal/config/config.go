package config

import (
	"os"
	"path/filepath"
)

// Config holds runtime settings for the mirror CLI.
//
// DataDir is where the content database, the install secret and the
// search index live. BlogURL is the admin address of the mirrored blog.
type Config struct {
	BlogURL  string
	DataDir  string
	LogLevel string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	c.DataDir = filepath.Join(home, ".ghostmirror")
	c.LogLevel = "info"
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present). Later
// sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}

// DatabasePath is the SQLite file under DataDir.
func (c *Config) DatabasePath() string { return filepath.Join(c.DataDir, "content.db") }

// SecretPath is the per-install encryption secret under DataDir.
func (c *Config) SecretPath() string { return filepath.Join(c.DataDir, "install.secret") }

// SearchIndexPath is the full-text index directory under DataDir.
func (c *Config) SearchIndexPath() string { return filepath.Join(c.DataDir, "search.bleve") }
