package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/ghostmirror/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Values are
// copied into the runtime Config afterwards; absent fields keep their
// earlier value.
type JsonConfig struct {
	BlogURL  string `json:"blog_url"`
	DataDir  string `json:"data_dir"`
	LogLevel string `json:"log_level"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c/--config. When no config flag is given, nothing is loaded.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigFilePath()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.BlogURL != "" {
		cfg.BlogURL = jc.BlogURL
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
}
