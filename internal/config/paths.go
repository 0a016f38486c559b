package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// GetGlobalConfigDir returns the path to the global configuration directory (~/.featuregraph).
// It's a variable to allow overriding in tests.
var GetGlobalConfigDir = func() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, DirName), nil
}

// ResolveDataDir returns the directory holding the graph, tag cache and
// policies. Resolution order (first match wins):
// 1. Explicit config via "data_dir" (flag/config file/env)
// 2. Local project directory: ./.featuregraph (if exists)
// 3. XDG_DATA_HOME/featuregraph (if XDG_DATA_HOME is set)
// 4. Global fallback: ~/.featuregraph
func ResolveDataDir() string {
	if dir := viper.GetString("data_dir"); dir != "" {
		return dir
	}
	if info, err := os.Stat(DirName); err == nil && info.IsDir() {
		return DirName
	}
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "featuregraph")
	}
	dir, err := GetGlobalConfigDir()
	if err != nil {
		return DirName
	}
	return dir
}

// GraphPath returns the graph file for the configured backend.
func GraphPath(dataDir string) string {
	if p := viper.GetString("graph.path"); p != "" {
		return p
	}
	if viper.GetString("graph.backend") == BackendSQLite {
		return filepath.Join(dataDir, "graph.db")
	}
	return filepath.Join(dataDir, "graph.json")
}

// TagCachePath returns the tag frequency cache file.
func TagCachePath(dataDir string) string {
	if p := viper.GetString("tags.cache_path"); p != "" {
		return p
	}
	return filepath.Join(dataDir, "tag_cache.json")
}

// PoliciesDir returns the directory scanned for .rego files.
func PoliciesDir(dataDir string) string {
	if p := viper.GetString("policy.dir"); p != "" {
		return p
	}
	return filepath.Join(dataDir, "policies")
}

// LogsDir returns where crash logs are written.
func LogsDir() string {
	dir, err := GetGlobalConfigDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "featuregraph", "logs")
	}
	return filepath.Join(dir, "logs")
}
