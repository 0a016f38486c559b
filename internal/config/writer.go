package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/josephgoksu/featuregraph/internal/llm"
)

// InitOptions are the values written by WriteProjectConfig.
type InitOptions struct {
	Backend  string
	Provider string
	Model    string
	APIKey   string
}

// WriteProjectConfig creates dir and its config.yaml. An existing file keeps
// its other settings; only the keys in opts that are non-empty change.
func WriteProjectConfig(dir string, opts InitOptions) (string, error) {
	if opts.Backend != "" && opts.Backend != BackendJSON && opts.Backend != BackendSQLite {
		return "", fmt.Errorf("unknown graph backend %q (supported: json, sqlite)", opts.Backend)
	}
	if opts.Provider != "" {
		if _, err := llm.ValidateProvider(opts.Provider); err != nil {
			return "", err
		}
	}
	if err := os.MkdirAll(filepath.Join(dir, "policies"), 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}

	path := filepath.Join(dir, ConfigName+".yaml")
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil && !errors.Is(err, os.ErrNotExist) {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
	}

	if opts.Backend != "" {
		v.Set("graph.backend", opts.Backend)
	} else if !v.IsSet("graph.backend") {
		v.Set("graph.backend", BackendJSON)
	}
	if opts.Provider != "" {
		v.Set("llm.provider", opts.Provider)
		model := opts.Model
		if model == "" {
			model = llm.DefaultModelForProvider(llm.Provider(opts.Provider))
		}
		v.Set("llm.model", model)
	}
	if opts.APIKey != "" {
		v.Set("llm.api_key", opts.APIKey)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if opts.APIKey != "" {
		_ = os.Chmod(path, 0o600)
	}
	return path, nil
}
