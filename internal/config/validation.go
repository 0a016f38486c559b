package config

import (
	"github.com/spf13/viper"

	"github.com/josephgoksu/featuregraph/internal/validation"
)

// LoadValidationConfig overlays the "validation" section on the validation
// defaults. AllSettings is used so environment overrides of known keys are
// included. The policy directory falls back to the data dir.
func LoadValidationConfig(dataDir string) (validation.Config, error) {
	raw, _ := viper.AllSettings()["validation"].(map[string]any)
	cfg, err := validation.DecodeConfig(raw)
	if err != nil {
		return validation.Config{}, err
	}
	if cfg.Validators.Policy.Dir == "" {
		cfg.Validators.Policy.Dir = PoliciesDir(dataDir)
	}
	return cfg, nil
}
