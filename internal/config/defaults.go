// Package config resolves where featuregraph keeps its data and loads the
// typed configuration sections from viper.
package config

import (
	"github.com/spf13/viper"

	"github.com/josephgoksu/featuregraph/internal/validation"
)

// Graph backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

const (
	// ConfigName is the config file name without extension.
	ConfigName = "config"

	// EnvPrefix prefixes every environment override, e.g. FEATUREGRAPH_LOG_LEVEL.
	EnvPrefix = "FEATUREGRAPH"

	// DirName is the per-project and per-user data directory name.
	DirName = ".featuregraph"
)

// SetDefaults registers every default on v. Validation defaults come from
// validation.DefaultConfig so the two never drift.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("graph.backend", BackendJSON)
	v.SetDefault("tags.lemmatize", true)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("telemetry.enabled", false)

	d := validation.DefaultConfig()
	v.SetDefault("validation.manager.error_threshold", d.Manager.ErrorThreshold)
	v.SetDefault("validation.manager.warning_threshold", d.Manager.WarningThreshold)
	v.SetDefault("validation.manager.critical_fails", d.Manager.CriticalFails)
	v.SetDefault("validation.manager.validator_timeout", d.Manager.ValidatorTimeout.String())
}
