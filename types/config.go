/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package types

// AppConfig represents the complete application configuration
type AppConfig struct {
	Verbose   bool            `mapstructure:"verbose"`
	Config    string          `mapstructure:"config"`
	DataDir   string          `mapstructure:"data_dir"`
	Graph     GraphConfig     `mapstructure:"graph" validate:"required"`
	Tags      TagsConfig      `mapstructure:"tags"`
	Policy    PolicyConfig    `mapstructure:"policy"`
	LLM       LLMConfig       `mapstructure:"llm" validate:"omitempty"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log" validate:"required"`
}

// GraphConfig selects the graph backend and its file
type GraphConfig struct {
	Backend string `mapstructure:"backend" validate:"required,oneof=json sqlite"`
	Path    string `mapstructure:"path"`
}

// TagsConfig holds tag normalization settings
type TagsConfig struct {
	CachePath string `mapstructure:"cache_path"`
	Lemmatize bool   `mapstructure:"lemmatize"`
}

// PolicyConfig locates the Rego policies used by the policy validator
type PolicyConfig struct {
	Dir string `mapstructure:"dir"`
}

// LLMConfig holds configuration for LLM-assisted task planning.
// An empty provider disables it.
type LLMConfig struct {
	Provider string `mapstructure:"provider" validate:"omitempty,oneof=openai ollama anthropic gemini"`
	Model    string `mapstructure:"model" validate:"omitempty,min=1"`
	APIKey   string `mapstructure:"api_key"`
	BaseURL  string `mapstructure:"base_url" validate:"omitempty,url"`
}

// TelemetryConfig controls anonymous usage events
type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	APIKey   string `mapstructure:"api_key" validate:"required_if=Enabled true"`
	Endpoint string `mapstructure:"endpoint" validate:"omitempty,url"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=text json"`
}
