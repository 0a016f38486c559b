/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/josephgoksu/featuregraph/internal/config"
	"github.com/josephgoksu/featuregraph/internal/logger"
	"github.com/josephgoksu/featuregraph/types"
)

// GlobalAppConfig holds the global application configuration instance.
var GlobalAppConfig types.AppConfig

// validate is a single instance of Translate, it caches struct info
var validate = validator.New()

// configErr is set when InitConfig fails and reported by the first command
// that needs the config.
var configErr error

// validateAppConfig performs validation on the AppConfig struct.
func validateAppConfig(cfg *types.AppConfig) error {
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// InitConfig reads in config file and ENV variables if set.
func InitConfig() {
	configErr = nil
	// A missing .env file is fine.
	_ = godotenv.Load()

	// Environment variable handling must be set up before reading the config file.
	viper.SetEnvPrefix(config.EnvPrefix)                   // e.g., FEATUREGRAPH_LOG_LEVEL
	viper.AutomaticEnv()                                   // Read in environment variables that match
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // Replace dots with underscores in env var names
	config.SetDefaults(viper.GetViper())

	cfgFileFlag := viper.GetString("config")
	if cfgFileFlag != "" {
		viper.SetConfigFile(cfgFileFlag)
	} else {
		// project config wins over the per-user one
		viper.SetConfigName(config.ConfigName)
		viper.AddConfigPath(config.DirName)
		if dir, err := config.GetGlobalConfigDir(); err == nil {
			viper.AddConfigPath(dir)
		}
	}

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("verbose") {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	} else {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound) && cfgFileFlag == "":
			// no config file, defaults and environment apply
		case errors.Is(err, os.ErrNotExist) || errors.As(err, &notFound):
			configErr = fmt.Errorf("config file not found: %s", cfgFileFlag)
			return
		default:
			configErr = fmt.Errorf("read config %s: %w", viper.ConfigFileUsed(), err)
			return
		}
	}

	if err := viper.Unmarshal(&GlobalAppConfig); err != nil {
		configErr = fmt.Errorf("unmarshal config: %w", err)
		return
	}
	configErr = validateAppConfig(&GlobalAppConfig)
}

// setupLogging installs the slog handler and points crash logs at the logs
// directory. Logs go to stderr so stdout stays clean for JSON and MCP.
func setupLogging() error {
	if configErr != nil {
		return configErr
	}
	level := GlobalAppConfig.Log.Level
	if viper.GetBool("verbose") {
		level = "debug"
	}
	if _, err := logger.Setup(level, GlobalAppConfig.Log.Format, os.Stderr); err != nil {
		return err
	}
	logger.SetCrashDir(config.LogsDir())
	return nil
}

// dataDir returns the resolved data directory as an absolute path when
// possible.
func dataDir() string {
	dir := config.ResolveDataDir()
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}
