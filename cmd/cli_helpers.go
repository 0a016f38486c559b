package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/josephgoksu/featuregraph/internal/app"
	"github.com/josephgoksu/featuregraph/internal/config"
	"github.com/josephgoksu/featuregraph/internal/telemetry"
	"github.com/josephgoksu/featuregraph/internal/ui"
)

func isJSON() bool {
	return viper.GetBool("json")
}

func newPrinter() *ui.Printer {
	return ui.NewPrinter(rootCmd.OutOrStdout())
}

// emit prints v as JSON when --json is set, otherwise calls render.
func emit(v any, render func(p *ui.Printer)) error {
	p := newPrinter()
	if isJSON() {
		return p.JSON(v)
	}
	render(p)
	return nil
}

// exitError carries a process exit code without an error message, for
// commands whose output already explains the failure.
type exitError struct{ code int }

func (e exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func exitCode(err error) (int, bool) {
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code, true
	}
	return 0, false
}

var (
	teleOnce   sync.Once
	teleClient telemetry.Client = telemetry.NoopClient{}
)

// telemetryClient returns the process-wide client, created on first use.
func telemetryClient() telemetry.Client {
	teleOnce.Do(func() {
		cfg := GlobalAppConfig.Telemetry
		if !cfg.Enabled {
			return
		}
		dir, err := config.GetGlobalConfigDir()
		if err != nil {
			slog.Debug("telemetry disabled", "error", err)
			return
		}
		id, err := telemetry.LoadAnonymousID(afero.NewOsFs(), dir)
		if err != nil {
			slog.Debug("telemetry disabled", "error", err)
			return
		}
		c, err := telemetry.New(telemetry.Options{
			Enabled:     true,
			APIKey:      cfg.APIKey,
			Endpoint:    cfg.Endpoint,
			Version:     version,
			AnonymousID: id,
		})
		if err != nil {
			slog.Debug("telemetry disabled", "error", err)
			return
		}
		teleClient = c
	})
	return teleClient
}

func closeTelemetry() {
	if err := teleClient.Close(); err != nil {
		slog.Debug("flush telemetry", "error", err)
	}
}

// openApp builds the application from the loaded configuration.
func openApp(ctx context.Context) (*app.App, error) {
	if configErr != nil {
		return nil, configErr
	}
	dir := dataDir()
	vcfg, err := config.LoadValidationConfig(dir)
	if err != nil {
		return nil, fmt.Errorf("validation config: %w", err)
	}
	llmCfg, err := config.LoadLLMConfig()
	if err != nil {
		// planning still works without a model
		slog.Warn("LLM config ignored", "error", err)
	}
	slog.Debug("opening graph", "data_dir", dir, "backend", GlobalAppConfig.Graph.Backend)
	return app.New(ctx, app.Options{
		Backend:    GlobalAppConfig.Graph.Backend,
		GraphPath:  config.GraphPath(dir),
		TagCache:   config.TagCachePath(dir),
		Lemmatize:  GlobalAppConfig.Tags.Lemmatize,
		Validation: vcfg,
		LLM:        llmCfg,
		Telemetry:  telemetryClient(),
	})
}

// withApp opens the application, runs fn and closes it.
func withApp(ctx context.Context, fn func(a *app.App) error) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("close graph", "error", err)
		}
	}()
	return fn(a)
}
