// Package cli provides common CLI initialization utilities shared by the
// salesdash subcommands.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"salesdash/internal/backend"
	"salesdash/internal/config"
	"salesdash/internal/dataset"
	applog "salesdash/internal/log"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the application logger from LOG_LEVEL, writing to out,
// and installs it as the slog default.
func SetupLogger(cfg *config.Config, out io.Writer) (*applog.Logger, error) {
	level, err := config.ParseLogLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger := applog.New(applog.Config{
		Level:     level,
		Component: applog.ComponentApp,
		Output:    out,
	})
	applog.SetDefault(logger)
	return logger, nil
}

// LoadAndValidateConfig reads the environment, lets override adjust the
// result (flags win over env) and runs validate on it.
func LoadAndValidateConfig(override func(*config.Config), validate func(*config.Config) error) (*config.Config, error) {
	cfg := config.Load()
	if override != nil {
		override(cfg)
	}
	if validate != nil {
		if err := validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// LoadDataset reads the dataset from the configured backend once.
func LoadDataset(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*dataset.Dataset, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	factory := backend.NewFactory(logger.WithComponent(applog.ComponentDataset).Logger)
	ds, err := backend.LoadDataset(ctx, factory, bcfg)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	applog.NewStructuredLogger(logger).LogDatasetLoaded(ctx, string(bcfg.Type), ds.Len(), len(ds.Years()), len(ds.Categories()))
	return ds, nil
}

// SignalContext returns a context canceled on SIGINT or SIGTERM.
func SignalContext(parent context.Context, logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
