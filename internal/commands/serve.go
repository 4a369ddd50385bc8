package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"salesdash/internal/analytics"
	"salesdash/internal/cli"
	"salesdash/internal/config"
	apphttp "salesdash/internal/http"
	applog "salesdash/internal/log"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard web server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(os.Stdout, func(c *config.Config) {
				if port != "" {
					c.Port = port
				}
			}, (*config.Config).Validate)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides PORT)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	ctx, stop := cli.SignalContext(ctx, logger)
	defer stop()

	ds, err := cli.LoadDataset(ctx, cfg, logger)
	if err != nil {
		return err
	}

	formatter, err := apphttp.NewFormatter(cfg.CurrencySymbol, cfg.DisplayLocale)
	if err != nil {
		return err
	}

	srv := apphttp.NewServer(":"+cfg.Port, analytics.NewEngine(ds), apphttp.Options{
		Logger:             logger,
		Formatter:          formatter,
		CacheSize:          cfg.CacheSize,
		CacheTTL:           cfg.CacheTTL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting salesdash server", "port", cfg.Port, applog.FieldBackend, cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", applog.FieldError, err)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
