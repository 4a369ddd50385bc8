package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"salesdash/internal/amqp"
	"salesdash/internal/analytics"
	"salesdash/internal/cli"
	"salesdash/internal/config"
	applog "salesdash/internal/log"
	"salesdash/internal/worker"
)

func newWorkerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Answer dashboard report requests from the AMQP queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(os.Stdout, nil, (*config.Config).ValidateWorker)
			if err != nil {
				return err
			}

			ctx, stop := cli.SignalContext(cmd.Context(), logger)
			defer stop()

			ds, err := cli.LoadDataset(ctx, cfg, logger)
			if err != nil {
				return err
			}

			client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				return fmt.Errorf("initialize AMQP client: %w", err)
			}
			defer client.Close()

			logger.WithComponent(applog.ComponentAMQP).Info("Connected to AMQP",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)

			w := worker.NewReportWorker(analytics.NewEngine(ds), cfg.CacheSize, cfg.CacheTTL, logger)
			return w.Run(ctx, client)
		},
	}
}
