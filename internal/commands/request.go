package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"salesdash/internal/amqp"
	"salesdash/internal/config"
	"salesdash/internal/core"
)

func newRequestCommand() *cobra.Command {
	var filters filterFlags
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "request",
		Short: "Send a report request to the worker and print the reply",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := bootstrap(cmd.ErrOrStderr(), nil, (*config.Config).ValidateWorker)
			if err != nil {
				return err
			}

			c, err := filters.criteria()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				return fmt.Errorf("initialize AMQP client: %w", err)
			}
			defer client.Close()

			resp, err := client.Request(ctx, amqp.NewReportRequest(c))
			if err != nil {
				return fmt.Errorf("report request: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(resp); err != nil {
				return err
			}
			if resp.Error != "" {
				return errors.New(resp.Error)
			}
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "how long to wait for the reply")

	return cmd
}

// criteria parses the flags without applying dataset defaults; the worker
// fills those in against its own copy of the data.
func (f *filterFlags) criteria() (core.Criteria, error) {
	var c core.Criteria
	if f.year != "" {
		y, err := strconv.Atoi(strings.TrimSpace(f.year))
		if err != nil || y < 1 || y > 9999 {
			return core.Criteria{}, fmt.Errorf("year %q: %w", f.year, core.ErrInvalidYear)
		}
		c.Year = y
	}
	c.Categories = core.NormalizeCategories(f.categories)
	var err error
	if f.start != "" {
		if c.Start, err = core.ParseDate(f.start); err != nil {
			return core.Criteria{}, fmt.Errorf("start %q: %w", f.start, err)
		}
	}
	if f.end != "" {
		if c.End, err = core.ParseDate(f.end); err != nil {
			return core.Criteria{}, fmt.Errorf("end %q: %w", f.end, err)
		}
	}
	return c, nil
}
