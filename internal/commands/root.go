// Package commands wires the salesdash subcommands.
package commands

import (
	"io"

	"github.com/spf13/cobra"

	"salesdash/internal/buildinfo"
	"salesdash/internal/cli"
	"salesdash/internal/config"
	applog "salesdash/internal/log"
)

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "salesdash",
		Short:   "Sales analytics dashboard",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cli.LoadEnvFile()
		},
	}

	rootCmd.AddCommand(
		newServeCommand(),
		newSummaryCommand(),
		newWorkerCommand(),
		newRequestCommand(),
		newImportCommand(),
	)

	return rootCmd
}

// bootstrap loads and validates the configuration and builds the logger
// every subcommand starts from.
func bootstrap(logOut io.Writer, override func(*config.Config), validate func(*config.Config) error) (*config.Config, *applog.Logger, error) {
	cfg, err := cli.LoadAndValidateConfig(override, validate)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cli.SetupLogger(cfg, logOut)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}
