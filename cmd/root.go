// Package cmd defines and implements the CLI commands for the harvester
// executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dblp-tools/faculty-harvester/internal/config"
	"github.com/dblp-tools/faculty-harvester/internal/logging"
)

var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "harvester",
		Short: "Collects and normalizes university faculty data from DBLP.",
		Long: `harvester builds a faculty dataset from the DBLP bibliographic database
in three resumable stages: query (faculty lists per university), fetch
(author pages), and extract (the final normalized CSV). Interrupted runs
pick up where they left off without re-fetching completed work.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults + HARVESTER_* env)")

	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newFetchCmd())
	cmd.AddCommand(newExtractCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// Execute is the main entry point. SIGINT/SIGTERM cancel the command
// context; the driver finishes its in-flight items, persists the ledger,
// and exits.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads configuration and builds the logger shared by all commands.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.File)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, logger, nil
}
