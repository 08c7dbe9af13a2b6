package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print ledger progress and recent failures",
		RunE:  runStatusCommand,
	}
}

func runStatusCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	led, err := openLedger(cmd.Context(), cfg, newSystemClock())
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() { _ = led.Close() }()

	summary, err := led.Summary(cmd.Context())
	if err != nil {
		return fmt.Errorf("summarize ledger: %w", err)
	}
	cmd.Printf("succeeded:    %d\n", summary.Succeeded)
	cmd.Printf("failed:       %d\n", summary.Failed)
	cmd.Printf("failed fatal: %d\n", summary.FailedFatal)
	cmd.Printf("total:        %d\n", summary.Total())

	failures, err := led.Failures(cmd.Context())
	if err != nil {
		return fmt.Errorf("list failures: %w", err)
	}
	if len(failures) > 0 {
		cmd.Println("\nfailures:")
		for _, entry := range failures {
			cmd.Printf("  [%s] %s (attempts=%d): %s\n", entry.Status, entry.Key, entry.Attempts, entry.LastError)
		}
	}
	return nil
}
