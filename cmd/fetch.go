package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dblp-tools/faculty-harvester/internal/dblp"
	"github.com/dblp-tools/faculty-harvester/internal/harvest"
	"github.com/dblp-tools/faculty-harvester/internal/sink"
)

func newFetchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fetch",
		Short: "Stage 2: download DBLP author pages",
		Long: `Reads the per-university CSVs produced by the query stage and downloads
each author's DBLP page into the HTML directory, one subdirectory per
university. Already-downloaded pages are skipped via the ledger.`,
		RunE: runFetchCommand,
	}
}

func runFetchCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	items, err := dblp.FacultyItems(cfg.Output.DataDir)
	if err != nil {
		return err
	}

	clock := newSystemClock()
	led, err := openLedger(cmd.Context(), cfg, clock)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() { _ = led.Close() }()

	out, err := sink.NewFileSink(cfg.Output.HTMLDir, func(item harvest.WorkItem) string {
		return dblp.AuthorFileName(item.Target)
	})
	if err != nil {
		return fmt.Errorf("open html sink: %w", err)
	}

	fetcher := dblp.NewPageClient(dblp.ClientConfig{
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
	})

	stopStatus := startStatusServer(cfg, led, logger)
	defer stopStatus(cmd.Context())

	report, err := buildDriver(cfg, led, fetcher, out, clock, logger).Run(cmd.Context(), items)
	logReport(logger, "fetch", report)
	return err
}
