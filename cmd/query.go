package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dblp-tools/faculty-harvester/internal/dblp"
	"github.com/dblp-tools/faculty-harvester/internal/harvest"
	"github.com/dblp-tools/faculty-harvester/internal/sink"
)

func newQueryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "query",
		Short: "Stage 1: query faculty lists per university",
		Long: `Reads the schools file and runs one SPARQL faculty query per university
against the DBLP endpoint, writing the raw CSV responses under the data
directory. Already-completed universities are skipped via the ledger.`,
		RunE: runQueryCommand,
	}
}

func runQueryCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	items, err := dblp.UniversityItems(cfg.Inputs.SchoolsFile)
	if err != nil {
		return err
	}

	clock := newSystemClock()
	led, err := openLedger(cmd.Context(), cfg, clock)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer func() { _ = led.Close() }()

	out, err := sink.NewFileSink(cfg.Output.DataDir, func(item harvest.WorkItem) string {
		return dblp.SafeName(item.Key) + "_faculty.csv"
	})
	if err != nil {
		return fmt.Errorf("open data sink: %w", err)
	}

	fetcher := dblp.NewQueryClient(dblp.ClientConfig{
		Endpoint:  cfg.HTTP.Endpoint,
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTPTimeout(),
	})

	stopStatus := startStatusServer(cfg, led, logger)
	defer stopStatus(cmd.Context())

	report, err := buildDriver(cfg, led, fetcher, out, clock, logger).Run(cmd.Context(), items)
	logReport(logger, "query", report)
	return err
}

func logReport(logger *zap.Logger, stage string, report harvest.BatchReport) {
	logger.Info("stage report",
		zap.String("stage", stage),
		zap.String("run_id", report.RunID),
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Strings("failed_keys", report.FailedKeys),
	)
}
