package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dblp-tools/faculty-harvester/internal/dblp"
)

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Stage 3: build the final faculty CSV",
		Long: `Parses every downloaded author page and writes the normalized faculty
dataset (name, affiliation, homepage, scholarid). Purely local; no network
calls, no ledger involvement.`,
		RunE: runExtractCommand,
	}
}

func runExtractCommand(_ *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	records, err := dblp.ExtractDirectory(cfg.Output.HTMLDir, logger)
	if err != nil {
		return err
	}
	if err := dblp.WriteFacultyCSV(cfg.Output.FinalCSV, records); err != nil {
		return err
	}

	logger.Info("extraction finished",
		zap.Int("records", len(records)),
		zap.String("output", cfg.Output.FinalCSV),
	)
	return nil
}
