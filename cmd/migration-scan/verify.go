// cmd/migration-scan/verify.go
package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"billing-tools/internal/common/config"
	"billing-tools/internal/common/database"
	"billing-tools/internal/common/logger"
	"billing-tools/internal/common/metrics"
	"billing-tools/internal/migrations"
)

func newVerifyCmd(opts *options, stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Compare local migration checksums with the applied migration history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup(opts)
			if err != nil {
				return err
			}
			defer log.Sync()

			if err := config.ValidatePostgres(cfg.Database.Postgres); err != nil {
				return err
			}
			pg, err := database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			defer pg.Close()

			history, err := migrations.NewHistoryReader(pg.DB, cfg.Migrations.HistoryTable, log)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), config.GetDuration(cfg.Migrations.QueryTimeout))
			defer cancel()
			return runVerify(ctx, stdout, cfg.Migrations, history, log)
		},
	}
}

// historySource is satisfied by *migrations.HistoryReader.
type historySource interface {
	Applied(ctx context.Context) (map[string]int32, error)
}

func runVerify(ctx context.Context, stdout io.Writer, cfg config.MigrationsConfig, history historySource, log logger.Logger) error {
	files, err := migrations.Scan(cfg.Root, cfg.Pattern)
	if err != nil {
		return err
	}

	applied, err := history.Applied(ctx)
	if err != nil {
		return err
	}

	entries := migrations.Verify(migrations.ChecksumAll(cfg.Root, files), applied)
	if err := migrations.WriteDrift(stdout, entries); err != nil {
		return err
	}

	summary := migrations.Summarize(entries)
	fields := map[string]interface{}{"files": len(entries)}
	for status, n := range summary {
		metrics.MigrationChecksums.WithLabelValues(string(status)).Add(float64(n))
		fields[string(status)] = n
	}

	if migrations.HasMismatch(entries) {
		log.Warn("applied migrations changed locally", fields)
		return &exitError{code: 1}
	}
	log.Info("migration history verified", fields)
	return nil
}
