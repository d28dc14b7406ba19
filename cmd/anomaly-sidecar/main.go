// cmd/anomaly-sidecar/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"billing-tools/internal/common/config"
	"billing-tools/internal/common/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "anomaly-sidecar:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "anomaly-sidecar",
		Short:         "Invoice anomaly prediction service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default configs/config.yaml)")

	load := func() (*config.Config, logger.Logger, error) {
		var (
			cfg *config.Config
			err error
		)
		if configPath != "" {
			cfg, err = config.LoadFromFile(configPath)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return nil, nil, err
		}
		log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format).
			WithFields(map[string]interface{}{"service": "anomaly-sidecar"})
		return cfg, log, nil
	}

	cmd.AddCommand(newServeCmd(load), newPredictCmd(load))
	return cmd
}
