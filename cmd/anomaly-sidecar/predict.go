// cmd/anomaly-sidecar/predict.go
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"billing-tools/internal/anomaly"
	"billing-tools/internal/common/config"
	"billing-tools/internal/common/logger"
)

func newPredictCmd(load loadFunc) *cobra.Command {
	var (
		invoice  anomaly.InvoiceData
		baseURL  string
		failOpen bool
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Ask a running sidecar to classify one invoice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			defer log.Sync()
			if baseURL != "" {
				cfg.Anomaly.Client.BaseURL = baseURL
				cfg.Anomaly.Client.Enabled = true
			}

			if failOpen {
				checker := newChecker(cfg.Anomaly, log)
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "anomalous: %t\n", checker.IsAnomalous(cmd.Context(), invoice))
				return err
			}

			client := anomaly.NewClient(cfg.Anomaly.Client.BaseURL, config.GetDuration(cfg.Anomaly.Client.Timeout), log)
			result, err := client.Predict(cmd.Context(), invoice)
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), result)
		},
	}

	cmd.Flags().StringVar(&invoice.TenantID, "tenant", "", "tenant id")
	cmd.Flags().StringVar(&invoice.CustomerID, "customer", "", "customer id")
	cmd.Flags().Float64Var(&invoice.Amount, "amount", 0, "invoice amount")
	cmd.Flags().StringVar(&invoice.Currency, "currency", "", "currency code")
	cmd.Flags().StringVar(&baseURL, "url", "", "sidecar base URL (default anomaly.client.base_url)")
	cmd.Flags().BoolVar(&failOpen, "fail-open", false, "print only the verdict; sidecar errors count as not anomalous")
	for _, name := range []string{"tenant", "customer", "amount", "currency"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

// newChecker returns the sidecar client, or a no-op checker when the client is disabled.
func newChecker(cfg config.AnomalyConfig, log logger.Logger) anomaly.AnomalyChecker {
	if !cfg.Client.Enabled {
		log.Info("anomaly client disabled, using no-op checker", nil)
		return anomaly.NoOpDetector{}
	}
	timeout := config.GetDuration(cfg.Client.Timeout)
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return anomaly.NewClient(cfg.Client.BaseURL, timeout, log)
}

func writeResult(w io.Writer, result anomaly.AnomalyResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
