package anomaly

import (
	"context"
	"strings"
	"time"

	apperrors "billing-tools/internal/common/errors"
	apphttp "billing-tools/internal/common/http"
	"billing-tools/internal/common/logger"
)

// AnomalyChecker answers whether an invoice looks anomalous. Callers treat
// false as "proceed normally".
type AnomalyChecker interface {
	IsAnomalous(ctx context.Context, invoice InvoiceData) bool
}

// Client calls a remote sidecar. It fails open: any transport, status or
// decoding problem is logged and reported as not anomalous.
type Client struct {
	http     *apphttp.Client
	endpoint string
	logger   logger.Logger
}

func NewClient(baseURL string, timeout time.Duration, log logger.Logger) *Client {
	return &Client{
		http:     apphttp.NewClient(timeout),
		endpoint: strings.TrimRight(baseURL, "/") + "/predict/anomaly",
		logger:   log.WithFields(map[string]interface{}{"sidecar": baseURL}),
	}
}

// Predict returns the full sidecar result. Errors are *errors.StandardError
// with code SIDECAR_UNAVAILABLE.
func (c *Client) Predict(ctx context.Context, invoice InvoiceData) (AnomalyResult, error) {
	var result AnomalyResult
	if err := c.http.PostJSON(ctx, c.endpoint, invoice, &result); err != nil {
		return AnomalyResult{}, apperrors.NewSidecarUnavailableError(c.endpoint, err)
	}
	return result, nil
}

func (c *Client) IsAnomalous(ctx context.Context, invoice InvoiceData) bool {
	result, err := c.Predict(ctx, invoice)
	if err != nil {
		c.logger.Warn("anomaly sidecar call failed, continuing without detection", map[string]interface{}{
			"tenantId": invoice.TenantID,
			"error":    err,
		})
		return false
	}
	return result.IsAnomalous
}

// NoOpDetector is used when the sidecar is disabled.
type NoOpDetector struct{}

func (NoOpDetector) IsAnomalous(context.Context, InvoiceData) bool { return false }
