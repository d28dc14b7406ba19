// internal/common/camunda/client.go
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"billing-tools/internal/common/config"
	"billing-tools/internal/common/logger"
)

// RetryConfig defines retry behavior for transient failures.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = RetryConfig{
	MaxRetries: 5,
	BaseDelay:  1 * time.Second,
	MaxDelay:   10 * time.Second,
}

// Connect creates a Zeebe client and waits until the gateway answers a
// topology request, retrying transient failures.
func Connect(ctx context.Context, cfg config.CamundaConfig, retry RetryConfig, log logger.Logger) (zbc.Client, error) {
	client, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	err = WithRetry(ctx, retry, log, "zeebe topology", func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_, err := client.NewTopologyCommand().Send(reqCtx)
		return err
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Zeebe gateway at %s: %w", cfg.BrokerAddress, err)
	}
	return client, nil
}

// WithRetry runs op with exponential backoff. Only errors that look
// transient are retried.
func WithRetry(ctx context.Context, retry RetryConfig, log logger.Logger, operation string, op func(context.Context) error) error {
	delay := retry.BaseDelay
	var err error

	for attempt := 0; attempt <= retry.MaxRetries; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if !IsRetryableError(err) || attempt == retry.MaxRetries {
			break
		}

		log.Warn(operation+" failed, retrying", map[string]interface{}{
			"error":       err,
			"attempt":     attempt + 1,
			"maxRetries":  retry.MaxRetries,
			"nextRetryIn": delay.String(),
		})

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%s cancelled: %w", operation, ctx.Err())
		}

		delay *= 2
		if delay > retry.MaxDelay {
			delay = retry.MaxDelay
		}
	}
	return fmt.Errorf("%s failed: %w", operation, err)
}

// IsRetryableError reports whether err looks like a transient gateway error.
func IsRetryableError(err error) bool {
	msg := strings.ToLower(err.Error())
	retryablePhrases := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
	}
	for _, phrase := range retryablePhrases {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}
