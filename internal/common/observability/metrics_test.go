package observability

import (
	"context"
	"testing"
	"time"

	"billing-tools/internal/common/logger"

	"github.com/stretchr/testify/assert"
)

func TestObservability_RecordPrediction(t *testing.T) {
	obs := New("billing-tools-test", logger.NewTestLogger(t))
	ctx := context.Background()

	assert.NotPanics(t, func() {
		obs.RecordPrediction(ctx, "http", "anomalous", 3*time.Millisecond)
		obs.RecordPrediction(ctx, "worker", "normal", time.Millisecond)
		obs.Shutdown(ctx)
	})
}

func TestObservability_NilSafe(t *testing.T) {
	var obs *Observability
	assert.NotPanics(t, func() {
		obs.RecordPrediction(context.Background(), "http", "normal", time.Millisecond)
		obs.Shutdown(context.Background())
	})
}
