package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestAnomalyPredictionsCounter(t *testing.T) {
	before := testutil.ToFloat64(AnomalyPredictions.WithLabelValues(ResultLabel(true)))
	AnomalyPredictions.WithLabelValues(ResultLabel(true)).Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(AnomalyPredictions.WithLabelValues("anomalous")))
	assert.Equal(t, "normal", ResultLabel(false))
}
