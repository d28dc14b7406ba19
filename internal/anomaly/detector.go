package anomaly

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	DefaultThreshold = 10000.0

	anomalousConfidence = 0.85
	normalConfidence    = 0.95
	normalReason        = "Normal transaction pattern"
)

// Detector classifies a single invoice.
type Detector interface {
	Predict(ctx context.Context, invoice InvoiceData) (AnomalyResult, error)
}

// ThresholdDetector flags any amount strictly above Threshold. It loads no
// model; the confidence scores are fixed.
type ThresholdDetector struct {
	Threshold float64
}

func NewThresholdDetector() *ThresholdDetector {
	return &ThresholdDetector{Threshold: DefaultThreshold}
}

func (d *ThresholdDetector) Predict(_ context.Context, invoice InvoiceData) (AnomalyResult, error) {
	if invoice.Amount > d.Threshold {
		return AnomalyResult{
			IsAnomalous:     true,
			ConfidenceScore: anomalousConfidence,
			Reason: fmt.Sprintf("Amount %s exceeds threshold %s",
				formatFloat(invoice.Amount), formatFloat(d.Threshold)),
		}, nil
	}
	return AnomalyResult{
		IsAnomalous:     false,
		ConfidenceScore: normalConfidence,
		Reason:          normalReason,
	}, nil
}

// formatFloat renders v as the shortest round-tripping decimal, always with a
// fractional part or exponent ("15000.0", "1e+16", "1.5e-05").
func formatFloat(v float64) string {
	abs := math.Abs(v)
	if abs != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(v, 'e', -1, 64)
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}
