package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"billing-tools/internal/common/logger"
)

// Observability records prediction metrics through an OpenTelemetry meter
// exported to the default Prometheus registry.
type Observability struct {
	meterProvider      *metric.MeterProvider
	meter              otelmetric.Meter
	predictionCounter  otelmetric.Int64Counter
	predictionDuration otelmetric.Float64Histogram
	logger             logger.Logger
}

func New(serviceName string, log logger.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter", map[string]interface{}{"error": err})
		return &Observability{logger: log}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	predictionCounter, _ := meter.Int64Counter(
		"predictions.processed",
		otelmetric.WithDescription("Number of anomaly predictions served"),
	)

	predictionDuration, _ := meter.Float64Histogram(
		"predictions.duration",
		otelmetric.WithDescription("Prediction processing duration"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:      provider,
		meter:              meter,
		predictionCounter:  predictionCounter,
		predictionDuration: predictionDuration,
		logger:             log,
	}
}

// RecordPrediction is safe on a zero or nil Observability.
func (o *Observability) RecordPrediction(ctx context.Context, source, result string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("source", source),
		attribute.String("result", result),
	)
	if o.predictionCounter != nil {
		o.predictionCounter.Add(ctx, 1, attrs)
	}
	if o.predictionDuration != nil {
		o.predictionDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	}
}

func (o *Observability) Shutdown(ctx context.Context) {
	if o == nil || o.meterProvider == nil {
		return
	}
	if err := o.meterProvider.Shutdown(ctx); err != nil {
		o.logger.Warn("meter provider shutdown failed", map[string]interface{}{"error": err})
	}
}
