package anomaly

import (
	"context"
	"time"

	"github.com/google/uuid"

	"billing-tools/internal/common/logger"
	"billing-tools/internal/common/metrics"
	"billing-tools/internal/common/observability"
)

// Service classifies invoices and runs the best-effort side effects
// (recording, alerting) for each prediction. Side effects never change the
// returned result.
type Service struct {
	detector          Detector
	recorder          Recorder
	notifier          Notifier
	obs               *observability.Observability
	logger            logger.Logger
	sideEffectTimeout time.Duration
	now               func() time.Time
}

type ServiceOption func(*Service)

func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

func WithObservability(o *observability.Observability) ServiceOption {
	return func(s *Service) { s.obs = o }
}

func WithSideEffectTimeout(d time.Duration) ServiceOption {
	return func(s *Service) { s.sideEffectTimeout = d }
}

func NewService(detector Detector, log logger.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		detector:          detector,
		logger:            log,
		sideEffectTimeout: 3 * time.Second,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Predict classifies invoice. source labels the caller in metrics ("http", "worker").
func (s *Service) Predict(ctx context.Context, source string, invoice InvoiceData) (Prediction, error) {
	start := s.now()

	result, err := s.detector.Predict(ctx, invoice)
	if err != nil {
		return Prediction{}, err
	}

	prediction := Prediction{
		ID:          uuid.NewString(),
		Invoice:     invoice,
		Result:      result,
		PredictedAt: start.UTC(),
	}

	label := metrics.ResultLabel(result.IsAnomalous)
	metrics.AnomalyPredictions.WithLabelValues(label).Inc()

	s.runSideEffects(ctx, prediction)

	s.obs.RecordPrediction(ctx, source, label, s.now().Sub(start))

	s.logger.Info("invoice classified", map[string]interface{}{
		"predictionId": prediction.ID,
		"tenantId":     invoice.TenantID,
		"isAnomalous":  result.IsAnomalous,
		"source":       source,
	})
	return prediction, nil
}

func (s *Service) runSideEffects(ctx context.Context, prediction Prediction) {
	if s.recorder == nil && (s.notifier == nil || !prediction.Result.IsAnomalous) {
		return
	}

	// Side effects outlive a cancelled request.
	sideCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.sideEffectTimeout)
	defer cancel()

	if s.recorder != nil {
		if err := s.recorder.Record(sideCtx, prediction); err != nil {
			metrics.SideEffectFailures.WithLabelValues("record").Inc()
			s.logger.Warn("failed to record prediction", map[string]interface{}{
				"predictionId": prediction.ID,
				"error":        err,
			})
		}
	}

	if s.notifier != nil && prediction.Result.IsAnomalous {
		if err := s.notifier.Notify(sideCtx, prediction); err != nil {
			metrics.SideEffectFailures.WithLabelValues("alert").Inc()
			s.logger.Warn("failed to send anomaly alert", map[string]interface{}{
				"predictionId": prediction.ID,
				"error":        err,
			})
		}
	}
}
