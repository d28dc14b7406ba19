// internal/workers/billing/predict-anomaly/handler.go
package predictanomaly

import (
	"context"
	"encoding/json"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"

	"billing-tools/internal/anomaly"
	"billing-tools/internal/common/errors"
	"billing-tools/internal/common/logger"
	"billing-tools/internal/common/metrics"
	"billing-tools/internal/common/validation"
)

const (
	TaskType = "predict-invoice-anomaly"
)

var inputSchema = validation.MustSchema(`{
  "type": "object",
  "required": ["tenantId", "customerId", "amount", "currency"],
  "properties": {
    "tenantId":   {"type": "string", "minLength": 1},
    "customerId": {"type": "string", "minLength": 1},
    "amount":     {"type": "number"},
    "currency":   {"type": "string", "minLength": 1}
  }
}`)

// Predictor is satisfied by *anomaly.Service.
type Predictor interface {
	Predict(ctx context.Context, source string, invoice anomaly.InvoiceData) (anomaly.Prediction, error)
}

type Handler struct {
	config       *Config
	predictor    Predictor
	errorHandler *errors.ErrorHandler
	logger       logger.Logger
}

func NewHandler(config *Config, predictor Predictor, log logger.Logger) *Handler {
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       config,
		predictor:    predictor,
		errorHandler: errors.NewErrorHandler(log),
		logger:       log,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	start := time.Now()
	defer func() {
		metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	}()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	input, err := ParseInput(job.Variables)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
}

// ParseInput validates raw job variables against the input schema.
func ParseInput(variables string) (*Input, error) {
	var doc interface{}
	if err := json.Unmarshal([]byte(variables), &doc); err != nil {
		return nil, errors.NewInvalidInvoicePayloadError("variables are not valid JSON: " + err.Error())
	}

	result, err := inputSchema.Validate(doc)
	if err != nil {
		return nil, errors.NewInvalidInvoicePayloadError(err.Error())
	}
	if !result.Valid {
		return nil, errors.NewInvalidInvoicePayloadError(result.String())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInvalidInvoicePayloadError(err.Error())
	}
	return &input, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	prediction, err := h.predictor.Predict(ctx, "worker", anomaly.InvoiceData{
		TenantID:   input.TenantID,
		Amount:     input.Amount,
		Currency:   input.Currency,
		CustomerID: input.CustomerID,
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		IsAnomalous:     prediction.Result.IsAnomalous,
		ConfidenceScore: prediction.Result.ConfidenceScore,
		Reason:          prediction.Result.Reason,
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error) {
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.Normalize(err).Code)).Inc()
	h.errorHandler.HandleJobError(ctx, client, job, err)
}
