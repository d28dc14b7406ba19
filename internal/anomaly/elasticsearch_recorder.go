package anomaly

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	apperrors "billing-tools/internal/common/errors"
)

// ElasticsearchRecorder indexes each prediction as an audit document keyed by
// its prediction id.
type ElasticsearchRecorder struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchRecorder(client *elasticsearch.Client, index string) *ElasticsearchRecorder {
	return &ElasticsearchRecorder{client: client, index: index}
}

type predictionDocument struct {
	PredictionID    string  `json:"prediction_id"`
	TenantID        string  `json:"tenant_id"`
	CustomerID      string  `json:"customer_id"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	IsAnomalous     bool    `json:"is_anomalous"`
	ConfidenceScore float64 `json:"confidence_score"`
	Reason          string  `json:"reason"`
	PredictedAt     string  `json:"predicted_at"`
}

func (r *ElasticsearchRecorder) Record(ctx context.Context, prediction Prediction) error {
	doc := predictionDocument{
		PredictionID:    prediction.ID,
		TenantID:        prediction.Invoice.TenantID,
		CustomerID:      prediction.Invoice.CustomerID,
		Amount:          prediction.Invoice.Amount,
		Currency:        prediction.Invoice.Currency,
		IsAnomalous:     prediction.Result.IsAnomalous,
		ConfidenceScore: prediction.Result.ConfidenceScore,
		Reason:          prediction.Result.Reason,
		PredictedAt:     prediction.PredictedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return apperrors.NewPredictionRecordFailedError("elasticsearch", err)
	}

	res, err := r.client.Index(
		r.index,
		bytes.NewReader(body),
		r.client.Index.WithContext(ctx),
		r.client.Index.WithDocumentID(prediction.ID),
	)
	if err != nil {
		return apperrors.NewPredictionRecordFailedError("elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewPredictionRecordFailedError("elasticsearch", fmt.Errorf("index error: %s", res.Status()))
	}
	return nil
}
