package anomaly

import "time"

// InvoiceData is the payload classified by the detector.
type InvoiceData struct {
	TenantID   string  `json:"tenant_id"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
	CustomerID string  `json:"customer_id"`
}

type AnomalyResult struct {
	IsAnomalous     bool    `json:"is_anomalous"`
	ConfidenceScore float64 `json:"confidence_score"`
	Reason          string  `json:"reason"`
}

// Prediction is one served classification, as recorded and alerted on.
type Prediction struct {
	ID          string        `json:"prediction_id"`
	Invoice     InvoiceData   `json:"invoice"`
	Result      AnomalyResult `json:"result"`
	PredictedAt time.Time     `json:"predicted_at"`
}

type TenantStats struct {
	TenantID  string `json:"tenant_id"`
	Anomalous int64  `json:"anomalous"`
	Normal    int64  `json:"normal"`
}
