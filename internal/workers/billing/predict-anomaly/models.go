// internal/workers/billing/predict-anomaly/models.go
package predictanomaly

// Input is read from the process variables.
type Input struct {
	TenantID   string  `json:"tenantId"`
	CustomerID string  `json:"customerId"`
	Amount     float64 `json:"amount"`
	Currency   string  `json:"currency"`
}

type Output struct {
	IsAnomalous     bool    `json:"isAnomalous"`
	ConfidenceScore float64 `json:"confidenceScore"`
	Reason          string  `json:"reason"`
}
