package anomaly

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billing-tools/internal/common/logger"
)

type stubStats struct {
	stats TenantStats
	err   error
}

func (s *stubStats) Stats(_ context.Context, tenantID string) (TenantStats, error) {
	if s.err != nil {
		return TenantStats{}, s.err
	}
	out := s.stats
	out.TenantID = tenantID
	return out, nil
}

func createTestHandler(t *testing.T, stats StatsReader) http.Handler {
	svc := NewService(NewThresholdDetector(), logger.NewTestLogger(t))
	return NewHandler(svc, stats, logger.NewTestLogger(t))
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	h := createTestHandler(t, nil)

	// health is unaffected by earlier traffic, valid or not
	do(h, http.MethodPost, "/predict/anomaly", `{"amount": "bad"}`)
	do(h, http.MethodPost, "/predict/anomaly", `{"tenant_id":"t","amount":99999,"currency":"USD","customer_id":"c"}`)

	for i := 0; i < 3; i++ {
		rec := do(h, http.MethodGet, "/health", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, map[string]interface{}{"status": "ok"}, decodeBody(t, rec))
	}

	rec := do(h, http.MethodPost, "/health", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestReady(t *testing.T) {
	rec := do(createTestHandler(t, nil), http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decodeBody(t, rec)["status"])
}

func TestPredictAnomaly(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		anomalous  bool
		confidence float64
		reason     string
	}{
		{
			name:       "above threshold",
			body:       `{"tenant_id":"t1","amount":15000.5,"currency":"USD","customer_id":"c1"}`,
			anomalous:  true,
			confidence: 0.85,
			reason:     "Amount 15000.5 exceeds threshold 10000.0",
		},
		{
			name:       "integral amount above threshold",
			body:       `{"tenant_id":"t1","amount":15000,"currency":"USD","customer_id":"c1"}`,
			anomalous:  true,
			confidence: 0.85,
			reason:     "Amount 15000.0 exceeds threshold 10000.0",
		},
		{
			name:       "at threshold",
			body:       `{"tenant_id":"t1","amount":10000,"currency":"EUR","customer_id":"c1"}`,
			confidence: 0.95,
			reason:     "Normal transaction pattern",
		},
		{
			name:       "numeric string amount",
			body:       `{"tenant_id":"t1","amount":"12000","currency":"USD","customer_id":"c1"}`,
			anomalous:  true,
			confidence: 0.85,
			reason:     "Amount 12000.0 exceeds threshold 10000.0",
		},
		{
			name:       "extra fields ignored",
			body:       `{"tenant_id":"t1","amount":12,"currency":"EUR","customer_id":"c1","note":"x"}`,
			confidence: 0.95,
			reason:     "Normal transaction pattern",
		},
	}

	h := createTestHandler(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/predict/anomaly", tt.body)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

			_, err := uuid.Parse(rec.Header().Get(PredictionIDHeader))
			assert.NoError(t, err)

			var result AnomalyResult
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
			assert.Equal(t, tt.anomalous, result.IsAnomalous)
			assert.Equal(t, tt.confidence, result.ConfidenceScore)
			assert.Equal(t, tt.reason, result.Reason)

			assert.ElementsMatch(t,
				[]string{"is_anomalous", "confidence_score", "reason"},
				keys(decodeBody(t, rec)))
		})
	}
}

func keys(m map[string]interface{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func TestPredictAnomaly_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantLocs  [][]interface{}
		wantTypes []string
	}{
		{
			name:      "missing amount",
			body:      `{"tenant_id":"t1","currency":"USD","customer_id":"c1"}`,
			wantLocs:  [][]interface{}{{"body", "amount"}},
			wantTypes: []string{"missing"},
		},
		{
			name:      "amount is a non-numeric string",
			body:      `{"tenant_id":"t1","amount":"lots","currency":"USD","customer_id":"c1"}`,
			wantLocs:  [][]interface{}{{"body", "amount"}},
			wantTypes: []string{"float_parsing"},
		},
		{
			name:      "amount is a boolean",
			body:      `{"tenant_id":"t1","amount":true,"currency":"USD","customer_id":"c1"}`,
			wantLocs:  [][]interface{}{{"body", "amount"}},
			wantTypes: []string{"float_type"},
		},
		{
			name:      "tenant id is a number",
			body:      `{"tenant_id":7,"amount":1,"currency":"USD","customer_id":"c1"}`,
			wantLocs:  [][]interface{}{{"body", "tenant_id"}},
			wantTypes: []string{"string_type"},
		},
		{
			name:      "empty object",
			body:      `{}`,
			wantLocs:  [][]interface{}{{"body", "amount"}, {"body", "currency"}, {"body", "customer_id"}, {"body", "tenant_id"}},
			wantTypes: []string{"missing", "missing", "missing", "missing"},
		},
		{
			name:      "array body",
			body:      `[1,2]`,
			wantLocs:  [][]interface{}{{"body"}},
			wantTypes: []string{"model_attributes_type"},
		},
		{
			name:      "malformed json",
			body:      `{"tenant_id":`,
			wantLocs:  [][]interface{}{{"body"}},
			wantTypes: []string{"json_invalid"},
		},
		{
			name:      "empty body",
			body:      "",
			wantLocs:  [][]interface{}{{"body"}},
			wantTypes: []string{"missing"},
		},
	}

	h := createTestHandler(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/predict/anomaly", tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			assert.Empty(t, rec.Header().Get(PredictionIDHeader))

			details, ok := decodeBody(t, rec)["detail"].([]interface{})
			require.True(t, ok)
			require.Len(t, details, len(tt.wantLocs))
			for i, d := range details {
				entry := d.(map[string]interface{})
				assert.Equal(t, tt.wantLocs[i], entry["loc"])
				assert.Equal(t, tt.wantTypes[i], entry["type"])
				assert.NotEmpty(t, entry["msg"])
			}
		})
	}
}

func TestPredictAnomaly_MethodNotAllowed(t *testing.T) {
	rec := do(createTestHandler(t, nil), http.MethodGet, "/predict/anomaly", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "Method Not Allowed", decodeBody(t, rec)["detail"])
}

func TestNotFound(t *testing.T) {
	rec := do(createTestHandler(t, nil), http.MethodGet, "/predict", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not Found", decodeBody(t, rec)["detail"])
}

func TestTenantStats(t *testing.T) {
	h := createTestHandler(t, &stubStats{stats: TenantStats{Anomalous: 3, Normal: 9}})

	rec := do(h, http.MethodGet, "/tenants/tenant-007/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{
		"tenant_id": "tenant-007",
		"anomalous": float64(3),
		"normal":    float64(9),
	}, decodeBody(t, rec))

	failing := createTestHandler(t, &stubStats{err: errors.New("redis down")})
	assert.Equal(t, http.StatusServiceUnavailable, do(failing, http.MethodGet, "/tenants/t/stats", "").Code)

	disabled := createTestHandler(t, nil)
	assert.Equal(t, http.StatusNotFound, do(disabled, http.MethodGet, "/tenants/t/stats", "").Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := createTestHandler(t, nil)
	do(h, http.MethodGet, "/health", "")

	rec := do(h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_request_duration_seconds")
}
