package anomaly

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// ==========================
// Mock Implementations
// ==========================

type MockSESService struct {
	SendEmailFunc func(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

func (m *MockSESService) SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return m.SendEmailFunc(ctx, params, optFns...)
}

type MockSNSService struct {
	PublishFunc func(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

func (m *MockSNSService) Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error) {
	return m.PublishFunc(ctx, params, optFns...)
}

type recordingRecorder struct {
	mu          sync.Mutex
	predictions []Prediction
	err         error
}

func (r *recordingRecorder) Record(_ context.Context, p Prediction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.predictions = append(r.predictions, p)
	return r.err
}

func (r *recordingRecorder) recorded() []Prediction {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Prediction(nil), r.predictions...)
}

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []Prediction
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, p Prediction) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.alerts = append(n.alerts, p)
	return n.err
}

func (n *recordingNotifier) notified() []Prediction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Prediction(nil), n.alerts...)
}

// ==========================
// Test Helper Functions
// ==========================

func createInvoice(amount float64) InvoiceData {
	return InvoiceData{
		TenantID:   "tenant-001",
		Amount:     amount,
		Currency:   "USD",
		CustomerID: "customer-042",
	}
}

func createPrediction(amount float64) Prediction {
	invoice := createInvoice(amount)
	result, _ := NewThresholdDetector().Predict(context.Background(), invoice)
	return Prediction{
		ID:          "0b7d6c1e-3f0a-4c55-9a51-6d3c2f1e8a90",
		Invoice:     invoice,
		Result:      result,
		PredictedAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}
