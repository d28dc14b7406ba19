package anomaly

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	apperrors "billing-tools/internal/common/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRedisRecorder_RecordAndStats(t *testing.T) {
	mr, client := setupRedis(t)
	recorder := NewRedisRecorder(client)
	ctx := context.Background()

	require.NoError(t, recorder.Record(ctx, createPrediction(15000)))
	require.NoError(t, recorder.Record(ctx, createPrediction(50)))
	require.NoError(t, recorder.Record(ctx, createPrediction(75)))

	assert.Equal(t, "1", mr.HGet("anomaly:stats:tenant-001", "anomalous"))
	assert.Equal(t, "2", mr.HGet("anomaly:stats:tenant-001", "normal"))

	stats, err := recorder.Stats(ctx, "tenant-001")
	require.NoError(t, err)
	assert.Equal(t, TenantStats{TenantID: "tenant-001", Anomalous: 1, Normal: 2}, stats)

	empty, err := recorder.Stats(ctx, "tenant-unknown")
	require.NoError(t, err)
	assert.Equal(t, TenantStats{TenantID: "tenant-unknown"}, empty)
}

func TestRedisRecorder_CorruptCounter(t *testing.T) {
	mr, client := setupRedis(t)
	recorder := NewRedisRecorder(client)
	mr.HSet("anomaly:stats:tenant-001", "anomalous", "3", "normal", "not-a-number")

	_, err := recorder.Stats(context.Background(), "tenant-001")
	require.Error(t, err)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodePredictionRecordFailed, stdErr.Code)
	assert.Contains(t, stdErr.Details, "counter normal")
}

func TestRedisRecorder_Unavailable(t *testing.T) {
	mr, client := setupRedis(t)
	recorder := NewRedisRecorder(client)
	mr.Close()

	err := recorder.Record(context.Background(), createPrediction(15000))
	require.Error(t, err)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodePredictionRecordFailed, stdErr.Code)

	_, err = recorder.Stats(context.Background(), "tenant-001")
	assert.Error(t, err)
}

type indexedDoc struct {
	method string
	path   string
	body   map[string]interface{}
}

func setupElasticsearch(t *testing.T, status int) (*elasticsearch.Client, func() []indexedDoc) {
	var (
		mu   sync.Mutex
		docs []indexedDoc
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)

		mu.Lock()
		docs = append(docs, indexedDoc{method: r.Method, path: r.URL.Path, body: body})
		mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(`{"result":"created"}`))
	}))
	t.Cleanup(server.Close)

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses:    []string{server.URL},
		DisableRetry:  true,
	})
	require.NoError(t, err)

	return client, func() []indexedDoc {
		mu.Lock()
		defer mu.Unlock()
		return append([]indexedDoc(nil), docs...)
	}
}

func TestElasticsearchRecorder_Record(t *testing.T) {
	client, docs := setupElasticsearch(t, http.StatusCreated)
	recorder := NewElasticsearchRecorder(client, "invoice-anomaly-predictions")

	prediction := createPrediction(15000)
	require.NoError(t, recorder.Record(context.Background(), prediction))

	got := docs()
	require.Len(t, got, 1)
	assert.Equal(t, http.MethodPut, got[0].method)
	assert.Equal(t, "/invoice-anomaly-predictions/_doc/"+prediction.ID, got[0].path)
	assert.Equal(t, prediction.ID, got[0].body["prediction_id"])
	assert.Equal(t, "tenant-001", got[0].body["tenant_id"])
	assert.Equal(t, true, got[0].body["is_anomalous"])
	assert.Equal(t, 0.85, got[0].body["confidence_score"])
	assert.Equal(t, "2026-03-14T09:30:00.000Z", got[0].body["predicted_at"])
}

func TestElasticsearchRecorder_ErrorResponse(t *testing.T) {
	client, _ := setupElasticsearch(t, http.StatusBadRequest)
	recorder := NewElasticsearchRecorder(client, "invoice-anomaly-predictions")

	err := recorder.Record(context.Background(), createPrediction(20))
	require.Error(t, err)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodePredictionRecordFailed, stdErr.Code)
}

func TestMultiRecorder(t *testing.T) {
	ok := &recordingRecorder{}
	failing := &recordingRecorder{err: errors.New("backend down")}

	err := MultiRecorder{failing, ok}.Record(context.Background(), createPrediction(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")
	assert.Len(t, ok.recorded(), 1)
	assert.Len(t, failing.recorded(), 1)

	assert.NoError(t, MultiRecorder{}.Record(context.Background(), createPrediction(1)))
}
