package anomaly

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	apperrors "billing-tools/internal/common/errors"
	"billing-tools/internal/common/metrics"
)

const statsKeyPrefix = "anomaly:stats:"

// RedisRecorder keeps per-tenant counters of anomalous and normal predictions
// in a hash at anomaly:stats:<tenant_id>.
type RedisRecorder struct {
	client *redis.Client
}

func NewRedisRecorder(client *redis.Client) *RedisRecorder {
	return &RedisRecorder{client: client}
}

func statsKey(tenantID string) string {
	return statsKeyPrefix + tenantID
}

func (r *RedisRecorder) Record(ctx context.Context, prediction Prediction) error {
	field := metrics.ResultLabel(prediction.Result.IsAnomalous)
	if err := r.client.HIncrBy(ctx, statsKey(prediction.Invoice.TenantID), field, 1).Err(); err != nil {
		return apperrors.NewPredictionRecordFailedError("redis", err)
	}
	return nil
}

// Stats returns zero counters for tenants that have no predictions yet.
func (r *RedisRecorder) Stats(ctx context.Context, tenantID string) (TenantStats, error) {
	values, err := r.client.HGetAll(ctx, statsKey(tenantID)).Result()
	if err != nil {
		return TenantStats{}, apperrors.NewPredictionRecordFailedError("redis", err)
	}

	stats := TenantStats{TenantID: tenantID}
	if stats.Anomalous, err = parseCounter(values, "anomalous"); err != nil {
		return TenantStats{}, apperrors.NewPredictionRecordFailedError("redis", err)
	}
	if stats.Normal, err = parseCounter(values, "normal"); err != nil {
		return TenantStats{}, apperrors.NewPredictionRecordFailedError("redis", err)
	}
	return stats, nil
}

func parseCounter(values map[string]string, field string) (int64, error) {
	v, ok := values[field]
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %s: %w", field, err)
	}
	return n, nil
}
