// internal/common/camunda/worker.go
package camunda

import (
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"billing-tools/internal/common/logger"
)

// StartWorker opens a job worker for taskType. Close the returned worker
// before closing the client.
func StartWorker(client zbc.Client, taskType string, maxJobsActive int, timeout time.Duration, handler worker.JobHandler, log logger.Logger) worker.JobWorker {
	if maxJobsActive <= 0 {
		maxJobsActive = 1
	}

	jobWorker := client.NewJobWorker().
		JobType(taskType).
		Handler(handler).
		MaxJobsActive(maxJobsActive).
		Timeout(timeout).
		Name("anomaly-sidecar").
		Open()

	log.Info("worker started", map[string]interface{}{
		"taskType":      taskType,
		"maxJobsActive": maxJobsActive,
	})
	return jobWorker
}
