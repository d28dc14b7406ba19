// cmd/anomaly-sidecar/serve.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/spf13/cobra"

	"billing-tools/internal/anomaly"
	awsclient "billing-tools/internal/common/aws"
	"billing-tools/internal/common/camunda"
	"billing-tools/internal/common/config"
	"billing-tools/internal/common/database"
	"billing-tools/internal/common/logger"
	"billing-tools/internal/common/observability"
	predictanomaly "billing-tools/internal/workers/billing/predict-anomaly"
)

type loadFunc func() (*config.Config, logger.Logger, error)

func newServeCmd(load loadFunc) *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and, when enabled, the Zeebe job worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := load()
			if err != nil {
				return err
			}
			defer log.Sync()
			if address != "" {
				cfg.Server.Address = address
			}
			return serve(cmd.Context(), cfg, log)
		},
	}
	cmd.Flags().StringVar(&address, "address", "", "listen address (default server.address)")
	return cmd
}

// components holds the wired service and everything that must be closed on shutdown.
type components struct {
	service *anomaly.Service
	stats   anomaly.StatsReader
	closers []func() error
}

func (c *components) Close(log logger.Logger) {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Warn("failed to close component", map[string]interface{}{"error": err})
		}
	}
}

// buildService wires the enabled recorders and notifiers around the threshold
// detector. Unreachable backends are logged and kept; their failures only
// affect side effects.
func buildService(ctx context.Context, cfg *config.Config, obs *observability.Observability, log logger.Logger) (*components, error) {
	c := &components{}
	var (
		recorders anomaly.MultiRecorder
		notifiers anomaly.MultiNotifier
	)

	if cfg.Anomaly.Redis.Enabled {
		rdb := database.NewRedis(cfg.Database.Redis)
		c.closers = append(c.closers, rdb.Close)
		if err := rdb.Ping(ctx); err != nil {
			log.Warn("redis unreachable at startup", map[string]interface{}{"error": err})
		}
		redisRecorder := anomaly.NewRedisRecorder(rdb.Client)
		recorders = append(recorders, redisRecorder)
		c.stats = redisRecorder
		log.Info("redis prediction counters enabled", map[string]interface{}{"address": cfg.Database.Redis.Address})
	}

	if cfg.Anomaly.Elasticsearch.Enabled {
		es, err := database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			c.Close(log)
			return nil, err
		}
		if err := es.Ping(ctx); err != nil {
			log.Warn("elasticsearch unreachable at startup", map[string]interface{}{"error": err})
		}
		recorders = append(recorders, anomaly.NewElasticsearchRecorder(es.Client, cfg.Anomaly.Elasticsearch.Index))
		log.Info("elasticsearch prediction audit enabled", map[string]interface{}{"index": cfg.Anomaly.Elasticsearch.Index})
	}

	if cfg.Alerts.SNS.Enabled || cfg.Alerts.SES.Enabled {
		awsCfg, err := awsclient.LoadConfig(ctx, cfg.AWS.Region)
		if err != nil {
			c.Close(log)
			return nil, err
		}
		if cfg.Alerts.SNS.Enabled {
			notifiers = append(notifiers, anomaly.NewSNSNotifier(awsclient.NewSNS(awsCfg), cfg.Alerts.SNS.TopicARN))
		}
		if cfg.Alerts.SES.Enabled {
			notifiers = append(notifiers, anomaly.NewSESNotifier(awsclient.NewSES(awsCfg), cfg.Alerts.SES.FromEmail, cfg.Alerts.SES.Recipients))
		}
		log.Info("anomaly alerts enabled", map[string]interface{}{
			"sns": cfg.Alerts.SNS.Enabled,
			"ses": cfg.Alerts.SES.Enabled,
		})
	}

	opts := []anomaly.ServiceOption{
		anomaly.WithObservability(obs),
		anomaly.WithSideEffectTimeout(config.GetDuration(cfg.Anomaly.SideEffectTimeout)),
	}
	if len(recorders) > 0 {
		opts = append(opts, anomaly.WithRecorder(recorders))
	}
	if len(notifiers) > 0 {
		opts = append(opts, anomaly.WithNotifier(notifiers))
	}

	c.service = anomaly.NewService(anomaly.NewThresholdDetector(), log, opts...)
	return c, nil
}

// startWorker connects to Zeebe and opens the predict-invoice-anomaly worker.
func startWorker(ctx context.Context, cfg config.CamundaConfig, service *anomaly.Service, log logger.Logger) (zbc.Client, worker.JobWorker, error) {
	client, err := camunda.Connect(ctx, cfg, camunda.DefaultRetryConfig, log)
	if err != nil {
		return nil, nil, err
	}

	workerCfg := workerConfig(cfg)
	handler := predictanomaly.NewHandler(workerCfg, service, log)
	jobWorker := camunda.StartWorker(client, predictanomaly.TaskType, cfg.MaxJobsActive, workerCfg.Timeout, handler.Handle, log)
	return client, jobWorker, nil
}

// workerConfig applies camunda.timeout over the worker defaults.
func workerConfig(cfg config.CamundaConfig) *predictanomaly.Config {
	workerCfg := predictanomaly.LoadConfig()
	if cfg.Timeout > 0 {
		workerCfg.Timeout = config.GetDuration(cfg.Timeout)
	}
	return workerCfg
}

func serve(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	obs := observability.New("anomaly-sidecar", log)
	defer obs.Shutdown(context.Background())

	c, err := buildService(ctx, cfg, obs, log)
	if err != nil {
		return err
	}
	defer c.Close(log)

	if cfg.Camunda.Enabled {
		client, jobWorker, err := startWorker(ctx, cfg.Camunda, c.service, log)
		if err != nil {
			return err
		}
		defer client.Close()
		defer jobWorker.Close()
	}

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      anomaly.NewHandler(c.service, c.stats, log),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", map[string]interface{}{"address": server.Addr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	return nil
}
