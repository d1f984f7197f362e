// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"vinreport-workers/internal/app"
	"vinreport-workers/internal/common/camunda"
	"vinreport-workers/internal/common/config"
	"vinreport-workers/internal/common/logger"
	"vinreport-workers/internal/common/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New("info", "console")
		bootLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	log.Info("starting worker manager", map[string]interface{}{
		"environment": cfg.App.Environment,
		"broker":      cfg.Camunda.BrokerAddress,
	})

	obs := observability.New(cfg.App.Name, log)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := app.BuildPipeline(ctx, cfg, true, log)
	if err != nil {
		zapLog.Fatal("pipeline setup failed", zap.Error(err))
	}
	defer pipeline.Close()

	zeebe, err := camunda.NewClientWithConfig(ctx, &camunda.ClientConfig{
		GatewayAddress:         cfg.Camunda.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      config.GetDuration(cfg.Camunda.RequestTimeout),
	}, log)
	if err != nil {
		zapLog.Fatal("zeebe client failed", zap.Error(err))
	}

	workers := camunda.NewWorkers(zeebe.GetClient(), log)
	started, err := app.RegisterWorkers(cfg, pipeline, workers, obs, log)
	if err != nil {
		workers.Stop()
		zeebe.Close()
		zapLog.Fatal("worker registration failed", zap.Error(err))
	}
	log.Info("workers registered", map[string]interface{}{
		"count":     started,
		"taskTypes": workers.Running(),
	})

	var ready atomic.Bool
	ready.Store(true)
	srv := &http.Server{
		Addr:              cfg.Metrics.Address,
		Handler:           newMux(zeebe, pipeline, &ready),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		log.Info("health/metrics server listening", map[string]interface{}{"address": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health/metrics server failed", map[string]interface{}{"error": err.Error()})
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, stopping workers", nil)
	ready.Store(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	workers.Stop()
	if err := zeebe.Close(); err != nil {
		log.Error("error closing zeebe client", map[string]interface{}{"error": err.Error()})
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("error stopping health server", map[string]interface{}{"error": err.Error()})
	}

	log.Info("worker manager stopped", nil)
}

type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

func newMux(zeebe healthChecker, pipeline *app.Pipeline, ready *atomic.Bool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeStatus(w, http.StatusOK, "healthy", nil)
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			writeStatus(w, http.StatusServiceUnavailable, "stopping", nil)
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		checks := map[string]string{"zeebe": "ok"}
		status := http.StatusOK
		if err := zeebe.HealthCheck(ctx); err != nil {
			checks["zeebe"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if pipeline != nil && pipeline.Redis != nil {
			checks["redis"] = "ok"
			if err := pipeline.Redis.Ping(ctx); err != nil {
				checks["redis"] = err.Error()
				status = http.StatusServiceUnavailable
			}
		}

		label := "ready"
		if status != http.StatusOK {
			label = "not ready"
		}
		writeStatus(w, status, label, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeStatus(w http.ResponseWriter, code int, status string, checks map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	body := map[string]interface{}{
		"status": status,
		"time":   time.Now().Format(time.RFC3339),
	}
	if checks != nil {
		body["checks"] = checks
	}
	json.NewEncoder(w).Encode(body)
}
