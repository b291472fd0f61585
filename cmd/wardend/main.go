// Command wardend runs the coordinated maintenance daemon: it wires the
// configured backends, starts the periodic runner and serves Prometheus
// metrics until interrupted.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/langfork/warden/config"
	"github.com/langfork/warden/lock"
	"github.com/langfork/warden/logging/zaplog"
	"github.com/langfork/warden/maintenance"
	"github.com/langfork/warden/metrics"
)

var runNow = flag.Bool("run-now", false, "trigger one maintenance cycle immediately after start")

func main() {
	flag.Parse()
	cfg := config.Load()

	zl, err := newZap(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	logger := zaplog.New(zl)

	if cfg.TraceStdout {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			zl.Fatal("trace exporter", zap.Error(err))
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
		otel.SetTracerProvider(tp)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tp.Shutdown(ctx)
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// One daemon per host: other wardend processes on the same machine
	// block here until this one exits.
	workers, err := lock.NewWorkerManager(workerOpts(cfg)...)
	if err != nil {
		zl.Fatal("worker lock manager", zap.Error(err))
	}
	release, err := workers.Acquire(ctx, "wardend")
	if err != nil {
		zl.Fatal("acquire daemon lock", zap.Error(err))
	}
	defer func() { _ = release() }()

	var (
		coord maintenance.Coordinator = maintenance.Nop{}
		units []maintenance.Unit
	)

	if cfg.DatabaseDSN != "" {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{})
		if err != nil {
			zl.Fatal("database", zap.Error(err))
		}
		coord = maintenance.NewPGCoordinator(db, cfg.TokenName)
		units = append(units,
			maintenance.PurgeUnit("purge-job-runs", db, "job_runs", "updated_at",
				7*24*time.Hour, cfg.CleanupUnitTimeout),
			maintenance.PurgeUnit("purge-result-payloads", db, "result_payloads", "created_at",
				24*time.Hour, cfg.CleanupUnitTimeout),
		)
	} else if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = client.Close() }()
		coord = maintenance.NewRedisCoordinator(client, cfg.TokenName, 2*cfg.CleanupInterval)
	}

	reg := metrics.NewRegistry()
	metrics.RegisterCoreMetrics(reg)
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
			zl.Warn("metrics listener", zap.Error(err))
		}
	}()

	if !cfg.CleanupEnabled {
		zl.Info("cleanup disabled, idling until shutdown")
		<-ctx.Done()
		return
	}

	runner, err := maintenance.NewRunner(maintenance.Config{
		Interval:    cfg.CleanupInterval,
		UnitTimeout: cfg.CleanupUnitTimeout,
		Units:       units,
		Coordinator: coord,
		Logger:      logger,
	})
	if err != nil {
		zl.Fatal("runner", zap.Error(err))
	}
	runner.Start()
	if *runNow {
		runner.RunNow()
	}

	<-ctx.Done()
	runner.Stop()
}

func newZap(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = lvl
	return cfg.Build()
}

func workerOpts(cfg config.Config) []lock.WorkerOption {
	if cfg.LockDir == "" {
		return nil
	}
	return []lock.WorkerOption{lock.WithLockDir(cfg.LockDir)}
}
