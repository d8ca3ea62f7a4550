package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dentaflow/clinic-scheduling/internal/billing"
	"github.com/dentaflow/clinic-scheduling/internal/config"
	"github.com/dentaflow/clinic-scheduling/internal/db"
	"github.com/dentaflow/clinic-scheduling/internal/logging"
	redisclient "github.com/dentaflow/clinic-scheduling/internal/redis"
	"github.com/dentaflow/clinic-scheduling/internal/scheduling"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg).With("component", "noshow-worker")
	logger.Info("noshow-worker starting", "env", cfg.Env, "interval", cfg.WorkerInterval.String(), "grace", cfg.NoShowGrace.String())

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		logger.Error("postgres connection error", "err", err)
		os.Exit(1)
	}
	defer pgPool.Close()

	rdb, err := redisclient.NewRedisClient(cfg)
	if err != nil {
		logger.Error("redis connection error", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Warn("error closing redis", "err", err)
		}
	}()

	svc := scheduling.NewService(
		scheduling.NewPgRepository(pgPool),
		redisclient.NewRedisDoctorLocker(rdb, cfg.LockTTL),
		billing.NewLedger(pgPool),
		logger,
	)

	// Run once at startup
	runOnce(rootCtx, svc, cfg.NoShowGrace, logger)

	ticker := time.NewTicker(cfg.WorkerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rootCtx.Done():
			logger.Info("shutdown signal received, stopping noshow worker")
			return
		case <-ticker.C:
			runOnce(rootCtx, svc, cfg.NoShowGrace, logger)
		}
	}
}

func runOnce(ctx context.Context, svc *scheduling.Service, grace time.Duration, logger *slog.Logger) {
	runCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	start := time.Now()
	swept, err := svc.SweepNoShows(runCtx, grace)
	if err != nil {
		logger.Error("no-show sweep error", "err", err)
		return
	}
	logger.Info("no-show sweep complete", "swept", swept, "duration", time.Since(start).String())
}
