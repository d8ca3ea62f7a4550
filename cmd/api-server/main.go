package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dentaflow/clinic-scheduling/internal/api"
	"github.com/dentaflow/clinic-scheduling/internal/billing"
	"github.com/dentaflow/clinic-scheduling/internal/capacity"
	"github.com/dentaflow/clinic-scheduling/internal/config"
	"github.com/dentaflow/clinic-scheduling/internal/db"
	"github.com/dentaflow/clinic-scheduling/internal/directory"
	"github.com/dentaflow/clinic-scheduling/internal/logging"
	redisclient "github.com/dentaflow/clinic-scheduling/internal/redis"
	"github.com/dentaflow/clinic-scheduling/internal/scheduling"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config load error: " + err.Error() + "\n")
		os.Exit(1)
	}

	logger := logging.New(cfg)
	logger.Info("api-server starting", "env", cfg.Env, "http_port", cfg.HTTPPort)

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
	logger.Info("connected to postgres")

	if cfg.MigrateOnStart {
		migCtx, cancelMig := context.WithTimeout(rootCtx, 30*time.Second)
		err := db.Migrate(migCtx, pgPool)
		cancelMig()
		if err != nil {
			logger.Error("migration error", "err", err)
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

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
	logger.Info("connected to redis")

	locker := redisclient.NewRedisDoctorLocker(rdb, cfg.LockTTL)
	ledger := billing.NewLedger(pgPool)

	schedSvc := scheduling.NewService(
		scheduling.NewPgRepository(pgPool),
		locker,
		ledger,
		logger.With("component", "scheduling"),
	)

	fallbackPlan := capacity.Plan{
		Code:        "free",
		Name:        "Free",
		MaxAdmins:   cfg.DefaultMaxAdmins,
		MaxDoctors:  cfg.DefaultMaxDoctors,
		MaxPatients: cfg.DefaultMaxPatients,
	}
	dirSvc := directory.NewService(
		directory.NewPgRepository(pgPool),
		fallbackPlan,
		logger.With("component", "directory"),
	)

	router := api.NewRouter(api.RouterConfig{
		Scheduling: schedSvc,
		Directory:  dirSvc,
		PgPool:     pgPool,
		Redis:      rdb,
		Logger:     logger,
		Env:        cfg.Env,
		Version:    version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}

	logger.Info("api-server stopped")
}
