package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/hcsem/communityhub/internal/config"
	"github.com/hcsem/communityhub/internal/db"
	"github.com/hcsem/communityhub/internal/notifications"
	"github.com/hcsem/communityhub/internal/observability"
	"github.com/hcsem/communityhub/internal/queue/worker"
	"github.com/hcsem/communityhub/internal/repo/postgres"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	log := observability.NewLogger(cfg.Env)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	pool, err := db.NewPool(cfg.DBURL)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	reg := prometheus.NewRegistry()
	prom := observability.NewProm(reg)

	jobsRepo := postgres.NewJobsRepo(pool, prom)

	notifier := notifications.NewProtectedNotifier(
		notifications.NewLogNotifier(),
		notifications.ProtectedNotifierConfig{},
	)

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval:  500 * time.Millisecond,
		WorkerID:      workerID,
		ShutdownGrace: 10 * time.Second,
	}, jobsRepo, notifier, prom, log)

	healthAddr := os.Getenv("WORKER_HEALTH_ADDR")

	if healthAddr == "" {
		healthAddr = ":8081"
	}

	healthSrv := &http.Server{
		Addr:              healthAddr,
		Handler:           w.HealthHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("worker health server failed", "err", err)
		}
	}()

	log.Info("worker has started", "worker_id", workerID)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	sctx, cancel := config.WithTimeout(context.Background(), 5*time.Second)

	defer cancel()

	_ = healthSrv.Shutdown(sctx)

	log.Info("worker shutdown complete")
}
