package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hcsem/communityhub/internal/domain/job"
	"github.com/hcsem/communityhub/internal/notifications"
	"github.com/hcsem/communityhub/internal/observability"
)

type JobsRepository interface {
	ClaimNext(ctx context.Context, workerID string) (job.Job, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Reschedule(ctx context.Context, id string, runAt time.Time, errMsg string) error
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	ShutdownGrace time.Duration
}

// Worker drains the jobs table. Claims go through SKIP LOCKED so any number
// of replicas can run side by side.
type Worker struct {
	cfg      Config
	repo     JobsRepository
	notifier notifications.Notifier
	prom     *observability.Prom
	log      *slog.Logger

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo JobsRepository, notifier notifications.Notifier, prom *observability.Prom, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}

	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}

	return &Worker{
		cfg:      cfg,
		repo:     repo,
		notifier: notifier,
		prom:     prom,
		log:      log,
	}
}

func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker received shutdown signal")
			return nil

		case <-ticker.C:
			// drain until the queue is empty, then go back to polling
			for {
				processed, err := w.ProcessOne(ctx)

				if err != nil {
					w.log.Error("job processing error", "err", err)
					break
				}

				if !processed {
					break
				}
			}
		}
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}
