package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hcsem/communityhub/internal/domain/job"
	"github.com/hcsem/communityhub/internal/jobs"
	"github.com/hcsem/communityhub/internal/notifications"
)

func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {

	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)

	j, err := w.repo.ClaimNext(claimCtx, w.cfg.WorkerID)
	cancel()

	if err != nil {
		if errors.Is(err, job.ErrJobNotFound) {
			return false, nil
		}

		return false, err
	}

	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	start := time.Now()

	err = w.execute(ctx, j)

	if err != nil {
		w.observeJob(j.Type, "retry", time.Since(start))
		w.handleFailure(ctx, j, err)
		return true, nil
	}

	err = w.repo.MarkDone(ctx, j.ID)

	if err != nil {
		_ = w.repo.MarkFailed(ctx, j.ID, "mark_done_failed: "+err.Error())
		return true, err
	}

	w.observeJob(j.Type, "done", time.Since(start))

	return true, nil
}

func (w *Worker) execute(ctx context.Context, j job.Job) error {
	switch j.Type {
	case jobs.TypePasswordResetEmail:
		var p jobs.PasswordResetEmailPayload

		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}

		return w.notifier.SendPasswordReset(ctx, notifications.SendPasswordResetInput{
			Email:     p.Email,
			FullName:  p.FullName,
			ResetURL:  p.ResetURL,
			ExpiresAt: p.ExpiresAt,
		})

	default:
		return fmt.Errorf("unknown job type %q", j.Type)
	}
}

// handleFailure retries with backoff until the attempt budget runs out, then
// parks the job as failed with its last error.
func (w *Worker) handleFailure(ctx context.Context, j job.Job, execErr error) {
	if j.Attempts+1 >= j.MaxAttempts {
		w.observeJob(j.Type, "failed", 0)

		if err := w.repo.MarkFailed(ctx, j.ID, execErr.Error()); err != nil {
			w.log.Error("mark failed error", "job_id", j.ID, "err", err)
		}

		w.log.Warn("job exhausted attempts", "job_id", j.ID, "type", j.Type, "err", execErr)
		return
	}

	runAt := time.Now().UTC().Add(ExponentialBackoff(j.Attempts))

	if err := w.repo.Reschedule(ctx, j.ID, runAt, execErr.Error()); err != nil {
		w.log.Error("reschedule error", "job_id", j.ID, "err", err)
	}
}

func (w *Worker) observeJob(jobType, result string, d time.Duration) {
	if w.prom == nil {
		return
	}

	w.prom.JobResults.WithLabelValues(jobType, result).Inc()

	if d > 0 {
		w.prom.JobDuration.WithLabelValues(jobType, result).Observe(d.Seconds())
	}
}
