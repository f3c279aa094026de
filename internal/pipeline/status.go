package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/wavetotxt/wavetotxt/internal/core"
	"github.com/wavetotxt/wavetotxt/internal/jobstore"
	"github.com/wavetotxt/wavetotxt/internal/models"
)

// StatusDistributor serves job state to observers without mutating it. Both
// access modes strip the object storage reference before the record leaves.
type StatusDistributor struct {
	store    jobstore.Store
	interval time.Duration
}

func NewStatusDistributor(store jobstore.Store, interval time.Duration) *StatusDistributor {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &StatusDistributor{store: store, interval: interval}
}

// Get is the point read: the current stripped record, or core.ErrNotFound.
func (d *StatusDistributor) Get(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := d.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return job.Stripped(), nil
}

// Stream polls the store on a fixed interval and emits each observed state.
// The channel closes after a terminal event: transcription failed, terminal
// summary status, or the job vanishing (emitted as a failed "Task not found."
// snapshot). Cancel the context to disconnect. Staleness up to one interval
// is expected; the loop never polls faster than the interval.
func (d *StatusDistributor) Stream(ctx context.Context, jobID string) <-chan models.Job {
	out := make(chan models.Job)

	go func() {
		defer close(out)
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()

		for {
			snap, terminal := d.snapshot(ctx, jobID)
			select {
			case out <- snap:
			case <-ctx.Done():
				return
			}
			if terminal {
				return
			}
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func (d *StatusDistributor) snapshot(ctx context.Context, jobID string) (models.Job, bool) {
	job, err := d.store.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return models.Job{ID: jobID, Status: models.StatusFailed, Error: "Task not found."}, true
		}
		return models.Job{ID: jobID, Status: models.StatusFailed, Error: "Status read failed."}, true
	}

	snap := *job.Stripped()
	terminal := snap.Status == models.StatusFailed || snap.SummaryStatus.Terminal()
	return snap, terminal
}
