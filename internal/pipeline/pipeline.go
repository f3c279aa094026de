// Package pipeline implements the job lifecycle: dual-path transcription
// dispatch, callback reconciliation, summarization and status distribution.
// The job store is the single source of truth; every writer re-reads the
// record immediately before writing and merges onto it, and terminal
// transcription states are never demoted.
package pipeline

import (
	"context"
	"fmt"

	"github.com/wavetotxt/wavetotxt/internal/jobstore"
	"github.com/wavetotxt/wavetotxt/internal/models"
)

// TaskQueue hands work to the background worker pool. Implemented by
// internal/queue over asynq; tests plug in fakes.
type TaskQueue interface {
	EnqueueTranscription(ctx context.Context, jobID, objectKey string, diarization bool) error
	EnqueueSummary(ctx context.Context, jobID string) error
	EnqueueIndex(ctx context.Context, jobID string) error
}

// updateJob performs the read-merge-write cycle on a job record. The store
// has no partial update, so mutate receives the freshest copy; if the record
// was already terminal, the transcription status is pinned so concurrent
// stages can still merge their fields without regressing it.
func updateJob(ctx context.Context, store jobstore.Store, id string, mutate func(j *models.Job)) (*models.Job, error) {
	job, err := store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	prev := job.Status
	mutate(job)
	if prev.Terminal() && job.Status != prev {
		job.Status = prev
	}
	if err := store.SetJob(ctx, job); err != nil {
		return nil, fmt.Errorf("write job %s: %w", id, err)
	}
	return job, nil
}
