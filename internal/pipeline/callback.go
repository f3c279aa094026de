package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/wavetotxt/wavetotxt/internal/config"
	"github.com/wavetotxt/wavetotxt/internal/core"
	"github.com/wavetotxt/wavetotxt/internal/jobstore"
	"github.com/wavetotxt/wavetotxt/internal/models"
)

// CallbackReceiver reconciles asynchronous completion notices from the
// diarizing provider against the job store. It is idempotent: duplicate
// callbacks for a terminal job are accepted without demoting the record, and
// a callback for an unknown job synthesizes a terminal record so late readers
// do not observe perpetual pending.
type CallbackReceiver struct {
	cfg      *config.Config
	store    jobstore.Store
	objects  core.ObjectStore
	diarizer core.DiarizingSpeechToText
	queue    TaskQueue
}

func NewCallbackReceiver(cfg *config.Config, store jobstore.Store, objects core.ObjectStore, diarizer core.DiarizingSpeechToText, queue TaskQueue) *CallbackReceiver {
	return &CallbackReceiver{cfg: cfg, store: store, objects: objects, diarizer: diarizer, queue: queue}
}

// HandleCompleted fetches the finished transcript and writes the terminal
// completed state. The caller has already authenticated the callback; no
// state is touched before that check.
func (r *CallbackReceiver) HandleCompleted(ctx context.Context, jobID, transcriptID string) error {
	if r.diarizer == nil {
		return fmt.Errorf("diarizing provider: %w", core.ErrConfigurationUnavailable)
	}

	current, err := r.store.GetJob(ctx, jobID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		current = nil
	case err != nil:
		return err
	case current.Status.Terminal():
		// Duplicate delivery; the first write won.
		log.Printf("duplicate callback for terminal job %s ignored", jobID)
		return nil
	}

	utterances, err := r.diarizer.Fetch(ctx, transcriptID)
	if err != nil {
		return fmt.Errorf("fetch transcript %s: %w", transcriptID, err)
	}

	var audioURL string
	if current != nil && current.AudioKey != "" && r.objects != nil {
		audioURL, err = r.objects.PresignGet(ctx, current.AudioKey, r.cfg.AudioURLTTL)
		if err != nil {
			// Playback link is a convenience; completion still lands.
			log.Printf("presign audio for %s: %v", jobID, err)
			audioURL = ""
		}
	}

	if current == nil {
		// Best effort: accept the callback and leave a sane terminal record
		// for any late-arriving read.
		log.Printf("callback for unknown job %s; synthesizing completed record", jobID)
		synth := &models.Job{
			ID:                 jobID,
			Status:             models.StatusCompleted,
			Utterances:         utterances,
			SummaryStatus:      models.SummaryNotStarted,
			DiarizationEnabled: true,
			CreatedAt:          time.Now().UTC(),
		}
		if err := r.store.CreateJob(ctx, synth); err != nil && !errors.Is(err, core.ErrJobExists) {
			return err
		}
		return nil
	}

	if _, err := updateJob(ctx, r.store, jobID, func(j *models.Job) {
		if j.Status.Terminal() {
			return
		}
		j.Status = models.StatusCompleted
		j.Utterances = utterances
		j.AudioURL = audioURL
		j.SummaryStatus = models.SummaryNotStarted
		j.Error = ""
	}); err != nil {
		return err
	}

	if err := r.queue.EnqueueIndex(ctx, jobID); err != nil {
		log.Printf("enqueue indexing for %s: %v", jobID, err)
	}
	return nil
}

// HandleError writes the terminal failed state for a provider-reported error.
// A job that already completed is never demoted by a late error notice.
func (r *CallbackReceiver) HandleError(ctx context.Context, jobID, providerMessage string) error {
	if providerMessage == "" {
		providerMessage = "transcription provider reported an error"
	}

	_, err := updateJob(ctx, r.store, jobID, func(j *models.Job) {
		if j.Status.Terminal() {
			return
		}
		j.Status = models.StatusFailed
		j.Error = providerMessage
	})
	if errors.Is(err, core.ErrNotFound) {
		log.Printf("error callback for unknown job %s; synthesizing failed record", jobID)
		synth := &models.Job{
			ID:                 jobID,
			Status:             models.StatusFailed,
			Error:              providerMessage,
			DiarizationEnabled: true,
			CreatedAt:          time.Now().UTC(),
		}
		if cerr := r.store.CreateJob(ctx, synth); cerr != nil && !errors.Is(cerr, core.ErrJobExists) {
			return cerr
		}
		return nil
	}
	return err
}
