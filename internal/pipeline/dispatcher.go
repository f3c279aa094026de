package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/wavetotxt/wavetotxt/internal/config"
	"github.com/wavetotxt/wavetotxt/internal/core"
	"github.com/wavetotxt/wavetotxt/internal/jobstore"
	"github.com/wavetotxt/wavetotxt/internal/models"
)

// Dispatcher drives one transcription job through the path its diarization
// flag selects. The synchronous path (diarization off) is completed in-line;
// the asynchronous path only submits to the diarizing provider and leaves
// completion to the CallbackReceiver.
type Dispatcher struct {
	cfg      *config.Config
	store    jobstore.Store
	objects  core.ObjectStore
	stt      core.SpeechToText
	diarizer core.DiarizingSpeechToText
	queue    TaskQueue
}

func NewDispatcher(cfg *config.Config, store jobstore.Store, objects core.ObjectStore, stt core.SpeechToText, diarizer core.DiarizingSpeechToText, queue TaskQueue) *Dispatcher {
	return &Dispatcher{cfg: cfg, store: store, objects: objects, stt: stt, diarizer: diarizer, queue: queue}
}

// Process runs in the worker. Provider failures on the synchronous path are
// written as a terminal failed state and not returned, so the task is never
// retried; retry is a client re-submission.
func (d *Dispatcher) Process(ctx context.Context, jobID, objectKey string, diarization bool) error {
	if diarization {
		return d.submitDiarized(ctx, jobID, objectKey)
	}
	return d.runSync(ctx, jobID, objectKey)
}

func (d *Dispatcher) runSync(ctx context.Context, jobID, objectKey string) error {
	fail := func(err error) error {
		log.Printf("transcription failed for %s: %v", jobID, err)
		if _, werr := updateJob(ctx, d.store, jobID, func(j *models.Job) {
			if j.Status.Terminal() {
				return
			}
			j.Status = models.StatusFailed
			j.Error = fmt.Sprintf("Transcription failed: %v", err)
		}); werr != nil {
			log.Printf("could not record failure for %s: %v", jobID, werr)
		}
		return nil
	}

	if d.objects == nil {
		return fail(fmt.Errorf("object storage: %w", core.ErrConfigurationUnavailable))
	}
	if d.stt == nil {
		return fail(fmt.Errorf("speech-to-text: %w", core.ErrConfigurationUnavailable))
	}

	audio, err := d.objects.GetReader(ctx, objectKey)
	if err != nil {
		return fail(err)
	}
	defer audio.Close()

	text, err := d.stt.Transcribe(ctx, objectKey, audio)
	if err != nil {
		return fail(err)
	}

	audioURL, err := d.objects.PresignGet(ctx, objectKey, d.cfg.AudioURLTTL)
	if err != nil {
		return fail(err)
	}

	if _, err := updateJob(ctx, d.store, jobID, func(j *models.Job) {
		j.Status = models.StatusCompleted
		j.Utterances = []models.Utterance{{Text: text}}
		j.AudioURL = audioURL
		j.SummaryStatus = models.SummaryNotStarted
		j.Error = ""
	}); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			log.Printf("job %s vanished before completion write", jobID)
			return nil
		}
		return err
	}

	if err := d.queue.EnqueueIndex(ctx, jobID); err != nil {
		// Indexing is an enhancement; the transcription stays completed.
		log.Printf("enqueue indexing for %s: %v", jobID, err)
	}
	return nil
}

func (d *Dispatcher) submitDiarized(ctx context.Context, jobID, objectKey string) error {
	fail := func(err error) error {
		log.Printf("diarized submission failed for %s: %v", jobID, err)
		if _, werr := updateJob(ctx, d.store, jobID, func(j *models.Job) {
			if j.Status.Terminal() {
				return
			}
			j.Status = models.StatusFailed
			j.Error = fmt.Sprintf("Transcription failed: %v", err)
		}); werr != nil {
			log.Printf("could not record failure for %s: %v", jobID, werr)
		}
		return nil
	}

	if !d.cfg.CallbackConfigured() || d.diarizer == nil {
		return fail(fmt.Errorf("callback path: %w", core.ErrConfigurationUnavailable))
	}
	if d.objects == nil {
		return fail(fmt.Errorf("object storage: %w", core.ErrConfigurationUnavailable))
	}

	// The provider fetches the audio itself; hand it a presigned URL so the
	// bucket stays private.
	audioURL, err := d.objects.PresignGet(ctx, objectKey, d.cfg.AudioURLTTL)
	if err != nil {
		return fail(err)
	}

	transcriptID, err := d.diarizer.Submit(ctx, audioURL, d.cfg.CallbackURL(jobID), config.CallbackSecretHeader, d.cfg.CallbackSecret)
	if err != nil {
		return fail(err)
	}

	log.Printf("job %s submitted for diarized transcription (transcript %s)", jobID, transcriptID)
	// The job stays pending; the CallbackReceiver owns completion.
	return nil
}
