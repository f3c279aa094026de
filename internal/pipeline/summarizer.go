package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/wavetotxt/wavetotxt/internal/core"
	"github.com/wavetotxt/wavetotxt/internal/jobstore"
	"github.com/wavetotxt/wavetotxt/internal/models"
)

const diarizedSummaryPrompt = "Summarize the following transcript, which includes speaker labels. " +
	"Provide a concise summary of the key points, decisions, and action items. " +
	"Pay close attention to who said what and attribute points to the correct speakers. " +
	"Do not include any introductory or concluding remarks, just the summary itself:\n\n%s"

const plainSummaryPrompt = "Summarize the following transcript. Provide a concise summary of the key points and topics discussed. " +
	"Do not include any introductory or concluding remarks, just the summary itself:\n\n%s"

// Summarizer owns the summary_status side of the job record, which is
// independent of the transcription status and only meaningful once the
// transcription completed.
type Summarizer struct {
	store jobstore.Store
	llm   core.LLMProvider
	queue TaskQueue
}

func NewSummarizer(store jobstore.Store, llm core.LLMProvider, queue TaskQueue) *Summarizer {
	return &Summarizer{store: store, llm: llm, queue: queue}
}

// Trigger requests a summary. It is idempotent: if a summary is already
// pending or completed the request is accepted but no new work starts, and
// started=false tells the caller apart from a fresh start. Returns
// core.ErrNotFound for unknown jobs and core.ErrNotReady before completion.
func (s *Summarizer) Trigger(ctx context.Context, jobID string) (started bool, err error) {
	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return false, err
	}
	if job.Status != models.StatusCompleted {
		return false, core.ErrNotReady
	}
	if job.SummaryStatus == models.SummaryPending || job.SummaryStatus == models.SummaryCompleted {
		return false, nil
	}

	if _, err := updateJob(ctx, s.store, jobID, func(j *models.Job) {
		j.SummaryStatus = models.SummaryPending
		j.SummaryError = ""
	}); err != nil {
		return false, err
	}

	if err := s.queue.EnqueueSummary(ctx, jobID); err != nil {
		// Roll the marker back so a retry is possible.
		if _, werr := updateJob(ctx, s.store, jobID, func(j *models.Job) {
			j.SummaryStatus = models.SummaryFailed
			j.SummaryError = "could not schedule summarization"
		}); werr != nil {
			log.Printf("could not roll back summary status for %s: %v", jobID, werr)
		}
		return false, err
	}
	return true, nil
}

// Generate runs in the worker. Failures are recorded on the record, never
// returned for retry.
func (s *Summarizer) Generate(ctx context.Context, jobID string) error {
	fail := func(err error) error {
		log.Printf("summarization failed for %s: %v", jobID, err)
		if _, werr := updateJob(ctx, s.store, jobID, func(j *models.Job) {
			j.SummaryStatus = models.SummaryFailed
			j.SummaryError = err.Error()
		}); werr != nil {
			log.Printf("could not record summary failure for %s: %v", jobID, werr)
		}
		return nil
	}

	job, err := s.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != models.StatusCompleted {
		log.Printf("summary task for %s skipped: transcription not completed", jobID)
		return nil
	}
	if len(job.Utterances) == 0 {
		return fail(core.ErrNoContent)
	}
	if s.llm == nil {
		return fail(fmt.Errorf("text generation: %w", core.ErrConfigurationUnavailable))
	}

	template := plainSummaryPrompt
	if job.DiarizationEnabled {
		template = diarizedSummaryPrompt
	}
	prompt := fmt.Sprintf(template, job.Transcript())

	summary, err := s.llm.Generate(ctx, "", prompt)
	if err != nil {
		return fail(err)
	}

	// Re-read right before writing: the indexer may have completed for this
	// job while the model was generating.
	if _, err := updateJob(ctx, s.store, jobID, func(j *models.Job) {
		j.Summary = summary
		j.SummaryStatus = models.SummaryCompleted
		j.SummaryError = ""
	}); err != nil {
		return err
	}
	return nil
}
