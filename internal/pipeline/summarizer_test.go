package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/wavetotxt/wavetotxt/internal/core"
	"github.com/wavetotxt/wavetotxt/internal/jobstore"
	"github.com/wavetotxt/wavetotxt/internal/models"
)

type fakeLLM struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeLLM) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	f.prompts = append(f.prompts, userPrompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func seedCompleted(t *testing.T, store jobstore.Store, id string, diarization bool) {
	t.Helper()
	job := &models.Job{
		ID:                 id,
		Status:             models.StatusCompleted,
		SummaryStatus:      models.SummaryNotStarted,
		DiarizationEnabled: diarization,
		Utterances:         []models.Utterance{{Speaker: speaker("A"), Text: "we agreed to ship friday"}},
	}
	if !diarization {
		job.Utterances = []models.Utterance{{Text: "we agreed to ship friday"}}
	}
	if err := store.CreateJob(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
}

func TestTriggerRequiresCompletedTranscription(t *testing.T) {
	store := jobstore.NewMemoryStore()
	s := NewSummarizer(store, &fakeLLM{}, &fakeTaskQueue{})

	seedPending(t, store, "job-1", false)
	if _, err := s.Trigger(context.Background(), "job-1"); !errors.Is(err, core.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}

	if _, err := s.Trigger(context.Background(), "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTriggerIsIdempotent(t *testing.T) {
	store := jobstore.NewMemoryStore()
	queue := &fakeTaskQueue{}
	s := NewSummarizer(store, &fakeLLM{response: "summary"}, queue)

	seedCompleted(t, store, "job-1", false)
	ctx := context.Background()

	started, err := s.Trigger(ctx, "job-1")
	if err != nil || !started {
		t.Fatalf("first trigger: started=%t err=%v", started, err)
	}
	started, err = s.Trigger(ctx, "job-1")
	if err != nil {
		t.Fatalf("second trigger: %v", err)
	}
	if started {
		t.Fatal("second trigger must not start new work")
	}
	if len(queue.summaries) != 1 {
		t.Fatalf("expected one summary task, got %d", len(queue.summaries))
	}

	job, _ := store.GetJob(ctx, "job-1")
	if job.SummaryStatus != models.SummaryPending {
		t.Fatalf("summary status = %s, want pending", job.SummaryStatus)
	}
}

func TestGenerateWritesSummary(t *testing.T) {
	store := jobstore.NewMemoryStore()
	llm := &fakeLLM{response: "Ship on Friday."}
	s := NewSummarizer(store, llm, &fakeTaskQueue{})

	seedCompleted(t, store, "job-1", true)
	ctx := context.Background()
	if _, err := s.Trigger(ctx, "job-1"); err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if err := s.Generate(ctx, "job-1"); err != nil {
		t.Fatalf("generate: %v", err)
	}

	job, _ := store.GetJob(ctx, "job-1")
	if job.SummaryStatus != models.SummaryCompleted {
		t.Fatalf("summary status = %s, want completed", job.SummaryStatus)
	}
	if job.Summary != "Ship on Friday." {
		t.Fatalf("summary = %q", job.Summary)
	}
	if len(llm.prompts) != 1 || !strings.Contains(llm.prompts[0], "speaker labels") {
		t.Fatal("diarized transcript must use the speaker-aware prompt")
	}
	if !strings.Contains(llm.prompts[0], "Speaker A: we agreed to ship friday") {
		t.Fatalf("prompt missing transcript: %q", llm.prompts[0])
	}
}

func TestGenerateRecordsFailureWithoutRetry(t *testing.T) {
	store := jobstore.NewMemoryStore()
	s := NewSummarizer(store, &fakeLLM{err: errors.New("model overloaded")}, &fakeTaskQueue{})

	seedCompleted(t, store, "job-1", false)
	ctx := context.Background()
	if err := s.Generate(ctx, "job-1"); err != nil {
		t.Fatalf("generate must swallow provider errors, got %v", err)
	}

	job, _ := store.GetJob(ctx, "job-1")
	if job.SummaryStatus != models.SummaryFailed {
		t.Fatalf("summary status = %s, want failed", job.SummaryStatus)
	}
	if job.Status != models.StatusCompleted {
		t.Fatal("a summary failure must not touch the transcription status")
	}
}
