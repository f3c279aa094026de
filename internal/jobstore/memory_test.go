package jobstore

import (
	"context"
	"errors"
	"testing"

	"github.com/wavetotxt/wavetotxt/internal/core"
	"github.com/wavetotxt/wavetotxt/internal/models"
)

func TestCreateJobRejectsDuplicates(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	job := &models.Job{ID: "job-1", Status: models.StatusPending}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("first create: %v", err)
	}
	if err := store.CreateJob(ctx, job); !errors.Is(err, core.ErrJobExists) {
		t.Fatalf("expected ErrJobExists, got %v", err)
	}
}

func TestGetJobUnknownID(t *testing.T) {
	store := NewMemoryStore()
	if _, err := store.GetJob(context.Background(), "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSetJobOverwritesAndCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	job := &models.Job{ID: "job-1", Status: models.StatusPending}
	if err := store.CreateJob(ctx, job); err != nil {
		t.Fatalf("create: %v", err)
	}

	job.Status = models.StatusCompleted
	job.Utterances = []models.Utterance{{Text: "hello"}}
	if err := store.SetJob(ctx, job); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := store.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatal("expected UpdatedAt to be stamped on write")
	}

	// Mutating the returned copy must not leak into the store.
	got.Status = models.StatusFailed
	again, _ := store.GetJob(ctx, "job-1")
	if again.Status != models.StatusCompleted {
		t.Fatal("store leaked a shared reference")
	}
}

func TestSessionLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.GetSession(ctx, "job-1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	sess := &models.ChatSession{TaskID: "job-1", CollectionName: "chat_job-1", Initialized: true}
	if err := store.SetSession(ctx, sess); err != nil {
		t.Fatalf("set session: %v", err)
	}

	got, err := store.GetSession(ctx, "job-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.CollectionName != "chat_job-1" || !got.Initialized {
		t.Fatalf("unexpected session %+v", got)
	}

	if err := store.DeleteSession(ctx, "job-1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := store.GetSession(ctx, "job-1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
