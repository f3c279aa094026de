package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wavetotxt/wavetotxt/internal/config"
	"github.com/wavetotxt/wavetotxt/internal/core"
	"github.com/wavetotxt/wavetotxt/internal/jobstore"
	"github.com/wavetotxt/wavetotxt/internal/models"
	"github.com/wavetotxt/wavetotxt/internal/pipeline"
)

const maxAudioUpload = 100 << 20 // 100 MB

type TranscriptionHandler struct {
	cfg        *config.Config
	store      jobstore.Store
	objects    core.ObjectStore
	queue      pipeline.TaskQueue
	summarizer *pipeline.Summarizer
	status     *pipeline.StatusDistributor
}

func NewTranscriptionHandler(cfg *config.Config, store jobstore.Store, objects core.ObjectStore, queue pipeline.TaskQueue, summarizer *pipeline.Summarizer, status *pipeline.StatusDistributor) *TranscriptionHandler {
	return &TranscriptionHandler{cfg: cfg, store: store, objects: objects, queue: queue, summarizer: summarizer, status: status}
}

// Create accepts an audio upload and registers the transcription job. The
// request is accepted (202) once the audio is stored and the job is queued;
// transcription itself happens in the worker.
func (h *TranscriptionHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUpload)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("audio_file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "audio_file is required")
		return
	}
	defer file.Close()

	diarization := strings.EqualFold(r.FormValue("diarization"), "true")

	// Availability checks come before any write so a misconfigured path
	// rejects cleanly instead of leaving an orphaned upload.
	if h.objects == nil || !h.cfg.ObjectStoreConfigured() {
		writeDetail(w, http.StatusServiceUnavailable, "object storage is not configured")
		return
	}
	if diarization && !h.cfg.CallbackConfigured() {
		writeDetail(w, http.StatusServiceUnavailable, "diarization is not configured")
		return
	}
	if !diarization && !h.cfg.SyncSTTConfigured() {
		writeDetail(w, http.StatusServiceUnavailable, "transcription is not configured")
		return
	}

	taskID := uuid.NewString()
	objectKey := taskID + filepath.Ext(filepath.Base(header.Filename))

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	uploadCtx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()
	if err := h.objects.Upload(uploadCtx, objectKey, file, header.Size, contentType); err != nil {
		log.Printf("audio upload failed for %s: %v", taskID, err)
		writeDetail(w, http.StatusInternalServerError, "could not store audio")
		return
	}

	job := &models.Job{
		ID:                 taskID,
		Status:             models.StatusPending,
		SummaryStatus:      models.SummaryNotStarted,
		AudioKey:           objectKey,
		DiarizationEnabled: diarization,
		CreatedAt:          time.Now().UTC(),
	}
	if err := h.store.CreateJob(r.Context(), job); err != nil {
		log.Printf("job create failed for %s: %v", taskID, err)
		writeDetail(w, http.StatusInternalServerError, "could not register job")
		return
	}

	if err := h.queue.EnqueueTranscription(r.Context(), taskID, objectKey, diarization); err != nil {
		log.Printf("enqueue failed for %s: %v", taskID, err)
		if _, werr := h.failJob(r.Context(), taskID, "could not schedule transcription"); werr != nil {
			log.Printf("could not record enqueue failure for %s: %v", taskID, werr)
		}
		writeDetail(w, http.StatusInternalServerError, "could not schedule transcription")
		return
	}

	w.Header().Set("Location", "/api/transcribe/status/"+taskID)
	writeJSON(w, http.StatusAccepted, map[string]string{"task_id": taskID})
}

func (h *TranscriptionHandler) failJob(ctx context.Context, taskID, message string) (*models.Job, error) {
	job, err := h.store.GetJob(ctx, taskID)
	if err != nil {
		return nil, err
	}
	job.Status = models.StatusFailed
	job.Error = message
	return job, h.store.SetJob(ctx, job)
}

// GetStatus is the point read of a job's externally visible state.
func (h *TranscriptionHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	job, err := h.status.Get(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "Task not found.")
			return
		}
		writeDetail(w, http.StatusInternalServerError, "could not read status")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// StreamStatus serves job state as server-sent events until a terminal event
// or client disconnect.
func (h *TranscriptionHandler) StreamStatus(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeDetail(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for snap := range h.status.Stream(r.Context(), taskID) {
		data, err := json.Marshal(snap)
		if err != nil {
			log.Printf("marshal status event for %s: %v", taskID, err)
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()
	}
}

// Summarize requests summary generation for a completed transcription. The
// call is idempotent; a summary already pending or present is reported, not
// restarted.
func (h *TranscriptionHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	started, err := h.summarizer.Trigger(r.Context(), taskID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Task not found.")
		return
	case errors.Is(err, core.ErrNotReady):
		writeDetail(w, http.StatusBadRequest, "Transcription must be completed before summarization.")
		return
	case err != nil:
		log.Printf("summarize trigger failed for %s: %v", taskID, err)
		writeDetail(w, http.StatusInternalServerError, "could not start summarization")
		return
	}

	message := "Summarization started."
	if !started {
		message = "Summary already available or in progress."
	}
	writeJSON(w, http.StatusAccepted, map[string]string{
		"task_id": taskID,
		"message": message,
	})
}
