package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wavetotxt/wavetotxt/internal/config"
	"github.com/wavetotxt/wavetotxt/internal/jobstore"
	"github.com/wavetotxt/wavetotxt/internal/models"
	"github.com/wavetotxt/wavetotxt/internal/pipeline"
)

type fakeObjectStore struct {
	uploads []string
}

func (f *fakeObjectStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	f.uploads = append(f.uploads, key)
	return nil
}

func (f *fakeObjectStore) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader("audio")), nil
}

func (f *fakeObjectStore) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

type fakeQueue struct {
	transcriptions []string
	summaries      []string
	indexes        []string
}

func (f *fakeQueue) EnqueueTranscription(ctx context.Context, jobID, objectKey string, diarization bool) error {
	f.transcriptions = append(f.transcriptions, jobID)
	return nil
}

func (f *fakeQueue) EnqueueSummary(ctx context.Context, jobID string) error {
	f.summaries = append(f.summaries, jobID)
	return nil
}

func (f *fakeQueue) EnqueueIndex(ctx context.Context, jobID string) error {
	f.indexes = append(f.indexes, jobID)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		R2Endpoint:     "https://r2.example",
		R2AccessKeyID:  "key",
		R2SecretKey:    "secret",
		R2Bucket:       "audio",
		AudioURLTTL:    time.Hour,
		GroqAPIKey:     "groq",
		CallbackSecret: "hook-secret",
	}
}

func newTranscriptionRouter(cfg *config.Config, store jobstore.Store, objects *fakeObjectStore, queue *fakeQueue) chi.Router {
	status := pipeline.NewStatusDistributor(store, 10*time.Millisecond)
	summarizer := pipeline.NewSummarizer(store, nil, queue)
	h := NewTranscriptionHandler(cfg, store, objects, queue, summarizer, status)

	r := chi.NewRouter()
	r.Post("/api/transcribe", h.Create)
	r.Get("/api/transcribe/status/{taskID}", h.GetStatus)
	r.Post("/api/transcribe/{taskID}/summarize", h.Summarize)
	return r
}

func multipartAudio(t *testing.T, diarization string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("audio_file", "meeting.mp3")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := fw.Write([]byte("fake-audio-bytes")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if diarization != "" {
		if err := mw.WriteField("diarization", diarization); err != nil {
			t.Fatalf("field: %v", err)
		}
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

func TestCreateTranscriptionAccepted(t *testing.T) {
	store := jobstore.NewMemoryStore()
	objects := &fakeObjectStore{}
	queue := &fakeQueue{}
	router := newTranscriptionRouter(testConfig(), store, objects, queue)

	body, contentType := multipartAudio(t, "false")
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	taskID := resp["task_id"]
	if taskID == "" {
		t.Fatal("missing task_id")
	}

	if len(objects.uploads) != 1 || !strings.HasSuffix(objects.uploads[0], ".mp3") {
		t.Fatalf("unexpected uploads %v", objects.uploads)
	}
	if len(queue.transcriptions) != 1 || queue.transcriptions[0] != taskID {
		t.Fatalf("unexpected queue %v", queue.transcriptions)
	}

	job, err := store.GetJob(context.Background(), taskID)
	if err != nil {
		t.Fatalf("job not registered: %v", err)
	}
	if job.Status != models.StatusPending || job.SummaryStatus != models.SummaryNotStarted {
		t.Fatalf("unexpected initial job %+v", job)
	}
}

func TestCreateDiarizedWithoutCallbackConfigIs503(t *testing.T) {
	cfg := testConfig()
	// No AssemblyAI key, secret or public URL: the diarized path is down.
	store := jobstore.NewMemoryStore()
	objects := &fakeObjectStore{}
	router := newTranscriptionRouter(cfg, store, objects, &fakeQueue{})

	body, contentType := multipartAudio(t, "true")
	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if len(objects.uploads) != 0 {
		t.Fatal("rejected request must not upload audio")
	}
}

func TestGetStatusUnknownTask(t *testing.T) {
	router := newTranscriptionRouter(testConfig(), jobstore.NewMemoryStore(), &fakeObjectStore{}, &fakeQueue{})

	req := httptest.NewRequest(http.MethodGet, "/api/transcribe/status/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Task not found.") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestGetStatusStripsAudioKey(t *testing.T) {
	store := jobstore.NewMemoryStore()
	if err := store.CreateJob(context.Background(), &models.Job{
		ID:       "job-1",
		Status:   models.StatusCompleted,
		AudioKey: "job-1.mp3",
		AudioURL: "https://signed.example/job-1.mp3",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	router := newTranscriptionRouter(testConfig(), store, &fakeObjectStore{}, &fakeQueue{})

	req := httptest.NewRequest(http.MethodGet, "/api/transcribe/status/job-1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "audio_key") {
		t.Fatal("audio_key leaked to the client")
	}
	if !strings.Contains(rec.Body.String(), "audio_url") {
		t.Fatal("audio_url should be visible")
	}
}

func TestSummarizeBeforeCompletion(t *testing.T) {
	store := jobstore.NewMemoryStore()
	if err := store.CreateJob(context.Background(), &models.Job{ID: "job-1", Status: models.StatusPending}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	router := newTranscriptionRouter(testConfig(), store, &fakeObjectStore{}, &fakeQueue{})

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe/job-1/summarize", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
