package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/wavetotxt/wavetotxt/internal/jobstore"
	"github.com/wavetotxt/wavetotxt/internal/models"
	"github.com/wavetotxt/wavetotxt/internal/rag"
)

type fakeChunkStore struct {
	inserted []models.Chunk
	results  []models.Chunk
}

func (f *fakeChunkStore) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	f.inserted = append(f.inserted, chunks...)
	return nil
}

func (f *fakeChunkStore) Search(ctx context.Context, collection string, embedding []float32, limit int) ([]models.Chunk, error) {
	return f.results, nil
}

func (f *fakeChunkStore) Count(ctx context.Context, collection string) (int, error) {
	return len(f.inserted), nil
}

func (f *fakeChunkStore) DeleteCollection(ctx context.Context, collection string) error {
	return nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 2, 3}
	}
	return out, nil
}

type fakeGenerator struct{ response string }

func (f fakeGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	return f.response, nil
}

func newChatRouter(store jobstore.Store, chunks *fakeChunkStore, answer string) chi.Router {
	splitter := rag.NewSplitter(1000, 200)
	indexer := rag.NewIndexer(store, chunks, fakeEmbedder{}, splitter, 16)
	engine := rag.NewEngine(chunks, fakeEmbedder{}, fakeGenerator{response: answer}, 5)
	h := NewChatHandler(store, chunks, indexer, engine)

	r := chi.NewRouter()
	r.Post("/api/chat/{taskID}/initialize", h.Initialize)
	r.Post("/api/chat/{taskID}/ask", h.Ask)
	r.Get("/api/chat/{taskID}/stats", h.Stats)
	r.Get("/api/chat/{taskID}/suggestions", h.Suggestions)
	r.Delete("/api/chat/{taskID}", h.Delete)
	return r
}

func seedCompletedChatJob(t *testing.T, store jobstore.Store, id string) {
	t.Helper()
	spk := "A"
	err := store.CreateJob(context.Background(), &models.Job{
		ID:         id,
		Status:     models.StatusCompleted,
		Utterances: []models.Utterance{{Speaker: &spk, Text: "the budget was approved"}},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func TestInitializeUnknownTask(t *testing.T) {
	router := newChatRouter(jobstore.NewMemoryStore(), &fakeChunkStore{}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/chat/nope/initialize", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestInitializeThenStats(t *testing.T) {
	store := jobstore.NewMemoryStore()
	chunks := &fakeChunkStore{}
	router := newChatRouter(store, chunks, "")

	seedCompletedChatJob(t, store, "job-1")

	req := httptest.NewRequest(http.MethodPost, "/api/chat/job-1/initialize", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("initialize status = %d, body %s", rec.Code, rec.Body.String())
	}

	// Initialize again: reported, not rebuilt.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat/job-1/initialize", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("second initialize status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "already initialized") {
		t.Fatalf("body = %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/job-1/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	var stats map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats["collection_name"] != "chat_job-1" {
		t.Fatalf("unexpected stats %v", stats)
	}
}

func TestAskRequiresSession(t *testing.T) {
	router := newChatRouter(jobstore.NewMemoryStore(), &fakeChunkStore{}, "")

	req := httptest.NewRequest(http.MethodPost, "/api/chat/job-1/ask", strings.NewReader(`{"question":"what?"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestAskReturnsEngineResult(t *testing.T) {
	store := jobstore.NewMemoryStore()
	chunks := &fakeChunkStore{results: []models.Chunk{
		{SourceType: models.SourceTranscript, Speaker: "A", Text: "the budget was approved"},
	}}
	router := newChatRouter(store, chunks, "The budget was approved.")

	seedCompletedChatJob(t, store, "job-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat/job-1/initialize", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("initialize: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/chat/job-1/ask", strings.NewReader(`{"question":"was the budget approved?"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("ask status = %d", rec.Code)
	}
	var result models.ChatResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !result.Success || result.Answer != "The budget was approved." {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.Sources) != 1 {
		t.Fatalf("expected one source, got %d", len(result.Sources))
	}
}

func TestSuggestionsAlwaysAvailable(t *testing.T) {
	router := newChatRouter(jobstore.NewMemoryStore(), &fakeChunkStore{}, "")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/job-1/suggestions", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "main topics") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestDeleteSession(t *testing.T) {
	store := jobstore.NewMemoryStore()
	router := newChatRouter(store, &fakeChunkStore{}, "")

	seedCompletedChatJob(t, store, "job-1")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat/job-1/initialize", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("initialize: %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/chat/job-1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/chat/job-1", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d, want 404", rec.Code)
	}
}
