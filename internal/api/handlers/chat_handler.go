package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wavetotxt/wavetotxt/internal/core"
	"github.com/wavetotxt/wavetotxt/internal/jobstore"
	"github.com/wavetotxt/wavetotxt/internal/models"
	"github.com/wavetotxt/wavetotxt/internal/rag"
)

const maxDocumentUpload = 20 << 20 // 20 MB

type ChatHandler struct {
	store   jobstore.Store
	chunks  rag.ChunkStore
	indexer *rag.Indexer
	engine  *rag.Engine
}

func NewChatHandler(store jobstore.Store, chunks rag.ChunkStore, indexer *rag.Indexer, engine *rag.Engine) *ChatHandler {
	return &ChatHandler{store: store, chunks: chunks, indexer: indexer, engine: engine}
}

// Initialize builds the knowledge base from the job's transcript. Calling it
// on an already-initialized session is a no-op that reports the existing
// state.
func (h *ChatHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	if session, err := h.store.GetSession(r.Context(), taskID); err == nil && session.Initialized {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":           true,
			"task_id":           taskID,
			"collection_name":   session.CollectionName,
			"transcript_chunks": session.TranscriptChunks,
			"message":           "Chat session already initialized.",
		})
		return
	}

	count, err := h.indexer.IndexTranscript(r.Context(), taskID, false)
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Task not found.")
		return
	case errors.Is(err, core.ErrNotReady):
		writeDetail(w, http.StatusBadRequest, "Transcription must be completed before chat initialization.")
		return
	case err != nil:
		log.Printf("chat initialization failed for %s: %v", taskID, err)
		writeDetail(w, http.StatusInternalServerError, "could not initialize chat session")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success":           true,
		"task_id":           taskID,
		"collection_name":   rag.CollectionName(taskID),
		"transcript_chunks": count,
	})
}

type askRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"top_k"`
}

// Ask answers a question against the session's knowledge base. Engine
// failures come back in-band on the result body, always as 200.
func (h *ChatHandler) Ask(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		writeDetail(w, http.StatusBadRequest, "question is required")
		return
	}

	session := h.session(w, r.Context(), taskID)
	if session == nil {
		return
	}

	result := h.engine.Ask(r.Context(), session.CollectionName, req.Question, req.TopK)
	writeJSON(w, http.StatusOK, result)
}

// UploadDocument adds a supplementary document to the session's knowledge
// base. Extraction and indexing problems are reported in-band so the client
// can show them next to the upload control.
func (h *ChatHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	session := h.session(w, r.Context(), taskID)
	if session == nil {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxDocumentUpload)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("document")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "document is required")
		return
	}
	defer file.Close()

	fileName := filepath.Base(header.Filename)

	data, err := io.ReadAll(file)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "could not read document")
		return
	}

	doc, err := rag.ExtractDocument(data, fileName)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   false,
			"file_name": fileName,
			"error":     err.Error(),
		})
		return
	}

	count, err := h.indexer.IndexDocument(r.Context(), session, doc, fileName)
	if err != nil {
		log.Printf("document indexing failed for %s: %v", taskID, err)
		writeJSON(w, http.StatusOK, map[string]any{
			"success":   false,
			"file_name": fileName,
			"error":     "could not index document",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"file_name":       fileName,
		"file_type":       doc.FileType,
		"chunks_created":  count,
		"total_documents": len(session.UploadedDocuments),
	})
}

// Stats reports the session's knowledge-base shape.
func (h *ChatHandler) Stats(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	session := h.session(w, r.Context(), taskID)
	if session == nil {
		return
	}

	total := session.TranscriptChunks
	if h.chunks != nil {
		if n, err := h.chunks.Count(r.Context(), session.CollectionName); err == nil {
			total = n
		}
	}

	docs := session.UploadedDocuments
	if docs == nil {
		docs = []models.UploadedDocument{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"task_id":            taskID,
		"collection_name":    session.CollectionName,
		"initialized":        session.Initialized,
		"transcript_chunks":  session.TranscriptChunks,
		"total_chunks":       total,
		"uploaded_documents": docs,
	})
}

// Suggestions returns starter questions. They are static, so no session is
// required.
func (h *ChatHandler) Suggestions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"task_id":     chi.URLParam(r, "taskID"),
		"suggestions": h.engine.SuggestedQuestions(),
	})
}

// Delete tears down the session and its collection.
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	err := h.indexer.Teardown(r.Context(), taskID)
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Chat session not found.")
		return
	case err != nil:
		log.Printf("chat teardown failed for %s: %v", taskID, err)
		writeDetail(w, http.StatusInternalServerError, "could not delete chat session")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Chat session deleted.",
	})
}

// session looks up the chat session, writing the error response itself when
// it is missing. A nil return means the response is already written.
func (h *ChatHandler) session(w http.ResponseWriter, ctx context.Context, taskID string) *models.ChatSession {
	session, err := h.store.GetSession(ctx, taskID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeDetail(w, http.StatusNotFound, "Chat session not initialized. Call initialize first.")
			return nil
		}
		log.Printf("session read failed for %s: %v", taskID, err)
		writeDetail(w, http.StatusInternalServerError, "could not read chat session")
		return nil
	}
	return session
}
