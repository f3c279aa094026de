package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	middleware "github.com/wavetotxt/wavetotxt/internal/api/middlewares"
	"github.com/wavetotxt/wavetotxt/internal/core"
	"github.com/wavetotxt/wavetotxt/internal/history"
	"github.com/wavetotxt/wavetotxt/internal/models"
)

type HistoryHandler struct {
	repo *history.Repository
}

func NewHistoryHandler(repo *history.Repository) *HistoryHandler {
	return &HistoryHandler{repo: repo}
}

// Save stores a finished transcription under the authenticated user.
func (h *HistoryHandler) Save(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var t models.Transcription
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(t.TaskID) == "" {
		writeDetail(w, http.StatusBadRequest, "task_id is required")
		return
	}
	t.UserID = userID
	if t.Title == "" {
		t.Title = t.OriginalFilename
	}

	saved, err := h.repo.SaveTranscription(r.Context(), &t)
	if err != nil {
		log.Printf("save transcription failed: %v", err)
		writeDetail(w, http.StatusInternalServerError, "could not save transcription")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// List returns the user's transcriptions, newest first.
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	items, err := h.repo.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		log.Printf("list history failed for %s: %v", userID, err)
		writeDetail(w, http.StatusInternalServerError, "could not list transcriptions")
		return
	}
	if items == nil {
		items = []models.Transcription{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"transcriptions": items})
}

// Get returns one transcription with its full text.
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	t, err := h.repo.GetByID(r.Context(), userID, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Transcription not found.")
		return
	case err != nil:
		log.Printf("get transcription failed: %v", err)
		writeDetail(w, http.StatusInternalServerError, "could not read transcription")
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type saveSummaryRequest struct {
	SummaryText string `json:"summary_text"`
	SummaryType string `json:"summary_type"`
}

// SaveSummary attaches a summary to an owned transcription.
func (h *HistoryHandler) SaveSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req saveSummaryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.SummaryText) == "" {
		writeDetail(w, http.StatusBadRequest, "summary_text is required")
		return
	}

	summary := &models.Summary{
		TranscriptionID: chi.URLParam(r, "id"),
		SummaryText:     req.SummaryText,
		SummaryType:     req.SummaryType,
	}
	saved, err := h.repo.SaveSummary(r.Context(), userID, summary)
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Transcription not found.")
		return
	case err != nil:
		log.Printf("save summary failed: %v", err)
		writeDetail(w, http.StatusInternalServerError, "could not save summary")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// GetSummaries lists the summaries of an owned transcription.
func (h *HistoryHandler) GetSummaries(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summaries, err := h.repo.GetSummaries(r.Context(), userID, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Transcription not found.")
		return
	case err != nil:
		log.Printf("list summaries failed: %v", err)
		writeDetail(w, http.StatusInternalServerError, "could not list summaries")
		return
	}
	if summaries == nil {
		summaries = []models.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"summaries": summaries})
}

type saveChatMessageRequest struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SaveChatMessage appends one conversation turn to an owned transcription.
func (h *HistoryHandler) SaveChatMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req saveChatMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Role != "user" && req.Role != "assistant" {
		writeDetail(w, http.StatusBadRequest, "role must be user or assistant")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeDetail(w, http.StatusBadRequest, "content is required")
		return
	}

	message := &models.ChatMessage{
		TranscriptionID: chi.URLParam(r, "id"),
		Role:            req.Role,
		Content:         req.Content,
	}
	saved, err := h.repo.SaveChatMessage(r.Context(), userID, message)
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Transcription not found.")
		return
	case err != nil:
		log.Printf("save chat message failed: %v", err)
		writeDetail(w, http.StatusInternalServerError, "could not save chat message")
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// GetChatMessages lists an owned transcription's conversation.
func (h *HistoryHandler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	messages, err := h.repo.GetChatMessages(r.Context(), userID, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Transcription not found.")
		return
	case err != nil:
		log.Printf("list chat messages failed: %v", err)
		writeDetail(w, http.StatusInternalServerError, "could not list chat messages")
		return
	}
	if messages == nil {
		messages = []models.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// Delete removes an owned transcription and its summaries.
func (h *HistoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		writeDetail(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	err := h.repo.DeleteTranscription(r.Context(), userID, chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeDetail(w, http.StatusNotFound, "Transcription not found.")
		return
	case err != nil:
		log.Printf("delete transcription failed: %v", err)
		writeDetail(w, http.StatusInternalServerError, "could not delete transcription")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}
