package handlers

import (
	"crypto/hmac"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wavetotxt/wavetotxt/internal/config"
	"github.com/wavetotxt/wavetotxt/internal/pipeline"
)

type CallbackHandler struct {
	cfg      *config.Config
	receiver *pipeline.CallbackReceiver
}

func NewCallbackHandler(cfg *config.Config, receiver *pipeline.CallbackReceiver) *CallbackHandler {
	return &CallbackHandler{cfg: cfg, receiver: receiver}
}

type callbackPayload struct {
	TranscriptID string `json:"transcript_id"`
	Status       string `json:"status"`
	Error        string `json:"error"`
}

// Handle receives the diarizing provider's webhook. The shared secret is
// verified before anything else; an unauthenticated callback mutates no state
// and triggers no provider fetch.
func (h *CallbackHandler) Handle(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "taskID")

	if h.cfg.CallbackSecret == "" {
		writeDetail(w, http.StatusServiceUnavailable, "callbacks are not configured")
		return
	}
	secret := r.Header.Get(config.CallbackSecretHeader)
	if secret == "" {
		writeDetail(w, http.StatusUnauthorized, "missing callback secret")
		return
	}
	if !hmac.Equal([]byte(secret), []byte(h.cfg.CallbackSecret)) {
		writeDetail(w, http.StatusForbidden, "invalid callback secret")
		return
	}

	var payload callbackPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid callback body")
		return
	}

	switch strings.ToLower(payload.Status) {
	case "completed":
		if payload.TranscriptID == "" {
			writeDetail(w, http.StatusBadRequest, "transcript_id is required")
			return
		}
		if err := h.receiver.HandleCompleted(r.Context(), taskID, payload.TranscriptID); err != nil {
			log.Printf("completion callback for %s: %v", taskID, err)
			writeDetail(w, http.StatusInternalServerError, "could not process callback")
			return
		}
	default:
		if err := h.receiver.HandleError(r.Context(), taskID, payload.Error); err != nil {
			log.Printf("error callback for %s: %v", taskID, err)
			writeDetail(w, http.StatusInternalServerError, "could not process callback")
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "received"})
}
