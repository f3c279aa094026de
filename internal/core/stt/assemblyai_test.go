package stt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSubmitSendsWebhookDetails(t *testing.T) {
	var got aaiSubmitRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/transcript" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "api-key" {
			t.Fatalf("auth header = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"id": "tr-1", "status": "queued"})
	}))
	defer srv.Close()

	client := NewAssemblyAI("api-key", srv.URL)
	id, err := client.Submit(context.Background(), "https://signed.example/a.mp3", "https://api.example/cb", "X-Callback-Secret", "s3cret")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if id != "tr-1" {
		t.Fatalf("id = %q", id)
	}
	if !got.SpeakerLabels {
		t.Fatal("speaker labels must be requested")
	}
	if got.WebhookURL != "https://api.example/cb" || got.WebhookAuthHeaderName != "X-Callback-Secret" || got.WebhookAuthHeaderVal != "s3cret" {
		t.Fatalf("unexpected webhook fields %+v", got)
	}
}

func TestFetchMapsUtterances(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/transcript/tr-1" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "tr-1",
			"status": "completed",
			"utterances": []map[string]string{
				{"speaker": "A", "text": "hello"},
				{"speaker": "B", "text": "hi"},
			},
		})
	}))
	defer srv.Close()

	client := NewAssemblyAI("api-key", srv.URL)
	utterances, err := client.Fetch(context.Background(), "tr-1")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(utterances) != 2 {
		t.Fatalf("got %d utterances", len(utterances))
	}
	if utterances[0].Speaker == nil || *utterances[0].Speaker != "A" || utterances[0].Text != "hello" {
		t.Fatalf("unexpected first utterance %+v", utterances[0])
	}
}

func TestFetchFallsBackToFlatText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"id":     "tr-2",
			"status": "completed",
			"text":   "single speaker monologue",
		})
	}))
	defer srv.Close()

	client := NewAssemblyAI("api-key", srv.URL)
	utterances, err := client.Fetch(context.Background(), "tr-2")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(utterances) != 1 || utterances[0].Text != "single speaker monologue" {
		t.Fatalf("unexpected utterances %+v", utterances)
	}
	if utterances[0].Speaker != nil {
		t.Fatal("fallback utterance carries no speaker")
	}
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "tr-3", "status": "error", "error": "download failed"})
	}))
	defer srv.Close()

	client := NewAssemblyAI("api-key", srv.URL)
	if _, err := client.Fetch(context.Background(), "tr-3"); err == nil {
		t.Fatal("expected an error for an errored transcript")
	}
}
