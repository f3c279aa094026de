package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wavetotxt/wavetotxt/internal/core"
	"github.com/wavetotxt/wavetotxt/internal/models"
)

// AssemblyAI is the asynchronous diarizing speech-to-text provider. Submit
// registers the transcript with a webhook; the provider POSTs the completion
// notice to our callback endpoint, carrying the shared secret in the header
// we name at submission time. Fetch pulls the finished utterances.
type AssemblyAI struct {
	apiKey  string
	baseURL string
	hc      *http.Client
}

func NewAssemblyAI(apiKey, baseURL string) *AssemblyAI {
	if baseURL == "" {
		baseURL = "https://api.assemblyai.com"
	}
	return &AssemblyAI{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      &http.Client{Timeout: 2 * time.Minute},
	}
}

type aaiSubmitRequest struct {
	AudioURL              string `json:"audio_url"`
	SpeakerLabels         bool   `json:"speaker_labels"`
	WebhookURL            string `json:"webhook_url"`
	WebhookAuthHeaderName string `json:"webhook_auth_header_name"`
	WebhookAuthHeaderVal  string `json:"webhook_auth_header_value"`
}

type aaiTranscript struct {
	ID         string `json:"id"`
	Status     string `json:"status"`
	Text       string `json:"text"`
	Error      string `json:"error"`
	Utterances []struct {
		Speaker string `json:"speaker"`
		Text    string `json:"text"`
	} `json:"utterances"`
}

func (a *AssemblyAI) Submit(ctx context.Context, audioURL, webhookURL, secretHeader, secret string) (string, error) {
	payload, err := json.Marshal(aaiSubmitRequest{
		AudioURL:              audioURL,
		SpeakerLabels:         true,
		WebhookURL:            webhookURL,
		WebhookAuthHeaderName: secretHeader,
		WebhookAuthHeaderVal:  secret,
	})
	if err != nil {
		return "", err
	}

	var tr aaiTranscript
	if err := a.do(ctx, http.MethodPost, "/v2/transcript", bytes.NewReader(payload), &tr); err != nil {
		return "", err
	}
	if tr.ID == "" {
		return "", fmt.Errorf("assemblyai submit: empty transcript id")
	}
	return tr.ID, nil
}

func (a *AssemblyAI) Fetch(ctx context.Context, transcriptID string) ([]models.Utterance, error) {
	var tr aaiTranscript
	if err := a.do(ctx, http.MethodGet, "/v2/transcript/"+transcriptID, nil, &tr); err != nil {
		return nil, err
	}
	if tr.Status == "error" {
		return nil, fmt.Errorf("assemblyai transcript %s: %s", transcriptID, tr.Error)
	}

	out := make([]models.Utterance, 0, len(tr.Utterances))
	for _, u := range tr.Utterances {
		speaker := u.Speaker
		out = append(out, models.Utterance{Speaker: &speaker, Text: u.Text})
	}
	// Diarization can come back empty for single-speaker audio; fall back to
	// the flat text so the job still completes with content.
	if len(out) == 0 && strings.TrimSpace(tr.Text) != "" {
		out = append(out, models.Utterance{Text: tr.Text})
	}
	return out, nil
}

func (a *AssemblyAI) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", a.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.hc.Do(req)
	if err != nil {
		return fmt.Errorf("assemblyai request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("assemblyai http %d: %s", resp.StatusCode, string(b))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

var _ core.DiarizingSpeechToText = (*AssemblyAI)(nil)
