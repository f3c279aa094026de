// Package stt contains the speech-to-text provider clients. Both talk plain
// HTTP; the rest of the system sees only the narrow interfaces in core.
package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/wavetotxt/wavetotxt/internal/core"
)

const groqTranscriptionURL = "https://api.groq.com/openai/v1/audio/transcriptions"

// GroqWhisper is the synchronous speech-to-text provider: one multipart POST,
// plain transcript text back.
type GroqWhisper struct {
	apiKey string
	model  string
	hc     *http.Client
}

func NewGroqWhisper(apiKey, model string) *GroqWhisper {
	if model == "" {
		model = "whisper-large-v3"
	}
	return &GroqWhisper{
		apiKey: apiKey,
		model:  model,
		hc:     &http.Client{Timeout: 10 * time.Minute},
	}
}

type groqResponse struct {
	Text string `json:"text"`
}

func (g *GroqWhisper) Transcribe(ctx context.Context, fileName string, audio io.Reader) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("model", g.model); err != nil {
		return "", err
	}
	fw, err := mw.CreateFormFile("file", fileName)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(fw, audio); err != nil {
		return "", fmt.Errorf("read audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, groqTranscriptionURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := g.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("groq transcription request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("groq http %d: %s", resp.StatusCode, string(b))
	}

	var gr groqResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("decode groq response: %w", err)
	}
	return gr.Text, nil
}

var _ core.SpeechToText = (*GroqWhisper)(nil)
