package core

import (
	"context"
	"io"
	"time"

	"github.com/wavetotxt/wavetotxt/internal/models"
)

// SpeechToText is the synchronous transcription capability: one blocking call,
// plain text back.
type SpeechToText interface {
	Transcribe(ctx context.Context, fileName string, audio io.Reader) (string, error)
}

// DiarizingSpeechToText is the asynchronous, webhook-driven transcription
// capability. Submit registers the work and returns the provider's transcript
// ID; completion arrives later on the callback endpoint, after which Fetch
// retrieves the diarized utterances.
type DiarizingSpeechToText interface {
	Submit(ctx context.Context, audioURL, webhookURL, secretHeader, secret string) (string, error)
	Fetch(ctx context.Context, transcriptID string) ([]models.Utterance, error)
}

// EmbeddingProvider turns texts into vectors.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LLMProvider is a single-shot text generator.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// ObjectStore abstracts the audio bucket. Keys are opaque references that
// never leave the service; PresignGet mints the time-limited playback URL.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	GetReader(ctx context.Context, key string) (io.ReadCloser, error)
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}
