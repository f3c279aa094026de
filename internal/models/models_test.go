package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestTranscriptJoinsWithSpeakerLabels(t *testing.T) {
	a, b := "A", "B"
	job := &Job{Utterances: []Utterance{
		{Speaker: &a, Text: "hello"},
		{Speaker: &b, Text: "hi there"},
	}}
	got := job.Transcript()
	want := "Speaker A: hello\nSpeaker B: hi there"
	if got != want {
		t.Fatalf("transcript = %q, want %q", got, want)
	}
}

func TestTranscriptWithoutSpeakers(t *testing.T) {
	job := &Job{Utterances: []Utterance{{Text: "plain text"}}}
	if got := job.Transcript(); got != "plain text" {
		t.Fatalf("transcript = %q", got)
	}
}

func TestStrippedRemovesAudioKey(t *testing.T) {
	job := &Job{ID: "job-1", AudioKey: "job-1.mp3", AudioURL: "https://signed.example/job-1.mp3"}
	out := job.Stripped()
	if out.AudioKey != "" {
		t.Fatal("audio key not stripped")
	}
	if out.AudioURL == "" || job.AudioKey == "" {
		t.Fatal("stripping must copy, not mutate")
	}

	data, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "audio_key") {
		t.Fatal("audio_key serialized despite being empty")
	}
}

func TestStatusTerminal(t *testing.T) {
	if StatusPending.Terminal() || StatusProcessing.Terminal() {
		t.Fatal("pending/processing are not terminal")
	}
	if !StatusCompleted.Terminal() || !StatusFailed.Terminal() {
		t.Fatal("completed/failed are terminal")
	}
	if SummaryNotStarted.Terminal() || SummaryPending.Terminal() {
		t.Fatal("not_started/pending summaries are not terminal")
	}
	if !SummaryCompleted.Terminal() || !SummaryFailed.Terminal() {
		t.Fatal("completed/failed summaries are terminal")
	}
}
