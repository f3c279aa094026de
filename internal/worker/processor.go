// Package worker plugs the pipeline stages into the asynq worker loop.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/wavetotxt/wavetotxt/internal/pipeline"
	"github.com/wavetotxt/wavetotxt/internal/queue"
	"github.com/wavetotxt/wavetotxt/internal/rag"
)

// Processor routes background tasks to their pipeline stage.
type Processor struct {
	dispatcher *pipeline.Dispatcher
	summarizer *pipeline.Summarizer
	indexer    *rag.Indexer
}

func NewProcessor(dispatcher *pipeline.Dispatcher, summarizer *pipeline.Summarizer, indexer *rag.Indexer) *Processor {
	return &Processor{dispatcher: dispatcher, summarizer: summarizer, indexer: indexer}
}

// Handler registers all task handlers.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskTranscriptionProcess, p.handleTranscription)
	mux.HandleFunc(queue.TaskSummaryGenerate, p.handleSummary)
	mux.HandleFunc(queue.TaskKnowledgeBaseIndex, p.handleIndex)
	return mux
}

func (p *Processor) handleTranscription(ctx context.Context, task *asynq.Task) error {
	var payload queue.TranscriptionPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	log.Printf("processing transcription for job %s (diarization=%t)", payload.JobID, payload.Diarization)
	return p.dispatcher.Process(ctx, payload.JobID, payload.ObjectKey, payload.Diarization)
}

func (p *Processor) handleSummary(ctx context.Context, task *asynq.Task) error {
	var payload queue.JobPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	log.Printf("generating summary for job %s", payload.JobID)
	return p.summarizer.Generate(ctx, payload.JobID)
}

func (p *Processor) handleIndex(ctx context.Context, task *asynq.Task) error {
	var payload queue.JobPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	log.Printf("indexing transcript for job %s", payload.JobID)

	// Indexing failure never fails the parent job; the indexer records the
	// flag on the record and we swallow the error so asynq does not retry.
	if _, err := p.indexer.IndexTranscript(ctx, payload.JobID, true); err != nil {
		log.Printf("knowledge base indexing for %s: %v", payload.JobID, err)
	}
	return nil
}
