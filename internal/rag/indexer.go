package rag

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wavetotxt/wavetotxt/internal/core"
	"github.com/wavetotxt/wavetotxt/internal/jobstore"
	"github.com/wavetotxt/wavetotxt/internal/models"
)

// CollectionName derives the knowledge-base collection for a job.
func CollectionName(jobID string) string {
	return "chat_" + jobID
}

// Indexer builds the retrieval collection for a job: split the transcript (or
// an uploaded document), embed the chunks in batches, persist them, and record
// the outcome on the job record and session.
type Indexer struct {
	store     jobstore.Store
	chunks    ChunkStore
	embedder  core.EmbeddingProvider
	splitter  *Splitter
	batchSize int
}

func NewIndexer(store jobstore.Store, chunks ChunkStore, embedder core.EmbeddingProvider, splitter *Splitter, batchSize int) *Indexer {
	if batchSize <= 0 {
		batchSize = 16
	}
	return &Indexer{store: store, chunks: chunks, embedder: embedder, splitter: splitter, batchSize: batchSize}
}

// IndexTranscript builds the collection from the job's utterances and returns
// the chunk count. auto marks sessions created opportunistically after
// transcription rather than by an explicit initialize request.
//
// Indexing never fails the transcription: failures are recorded in the
// knowledgebase fields while the job stays completed.
func (x *Indexer) IndexTranscript(ctx context.Context, jobID string, auto bool) (int, error) {
	job, err := x.store.GetJob(ctx, jobID)
	if err != nil {
		return 0, err
	}
	if job.Status != models.StatusCompleted {
		return 0, core.ErrNotReady
	}
	if len(job.Utterances) == 0 {
		return 0, x.recordFailure(ctx, jobID, core.ErrNoContent)
	}
	if x.embedder == nil || x.chunks == nil {
		return 0, x.recordFailure(ctx, jobID, fmt.Errorf("knowledge base: %w", core.ErrConfigurationUnavailable))
	}

	collection := CollectionName(jobID)

	var chunks []models.Chunk
	position := 0
	for i, u := range job.Utterances {
		text := strings.TrimSpace(u.Text)
		if text == "" {
			continue
		}
		speaker := ""
		if u.Speaker != nil {
			speaker = *u.Speaker
		}
		for _, piece := range x.splitter.Split(text) {
			chunks = append(chunks, models.Chunk{
				ID:             uuid.NewString(),
				Collection:     collection,
				Text:           piece,
				Position:       position,
				SourceType:     models.SourceTranscript,
				Speaker:        speaker,
				UtteranceIndex: i,
				PageNumber:     -1,
			})
			position++
		}
	}
	if len(chunks) == 0 {
		return 0, x.recordFailure(ctx, jobID, core.ErrNoContent)
	}

	if err := x.embedAll(ctx, chunks); err != nil {
		return 0, x.recordFailure(ctx, jobID, err)
	}
	if err := x.chunks.InsertChunks(ctx, chunks); err != nil {
		return 0, x.recordFailure(ctx, jobID, err)
	}

	session := &models.ChatSession{
		TaskID:           jobID,
		CollectionName:   collection,
		Initialized:      true,
		TranscriptChunks: len(chunks),
		AutoInitialized:  auto,
	}
	if err := x.store.SetSession(ctx, session); err != nil {
		return 0, x.recordFailure(ctx, jobID, err)
	}

	if err := x.mergeJob(ctx, jobID, func(j *models.Job) {
		j.KnowledgeBaseReady = true
		j.KnowledgeBaseCollection = collection
		j.KnowledgeBaseChunks = len(chunks)
		j.KnowledgeBaseError = ""
	}); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// IndexDocument adds an uploaded document to an existing session's collection
// and returns the chunk count for this document.
func (x *Indexer) IndexDocument(ctx context.Context, session *models.ChatSession, doc *ExtractedDocument, fileName string) (int, error) {
	if x.embedder == nil || x.chunks == nil {
		return 0, fmt.Errorf("knowledge base: %w", core.ErrConfigurationUnavailable)
	}

	base, err := x.chunks.Count(ctx, session.CollectionName)
	if err != nil {
		return 0, err
	}

	var chunks []models.Chunk
	position := base
	for _, seg := range doc.Segments {
		for _, piece := range x.splitter.Split(seg.Text) {
			chunks = append(chunks, models.Chunk{
				ID:             uuid.NewString(),
				Collection:     session.CollectionName,
				Text:           piece,
				Position:       position,
				SourceType:     models.SourceUploaded,
				UtteranceIndex: -1,
				FileName:       fileName,
				PageNumber:     seg.Ref,
				FileType:       doc.FileType,
			})
			position++
		}
	}
	if len(chunks) == 0 {
		return 0, core.ErrNoContent
	}

	if err := x.embedAll(ctx, chunks); err != nil {
		return 0, err
	}
	if err := x.chunks.InsertChunks(ctx, chunks); err != nil {
		return 0, err
	}

	session.UploadedDocuments = append(session.UploadedDocuments, models.UploadedDocument{
		FileName:      fileName,
		FileType:      doc.FileType,
		ChunksCreated: len(chunks),
		UploadedAt:    time.Now().UTC(),
	})
	if err := x.store.SetSession(ctx, session); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// Teardown removes a session and its collection.
func (x *Indexer) Teardown(ctx context.Context, jobID string) error {
	session, err := x.store.GetSession(ctx, jobID)
	if err != nil {
		return err
	}
	if x.chunks != nil {
		if err := x.chunks.DeleteCollection(ctx, session.CollectionName); err != nil {
			return err
		}
	}
	return x.store.DeleteSession(ctx, jobID)
}

// embedAll fills in chunk embeddings batch by batch, with a few batches in
// flight at once. Each goroutine writes a disjoint slice range.
func (x *Indexer) embedAll(ctx context.Context, chunks []models.Chunk) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for start := 0; start < len(chunks); start += x.batchSize {
		end := start + x.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]
		offset := start
		g.Go(func() error {
			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}
			vectors, err := x.embedder.EmbedTexts(ctx, texts)
			if err != nil {
				return fmt.Errorf("embed batch at %d: %w", offset, err)
			}
			if len(vectors) != len(texts) {
				return fmt.Errorf("embed batch at %d: got %d vectors for %d texts", offset, len(vectors), len(texts))
			}
			for i := range vectors {
				batch[i].Embedding = vectors[i]
			}
			return nil
		})
	}
	return g.Wait()
}

func (x *Indexer) recordFailure(ctx context.Context, jobID string, cause error) error {
	log.Printf("knowledge base indexing failed for %s: %v", jobID, cause)
	if err := x.mergeJob(ctx, jobID, func(j *models.Job) {
		j.KnowledgeBaseReady = false
		j.KnowledgeBaseError = cause.Error()
	}); err != nil {
		log.Printf("could not record indexing failure for %s: %v", jobID, err)
	}
	return cause
}

// mergeJob re-reads the record right before writing so concurrent stages
// (summarization in particular) are not clobbered, and never moves a terminal
// transcription status.
func (x *Indexer) mergeJob(ctx context.Context, jobID string, mutate func(j *models.Job)) error {
	job, err := x.store.GetJob(ctx, jobID)
	if err != nil {
		return err
	}
	prev := job.Status
	mutate(job)
	if prev.Terminal() && job.Status != prev {
		job.Status = prev
	}
	return x.store.SetJob(ctx, job)
}
