// Package app wires configuration into the concrete clients and pipeline
// stages shared by the API and the worker. Providers whose configuration is
// absent stay nil; the handlers and stages fail those paths explicitly
// instead of crashing at startup.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/wavetotxt/wavetotxt/internal/config"
	"github.com/wavetotxt/wavetotxt/internal/core"
	"github.com/wavetotxt/wavetotxt/internal/core/llm"
	"github.com/wavetotxt/wavetotxt/internal/core/objectstore"
	"github.com/wavetotxt/wavetotxt/internal/core/stt"
	"github.com/wavetotxt/wavetotxt/internal/database"
	"github.com/wavetotxt/wavetotxt/internal/history"
	"github.com/wavetotxt/wavetotxt/internal/jobstore"
	"github.com/wavetotxt/wavetotxt/internal/pipeline"
	"github.com/wavetotxt/wavetotxt/internal/queue"
	"github.com/wavetotxt/wavetotxt/internal/rag"
)

// Core holds every shared dependency, fully wired.
type Core struct {
	Cfg *config.Config

	Store   jobstore.Store
	Objects core.ObjectStore
	Queue   *queue.Client
	DB      *sql.DB

	Dispatcher *pipeline.Dispatcher
	Receiver   *pipeline.CallbackReceiver
	Summarizer *pipeline.Summarizer
	Status     *pipeline.StatusDistributor

	Chunks  rag.ChunkStore
	Indexer *rag.Indexer
	Engine  *rag.Engine

	History *history.Repository
}

func NewCore(ctx context.Context, cfg *config.Config) (*Core, error) {
	store, err := jobstore.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("job store: %w", err)
	}
	log.Println("Job store initialized and ready.")

	taskQueue, err := queue.NewClient(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("task queue: %w", err)
	}

	var objects core.ObjectStore
	if cfg.ObjectStoreConfigured() {
		r2, err := objectstore.NewR2Client(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("object storage: %w", err)
		}
		objects = r2
		log.Println("Object storage initialized and ready.")
	} else {
		log.Println("WARN: object storage not configured; uploads disabled")
	}

	var syncSTT core.SpeechToText
	if cfg.SyncSTTConfigured() {
		syncSTT = stt.NewGroqWhisper(cfg.GroqAPIKey, cfg.GroqModel)
	} else {
		log.Println("WARN: synchronous transcription not configured")
	}

	var diarizer core.DiarizingSpeechToText
	if cfg.AssemblyAIAPIKey != "" {
		diarizer = stt.NewAssemblyAI(cfg.AssemblyAIAPIKey, cfg.AssemblyAIBaseURL)
	} else {
		log.Println("WARN: diarizing transcription not configured")
	}

	var embedder core.EmbeddingProvider
	var generator core.LLMProvider
	if cfg.AIConfigured() {
		emb, err := llm.NewGeminiEmbedder(ctx, cfg.GeminiAPIKey, cfg.EmbedModel)
		if err != nil {
			return nil, fmt.Errorf("embedder: %w", err)
		}
		gen, err := llm.NewGeminiLLM(ctx, cfg.GeminiAPIKey, cfg.GenModel)
		if err != nil {
			return nil, fmt.Errorf("generator: %w", err)
		}
		embedder, generator = emb, gen
	} else {
		log.Println("WARN: AI provider not configured; summaries and chat disabled")
	}

	var db *sql.DB
	var chunks rag.ChunkStore
	var repo *history.Repository
	if cfg.DatabaseURL != "" {
		db, err = database.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		chunks = rag.NewPGStore(db)
		repo = history.NewRepository(db)
		log.Println("Database initialized and ready.")
	} else {
		log.Println("WARN: database not configured; knowledge base and history disabled")
	}

	splitter := rag.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap)
	indexer := rag.NewIndexer(store, chunks, embedder, splitter, cfg.EmbedBatchSize)
	engine := rag.NewEngine(chunks, embedder, generator, cfg.TopKResults)

	return &Core{
		Cfg:     cfg,
		Store:   store,
		Objects: objects,
		Queue:   taskQueue,
		DB:      db,

		Dispatcher: pipeline.NewDispatcher(cfg, store, objects, syncSTT, diarizer, taskQueue),
		Receiver:   pipeline.NewCallbackReceiver(cfg, store, objects, diarizer, taskQueue),
		Summarizer: pipeline.NewSummarizer(store, generator, taskQueue),
		Status:     pipeline.NewStatusDistributor(store, cfg.StreamPollInterval),

		Chunks:  chunks,
		Indexer: indexer,
		Engine:  engine,

		History: repo,
	}, nil
}

func (c *Core) Close() {
	if c.Queue != nil {
		_ = c.Queue.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
}
