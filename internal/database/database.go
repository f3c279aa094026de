// Package database opens the Postgres handle shared by the knowledge-base
// chunk store and the history repository, and keeps the schema bootstrapped.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open connects via the pgx stdlib driver with pool settings sized for an API
// service plus a small worker fleet.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return db, nil
}

// EnsureSchema creates the pgvector extension and all tables if needed.
// Keeping the migration in code keeps deployments self-contained.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	const stmt = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS kb_chunks (
	id UUID PRIMARY KEY,
	collection TEXT NOT NULL,
	position INT NOT NULL,
	text TEXT NOT NULL,
	embedding vector(768),
	source_type TEXT NOT NULL,
	speaker TEXT,
	utterance_index INT,
	file_name TEXT,
	page_number INT,
	file_type TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_kb_chunks_collection ON kb_chunks(collection);

CREATE TABLE IF NOT EXISTS transcriptions (
	id UUID PRIMARY KEY,
	user_id TEXT NOT NULL,
	task_id TEXT NOT NULL,
	title TEXT NOT NULL,
	original_filename TEXT NOT NULL,
	file_size BIGINT NOT NULL DEFAULT 0,
	duration_seconds INT,
	transcription_engine TEXT NOT NULL,
	has_diarization BOOLEAN NOT NULL DEFAULT false,
	transcript_text TEXT NOT NULL DEFAULT '',
	utterances JSONB,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_transcriptions_user ON transcriptions(user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS summaries (
	id UUID PRIMARY KEY,
	transcription_id UUID NOT NULL REFERENCES transcriptions(id) ON DELETE CASCADE,
	summary_text TEXT NOT NULL,
	summary_type TEXT NOT NULL DEFAULT 'ai_generated',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_summaries_transcription ON summaries(transcription_id);

CREATE TABLE IF NOT EXISTS chat_messages (
	id UUID PRIMARY KEY,
	transcription_id UUID NOT NULL REFERENCES transcriptions(id) ON DELETE CASCADE,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_transcription ON chat_messages(transcription_id, created_at);`

	bootCtx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()
	if _, err := db.ExecContext(bootCtx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
