// Package rag builds and queries the per-job retrieval collections that back
// the chat surface: splitting, embedding, similarity search and grounded
// answer generation.
package rag

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/wavetotxt/wavetotxt/internal/models"
)

// ChunkStore persists embedded chunks and answers nearest-neighbour queries
// over one collection at a time.
type ChunkStore interface {
	InsertChunks(ctx context.Context, chunks []models.Chunk) error
	Search(ctx context.Context, collection string, embedding []float32, limit int) ([]models.Chunk, error)
	Count(ctx context.Context, collection string) (int, error)
	DeleteCollection(ctx context.Context, collection string) error
}

// PGStore keeps chunks in the kb_chunks table with a pgvector embedding
// column. Collections are rows sharing a collection name, not tables, so
// dropping one is a plain delete.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) InsertChunks(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert chunks: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO kb_chunks
			(id, collection, position, text, embedding, source_type, speaker, utterance_index, file_name, page_number, file_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert chunks: %w", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		_, err := stmt.ExecContext(ctx,
			c.ID,
			c.Collection,
			c.Position,
			c.Text,
			pgvector.NewVector(c.Embedding),
			c.SourceType,
			nullString(c.Speaker),
			nullInt(c.UtteranceIndex),
			nullString(c.FileName),
			nullInt(c.PageNumber),
			nullString(c.FileType),
		)
		if err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// Search returns the limit chunks closest to the query embedding by L2
// distance, nearest first.
func (s *PGStore) Search(ctx context.Context, collection string, embedding []float32, limit int) ([]models.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, collection, position, text, source_type,
		       COALESCE(speaker, ''), utterance_index,
		       COALESCE(file_name, ''), page_number, COALESCE(file_type, '')
		FROM kb_chunks
		WHERE collection = $1
		ORDER BY embedding <-> $2
		LIMIT $3
	`, collection, pgvector.NewVector(embedding), limit)
	if err != nil {
		return nil, fmt.Errorf("search collection %s: %w", collection, err)
	}
	defer rows.Close()

	var out []models.Chunk
	for rows.Next() {
		var c models.Chunk
		var utteranceIndex, pageNumber sql.NullInt64
		if err := rows.Scan(
			&c.ID, &c.Collection, &c.Position, &c.Text, &c.SourceType,
			&c.Speaker, &utteranceIndex,
			&c.FileName, &pageNumber, &c.FileType,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		if utteranceIndex.Valid {
			c.UtteranceIndex = int(utteranceIndex.Int64)
		} else {
			c.UtteranceIndex = -1
		}
		if pageNumber.Valid {
			c.PageNumber = int(pageNumber.Int64)
		} else {
			c.PageNumber = -1
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PGStore) Count(ctx context.Context, collection string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM kb_chunks WHERE collection = $1`, collection,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count collection %s: %w", collection, err)
	}
	return n, nil
}

func (s *PGStore) DeleteCollection(ctx context.Context, collection string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM kb_chunks WHERE collection = $1`, collection,
	); err != nil {
		return fmt.Errorf("delete collection %s: %w", collection, err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n >= 0}
}
