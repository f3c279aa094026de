// Package history persists completed transcriptions and their summaries per
// user, separate from the ephemeral job store.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wavetotxt/wavetotxt/internal/core"
	"github.com/wavetotxt/wavetotxt/internal/models"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// SaveTranscription stores a finished transcription for a user and returns the
// stored record with its generated ID.
func (r *Repository) SaveTranscription(ctx context.Context, t *models.Transcription) (*models.Transcription, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	utterances, err := json.Marshal(t.Utterances)
	if err != nil {
		return nil, fmt.Errorf("marshal utterances: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO transcriptions
			(id, user_id, task_id, title, original_filename, file_size, duration_seconds,
			 transcription_engine, has_diarization, transcript_text, utterances, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		t.ID, t.UserID, t.TaskID, t.Title, t.OriginalFilename, t.FileSize,
		nullIntPtr(t.DurationSeconds), t.TranscriptionEngine, t.HasDiarization,
		t.TranscriptText, utterances, t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transcription: %w", err)
	}
	return t, nil
}

// ListByUser returns a user's transcriptions newest first, without the full
// transcript text or utterances.
func (r *Repository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transcription, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT t.id, t.user_id, t.task_id, t.title, t.original_filename, t.file_size,
		       t.duration_seconds, t.transcription_engine, t.has_diarization, t.created_at,
		       EXISTS (SELECT 1 FROM summaries s WHERE s.transcription_id = t.id) AS has_summary,
		       EXISTS (SELECT 1 FROM chat_messages m WHERE m.transcription_id = t.id) AS has_chat
		FROM transcriptions t
		WHERE t.user_id = $1
		ORDER BY t.created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list transcriptions: %w", err)
	}
	defer rows.Close()

	var out []models.Transcription
	for rows.Next() {
		var t models.Transcription
		var duration sql.NullInt64
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.TaskID, &t.Title, &t.OriginalFilename, &t.FileSize,
			&duration, &t.TranscriptionEngine, &t.HasDiarization, &t.CreatedAt,
			&t.HasSummary, &t.HasChat,
		); err != nil {
			return nil, fmt.Errorf("scan transcription: %w", err)
		}
		if duration.Valid {
			d := int(duration.Int64)
			t.DurationSeconds = &d
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetByID returns one transcription with its full text, scoped to the owning
// user. Unknown or foreign IDs return core.ErrNotFound.
func (r *Repository) GetByID(ctx context.Context, userID, id string) (*models.Transcription, error) {
	var t models.Transcription
	var duration sql.NullInt64
	var utterances []byte
	err := r.db.QueryRowContext(ctx, `
		SELECT t.id, t.user_id, t.task_id, t.title, t.original_filename, t.file_size,
		       t.duration_seconds, t.transcription_engine, t.has_diarization,
		       t.transcript_text, t.utterances, t.created_at,
		       EXISTS (SELECT 1 FROM summaries s WHERE s.transcription_id = t.id) AS has_summary,
		       EXISTS (SELECT 1 FROM chat_messages m WHERE m.transcription_id = t.id) AS has_chat
		FROM transcriptions t
		WHERE t.id = $1 AND t.user_id = $2
	`, id, userID).Scan(
		&t.ID, &t.UserID, &t.TaskID, &t.Title, &t.OriginalFilename, &t.FileSize,
		&duration, &t.TranscriptionEngine, &t.HasDiarization,
		&t.TranscriptText, &utterances, &t.CreatedAt, &t.HasSummary, &t.HasChat,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get transcription %s: %w", id, err)
	}
	if duration.Valid {
		d := int(duration.Int64)
		t.DurationSeconds = &d
	}
	if len(utterances) > 0 {
		if err := json.Unmarshal(utterances, &t.Utterances); err != nil {
			return nil, fmt.Errorf("decode utterances for %s: %w", id, err)
		}
	}
	return &t, nil
}

// SaveSummary attaches a summary to an owned transcription.
func (r *Repository) SaveSummary(ctx context.Context, userID string, s *models.Summary) (*models.Summary, error) {
	if _, err := r.GetByID(ctx, userID, s.TranscriptionID); err != nil {
		return nil, err
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.SummaryType == "" {
		s.SummaryType = "ai_generated"
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO summaries (id, transcription_id, summary_text, summary_type, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, s.ID, s.TranscriptionID, s.SummaryText, s.SummaryType, s.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert summary: %w", err)
	}
	return s, nil
}

// GetSummaries lists the summaries for an owned transcription, newest first.
func (r *Repository) GetSummaries(ctx context.Context, userID, transcriptionID string) ([]models.Summary, error) {
	if _, err := r.GetByID(ctx, userID, transcriptionID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, transcription_id, summary_text, summary_type, created_at
		FROM summaries
		WHERE transcription_id = $1
		ORDER BY created_at DESC
	`, transcriptionID)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var out []models.Summary
	for rows.Next() {
		var s models.Summary
		if err := rows.Scan(&s.ID, &s.TranscriptionID, &s.SummaryText, &s.SummaryType, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveChatMessage appends one conversation turn to an owned transcription.
func (r *Repository) SaveChatMessage(ctx context.Context, userID string, m *models.ChatMessage) (*models.ChatMessage, error) {
	if _, err := r.GetByID(ctx, userID, m.TranscriptionID); err != nil {
		return nil, err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, transcription_id, role, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.ID, m.TranscriptionID, m.Role, m.Content, m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert chat message: %w", err)
	}
	return m, nil
}

// GetChatMessages lists an owned transcription's conversation in order.
func (r *Repository) GetChatMessages(ctx context.Context, userID, transcriptionID string) ([]models.ChatMessage, error) {
	if _, err := r.GetByID(ctx, userID, transcriptionID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, transcription_id, role, content, created_at
		FROM chat_messages
		WHERE transcription_id = $1
		ORDER BY created_at ASC
	`, transcriptionID)
	if err != nil {
		return nil, fmt.Errorf("list chat messages: %w", err)
	}
	defer rows.Close()

	var out []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.TranscriptionID, &m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// DeleteTranscription removes an owned transcription and, via the foreign
// key, its summaries. Unknown IDs return core.ErrNotFound.
func (r *Repository) DeleteTranscription(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transcriptions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transcription %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func nullIntPtr(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
