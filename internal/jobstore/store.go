// Package jobstore holds the durable key/value record of job state. It is the
// single source of truth for every pipeline stage; there is no partial-field
// update primitive, so mutating stages read-modify-write the whole record.
package jobstore

import (
	"context"

	"github.com/wavetotxt/wavetotxt/internal/models"
)

// Store is the job store contract. Create fails with core.ErrJobExists when
// the ID is taken; Get returns core.ErrNotFound for unknown IDs; Set is a
// full-value overwrite (last-writer-wins).
type Store interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id string) (*models.Job, error)
	SetJob(ctx context.Context, job *models.Job) error

	GetSession(ctx context.Context, taskID string) (*models.ChatSession, error)
	SetSession(ctx context.Context, session *models.ChatSession) error
	DeleteSession(ctx context.Context, taskID string) error
}
