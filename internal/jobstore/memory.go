package jobstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/wavetotxt/wavetotxt/internal/core"
	"github.com/wavetotxt/wavetotxt/internal/models"
)

// MemoryStore is an RWMutex-guarded in-memory Store. It round-trips records
// through JSON so callers observe the same copy semantics as the Redis
// implementation. Used in tests and single-process development runs.
type MemoryStore struct {
	mu       sync.RWMutex
	jobs     map[string][]byte
	sessions map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:     make(map[string][]byte),
		sessions: make(map[string][]byte),
	}
}

func (m *MemoryStore) CreateJob(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; ok {
		return core.ErrJobExists
	}
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	m.jobs[job.ID] = data
	return nil
}

func (m *MemoryStore) GetJob(ctx context.Context, id string) (*models.Job, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.jobs[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (m *MemoryStore) SetJob(ctx context.Context, job *models.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	m.jobs[job.ID] = data
	return nil
}

func (m *MemoryStore) GetSession(ctx context.Context, taskID string) (*models.ChatSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.sessions[taskID]
	if !ok {
		return nil, core.ErrNotFound
	}
	var sess models.ChatSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (m *MemoryStore) SetSession(ctx context.Context, session *models.ChatSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	m.sessions[session.TaskID] = data
	return nil
}

func (m *MemoryStore) DeleteSession(ctx context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, taskID)
	return nil
}

var _ Store = (*MemoryStore)(nil)
