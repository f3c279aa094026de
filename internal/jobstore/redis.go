package jobstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wavetotxt/wavetotxt/internal/core"
	"github.com/wavetotxt/wavetotxt/internal/models"
)

const sessionKeyPrefix = "chat_session_"

// RedisStore persists job records and chat sessions as JSON values in Redis.
// Jobs are keyed by their raw task ID, sessions by "chat_session_<id>", so a
// store populated by an older deployment keeps working.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

// CreateJob stores the record only if the ID is unused.
func (s *RedisStore) CreateJob(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	ok, err := s.rdb.SetNX(ctx, job.ID, data, 0).Result()
	if err != nil {
		return fmt.Errorf("setnx job %s: %w", job.ID, err)
	}
	if !ok {
		return core.ErrJobExists
	}
	return nil
}

func (s *RedisStore) GetJob(ctx context.Context, id string) (*models.Job, error) {
	data, err := s.rdb.Get(ctx, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	var job models.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, fmt.Errorf("unmarshal job %s: %w", id, err)
	}
	return &job, nil
}

// SetJob overwrites the full record; callers are expected to have read the
// current record immediately beforehand.
func (s *RedisStore) SetJob(ctx context.Context, job *models.Job) error {
	job.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := s.rdb.Set(ctx, job.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("set job %s: %w", job.ID, err)
	}
	return nil
}

func (s *RedisStore) GetSession(ctx context.Context, taskID string) (*models.ChatSession, error) {
	data, err := s.rdb.Get(ctx, sessionKeyPrefix+taskID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", taskID, err)
	}
	var sess models.ChatSession
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", taskID, err)
	}
	return &sess, nil
}

func (s *RedisStore) SetSession(ctx context.Context, session *models.ChatSession) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKeyPrefix+session.TaskID, data, 0).Err(); err != nil {
		return fmt.Errorf("set session %s: %w", session.TaskID, err)
	}
	return nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, taskID string) error {
	if err := s.rdb.Del(ctx, sessionKeyPrefix+taskID).Err(); err != nil {
		return fmt.Errorf("delete session %s: %w", taskID, err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
