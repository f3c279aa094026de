// Package queue defines the background tasks and the asynq client used to
// schedule them. One invocation covers one job-stage; stages for different
// jobs (and different stages of the same job) run concurrently in the worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
)

const (
	// TaskTranscriptionProcess runs the transcription dispatcher for one job.
	TaskTranscriptionProcess = "transcription:process"
	// TaskSummaryGenerate produces the summary for a completed job.
	TaskSummaryGenerate = "summary:generate"
	// TaskKnowledgeBaseIndex builds the retrieval collection for a completed job.
	TaskKnowledgeBaseIndex = "kb:index"
)

// TranscriptionPayload carries everything the dispatcher needs so the worker
// can act even before its first job-store read.
type TranscriptionPayload struct {
	JobID       string `json:"job_id"`
	ObjectKey   string `json:"object_key"`
	Diarization bool   `json:"diarization"`
}

// JobPayload identifies the job for single-argument stages.
type JobPayload struct {
	JobID string `json:"job_id"`
}

// RedisOpt converts a redis URL into the connection options asynq wants.
func RedisOpt(url string) (asynq.RedisClientOpt, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return asynq.RedisClientOpt{}, fmt.Errorf("parse redis url: %w", err)
	}
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Username: opts.Username,
		Password: opts.Password,
		DB:       opts.DB,
	}, nil
}

// Client wraps the asynq client behind the pipeline.TaskQueue contract.
type Client struct {
	inner *asynq.Client
}

func NewClient(redisURL string) (*Client, error) {
	opt, err := RedisOpt(redisURL)
	if err != nil {
		return nil, err
	}
	return &Client{inner: asynq.NewClient(opt)}, nil
}

func (c *Client) Close() error {
	return c.inner.Close()
}

// EnqueueTranscription schedules the dispatch stage. MaxRetry is zero: the
// core never retries a transcription automatically; retry is a client
// re-submission.
func (c *Client) EnqueueTranscription(ctx context.Context, jobID, objectKey string, diarization bool) error {
	return c.enqueue(ctx, TaskTranscriptionProcess, TranscriptionPayload{
		JobID:       jobID,
		ObjectKey:   objectKey,
		Diarization: diarization,
	})
}

func (c *Client) EnqueueSummary(ctx context.Context, jobID string) error {
	return c.enqueue(ctx, TaskSummaryGenerate, JobPayload{JobID: jobID})
}

func (c *Client) EnqueueIndex(ctx context.Context, jobID string) error {
	return c.enqueue(ctx, TaskKnowledgeBaseIndex, JobPayload{JobID: jobID})
}

func (c *Client) enqueue(ctx context.Context, taskType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	task := asynq.NewTask(taskType, data)
	if _, err := c.inner.EnqueueContext(ctx, task, asynq.MaxRetry(0)); err != nil {
		return fmt.Errorf("enqueue %s: %w", taskType, err)
	}
	return nil
}
