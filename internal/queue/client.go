package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/zombar/biasradar/internal/models"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Task type and queue names
const (
	TypeCompareArticles = "biasradar:compare_articles"
	QueueComparisons    = "comparisons"
)

// Job states reported by JobStatus
const (
	StatePending   = "pending"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

// ErrJobNotFound is returned for an unknown job ID
var ErrJobNotFound = errors.New("job not found")

// CompareArticlesPayload represents the payload of a background comparison
type CompareArticlesPayload struct {
	JobID    string `json:"job_id"`
	Article1 string `json:"article1"`
	Article2 string `json:"article2"`
	// Tracing and timing fields
	TraceID    string `json:"trace_id,omitempty"`
	SpanID     string `json:"span_id,omitempty"`
	EnqueuedAt int64  `json:"enqueued_at"` // Unix timestamp in nanoseconds
}

// JobStatus is the externally visible state of a background comparison
type JobStatus struct {
	ID         string             `json:"id"`
	State      string             `json:"state"`
	Comparison *models.Comparison `json:"comparison,omitempty"`
	Error      string             `json:"error,omitempty"`
}

// Client wraps the Asynq client for enqueueing comparisons and the
// inspector for reading their state
type Client struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// ClientConfig contains configuration for the queue client
type ClientConfig struct {
	RedisAddr string
}

// NewClient creates a new queue client
func NewClient(cfg ClientConfig) *Client {
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
	}

	return &Client{
		client:    asynq.NewClient(redisOpt),
		inspector: asynq.NewInspector(redisOpt),
	}
}

// newCompareTask builds the task for jobID, capturing the caller's trace
func newCompareTask(ctx context.Context, jobID, article1, article2 string) (*asynq.Task, error) {
	payload := CompareArticlesPayload{
		JobID:      jobID,
		Article1:   article1,
		Article2:   article2,
		EnqueuedAt: time.Now().UnixNano(), // Record enqueue time for queue wait metrics
	}

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()
		payload.TraceID = spanCtx.TraceID().String()
		payload.SpanID = spanCtx.SpanID().String()

		span.AddEvent("task_enqueued", trace.WithAttributes(
			attribute.String("task.type", TypeCompareArticles),
			attribute.String("task.id", jobID),
			attribute.Int64("enqueued_at", payload.EnqueuedAt),
		))
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task payload: %w", err)
	}

	return asynq.NewTask(TypeCompareArticles, payloadBytes,
		asynq.TaskID(jobID),
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Queue(QueueComparisons),
		asynq.Retention(24*time.Hour), // keep results readable by JobStatus
	), nil
}

// EnqueueCompare enqueues a background comparison and returns its job ID
func (c *Client) EnqueueCompare(ctx context.Context, article1, article2 string) (string, error) {
	jobID := uuid.NewString()

	task, err := newCompareTask(ctx, jobID, article1, article2)
	if err != nil {
		return "", err
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue compare task: %w", err)
	}
	return info.ID, nil
}

// JobStatus reports whether a job is still pending, completed (with its
// comparison) or failed for good
func (c *Client) JobStatus(_ context.Context, jobID string) (*JobStatus, error) {
	info, err := c.inspector.GetTaskInfo(QueueComparisons, jobID)
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task info: %w", err)
	}
	return statusFromInfo(info)
}

// statusFromInfo maps an asynq task state onto a JobStatus
func statusFromInfo(info *asynq.TaskInfo) (*JobStatus, error) {
	status := &JobStatus{ID: info.ID, State: StatePending}

	switch info.State {
	case asynq.TaskStateCompleted:
		var comparison models.Comparison
		if err := json.Unmarshal(info.Result, &comparison); err != nil {
			return nil, fmt.Errorf("failed to unmarshal job result: %w", err)
		}
		status.State = StateCompleted
		status.Comparison = &comparison
	case asynq.TaskStateArchived:
		status.State = StateFailed
		status.Error = info.LastErr
	}
	return status, nil
}

// Close closes the client connections
func (c *Client) Close() error {
	if err := c.inspector.Close(); err != nil {
		c.client.Close()
		return err
	}
	return c.client.Close()
}
