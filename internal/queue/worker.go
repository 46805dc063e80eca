package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/zombar/biasradar/internal/compare"
	"github.com/zombar/biasradar/internal/models"
	"github.com/zombar/biasradar/internal/notify"
	"github.com/zombar/biasradar/pkg/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Archive stores completed comparisons
type Archive interface {
	SaveComparison(ctx context.Context, c *models.Comparison) error
}

// Worker wraps the Asynq server for processing comparisons
type Worker struct {
	server      *asynq.Server
	mux         *asynq.ServeMux
	simulator   compare.Simulator
	archive     Archive
	recorder    compare.Recorder
	concurrency int
	logger      *slog.Logger
}

// WorkerConfig contains configuration for the queue worker
type WorkerConfig struct {
	RedisAddr   string
	Concurrency int
}

// retryDelays is the backoff between attempts of a failed comparison
var retryDelays = []time.Duration{
	5 * time.Second,
	30 * time.Second,
	2 * time.Minute,
}

// retryDelay picks the backoff for the n-th retry
func retryDelay(n int, _ error, _ *asynq.Task) time.Duration {
	if n < len(retryDelays) {
		return retryDelays[n]
	}
	return retryDelays[len(retryDelays)-1]
}

// NewWorker creates a new queue worker. archive and recorder may be nil.
func NewWorker(cfg WorkerConfig, simulator compare.Simulator, archive Archive, recorder compare.Recorder) *Worker {
	redisOpt := asynq.RedisClientOpt{
		Addr: cfg.RedisAddr,
	}

	serverCfg := asynq.Config{
		Concurrency:     cfg.Concurrency,
		Queues:          map[string]int{QueueComparisons: 1},
		RetryDelayFunc:  retryDelay,
		ShutdownTimeout: 30 * time.Second,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retried, _ := asynq.GetRetryCount(ctx)
			maxRetry, _ := asynq.GetMaxRetry(ctx)

			slog.Error("task processing error",
				"task_type", task.Type(),
				"error", err,
				"retry_count", retried,
				"max_retries", maxRetry,
			)
		}),
	}

	w := &Worker{
		server:      asynq.NewServer(redisOpt, serverCfg),
		mux:         asynq.NewServeMux(),
		simulator:   simulator,
		archive:     archive,
		recorder:    recorder,
		concurrency: cfg.Concurrency,
		logger:      slog.Default(),
	}
	w.mux.HandleFunc(TypeCompareArticles, w.handleCompareArticles)
	return w
}

// Start processes tasks until Shutdown is called
func (w *Worker) Start() error {
	w.logger.Info("starting asynq worker",
		"concurrency", w.concurrency,
		"queue", QueueComparisons,
		"archive_enabled", w.archive != nil,
	)

	if err := w.server.Run(w.mux); err != nil {
		return fmt.Errorf("asynq server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the worker
func (w *Worker) Shutdown() {
	w.logger.Info("shutting down asynq worker")
	w.server.Shutdown()
}

// handleCompareArticles runs one background comparison. Invalid payloads
// and blank articles are not retried.
func (w *Worker) handleCompareArticles(ctx context.Context, t *asynq.Task) error {
	var payload CompareArticlesPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("failed to unmarshal task payload", "error", err)
		return fmt.Errorf("invalid task payload: %v: %w", err, asynq.SkipRetry)
	}

	var queueWait time.Duration
	if payload.EnqueuedAt > 0 {
		queueWait = time.Since(time.Unix(0, payload.EnqueuedAt))
	}

	// Continue the enqueuing request's trace when one was captured
	if linked, ok := tracing.ContextWithRemoteParent(ctx, payload.TraceID, payload.SpanID); ok {
		ctx = linked
	}
	ctx, span := otel.Tracer("biasradar").Start(ctx, "queue.compare_articles",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("job.id", payload.JobID),
			attribute.Float64("queue.wait_seconds", queueWait.Seconds()),
		),
	)
	defer span.End()

	w.logger.InfoContext(ctx, "processing comparison job",
		"job_id", payload.JobID,
		"queue_wait_seconds", queueWait.Seconds(),
	)

	session := compare.NewSession(w.simulator,
		compare.WithNotifier(notify.NewLogger(w.logger)),
		compare.WithRecorder(w.recorder),
		compare.WithLogger(w.logger),
	)

	comparison, err := session.Run(ctx, payload.Article1, payload.Article2)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		var verr *compare.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("comparison job %s: %w", payload.JobID, err)
	}
	comparison.ID = payload.JobID

	result, err := json.Marshal(comparison)
	if err != nil {
		return fmt.Errorf("failed to marshal comparison: %w", err)
	}
	if rw := t.ResultWriter(); rw != nil {
		if _, err := rw.Write(result); err != nil {
			return fmt.Errorf("failed to write job result: %w", err)
		}
	}

	// Saved last so a retry never meets an already archived ID
	if w.archive != nil {
		if err := w.archive.SaveComparison(ctx, comparison); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to archive comparison: %w", err)
		}
	}

	w.logger.InfoContext(ctx, "comparison job completed", "job_id", payload.JobID)
	return nil
}
