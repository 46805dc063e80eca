package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zombar/biasradar/internal/models"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type fakeSimulator struct {
	err error
}

func (f fakeSimulator) Analyze(_ context.Context, text string) (models.AnalysisResult, error) {
	if f.err != nil {
		return models.AnalysisResult{}, f.err
	}
	return models.AnalysisResult{Tone: "Optimistic", BiasScore: 2.5, Summary: text}, nil
}

type fakeArchive struct {
	mu    sync.Mutex
	saved []*models.Comparison
	err   error
}

func (f *fakeArchive) SaveComparison(_ context.Context, c *models.Comparison) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.saved = append(f.saved, c)
	return nil
}

func newTestWorker(sim fakeSimulator, archive Archive) *Worker {
	return NewWorker(WorkerConfig{RedisAddr: "localhost:0", Concurrency: 1}, sim, archive, nil)
}

func compareTask(t *testing.T, ctx context.Context, jobID, a1, a2 string) *asynq.Task {
	t.Helper()
	task, err := newCompareTask(ctx, jobID, a1, a2)
	require.NoError(t, err)
	return task
}

func TestNewCompareTask(t *testing.T) {
	before := time.Now().UnixNano()
	task := compareTask(t, context.Background(), "job-1", "first", "second")

	assert.Equal(t, TypeCompareArticles, task.Type())

	var payload CompareArticlesPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "job-1", payload.JobID)
	assert.Equal(t, "first", payload.Article1)
	assert.Equal(t, "second", payload.Article2)
	assert.GreaterOrEqual(t, payload.EnqueuedAt, before)
	assert.Empty(t, payload.TraceID, "no span in context")
	assert.Empty(t, payload.SpanID)
}

func TestNewCompareTaskCapturesTrace(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))

	ctx, span := tp.Tracer("test").Start(context.Background(), "http.request")
	task := compareTask(t, ctx, "job-2", "a", "b")
	span.End()

	var payload CompareArticlesPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, span.SpanContext().TraceID().String(), payload.TraceID)
	assert.Equal(t, span.SpanContext().SpanID().String(), payload.SpanID)

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	require.Len(t, ended[0].Events(), 1)
	assert.Equal(t, "task_enqueued", ended[0].Events()[0].Name)
}

func TestHandleCompareArticles(t *testing.T) {
	archive := &fakeArchive{}
	w := newTestWorker(fakeSimulator{}, archive)

	err := w.handleCompareArticles(context.Background(), compareTask(t, context.Background(), "job-3", "first", "second"))
	require.NoError(t, err)

	require.Len(t, archive.saved, 1)
	saved := archive.saved[0]
	assert.Equal(t, "job-3", saved.ID, "archived under the job ID")
	assert.Equal(t, "first", saved.Result1.Summary)
	assert.Equal(t, "second", saved.Result2.Summary)
}

func TestHandleCompareArticlesWithoutArchive(t *testing.T) {
	w := newTestWorker(fakeSimulator{}, nil)

	err := w.handleCompareArticles(context.Background(), compareTask(t, context.Background(), "job-4", "first", "second"))
	assert.NoError(t, err)
}

func TestHandleCompareArticlesErrors(t *testing.T) {
	tests := []struct {
		name      string
		task      func(t *testing.T) *asynq.Task
		sim       fakeSimulator
		archive   *fakeArchive
		skipRetry bool
	}{
		{
			name: "invalid payload",
			task: func(t *testing.T) *asynq.Task {
				return asynq.NewTask(TypeCompareArticles, []byte("{not json"))
			},
			skipRetry: true,
		},
		{
			name: "blank article",
			task: func(t *testing.T) *asynq.Task {
				return compareTask(t, context.Background(), "job-5", "first", "  ")
			},
			skipRetry: true,
		},
		{
			name: "analysis failure retries",
			task: func(t *testing.T) *asynq.Task {
				return compareTask(t, context.Background(), "job-6", "first", "second")
			},
			sim: fakeSimulator{err: errors.New("boom")},
		},
		{
			name: "archive failure retries",
			task: func(t *testing.T) *asynq.Task {
				return compareTask(t, context.Background(), "job-7", "first", "second")
			},
			archive: &fakeArchive{err: errors.New("disk full")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var archive Archive
			if tt.archive != nil {
				archive = tt.archive
			}
			w := newTestWorker(tt.sim, archive)

			err := w.handleCompareArticles(context.Background(), tt.task(t))
			require.Error(t, err)
			assert.Equal(t, tt.skipRetry, errors.Is(err, asynq.SkipRetry))
		})
	}
}

func TestHandleCompareArticlesContinuesTrace(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	ctx, parent := tp.Tracer("test").Start(context.Background(), "http.request")
	task := compareTask(t, ctx, "job-8", "first", "second")
	parent.End()

	w := newTestWorker(fakeSimulator{}, nil)
	require.NoError(t, w.handleCompareArticles(context.Background(), task))

	var found bool
	for _, span := range recorder.Ended() {
		assert.Equal(t, parent.SpanContext().TraceID(), span.SpanContext().TraceID(), "span %s", span.Name())
		if span.Name() == "queue.compare_articles" {
			found = true
			assert.Equal(t, parent.SpanContext().SpanID(), span.Parent().SpanID())
		}
	}
	assert.True(t, found, "worker span recorded")
}

func TestRetryDelay(t *testing.T) {
	task := asynq.NewTask(TypeCompareArticles, nil)

	tests := []struct {
		n        int
		expected time.Duration
	}{
		{0, 5 * time.Second},
		{1, 30 * time.Second},
		{2, 2 * time.Minute},
		{10, 2 * time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, retryDelay(tt.n, errors.New("x"), task), "retry %d", tt.n)
	}
}

func TestStatusFromInfo(t *testing.T) {
	comparison := models.Comparison{ID: "job-9", NeutralSummary: "neutral"}
	result, err := json.Marshal(comparison)
	require.NoError(t, err)

	tests := []struct {
		name     string
		info     *asynq.TaskInfo
		state    string
		hasValue bool
		errText  string
	}{
		{"pending", &asynq.TaskInfo{ID: "job-9", State: asynq.TaskStatePending}, StatePending, false, ""},
		{"active", &asynq.TaskInfo{ID: "job-9", State: asynq.TaskStateActive}, StatePending, false, ""},
		{"retrying", &asynq.TaskInfo{ID: "job-9", State: asynq.TaskStateRetry, LastErr: "boom"}, StatePending, false, ""},
		{"completed", &asynq.TaskInfo{ID: "job-9", State: asynq.TaskStateCompleted, Result: result}, StateCompleted, true, ""},
		{"archived", &asynq.TaskInfo{ID: "job-9", State: asynq.TaskStateArchived, LastErr: "boom"}, StateFailed, false, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, err := statusFromInfo(tt.info)
			require.NoError(t, err)
			assert.Equal(t, "job-9", status.ID)
			assert.Equal(t, tt.state, status.State)
			assert.Equal(t, tt.hasValue, status.Comparison != nil)
			assert.Equal(t, tt.errText, status.Error)
		})
	}
}

func TestStatusFromInfoBadResult(t *testing.T) {
	_, err := statusFromInfo(&asynq.TaskInfo{State: asynq.TaskStateCompleted, Result: []byte("nope")})
	assert.Error(t, err)
}
