// Package compare runs two simulated analyses side by side and holds the
// resulting comparison as explicit session state.
package compare

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zombar/biasradar/internal/models"
	"github.com/zombar/biasradar/internal/notify"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
)

// Simulator produces one analysis for one article
type Simulator interface {
	Analyze(ctx context.Context, text string) (models.AnalysisResult, error)
}

// Recorder observes analyses and runs; implemented by metrics.BusinessMetrics
type Recorder interface {
	ObserveAnalysis(ctx context.Context, duration time.Duration, biasScore float64, err error)
	ObserveComparison(ctx context.Context, outcome string)
}

// State is a read-only view of a Session for presentation
type State struct {
	Article1   string
	Article2   string
	Busy       bool
	Comparison *models.Comparison // nil until the first successful run
}

// HasResults reports whether both analysis results exist
func (s State) HasResults() bool {
	return s.Comparison != nil
}

// Session owns the inputs, the latest comparison and the busy flag for one
// user. It is safe for concurrent use.
type Session struct {
	analyzer Simulator
	notifier notify.Notifier
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time

	busy atomic.Bool
	wg   sync.WaitGroup

	mu         sync.RWMutex
	article1   string
	article2   string
	comparison *models.Comparison
}

// Option configures a Session
type Option func(*Session)

// WithNotifier sets where user-facing notices go
func WithNotifier(n notify.Notifier) Option {
	return func(s *Session) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(s *Session) {
		s.recorder = r
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for CreatedAt
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSession creates an empty session
func NewSession(analyzer Simulator, opts ...Option) *Session {
	s := &Session{
		analyzer: analyzer,
		notifier: notify.Discard,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetInputs binds the two article texts
func (s *Session) SetInputs(article1, article2 string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.article1 = article1
	s.article2 = article2
}

// Busy reports whether a run is in progress
func (s *Session) Busy() bool {
	return s.busy.Load()
}

// Snapshot returns a copy of the current state
func (s *Session) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := State{
		Article1: s.article1,
		Article2: s.article2,
		Busy:     s.busy.Load(),
	}
	if s.comparison != nil {
		c := *s.comparison
		state.Comparison = &c
	}
	return state
}

// Run analyzes both articles concurrently and returns the comparison.
// It returns a *ValidationError when either article is blank, ErrBusy when
// a run is already in progress and an *AnalysisError when the analysis step
// fails. Prior results are only replaced on success.
func (s *Session) Run(ctx context.Context, article1, article2 string) (*models.Comparison, error) {
	if err := s.begin(ctx, article1, article2); err != nil {
		return nil, err
	}
	defer s.busy.Store(false)

	return s.execute(ctx, article1, article2)
}

// Trigger validates and starts a run in the background. A started run
// cannot be canceled through ctx; Wait blocks until it has finished.
func (s *Session) Trigger(ctx context.Context, article1, article2 string) error {
	if err := s.begin(ctx, article1, article2); err != nil {
		return err
	}

	runCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.busy.Store(false)
		s.execute(runCtx, article1, article2)
	}()
	return nil
}

// Wait blocks until background runs started by Trigger have finished
func (s *Session) Wait() {
	s.wg.Wait()
}

// begin binds the inputs, validates them and raises the busy flag
func (s *Session) begin(ctx context.Context, article1, article2 string) error {
	s.SetInputs(article1, article2)

	if err := Validate(article1, article2); err != nil {
		s.notifier.Notify(ctx, notify.Notification{
			Title:    titleMissing,
			Message:  messageMissing,
			Severity: notify.SeverityDestructive,
		})
		s.observeComparison(ctx, OutcomeValidationError)
		return err
	}

	if !s.busy.CompareAndSwap(false, true) {
		s.observeComparison(ctx, OutcomeBusy)
		return ErrBusy
	}
	return nil
}

// execute fans out both analyses and stores the comparison on success
func (s *Session) execute(ctx context.Context, article1, article2 string) (*models.Comparison, error) {
	ctx, span := otel.Tracer("biasradar").Start(ctx, "compare.run")
	defer span.End()
	span.SetAttributes(
		attribute.Int("article1.length", len(article1)),
		attribute.Int("article2.length", len(article2)),
	)

	start := time.Now()
	var result1, result2 models.AnalysisResult

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.analyze(gctx, article1, &result1)
	})
	g.Go(func() error {
		return s.analyze(gctx, article2, &result2)
	})

	if err := g.Wait(); err != nil {
		analysisErr := &AnalysisError{Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		s.logger.ErrorContext(ctx, "comparison failed", "error", err)
		s.notifier.Notify(ctx, notify.Notification{
			Title:    titleFailed,
			Message:  messageFailed,
			Severity: notify.SeverityDestructive,
		})
		s.observeComparison(ctx, OutcomeAnalysisError)
		return nil, analysisErr
	}

	comparison := &models.Comparison{
		ID:                 uuid.NewString(),
		Article1:           article1,
		Article2:           article2,
		Result1:            result1,
		Result2:            result2,
		NeutralSummary:     NeutralSummary,
		ComparativeInsight: ComparativeInsight,
		Complements:        Complements(),
		Contradictions:     Contradictions(),
		CreatedAt:          s.now().UTC(),
	}

	s.mu.Lock()
	s.comparison = comparison
	s.mu.Unlock()

	span.SetAttributes(attribute.String("comparison.id", comparison.ID))
	s.logger.InfoContext(ctx, "comparison completed",
		"comparison_id", comparison.ID,
		"bias_score_1", result1.BiasScore,
		"bias_score_2", result2.BiasScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	s.notifier.Notify(ctx, notify.Notification{
		Title:    titleComplete,
		Message:  messageDone,
		Severity: notify.SeverityDefault,
	})
	s.observeComparison(ctx, OutcomeSuccess)

	c := *comparison
	return &c, nil
}

// analyze runs one simulated analysis, turning a panic into an error
func (s *Session) analyze(ctx context.Context, text string, out *models.AnalysisResult) (err error) {
	start := time.Now()
	defer func() {
		if rv := recover(); rv != nil {
			err = fmt.Errorf("analysis panicked: %v", rv)
		}
		if s.recorder != nil {
			s.recorder.ObserveAnalysis(ctx, time.Since(start), out.BiasScore, err)
		}
	}()

	result, err := s.analyzer.Analyze(ctx, text)
	if err != nil {
		return err
	}
	*out = result
	return nil
}

func (s *Session) observeComparison(ctx context.Context, outcome string) {
	if s.recorder != nil {
		s.recorder.ObserveComparison(ctx, outcome)
	}
}
