package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/zombar/biasradar/internal/compare"
	"github.com/zombar/biasradar/internal/database"
	"github.com/zombar/biasradar/internal/models"
	"github.com/zombar/biasradar/internal/notify"
	"github.com/zombar/biasradar/internal/queue"
	"github.com/zombar/biasradar/pkg/logging"
	"github.com/zombar/biasradar/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
)

const (
	maxBodyBytes = 1 << 20
	defaultLimit = 10
	maxLimit     = 100
)

// Archive is the comparison store used by the archive routes
type Archive interface {
	SaveComparison(ctx context.Context, c *models.Comparison) error
	GetComparison(ctx context.Context, id string) (*models.Comparison, error)
	ListComparisons(ctx context.Context, limit, offset int) ([]*models.Comparison, error)
	SearchByEmotionalTerm(ctx context.Context, term string) ([]*models.Comparison, error)
	DeleteComparison(ctx context.Context, id string) error
}

// JobQueue enqueues and inspects background comparisons
type JobQueue interface {
	EnqueueCompare(ctx context.Context, article1, article2 string) (string, error)
	JobStatus(ctx context.Context, jobID string) (*queue.JobStatus, error)
}

// Handler handles HTTP requests
type Handler struct {
	analyzer compare.Simulator
	archive  Archive
	queue    JobQueue
	recorder compare.Recorder
	gatherer prometheus.Gatherer
	origins  []string
	logger   *slog.Logger
	mux      *http.ServeMux
	handler  http.Handler
}

// Option configures a Handler
type Option func(*Handler)

// WithArchive enables the archive routes and archiving of /api/compare results
func WithArchive(a Archive) Option {
	return func(h *Handler) { h.archive = a }
}

// WithQueue enables the background job routes
func WithQueue(q JobQueue) Option {
	return func(h *Handler) { h.queue = q }
}

// WithRecorder sets the metrics recorder passed to comparison runs
func WithRecorder(r compare.Recorder) Option {
	return func(h *Handler) { h.recorder = r }
}

// WithGatherer sets the registry served on /metrics
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) { h.gatherer = g }
}

// WithAllowedOrigins sets the CORS origins
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) { h.origins = origins }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandler creates a new API handler with CORS support and metrics
func NewHandler(analyzer compare.Simulator, opts ...Option) *Handler {
	h := &Handler{
		analyzer: analyzer,
		gatherer: prometheus.DefaultGatherer,
		origins:  []string{"*"},
		logger:   slog.Default(),
		mux:      http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.setupRoutes()

	c := cors.New(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	h.handler = c.Handler(h.mux)
	return h
}

// ServeHTTP serves the API routes
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.handler.ServeHTTP(w, r)
}

// setupRoutes configures all API routes
func (h *Handler) setupRoutes() {
	h.mux.Handle("GET /metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /api/schema", h.handleSchema)
	h.mux.HandleFunc("POST /api/analyze", h.handleAnalyze)
	h.mux.HandleFunc("POST /api/compare", h.handleCompare)
	h.mux.HandleFunc("POST /api/jobs", h.handleEnqueueJob)
	h.mux.HandleFunc("GET /api/jobs/{id}", h.handleJobStatus)
	h.mux.HandleFunc("GET /api/comparisons", h.handleListComparisons)
	h.mux.HandleFunc("GET /api/comparisons/{id}", h.handleGetComparison)
	h.mux.HandleFunc("DELETE /api/comparisons/{id}", h.handleDeleteComparison)
	h.mux.HandleFunc("GET /api/search", h.handleSearch)
}

// handleHealth handles health check requests
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]any{
		"status":  "ok",
		"time":    time.Now().Format(time.RFC3339),
		"archive": h.archive != nil,
		"queue":   h.queue != nil,
	}, http.StatusOK)
}

// handleSchema serves the JSON Schema of a comparison, or of a single
// analysis with ?type=analysis
func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	var schema *jsonschema.Schema
	switch r.URL.Query().Get("type") {
	case "", "comparison":
		schema = jsonschema.Reflect(&models.Comparison{})
	case "analysis":
		schema = jsonschema.Reflect(&models.AnalysisResult{})
	default:
		respondError(w, "type must be comparison or analysis", http.StatusBadRequest)
		return
	}
	respondJSON(w, schema, http.StatusOK)
}

// handleAnalyze runs one simulated analysis
func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		respondError(w, "Text field is required", http.StatusBadRequest)
		return
	}

	tracing.SetSpanAttributes(r.Context(), attribute.Int("text.length", len(req.Text)))

	start := time.Now()
	result, err := h.analyzer.Analyze(r.Context(), req.Text)
	if h.recorder != nil {
		h.recorder.ObserveAnalysis(r.Context(), time.Since(start), result.BiasScore, err)
	}
	if err != nil {
		logging.HTTPErrorLogger(h.logger, http.StatusInternalServerError, err, r)
		respondError(w, "analysis failed", http.StatusInternalServerError)
		return
	}

	respondJSON(w, result, http.StatusOK)
}

// handleCompare runs a blocking comparison of two articles
func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Article1 string `json:"article1"`
		Article2 string `json:"article2"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	tracing.SetSpanAttributes(r.Context(),
		attribute.Int("article1.length", len(req.Article1)),
		attribute.Int("article2.length", len(req.Article2)),
	)

	session := compare.NewSession(h.analyzer,
		compare.WithNotifier(notify.NewLogger(h.logger)),
		compare.WithRecorder(h.recorder),
		compare.WithLogger(h.logger),
	)

	comparison, err := session.Run(r.Context(), req.Article1, req.Article2)
	var verr *compare.ValidationError
	switch {
	case errors.As(err, &verr):
		respondJSON(w, map[string]any{
			"error":  "Please provide both articles to analyze.",
			"fields": verr.Fields,
		}, http.StatusBadRequest)
		return
	case err != nil:
		logging.HTTPErrorLogger(h.logger, http.StatusInternalServerError, err, r)
		respondError(w, "There was an error analyzing the articles.", http.StatusInternalServerError)
		return
	}

	if h.archive != nil {
		if err := h.archive.SaveComparison(r.Context(), comparison); err != nil {
			// The comparison itself succeeded; the caller still gets it
			h.logger.ErrorContext(r.Context(), "failed to archive comparison",
				"comparison_id", comparison.ID,
				"error", err,
			)
		}
	}

	respondJSON(w, comparison, http.StatusOK)
}

// handleEnqueueJob queues a background comparison
func (h *Handler) handleEnqueueJob(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		respondError(w, "Background jobs are not enabled", http.StatusServiceUnavailable)
		return
	}

	var req struct {
		Article1 string `json:"article1"`
		Article2 string `json:"article2"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	var verr *compare.ValidationError
	if err := compare.Validate(req.Article1, req.Article2); errors.As(err, &verr) {
		respondJSON(w, map[string]any{
			"error":  "Please provide both articles to analyze.",
			"fields": verr.Fields,
		}, http.StatusBadRequest)
		return
	}

	jobID, err := h.queue.EnqueueCompare(r.Context(), req.Article1, req.Article2)
	if err != nil {
		logging.HTTPErrorLogger(h.logger, http.StatusInternalServerError, err, r)
		respondError(w, "Failed to enqueue comparison", http.StatusInternalServerError)
		return
	}

	respondJSON(w, map[string]any{
		"job_id":  jobID,
		"status":  "queued",
		"message": "Comparison queued for processing",
	}, http.StatusAccepted)
}

// handleJobStatus reports a background comparison's state
func (h *Handler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		respondError(w, "Background jobs are not enabled", http.StatusServiceUnavailable)
		return
	}

	status, err := h.queue.JobStatus(r.Context(), r.PathValue("id"))
	if errors.Is(err, queue.ErrJobNotFound) {
		respondError(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		logging.HTTPErrorLogger(h.logger, http.StatusInternalServerError, err, r)
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, status, http.StatusOK)
}

// handleListComparisons lists archived comparisons with pagination
func (h *Handler) handleListComparisons(w http.ResponseWriter, r *http.Request) {
	if !h.requireArchive(w) {
		return
	}

	limit := defaultLimit
	offset := 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = min(l, maxLimit)
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	comparisons, err := h.archive.ListComparisons(r.Context(), limit, offset)
	if err != nil {
		logging.HTTPErrorLogger(h.logger, http.StatusInternalServerError, err, r)
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, comparisons, http.StatusOK)
}

// handleGetComparison returns one archived comparison
func (h *Handler) handleGetComparison(w http.ResponseWriter, r *http.Request) {
	if !h.requireArchive(w) {
		return
	}

	comparison, err := h.archive.GetComparison(r.Context(), r.PathValue("id"))
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		logging.HTTPErrorLogger(h.logger, http.StatusInternalServerError, err, r)
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, comparison, http.StatusOK)
}

// handleDeleteComparison removes one archived comparison
func (h *Handler) handleDeleteComparison(w http.ResponseWriter, r *http.Request) {
	if !h.requireArchive(w) {
		return
	}

	err := h.archive.DeleteComparison(r.Context(), r.PathValue("id"))
	if errors.Is(err, database.ErrNotFound) {
		respondError(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		logging.HTTPErrorLogger(h.logger, http.StatusInternalServerError, err, r)
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSearch finds archived comparisons that used an emotional term
func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !h.requireArchive(w) {
		return
	}

	term := strings.TrimSpace(r.URL.Query().Get("term"))
	if term == "" {
		respondError(w, "Term parameter is required", http.StatusBadRequest)
		return
	}

	comparisons, err := h.archive.SearchByEmotionalTerm(r.Context(), term)
	if err != nil {
		logging.HTTPErrorLogger(h.logger, http.StatusInternalServerError, err, r)
		respondError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, comparisons, http.StatusOK)
}

func (h *Handler) requireArchive(w http.ResponseWriter) bool {
	if h.archive == nil {
		respondError(w, "Archive is not enabled", http.StatusServiceUnavailable)
		return false
	}
	return true
}

// decode reads a JSON request body, answering 400 on failure
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, map[string]string{"error": message}, statusCode)
}
