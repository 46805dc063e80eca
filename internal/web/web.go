// Package web serves the server-rendered comparison page.
package web

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/zombar/biasradar/internal/compare"
	"github.com/zombar/biasradar/internal/session"
	"github.com/zombar/biasradar/pkg/logging"
)

// CookieName holds the session ID
const CookieName = "biasradar_session"

//go:embed templates
var templateFS embed.FS

// Handler renders the page and accepts the trigger form
type Handler struct {
	store  *session.Store
	page   *template.Template
	logger *slog.Logger
	ttl    time.Duration
}

// NewHandler parses the embedded templates
func NewHandler(store *session.Store, ttl time.Duration, logger *slog.Logger) (*Handler, error) {
	page, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = session.DefaultTTL
	}
	return &Handler{store: store, page: page, logger: logger, ttl: ttl}, nil
}

// RegisterRoutes adds the page routes to mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleIndex)
	mux.HandleFunc("POST /analyze", h.handleAnalyze)
}

// entry resolves the caller's session and refreshes its cookie
func (h *Handler) entry(w http.ResponseWriter, r *http.Request) *session.Entry {
	id := ""
	if c, err := r.Cookie(CookieName); err == nil {
		id = c.Value
	}

	e := h.store.Get(id)
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    e.ID,
		Path:     "/",
		MaxAge:   int(h.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return e
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	e := h.entry(w, r)

	view := buildView(e.Session.Snapshot(), e.Inbox.Drain(), r.URL.Query().Get("tab"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if err := h.page.ExecuteTemplate(w, "index.html", view); err != nil {
		h.logger.ErrorContext(r.Context(), "template execution error", "error", err)
	}
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	e := h.entry(w, r)

	if err := r.ParseForm(); err != nil {
		logging.HTTPErrorLogger(h.logger, http.StatusBadRequest, err, r)
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	// Failures surface as toasts on the next render
	err := e.Session.Trigger(r.Context(), r.PostForm.Get("article1"), r.PostForm.Get("article2"))
	var verr *compare.ValidationError
	switch {
	case err == nil:
	case errors.As(err, &verr):
	case errors.Is(err, compare.ErrBusy):
		h.logger.InfoContext(r.Context(), "trigger ignored while busy", "session_id", e.ID)
	default:
		h.logger.ErrorContext(r.Context(), "trigger failed", "session_id", e.ID, "error", err)
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
